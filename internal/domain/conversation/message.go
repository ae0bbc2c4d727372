package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole accepts only the two known roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown message role %q", s)
	}
	return r, nil
}

// Message is one append-only entry of a conversation. Seq is allocated by the
// conversation row and is unique per conversation.
type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"-"`
	ConversationID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_message_seq,priority:1" json:"-"`
	Seq            int64          `gorm:"column:seq;not null;uniqueIndex:idx_conversation_message_seq,priority:2" json:"-"`
	Role           Role           `gorm:"column:role;type:text;not null" json:"role"`
	Content        string         `gorm:"column:content;type:text;not null" json:"content"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"-"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null" json:"timestamp"`
}

func (Message) TableName() string { return "conversation_message" }

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// NewMessage is the input to an append.
type NewMessage struct {
	Role      Role
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
}
