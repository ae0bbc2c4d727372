package conversation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is the per-user message log. There is at most one row per
// user today; reads still return slices so more can be added later.
type Conversation struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_conversation_user" json:"userId"`

	// Count of appended messages; the last allocated message seq.
	NextSeq int64 `gorm:"column:next_seq;not null;default:0" json:"-"`

	Messages []*Message `gorm:"foreignKey:ConversationID" json:"messages"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
