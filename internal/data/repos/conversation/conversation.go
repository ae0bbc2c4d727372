package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type ConversationRepo interface {
	AppendMessage(dbc dbctx.Context, userID uuid.UUID, msg types.NewMessage) (*types.Conversation, error)
	GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Conversation, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Conversation, error)
	RecentMessages(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Message, error)
	RecentMessagesBefore(dbc dbctx.Context, userID uuid.UUID, beforeSeq int64, limit int) ([]*types.Message, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	repoLog := baseLog.With("repo", "ConversationRepo")
	return &conversationRepo{db: db, log: repoLog}
}

// AppendMessage stores msg at the end of the user's conversation, creating the
// conversation on first use. The conversation upsert bumps next_seq and holds
// the row lock until commit, so concurrent appends for one user are
// serialized and each gets a distinct seq.
func (r *conversationRepo) AppendMessage(dbc dbctx.Context, userID uuid.UUID, msg types.NewMessage) (*types.Conversation, error) {
	if userID == uuid.Nil {
		return nil, apierr.Invalid("user id is required")
	}
	if !msg.Role.Valid() {
		return nil, apierr.Invalid("unknown message role %q", msg.Role)
	}
	meta, err := encodeMetadata(msg.Metadata)
	if err != nil {
		return nil, apierr.Invalid("metadata: %v", err)
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var out *types.Conversation
	err = dbc.Handle(r.db).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		seed := &types.Conversation{
			UserID:    userID,
			NextSeq:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"next_seq":   gorm.Expr(`"conversation"."next_seq" + 1`),
				"updated_at": now,
			}),
		}).Create(seed).Error; err != nil {
			return fmt.Errorf("upsert conversation: %w", err)
		}

		var conv types.Conversation
		if err := tx.Where("user_id = ?", userID).Take(&conv).Error; err != nil {
			return fmt.Errorf("load conversation: %w", err)
		}

		m := &types.Message{
			ConversationID: conv.ID,
			Seq:            conv.NextSeq,
			Role:           msg.Role,
			Content:        msg.Content,
			Metadata:       meta,
			CreatedAt:      ts,
		}
		if err := tx.Create(m).Error; err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		loaded, err := r.load(tx, userID)
		out = loaded
		return err
	})
	if err != nil {
		r.log.Error("AppendMessage failed", "user_id", userID, "role", msg.Role, "error", err)
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) GetByUser(dbc dbctx.Context, userID uuid.UUID) (*types.Conversation, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return r.load(dbc.Handle(r.db), userID)
}

func (r *conversationRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Conversation, error) {
	conv, err := r.GetByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return []*types.Conversation{}, nil
	}
	return []*types.Conversation{conv}, nil
}

// RecentMessages returns up to limit of the user's latest messages, oldest
// first.
func (r *conversationRepo) RecentMessages(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Message, error) {
	return r.RecentMessagesBefore(dbc, userID, 0, limit)
}

// RecentMessagesBefore is RecentMessages restricted to seq < beforeSeq.
// beforeSeq <= 0 means no bound.
func (r *conversationRepo) RecentMessagesBefore(dbc dbctx.Context, userID uuid.UUID, beforeSeq int64, limit int) ([]*types.Message, error) {
	if userID == uuid.Nil || limit <= 0 {
		return []*types.Message{}, nil
	}
	h := dbc.Handle(r.db)

	q := h.Where("conversation_id IN (?)", h.Model(&types.Conversation{}).Select("id").Where("user_id = ?", userID))
	if beforeSeq > 0 {
		q = q.Where("seq < ?", beforeSeq)
	}
	var msgs []*types.Message
	if err := q.
		Order("seq DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *conversationRepo) load(tx *gorm.DB, userID uuid.UUID) (*types.Conversation, error) {
	var conv types.Conversation
	err := tx.
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("user_id = ?", userID).
		Take(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if conv.Messages == nil {
		conv.Messages = []*types.Message{}
	}
	return &conv, nil
}

func encodeMetadata(meta map[string]any) (datatypes.JSON, error) {
	if len(meta) == 0 {
		return datatypes.JSON([]byte("{}")), nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
