package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/tier"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/observability"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/ctxutil"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type ChatInput struct {
	Message string
	// History is the client-supplied context. Nil means "not sent", in which
	// case signed-in callers get their stored history instead.
	History []HistoryEntry
}

type ChatResult struct {
	Response string           `json:"response"`
	TierUp   *tier.TierUpInfo `json:"tierUp"`
}

type ChatConfig struct {
	Model           string
	Timeout         time.Duration
	HistoryLimit    int
	MaxMessageChars int
}

type ChatService interface {
	Chat(ctx context.Context, in ChatInput) (*ChatResult, error)
	ListConversations(dbc dbctx.Context) ([]*types.Conversation, error)
}

type chatService struct {
	log           *logger.Logger
	users         repos.UserRepo
	conversations repos.ConversationRepo
	gen           Generator
	metrics       *observability.Metrics
	cfg           ChatConfig
}

func NewChatService(
	baseLog *logger.Logger,
	users repos.UserRepo,
	conversations repos.ConversationRepo,
	gen Generator,
	metrics *observability.Metrics,
	cfg ChatConfig,
) ChatService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxMessageChars <= 0 {
		cfg.MaxMessageChars = 4000
	}
	return &chatService{
		log:           baseLog.With("service", "ChatService"),
		users:         users,
		conversations: conversations,
		gen:           gen,
		metrics:       metrics,
		cfg:           cfg,
	}
}

// Chat runs one turn. For a signed-in caller the order is: increment the chat
// count, store the user message, prompt the model, store the reply, then
// derive the tier change from the counts of that single increment. Anonymous
// callers only get the model reply.
//
// A model failure after the user message was stored leaves that message in
// place; the count increment is not rolled back either.
func (s *chatService) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	ctx = ctxutil.Default(ctx)
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, apierr.Invalid("message is required")
	}
	if utf8.RuneCountInString(message) > s.cfg.MaxMessageChars {
		return nil, apierr.Invalid("message exceeds %d characters", s.cfg.MaxMessageChars)
	}
	for i, h := range in.History {
		if !h.Role.Valid() {
			return nil, apierr.Invalid("conversationHistory[%d]: unknown role %q", i, h.Role)
		}
	}

	userID, authed := ctxutil.UserID(ctx)
	dbc := dbctx.Context{Ctx: ctx}
	history := in.History

	var oldCount, newCount int
	if authed {
		u, err := s.users.IncrementChatCount(dbc, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: user %s no longer exists", apierr.ErrUnauthorized, userID)
		}
		newCount = u.ChatCount
		oldCount = newCount - 1

		conv, err := s.conversations.AppendMessage(dbc, userID, types.NewMessage{
			Role:    types.RoleUser,
			Content: message,
		})
		if err != nil {
			return nil, fmt.Errorf("store user message: %w", err)
		}

		if history == nil && s.cfg.HistoryLimit > 0 {
			stored, err := s.storedHistory(dbc, userID, conv.NextSeq)
			if err != nil {
				return nil, err
			}
			history = stored
		}
	}

	prompt := BuildChatPrompt(history, message)

	aiCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	reply, err := s.gen.GenerateText(aiCtx, prompt)
	if err != nil {
		s.log.Error("Chat generation failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: generate reply: %w", apierr.ErrUpstream, err)
	}

	meta := map[string]any{}
	if s.cfg.Model != "" {
		meta["model"] = s.cfg.Model
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackReply
		meta["fallback"] = true
	}

	var up *tier.TierUpInfo
	if authed {
		if _, err := s.conversations.AppendMessage(dbc, userID, types.NewMessage{
			Role:     types.RoleAssistant,
			Content:  reply,
			Metadata: meta,
		}); err != nil {
			return nil, fmt.Errorf("store assistant reply: %w", err)
		}
		up = tier.TierUp(oldCount, newCount)
		if up != nil {
			s.metrics.TierUp(string(tier.Classify(newCount).Tier))
			s.log.Info("User tiered up", "user_id", userID, "from", up.OldTier, "to", up.NewTier, "chat_count", newCount)
		}
	}
	s.metrics.ChatTurn(authed)

	return &ChatResult{Response: reply, TierUp: up}, nil
}

// storedHistory returns the latest messages strictly before seq.
func (s *chatService) storedHistory(dbc dbctx.Context, userID uuid.UUID, seq int64) ([]HistoryEntry, error) {
	recent, err := s.conversations.RecentMessagesBefore(dbc, userID, seq, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return historyFromMessages(recent), nil
}

func (s *chatService) ListConversations(dbc dbctx.Context) ([]*types.Conversation, error) {
	userID, ok := ctxutil.UserID(ctxutil.Default(dbc.Ctx))
	if !ok {
		return nil, fmt.Errorf("%w: not signed in", apierr.ErrUnauthorized)
	}
	convs, err := s.conversations.ListByUser(dbc, userID)
	if err != nil {
		s.log.Error("ListConversations failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}
