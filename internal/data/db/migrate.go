package db

import (
	"fmt"

	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},
		&types.Conversation{},
		&types.Message{},
	)
}

func EnsureConversationIndexes(db *gorm.DB) error {
	// Time-ordered message listings per conversation.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversation_message_conv_created
		ON conversation_message (conversation_id, created_at);
	`).Error; err != nil {
		return fmt.Errorf("create idx_conversation_message_conv_created: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureConversationIndexes(s.db); err != nil {
		s.log.Error("Conversation index migration failed", "error", err)
		return err
	}
	return nil
}
