package repos

import (
	"gorm.io/gorm"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos/conversation"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos/user"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type UserRepo = user.UserRepo
type ConversationRepo = conversation.ConversationRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return conversation.NewConversationRepo(db, baseLog)
}
