package app

import (
	"gorm.io/gorm"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type Repos struct {
	User         repos.UserRepo
	Conversation repos.ConversationRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:         repos.NewUserRepo(db, log),
		Conversation: repos.NewConversationRepo(db, log),
	}
}
