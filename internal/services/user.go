package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain/tier"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/ctxutil"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

// UserProfile is the /api/auth/user payload.
type UserProfile struct {
	ID              uuid.UUID     `json:"id"`
	Email           *string       `json:"email"`
	FirstName       *string       `json:"firstName"`
	LastName        *string       `json:"lastName"`
	ProfileImageURL *string       `json:"profileImageUrl"`
	ChatCount       int           `json:"chatCount"`
	Tier            tier.Progress `json:"tier"`
}

func NewUserProfile(u *types.User) *UserProfile {
	return &UserProfile{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		ProfileImageURL: u.ProfileImageURL,
		ChatCount:       u.ChatCount,
		Tier:            tier.ProgressFor(u.ChatCount),
	}
}

type UserService interface {
	GetMe(dbc dbctx.Context) (*UserProfile, error)
}

type userService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(dbc dbctx.Context) (*UserProfile, error) {
	userID, ok := ctxutil.UserID(ctxutil.Default(dbc.Ctx))
	if !ok {
		return nil, fmt.Errorf("%w: not signed in", apierr.ErrUnauthorized)
	}
	u, err := us.userRepo.GetByID(dbc, userID)
	if err != nil {
		us.log.Error("GetMe lookup failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		// Token outlived the account row.
		return nil, fmt.Errorf("%w: user not found", apierr.ErrUnauthorized)
	}
	return NewUserProfile(u), nil
}
