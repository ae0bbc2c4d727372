package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/db"
	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type UserRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetByExternalID(dbc dbctx.Context, externalID string) (*types.User, error)
	UpsertByID(dbc dbctx.Context, in types.UserUpsert) (*types.User, error)
	UpsertByExternalID(dbc dbctx.Context, in types.UserUpsert) (*types.User, error)
	IncrementChatCount(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (ur *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return ur.take(dbc.Handle(ur.db), "id = ?", id)
}

func (ur *userRepo) GetByExternalID(dbc dbctx.Context, externalID string) (*types.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	return ur.take(dbc.Handle(ur.db), "google_id = ?", externalID)
}

func (ur *userRepo) UpsertByID(dbc dbctx.Context, in types.UserUpsert) (*types.User, error) {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	row := newRow(id, in, now)

	var out *types.User
	err := dbc.Handle(ur.db).Transaction(func(tx *gorm.DB) error {
		assignments := profileAssignments(in, now)
		if in.ExternalID != nil {
			assignments["google_id"] = *in.ExternalID
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(assignments),
		}).Create(row).Error; err != nil {
			return err
		}
		u, err := ur.take(tx, "id = ?", id)
		out = u
		return err
	})
	if err != nil {
		return nil, ur.classify("UpsertByID", err)
	}
	return out, nil
}

func (ur *userRepo) UpsertByExternalID(dbc dbctx.Context, in types.UserUpsert) (*types.User, error) {
	if in.ExternalID == nil || strings.TrimSpace(*in.ExternalID) == "" {
		return nil, apierr.Invalid("external id is required")
	}
	externalID := strings.TrimSpace(*in.ExternalID)
	in.ExternalID = &externalID

	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	row := newRow(id, in, now)

	var out *types.User
	err := dbc.Handle(ur.db).Transaction(func(tx *gorm.DB) error {
		// chat_count is never part of the update set.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "google_id"}},
			DoUpdates: clause.Assignments(profileAssignments(in, now)),
		}).Create(row).Error; err != nil {
			return err
		}
		u, err := ur.take(tx, "google_id = ?", externalID)
		out = u
		return err
	})
	if err != nil {
		return nil, ur.classify("UpsertByExternalID", err)
	}
	return out, nil
}

// IncrementChatCount adds one to the user's chat count and returns the row as
// it is right after that increment. The update and the read share a
// transaction, so the returned count is exactly the value this call produced.
// A missing user yields (nil, nil).
func (ur *userRepo) IncrementChatCount(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out *types.User
	err := dbc.Handle(ur.db).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.User{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"chat_count": gorm.Expr("chat_count + 1"),
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		u, err := ur.take(tx, "id = ?", id)
		out = u
		return err
	})
	if err != nil {
		ur.log.Error("IncrementChatCount failed", "user_id", id, "error", err)
		return nil, fmt.Errorf("increment chat count: %w", err)
	}
	return out, nil
}

func (ur *userRepo) take(tx *gorm.DB, query string, arg any) (*types.User, error) {
	var u types.User
	if err := tx.Where(query, arg).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (ur *userRepo) classify(op string, err error) error {
	if db.IsDuplicateKey(err) {
		return fmt.Errorf("%s: %w: %v", op, apierr.ErrConflict, err)
	}
	ur.log.Error(op+" failed", "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func newRow(id uuid.UUID, in types.UserUpsert, now time.Time) *types.User {
	return &types.User{
		ID:              id,
		GoogleID:        in.ExternalID,
		Email:           in.Email,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		ProfileImageURL: in.ProfileImageURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// profileAssignments lists only the supplied profile fields plus updated_at.
func profileAssignments(in types.UserUpsert, now time.Time) map[string]any {
	set := map[string]any{"updated_at": now}
	if in.Email != nil {
		set["email"] = *in.Email
	}
	if in.FirstName != nil {
		set["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		set["last_name"] = *in.LastName
	}
	if in.ProfileImageURL != nil {
		set["profile_image_url"] = *in.ProfileImageURL
	}
	return set
}
