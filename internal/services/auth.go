package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/ctxutil"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type SignInResult struct {
	Token     string
	ExpiresAt time.Time
	User      *types.User
}

type AuthService interface {
	SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error)
	IssueToken(userID uuid.UUID) (string, time.Time, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	TokenTTL() time.Duration
}

type authService struct {
	log      *logger.Logger
	userRepo repos.UserRepo
	verifier OIDCVerifier
	secret   []byte
	issuer   string
	ttl      time.Duration
}

// NewAuthService builds the session service. verifier may be nil, in which
// case Google sign-in is rejected but existing session tokens still work.
func NewAuthService(
	log *logger.Logger,
	userRepo repos.UserRepo,
	verifier OIDCVerifier,
	jwtSecret string,
	issuer string,
	ttl time.Duration,
) AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &authService{
		log:      log.With("service", "AuthService"),
		userRepo: userRepo,
		verifier: verifier,
		secret:   []byte(jwtSecret),
		issuer:   issuer,
		ttl:      ttl,
	}
}

func (as *authService) SignInWithGoogle(ctx context.Context, idToken string) (*SignInResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apierr.Invalid("idToken is required")
	}
	if as.verifier == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", apierr.ErrUnauthorized)
	}
	ident, err := as.verifier.VerifyGoogleIDToken(ctx, idToken)
	if err != nil {
		as.log.Warn("Google ID token rejected", "error", err)
		return nil, err
	}

	in := types.UserUpsert{ExternalID: &ident.Sub}
	if ident.Email != "" {
		in.Email = &ident.Email
	}
	if ident.FirstName != "" {
		in.FirstName = &ident.FirstName
	}
	if ident.LastName != "" {
		in.LastName = &ident.LastName
	}
	if ident.Picture != "" {
		in.ProfileImageURL = &ident.Picture
	}

	u, err := as.userRepo.UpsertByExternalID(dbctx.Context{Ctx: ctx}, in)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	token, exp, err := as.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	as.log.Info("User signed in", "user_id", u.ID, "google_id", ident.Sub)
	return &SignInResult{Token: token, ExpiresAt: exp, User: u}, nil
}

func (as *authService) IssueToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(as.ttl)
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    as.issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// SetContextFromToken attaches RequestData for a valid session token. An
// empty token leaves ctx anonymous.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return ctx, fmt.Errorf("%w: parse token: %v", apierr.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", apierr.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("%w: invalid user id in token", apierr.ErrUnauthorized)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		UserID:      userID,
		TokenString: tokenString,
	}), nil
}

func (as *authService) TokenTTL() time.Duration {
	return as.ttl
}
