package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos/testutil"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/ctxutil"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

const testClientID = "artvision-test.apps.googleusercontent.com"

// fakeGoogle serves OIDC discovery and a JWKS for one RSA key.
type fakeGoogle struct {
	srv *httptest.Server
	key *rsa.PrivateKey
	kid string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	g := &fakeGoogle{key: key, kid: "kid-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   "https://accounts.google.com",
			"jwks_uri": g.srv.URL + "/certs",
		})
	})
	mux.HandleFunc("/certs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": g.kid,
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func (g *fakeGoogle) verifier(t *testing.T) OIDCVerifier {
	t.Helper()
	v, err := NewOIDCVerifier(OIDCConfig{
		GoogleClientID: testClientID,
		DiscoveryURL:   g.srv.URL + "/.well-known/openid-configuration",
		HTTPClient:     g.srv.Client(),
	})
	require.NoError(t, err)
	return v
}

func (g *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = g.kid
	s, err := tok.SignedString(g.key)
	require.NoError(t, err)
	return s
}

func googleClaims(sub string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testClientID,
		"sub":            sub,
		"email":          sub + "@example.com",
		"email_verified": true,
		"given_name":     "Tarsila",
		"family_name":    "do Amaral",
		"picture":        "https://example.com/t.png",
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func TestOIDCVerifierAcceptsGoogleToken(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)

	ident, err := v.VerifyGoogleIDToken(context.Background(), g.sign(t, googleClaims("1234")))
	require.NoError(t, err)
	require.Equal(t, "google", ident.Provider)
	require.Equal(t, "1234", ident.Sub)
	require.Equal(t, "1234@example.com", ident.Email)
	require.True(t, ident.EmailVerified)
	require.Equal(t, "Tarsila", ident.FirstName)
	require.Equal(t, "do Amaral", ident.LastName)
	require.Equal(t, "https://example.com/t.png", ident.Picture)
}

func TestOIDCVerifierRejects(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)
	ctx := context.Background()

	wrongAud := googleClaims("1")
	wrongAud["aud"] = "someone-else"
	wrongIss := googleClaims("1")
	wrongIss["iss"] = "https://evil.example.com"
	expired := googleClaims("1")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	noSub := googleClaims("")

	for name, claims := range map[string]jwt.MapClaims{
		"audience": wrongAud,
		"issuer":   wrongIss,
		"expired":  expired,
		"sub":      noSub,
	} {
		_, err := v.VerifyGoogleIDToken(ctx, g.sign(t, claims))
		require.ErrorIs(t, err, apierr.ErrUnauthorized, name)
	}

	_, err := v.VerifyGoogleIDToken(ctx, "")
	require.ErrorIs(t, err, apierr.ErrUnauthorized)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, googleClaims("1"))
	forged.Header["kid"] = g.kid
	s, err := forged.SignedString(other)
	require.NoError(t, err)
	_, err = v.VerifyGoogleIDToken(ctx, s)
	require.ErrorIs(t, err, apierr.ErrUnauthorized)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	auth := NewAuthService(logger.NewNop(), nil, nil, "secret-a", "artvision", time.Hour)
	userID := uuid.New()

	token, exp, err := auth.IssueToken(userID)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	ctx, err := auth.SetContextFromToken(context.Background(), token)
	require.NoError(t, err)
	got, ok := ctxutil.UserID(ctx)
	require.True(t, ok)
	require.Equal(t, userID, got)

	ctx, err = auth.SetContextFromToken(context.Background(), "")
	require.NoError(t, err)
	_, ok = ctxutil.UserID(ctx)
	require.False(t, ok)
}

func TestSessionTokenRejectsForeignOrExpired(t *testing.T) {
	auth := NewAuthService(logger.NewNop(), nil, nil, "secret-a", "artvision", time.Hour)
	other := NewAuthService(logger.NewNop(), nil, nil, "secret-b", "artvision", time.Hour)

	foreign, _, err := other.IssueToken(uuid.New())
	require.NoError(t, err)
	_, err = auth.SetContextFromToken(context.Background(), foreign)
	require.ErrorIs(t, err, apierr.ErrUnauthorized)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	s, err := expired.SignedString([]byte("secret-a"))
	require.NoError(t, err)
	_, err = auth.SetContextFromToken(context.Background(), s)
	require.ErrorIs(t, err, apierr.ErrUnauthorized)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	s, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.SetContextFromToken(context.Background(), s)
	require.ErrorIs(t, err, apierr.ErrUnauthorized)
}

func TestSignInWithGoogleUpsertsUser(t *testing.T) {
	g := newFakeGoogle(t)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	users := repos.NewUserRepo(db, log)
	auth := NewAuthService(log, users, g.verifier(t), "secret", "artvision", time.Hour)

	sub := "g-" + uuid.NewString()
	first, err := auth.SignInWithGoogle(context.Background(), g.sign(t, googleClaims(sub)))
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)
	require.Equal(t, "Tarsila", *first.User.FirstName)
	require.Equal(t, 0, first.User.ChatCount)

	again, err := auth.SignInWithGoogle(context.Background(), g.sign(t, googleClaims(sub)))
	require.NoError(t, err)
	require.Equal(t, first.User.ID, again.User.ID)

	ctx, err := auth.SetContextFromToken(context.Background(), again.Token)
	require.NoError(t, err)
	got, ok := ctxutil.UserID(ctx)
	require.True(t, ok)
	require.Equal(t, first.User.ID, got)
}

func TestSignInWithGoogleWithoutVerifier(t *testing.T) {
	auth := NewAuthService(logger.NewNop(), nil, nil, "secret", "artvision", time.Hour)

	_, err := auth.SignInWithGoogle(context.Background(), "token")
	require.ErrorIs(t, err, apierr.ErrUnauthorized)

	_, err = auth.SignInWithGoogle(context.Background(), " ")
	require.ErrorIs(t, err, apierr.ErrInvalidArgument)
}
