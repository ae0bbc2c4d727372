package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/data/repos/testutil"
	types "github.com/IchinoSanji/ArtVisionDeployFinal/internal/domain"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/middleware"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (g *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.calls++
	return g.reply, g.err
}

func (g *stubGenerator) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	g.calls++
	return g.reply, g.err
}

const testBodyLimit = 64 << 10

type fixture struct {
	engine *gin.Engine
	users  repos.UserRepo
	auth   services.AuthService
	gen    *stubGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	f := &fixture{gen: &stubGenerator{reply: "Olá! Sou o ArtVision."}}
	f.users = repos.NewUserRepo(db, log)
	convs := repos.NewConversationRepo(db, log)
	f.auth = services.NewAuthService(log, f.users, nil, "handler-secret", "artvision", time.Hour)
	chat := services.NewChatService(log, f.users, convs, f.gen, nil, services.ChatConfig{HistoryLimit: 10})
	analysis := services.NewAnalysisService(log, f.gen, nil, nil, services.AnalysisConfig{})

	health := NewHealthHandler()
	authH := NewAuthHandler(f.auth, services.NewUserService(log, f.users), CookieConfig{})
	chatH := NewChatHandler(chat)
	analyzeH := NewAnalyzeHandler(analysis)
	am := middleware.NewAuthMiddleware(log, f.auth)

	r := gin.New()
	r.GET("/healthcheck", health.HealthCheck)
	api := r.Group("/api", am.OptionalAuth())
	api.GET("/tiers", health.ListTiers)
	api.GET("/auth/user", authH.GetUser)
	api.POST("/auth/google", authH.GoogleSignIn)
	api.POST("/auth/logout", authH.Logout)
	api.POST("/chat", middleware.BodyLimit(testBodyLimit), chatH.Chat)
	api.GET("/conversations", chatH.ListConversations)
	api.POST("/analyze", middleware.BodyLimit(testBodyLimit), analyzeH.Analyze)
	f.engine = r
	return f
}

func (f *fixture) signedInUser(t *testing.T, chats int) (uuid.UUID, string) {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	u, err := f.users.UpsertByID(dbc, types.UserUpsert{})
	require.NoError(t, err)
	for i := 0; i < chats; i++ {
		_, err := f.users.IncrementChatCount(dbc, u.ID)
		require.NoError(t, err)
	}
	token, _, err := f.auth.IssueToken(u.ID)
	require.NoError(t, err)
	return u.ID, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthAndTiers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthcheck", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/tiers", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tiers struct {
		Tiers []struct {
			Tier  string `json:"tier"`
			Lower int    `json:"lower"`
		} `json:"tiers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tiers))
	require.Len(t, tiers.Tiers, 6)
	require.Equal(t, "diamond", tiers.Tiers[5].Tier)
	require.Equal(t, 50, tiers.Tiers[5].Lower)
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/auth/user", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "unauthorized", decodeError(t, rec).Code)

	userID, token := f.signedInUser(t, 7)
	rec = f.do(t, http.MethodGet, "/api/auth/user", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, userID.String(), me["id"])
	require.EqualValues(t, 7, me["chatCount"])
	require.Equal(t, map[string]any{
		"tier": "silver", "label": "Prata", "color": "#C0C0C0", "nextTierAt": float64(10),
	}, me["tier"])
}

func TestChatSignedInTierUp(t *testing.T) {
	f := newFixture(t)
	_, token := f.signedInUser(t, 9)

	rec := f.do(t, http.MethodPost, "/api/chat", token, map[string]any{"message": "Fale sobre Monet"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{
		"response": "Olá! Sou o ArtVision.",
		"tierUp": {"tieredUp": true, "oldTier": "Prata", "newTier": "Ouro", "color": "#FFD700"}
	}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/conversations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var convs []struct {
		UserID   string `json:"userId"`
		Messages []struct {
			Role      string    `json:"role"`
			Content   string    `json:"content"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	require.Len(t, convs[0].Messages, 2)
	require.Equal(t, "user", convs[0].Messages[0].Role)
	require.Equal(t, "Fale sobre Monet", convs[0].Messages[0].Content)
	require.Equal(t, "assistant", convs[0].Messages[1].Role)
	require.False(t, convs[0].Messages[1].Timestamp.IsZero())
}

func TestChatAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/chat", "", map[string]any{
		"message":             "O que é o Cubismo?",
		"conversationHistory": []map[string]string{{"role": "user", "content": "Oi"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"response": "Olá! Sou o ArtVision.", "tierUp": null}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/conversations", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/chat", "", map[string]any{"message": "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	require.Equal(t, "invalid_request", body.Code)
	require.Equal(t, chatFailedHeadline, body.Error)

	rec = f.do(t, http.MethodPost, "/api/chat", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	f.gen.err = errors.New("model unavailable")
	rec = f.do(t, http.MethodPost, "/api/chat", "", map[string]any{"message": "Oi"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body = decodeError(t, rec)
	require.Equal(t, "ai_failed", body.Code)
	require.Equal(t, chatFailedHeadline, body.Error)
	require.Contains(t, body.Details, "model unavailable")
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t)
	f.gen.reply = "Aqui está: ```json\n{\"style\":\"Impressionismo\",\"artist\":\"Claude Monet\",\"confidence\":{\"style\":0.9,\"artist\":0.8}}\n```"
	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png-bytes"))

	rec := f.do(t, http.MethodPost, "/api/analyze", "", map[string]any{"imageBase64": img})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"style":"Impressionismo","artist":"Claude Monet","confidence":{"style":0.9,"artist":0.8}}`, rec.Body.String())

	f.gen.reply = "sem json aqui"
	rec = f.do(t, http.MethodPost, "/api/analyze", "", map[string]any{"imageBase64": img})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/analyze", "", map[string]any{"imageBase64": "%%%"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, analyzeFailedHeadline, decodeError(t, rec).Error)

	f.gen.err = errors.New("boom")
	rec = f.do(t, http.MethodPost, "/api/analyze", "", map[string]any{"imageBase64": img})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "ai_failed", decodeError(t, rec).Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	setCookie := rec.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, middleware.SessionCookie+"=;"), setCookie)
	require.Contains(t, setCookie, "Max-Age=0")
	require.Contains(t, setCookie, "HttpOnly")
}

func TestGoogleSignInWithoutVerifier(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/google", "", map[string]any{"idToken": ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/google", "", map[string]any{"idToken": "abc"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, rec.Header().Get("Set-Cookie"))
}

// padReader yields n filler bytes without allocating them.
type padReader struct{ n int64 }

func (p *padReader) Read(b []byte) (int, error) {
	if p.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(b)) > p.n {
		b = b[:p.n]
	}
	for i := range b {
		b[i] = 'a'
	}
	p.n -= int64(len(b))
	return len(b), nil
}

type countingReader struct {
	r    io.Reader
	read int64
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.read += int64(n)
	return n, err
}

func TestOversizedBodyIsRejected(t *testing.T) {
	f := newFixture(t)
	userID, token := f.signedInUser(t, 3)

	// Streamed without a Content-Length, so only the reader cap can stop it.
	body := &countingReader{r: io.MultiReader(
		strings.NewReader(`{"message":"oi","pad":"`),
		&padReader{n: 64 << 20},
		strings.NewReader(`"}`),
	)}
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	errBody := decodeError(t, rec)
	require.Equal(t, "payload_too_large", errBody.Code)
	require.Less(t, body.read, int64(1<<20))
	require.Zero(t, f.gen.calls)

	u, err := f.users.GetByID(dbctx.Context{Ctx: context.Background()}, userID)
	require.NoError(t, err)
	require.Equal(t, 3, u.ChatCount)

	// A declared length over the cap is refused before the handler runs.
	rec = f.do(t, http.MethodPost, "/api/analyze", "", map[string]any{
		"imageBase64": strings.Repeat("A", testBodyLimit),
	})
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Equal(t, "payload_too_large", decodeError(t, rec).Code)
}
