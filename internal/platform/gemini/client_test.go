package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/logger"
)

type recordedCall struct {
	path string
	body map[string]any
}

func fakeGemini(t *testing.T, status int, reply string) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var mu sync.Mutex
	var calls []recordedCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		calls = append(calls, recordedCall{path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": reply}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, logger.NewNop(), nil)
	require.Error(t, err)
}

func TestGenerateText(t *testing.T) {
	srv, calls := fakeGemini(t, http.StatusOK, "O Barroco surgiu na Itália.")
	c, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, logger.NewNop(), nil)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())

	text, err := c.GenerateText(context.Background(), "O que é o Barroco?")
	require.NoError(t, err)
	require.Equal(t, "O Barroco surgiu na Itália.", text)

	got := calls()
	require.Len(t, got, 1)
	require.True(t, strings.HasSuffix(got[0].path, "models/"+DefaultModel+":generateContent"), got[0].path)
}

func TestGenerateWithImageSendsImageFirst(t *testing.T) {
	srv, calls := fakeGemini(t, http.StatusOK, `{"style":"Cubismo"}`)
	c, err := New(context.Background(), Config{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL}, logger.NewNop(), nil)
	require.NoError(t, err)

	text, err := c.GenerateWithImage(context.Background(), "analise", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	require.Equal(t, `{"style":"Cubismo"}`, text)

	got := calls()
	require.Len(t, got, 1)
	contents := got[0].body["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	require.Contains(t, parts[0], "inlineData")
	require.Equal(t, "analise", parts[1].(map[string]any)["text"])
}

func TestGenerateFailureIsUpstream(t *testing.T) {
	srv, _ := fakeGemini(t, http.StatusServiceUnavailable, "")
	c, err := New(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, logger.NewNop(), nil)
	require.NoError(t, err)

	_, err = c.GenerateText(context.Background(), "oi")
	require.ErrorIs(t, err, apierr.ErrUpstream)
}
