package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/apierr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

var headlines = map[string]string{
	"invalid_request":   "Requisição inválida",
	"unauthorized":      "Não autorizado",
	"not_found":         "Não encontrado",
	"conflict":          "Conflito",
	"payload_too_large": "Requisição muito grande",
	"rate_limited":      "Muitas requisições, tente novamente em instantes",
	"ai_failed":         "Falha ao consultar o modelo de IA",
	"internal":          "Erro interno",
}

func headlineFor(code string) string {
	if h, ok := headlines[code]; ok {
		return h
	}
	return "Erro"
}

func RespondError(c *gin.Context, status int, code string, err error) {
	body := ErrorBody{Error: headlineFor(code), Code: code}
	if err != nil {
		body.Details = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// RespondErr classifies err and writes it. headline overrides the default
// headline for the code when non-empty.
func RespondErr(c *gin.Context, headline string, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	body := ErrorBody{Error: headlineFor(ae.Code), Code: ae.Code}
	if headline != "" {
		body.Error = headline
	}
	if err != nil {
		body.Details = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(ae.Status, body)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
