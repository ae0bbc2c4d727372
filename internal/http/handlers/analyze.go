package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

const analyzeFailedHeadline = "Erro ao analisar imagem"

type AnalyzeHandler struct {
	analysis services.AnalysisService
}

func NewAnalyzeHandler(analysis services.AnalysisService) *AnalyzeHandler {
	return &AnalyzeHandler{analysis: analysis}
}

// POST /api/analyze
// body: { "imageBase64": "data:image/png;base64,..." }
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req struct {
		ImageBase64 string `json:"imageBase64"`
	}
	if !bindJSON(c, analyzeFailedHeadline, &req) {
		return
	}
	result, err := h.analysis.Analyze(c.Request.Context(), req.ImageBase64)
	if err != nil {
		response.RespondErr(c, analyzeFailedHeadline, err)
		return
	}
	response.RespondOK(c, result)
}
