package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/http/response"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/platform/dbctx"
	"github.com/IchinoSanji/ArtVisionDeployFinal/internal/services"
)

const chatFailedHeadline = "Erro ao processar mensagem"

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatReq struct {
	Message string `json:"message"`
	// Absent or null leaves the slice nil; [] decodes to an empty slice.
	ConversationHistory []services.HistoryEntry `json:"conversationHistory"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if !bindJSON(c, chatFailedHeadline, &req) {
		return
	}
	res, err := h.chat.Chat(c.Request.Context(), services.ChatInput{
		Message: req.Message,
		History: req.ConversationHistory,
	})
	if err != nil {
		response.RespondErr(c, chatFailedHeadline, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/conversations
func (h *ChatHandler) ListConversations(c *gin.Context) {
	convs, err := h.chat.ListConversations(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		response.RespondErr(c, "", err)
		return
	}
	response.RespondOK(c, convs)
}
