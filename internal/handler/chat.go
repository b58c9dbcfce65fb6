package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"righthome/internal/logger"
	"righthome/internal/model"
	"righthome/internal/service"
)

// ChatService runs conversation turns
type ChatService interface {
	HandleTurn(ctx context.Context, id, utterance string) (*model.ChatResponse, error)
	HandleTurnStream(ctx context.Context, id, utterance string, emit service.TurnEventCallback) (*model.ChatResponse, error)
	GetConversation(ctx context.Context, id string) (*model.ConversationResponse, error)
	ResetConversation(ctx context.Context, id string) error
}

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	chat   ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat ChatService, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{chat: chat, logger: log.With("component", "chat_handler")}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	resp, err := h.chat.HandleTurn(c.Request.Context(), conversationID(req), req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ChatStream handles POST /api/v1/chat/stream - SSE streaming turn
func (h *ChatHandler) ChatStream(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	flusher, ok := startSSE(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	id := conversationID(req)
	if err := sendSSE(c, flusher, "start", gin.H{"conversationId": id}); err != nil {
		return
	}

	_, err := h.chat.HandleTurnStream(c.Request.Context(), id, req.Message, func(event string, data any) error {
		return sendSSE(c, flusher, event, data)
	})
	if err != nil {
		if c.Request.Context().Err() != nil {
			h.logger.Info("client went away mid-turn", "conversation_id", id)
			return
		}
		h.logger.Error("streaming turn failed", "conversation_id", id, "error", err.Error())
		_ = sendSSE(c, flusher, "error", gin.H{"error": errorMessage(err)})
	}
}

// GetConversation handles GET /api/v1/conversations/:id
func (h *ChatHandler) GetConversation(c *gin.Context) {
	conv, err := h.chat.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// ResetConversation handles DELETE /api/v1/conversations/:id
func (h *ChatHandler) ResetConversation(c *gin.Context) {
	if err := h.chat.ResetConversation(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrUnconfigured) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": errorMessage(err)})
}

func errorMessage(err error) string {
	if errors.Is(err, service.ErrUnconfigured) {
		return "The assistant is not configured. Set GEMINI_API_KEY and try again."
	}
	return "Failed to process message: " + err.Error()
}

func bindChatRequest(c *gin.Context) (model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return req, false
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return req, false
	}
	return req, true
}

// conversationID prefers the chat id, then the user id, then mints one
func conversationID(req model.ChatRequest) string {
	if id := strings.TrimSpace(req.ChatID); id != "" {
		return id
	}
	if id := strings.TrimSpace(req.UserID); id != "" {
		return id
	}
	return uuid.NewString()
}
