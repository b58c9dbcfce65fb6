package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"righthome/internal/model"
	"righthome/internal/service"
)

// maxAudioBytes caps an uploaded recording
const maxAudioBytes = 25 << 20

// VoiceHandler turns recorded speech into a chat utterance
type VoiceHandler struct {
	transcriber service.Transcriber
}

// NewVoiceHandler creates a new voice handler
func NewVoiceHandler(transcriber service.Transcriber) *VoiceHandler {
	return &VoiceHandler{transcriber: transcriber}
}

// Transcribe handles POST /api/v1/voice/transcribe (multipart field "file")
func (h *VoiceHandler) Transcribe(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes)

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Audio file is required"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read audio file"})
		return
	}
	defer file.Close()

	text, err := h.transcriber.Transcribe(c.Request.Context(), header.Filename, file)
	if err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, service.ErrUnconfigured):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Transcription is not configured"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Transcription is busy, try again shortly"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Transcription failed: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, model.TranscriptionResponse{Transcription: text})
}
