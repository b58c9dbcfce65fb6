package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"righthome/internal/model"
)

// EmbeddingUpdater stores listing embeddings
type EmbeddingUpdater interface {
	UpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string)
}

// EmbeddingHandler handles embedding-related HTTP requests
type EmbeddingHandler struct {
	updater    EmbeddingUpdater
	dimensions int
}

// NewEmbeddingHandler creates a new embedding handler. dimensions <= 0 skips the size check.
func NewEmbeddingHandler(updater EmbeddingUpdater, dimensions int) *EmbeddingHandler {
	return &EmbeddingHandler{
		updater:    updater,
		dimensions: dimensions,
	}
}

// BatchUpdate handles POST /api/v1/embeddings/batch
func (h *EmbeddingHandler) BatchUpdate(c *gin.Context) {
	var req model.EmbeddingBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if len(req.Embeddings) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No embeddings provided"})
		return
	}

	if h.dimensions > 0 {
		for i, item := range req.Embeddings {
			if len(item.Embedding) != h.dimensions {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Invalid embedding dimension at index %d, expected %d", i, h.dimensions),
				})
				return
			}
		}
	}

	success, errs := h.updater.UpdateEmbeddings(c.Request.Context(), req.Embeddings)

	response := model.EmbeddingBatchResponse{
		Success: success,
		Failed:  len(req.Embeddings) - success,
		Errors:  errs,
	}

	if len(errs) > 0 {
		c.JSON(http.StatusPartialContent, response)
	} else {
		c.JSON(http.StatusOK, response)
	}
}
