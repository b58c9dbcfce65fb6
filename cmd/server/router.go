package main

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"righthome/internal/config"
	"righthome/internal/handler"
	"righthome/internal/logger"
)

// routes holds the handlers the router mounts. Property and embedding
// handlers are nil when no listing database is configured.
type routes struct {
	chat       *handler.ChatHandler
	voice      *handler.VoiceHandler
	properties *handler.PropertyHandler
	embeddings *handler.EmbeddingHandler
	gatherer   prometheus.Gatherer
}

func newRouter(cfg *config.Config, log *logger.Logger, r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handler.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	if origins := splitList(cfg.Server.AllowedOrigins); len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = splitList(cfg.Server.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.Server.AllowedHeaders)
	corsConfig.ExposeHeaders = []string{handler.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"service":          "righthome",
			"version":          Version,
			"model_configured": cfg.Model.Enabled(),
			"state_backend":    cfg.State.Backend,
			"listings_enabled": r.properties != nil,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"git_commit": GitCommit,
		})
	})

	if cfg.Metrics.Enabled && r.gatherer != nil {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", r.chat.Chat)
		apiV1.POST("/chat/stream", r.chat.ChatStream)
		apiV1.GET("/conversations/:id", r.chat.GetConversation)
		apiV1.DELETE("/conversations/:id", r.chat.ResetConversation)

		apiV1.POST("/voice/transcribe", r.voice.Transcribe)

		if r.properties != nil {
			apiV1.GET("/properties", r.properties.Search)
			apiV1.GET("/properties/:id", r.properties.GetProperty)
		}
		if r.embeddings != nil {
			apiV1.POST("/embeddings/batch", r.embeddings.BatchUpdate)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	return router
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
