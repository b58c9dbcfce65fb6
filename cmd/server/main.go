package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"righthome/internal/config"
	"righthome/internal/handler"
	"righthome/internal/logger"
	"righthome/internal/metrics"
	"righthome/internal/repository"
	"righthome/internal/service"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Info("RightHome property co-pilot",
		"version", Version, "build_time", BuildTime, "git_commit", GitCommit)

	gin.SetMode(cfg.Server.GinMode)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	} else {
		m = metrics.NewNop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sqlx.DB
	if cfg.PostgreSQL.Enabled {
		db, err = repository.OpenPostgres(cfg.GetPostgreSQLDSN(), cfg.PostgreSQL.MaxConnections, cfg.PostgreSQL.MaxIdleConnections)
		if err != nil {
			log.Fatal("Failed to connect to database", "error", err.Error())
		}
		defer db.Close()
		log.Info("Connected to PostgreSQL database")
	} else {
		log.Warn("PostgreSQL is disabled - recommendations will have no candidate properties")
	}

	store, closeStore, err := openStateStore(ctx, cfg, db, log)
	if err != nil {
		log.Fatal("Failed to open conversation state store", "backend", cfg.State.Backend, "error", err.Error())
	}
	defer closeStore()

	modelClient := service.NewOpenAIClient(cfg.Model, log)
	if modelClient.IsEnabled() {
		log.Info("Model gateway configured",
			"api_base", cfg.Model.APIBase,
			"chat_model", cfg.Model.ChatModel,
			"embeddings", modelClient.EmbeddingsEnabled())
	} else {
		log.Warn("Model credential missing - chat requests will fail until GEMINI_API_KEY is set")
	}

	var (
		finder           service.CandidateFinder
		propertyHandler  *handler.PropertyHandler
		embeddingHandler *handler.EmbeddingHandler
	)
	if db != nil {
		ranker := service.NewRanker(cfg.Ranking.WeightMatch, cfg.Ranking.WeightPrice, cfg.Ranking.WeightRecency)
		search := service.NewSearchService(repository.NewPostgresRepository(db), ranker, modelClient, cfg.Search, log)
		finder = search
		propertyHandler = handler.NewPropertyHandler(search)
		embeddingHandler = handler.NewEmbeddingHandler(search, cfg.Model.EmbeddingDimensions)
	}

	conversations := service.NewConversationService(store, modelClient, finder, cfg.Chat, log, m)
	transcriber := service.NewWhisperClient(cfg.Transcription)

	router := newRouter(cfg, log, routes{
		chat:       handler.NewChatHandler(conversations, log),
		voice:      handler.NewVoiceHandler(transcriber),
		properties: propertyHandler,
		embeddings: embeddingHandler,
		gatherer:   prometheus.DefaultGatherer,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err.Error())
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err.Error())
	}
	log.Info("Server stopped")
}

// openStateStore builds the configured conversation state backing. The
// returned func releases it.
func openStateStore(ctx context.Context, cfg *config.Config, db *sqlx.DB, log *logger.Logger) (repository.StateStore, func(), error) {
	ttl := time.Duration(cfg.State.TTLSeconds) * time.Second

	switch cfg.State.Backend {
	case "redis":
		store, err := repository.NewRedisStateStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix, ttl)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Conversation state in Redis", "addr", cfg.Redis.Addr, "ttl", ttl.String())
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		if db == nil {
			return nil, nil, errors.New("postgres state backend needs a database connection")
		}
		store := repository.NewPostgresStateStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, nil, err
		}
		log.Info("Conversation state in PostgreSQL")
		return store, func() {}, nil

	default:
		store := repository.NewMemoryStateStore(ttl)
		log.Info("Conversation state in memory", "ttl", ttl.String())
		if ttl <= 0 {
			return store, func() {}, nil
		}
		sweepCtx, cancel := context.WithCancel(ctx)
		go sweepExpired(sweepCtx, store, ttl, log)
		return store, cancel, nil
	}
}

func sweepExpired(ctx context.Context, store *repository.MemoryStateStore, ttl time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				log.Debug("Expired conversations removed", "count", n)
			}
		}
	}
}
