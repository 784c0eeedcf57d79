package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/api"
	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/events"
	"github.com/Rrens/support-widget/internal/knowledge"
	"github.com/Rrens/support-widget/internal/knowledge/mongo"
	"github.com/Rrens/support-widget/internal/knowledge/mysql"
	"github.com/Rrens/support-widget/internal/knowledge/sqlite"
	"github.com/Rrens/support-widget/internal/logging"
	"github.com/Rrens/support-widget/internal/repository/postgres"
	"github.com/Rrens/support-widget/internal/repository/redis"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded .env from: %s\n", p)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logging.Setup(cfg.Logging, os.Getenv("ENV") == "production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting support widget API server")

	ctx := context.Background()

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Initialize Redis
	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Knowledge base
	knowledgeRouter := knowledge.NewRouter()
	knowledgeRouter.RegisterBackend("sqlite", sqlite.NewStore)
	knowledgeRouter.RegisterBackend("mysql", mysql.NewStore)
	knowledgeRouter.RegisterBackend("mongo", mongo.NewStore)
	defer knowledgeRouter.CloseAll()

	store, err := knowledgeRouter.Open(ctx, cfg.Knowledge.Backend, knowledge.ConnectionConfig{
		URI:      cfg.Knowledge.MongoURI,
		Database: cfg.Knowledge.MongoDB,
		DSN:      cfg.Knowledge.MySQLDSN,
		Path:     cfg.Knowledge.SQLitePath,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Knowledge.Backend).Msg("Failed to open knowledge store")
	}
	retriever := knowledge.NewRetriever(store, cfg.Knowledge.SearchLimit)

	// Conversation events
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.RabbitMQ)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		publisher = amqpPublisher
	} else {
		log.Warn().Msg("RabbitMQ URL is empty, conversation events are discarded")
	}
	defer publisher.Close()

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:        db,
		Redis:     redisClient,
		LLM:       api.NewLLMRouter(cfg.LLM),
		Knowledge: retriever,
		Publisher: publisher,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
