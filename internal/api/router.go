package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/agent"
	"github.com/Rrens/support-widget/internal/api/handler"
	customMiddleware "github.com/Rrens/support-widget/internal/api/middleware"
	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/events"
	"github.com/Rrens/support-widget/internal/knowledge"
	"github.com/Rrens/support-widget/internal/llm"
	"github.com/Rrens/support-widget/internal/repository/postgres"
	"github.com/Rrens/support-widget/internal/repository/redis"
	"github.com/Rrens/support-widget/internal/security"
	"github.com/Rrens/support-widget/internal/service"
)

// Dependencies are the long-lived clients owned by the server process
type Dependencies struct {
	DB        *postgres.DB
	Redis     *redis.Client
	LLM       *llm.Router
	Knowledge *knowledge.Retriever
	Publisher events.Publisher
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", customMiddleware.ContactSessionHeader},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	secretsKey := cfg.Security.SecretsKey
	if secretsKey == "" {
		secretsKey = cfg.Auth.JWTSecret
	}
	encryptor, err := security.NewEncryptorFromSecret(secretsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets encryptor: %w", err)
	}
	sanitizer := security.NewMessageSanitizer(0)

	// Repositories
	orgRepo := postgres.NewOrganizationRepository(deps.DB)
	operatorRepo := postgres.NewOperatorRepository(deps.DB)
	sessionRepo := postgres.NewContactSessionRepository(deps.DB)
	conversationRepo := postgres.NewConversationRepository(deps.DB)
	threadRepo := postgres.NewThreadRepository(deps.DB)
	settingsRepo := postgres.NewWidgetSettingsRepository(deps.DB)
	pluginRepo := postgres.NewPluginRepository(deps.DB)

	// Redis-backed components
	rateLimiter := redis.NewRateLimiter(
		deps.Redis,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)
	settingsCache := redis.NewSettingsCache(deps.Redis, cfg.Redis.CacheTTL)

	// Agent
	var (
		generator service.Generator
		enhancer  llm.Provider
	)
	if provider, err := deps.LLM.Select(cfg.LLM.Agent.Provider); err == nil {
		generator = agent.NewSupportAgent(provider, deps.Knowledge, threadRepo, agent.Config{
			Model:        cfg.LLM.Agent.Model,
			MaxSteps:     cfg.LLM.Agent.MaxSteps,
			HistoryLimit: cfg.LLM.Agent.HistoryLimit,
			SearchLimit:  cfg.Knowledge.SearchLimit,
			Temperature:  cfg.LLM.Agent.Temperature,
		})
		enhancer = provider
		log.Info().Str("provider", provider.Name()).Msg("Support agent enabled")
	} else {
		log.Warn().Err(err).Msg("Support agent disabled, visitor messages will wait for an operator")
	}

	// Services
	authService := service.NewAuthService(operatorRepo, jwtManager)
	orgService := service.NewOrganizationService(orgRepo)
	sessionService := service.NewContactSessionService(sessionRepo, orgRepo, cfg.Session.Duration, cfg.Session.RefreshThreshold)
	widgetService := service.NewWidgetService(settingsRepo, settingsCache)
	pluginService := service.NewPluginService(pluginRepo, encryptor)
	conversationService := service.NewConversationService(
		conversationRepo,
		threadRepo,
		sessionRepo,
		widgetService,
		generator,
		enhancer,
		deps.Publisher,
		sanitizer,
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	publicHandler := handler.NewPublicHandler(orgService, sessionService, widgetService, pluginService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	settingsHandler := handler.NewSettingsHandler(widgetService, pluginService)
	knowledgeHandler := handler.NewKnowledgeHandler(deps.Knowledge)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)
	visitorSession := customMiddleware.VisitorSession(sessionService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(map[string]handler.Pinger{
			"postgres": deps.DB,
			"redis":    deps.Redis,
		}))

		r.Route("/auth", func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		// Widget endpoints
		r.Route("/public", func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/organizations/{orgID}/validate", publicHandler.ValidateOrganization)
			r.Get("/organizations/{orgID}/widget-settings", publicHandler.GetWidgetSettings)
			r.Get("/organizations/{orgID}/voice-credentials", publicHandler.GetVoiceCredentials)

			r.Post("/contact-sessions", publicHandler.CreateContactSession)
			r.Post("/contact-sessions/{sessionID}/validate", publicHandler.ValidateContactSession)
			r.Post("/contact-sessions/{sessionID}/refresh", publicHandler.RefreshContactSession)

			r.Group(func(r chi.Router) {
				r.Use(visitorSession)

				r.Route("/conversations", func(r chi.Router) {
					r.Get("/", conversationHandler.List)
					r.Post("/", conversationHandler.Create)
					r.Get("/{conversationID}", conversationHandler.Get)
					r.Get("/{conversationID}/messages", conversationHandler.ListMessages)
					r.Post("/{conversationID}/messages", conversationHandler.SubmitMessage)
				})
			})
		})

		// Operator dashboard
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/me", authHandler.Me)
			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))
			r.Post("/cache/flush", handler.FlushCache(settingsCache))

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", conversationHandler.List)
				r.Post("/enhance", conversationHandler.Enhance)
				r.Get("/{conversationID}", conversationHandler.Get)
				r.Patch("/{conversationID}/status", conversationHandler.UpdateStatus)
				r.Get("/{conversationID}/messages", conversationHandler.ListMessages)
				r.Post("/{conversationID}/messages", conversationHandler.SubmitMessage)
			})

			r.Route("/widget-settings", func(r chi.Router) {
				r.Get("/", settingsHandler.GetSettings)
				r.Put("/", settingsHandler.UpsertSettings)
			})

			r.Route("/plugins/vapi", func(r chi.Router) {
				r.Get("/", settingsHandler.GetVapiPlugin)
				r.Put("/", settingsHandler.UpsertVapiPlugin)
				r.Delete("/", settingsHandler.RemoveVapiPlugin)
			})

			r.Route("/knowledge", func(r chi.Router) {
				r.Get("/", knowledgeHandler.List)
				r.Post("/", knowledgeHandler.Add)
				r.Get("/search", knowledgeHandler.Search)
				r.Delete("/{entryID}", knowledgeHandler.Delete)
			})
		})
	})

	return r, nil
}
