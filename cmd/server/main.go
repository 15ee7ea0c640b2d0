package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"readquest/internal/config"
	"readquest/internal/content"
	"readquest/internal/database"
	"readquest/internal/handlers"
	"readquest/internal/live"
	"readquest/internal/logger"
	"readquest/internal/player"
	"readquest/internal/repository"
	"readquest/internal/security"
	"readquest/internal/service"
	"readquest/migrations"
)

const (
	rateLogPruneInterval = 10 * time.Minute
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 15 * time.Second
)

func main() {
	// A missing .env is normal in production
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Configure(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat}); err != nil {
		logger.Warn("Logger configured with fallbacks", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Database connection established", "type", cfg.DatabaseType)

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations completed successfully")

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; every authenticated route will reject requests")
	}

	// Repositories
	books := repository.NewBookRepository(db)
	templates := repository.NewQuizTemplateRepository(db)
	stats := repository.NewStatsRepository(db)
	history := repository.NewHistoryRepository(db)
	achievements := repository.NewAchievementRepository(db)
	events := repository.NewEventRepository(db)
	popularity := repository.NewPopularityRepository(db)

	// Upstream content providers
	httpClient := content.NewHTTPClient(cfg.UpstreamTimeout)
	googleBooks := content.NewGoogleBooksClient(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey, httpClient)
	openLibrary := content.NewOpenLibraryClient(cfg.OpenLibraryURL, httpClient)
	youtube := content.NewYouTubeClient(cfg.YouTubeAPIURL, cfg.YouTubeAPIKey, httpClient)
	ai := content.NewAIClient(cfg.AIAPIURL, cfg.AIAPIKey, cfg.AIModel, cfg.UpstreamTimeout)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		logger.Error("Failed to initialize email service", "error", err)
		os.Exit(1)
	}

	// Services
	hub := live.NewHub()
	bookService := service.NewBookService(books, repository.NewBookVideoRepository(db), googleBooks, openLibrary, youtube)
	quizService := service.NewQuizService(books, templates, ai, bookService)
	gamification := service.NewGamificationService(db, stats, history, achievements, books, cfg.Location())
	if err := gamification.SeedCatalog(ctx); err != nil {
		logger.Error("Failed to seed achievements", "error", err)
		os.Exit(1)
	}
	eventService := service.NewEventService(events, hub)
	roleService := service.NewRoleService(repository.NewRoleRepository(db))
	analytics := service.NewAnalyticsService(db, events, history, stats, books, templates, popularity)
	guardians := service.NewGuardianService(repository.NewGuardianRepository(db), gamification, emailService)
	pregen := service.NewPregenService(books, templates, quizService)

	store := player.NewStore(cfg.QuizSessionTTL)
	sessions := service.NewQuizSessionService(quizService, eventService, gamification, store, cfg.QuizFeedbackDelay)

	proxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}
	limiter := security.NewRateLimiter(repository.NewRateLimitRepository(db))
	middleware := handlers.NewMiddleware(
		security.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		security.NewServiceKeyVerifier(cfg.ServiceKeyHash),
		roleService,
		limiter,
		proxies,
	)

	srv := &handlers.Server{
		DB:          db,
		CorsOrigins: cfg.CorsOrigins,
		Middleware:  middleware,
		Quiz:        handlers.NewQuizHandler(quizService, sessions),
		Books:       handlers.NewBookHandler(bookService, pregen),
		Events:      handlers.NewEventHandler(eventService),
		Me:          handlers.NewMeHandler(gamification),
		Guardians:   handlers.NewGuardianHandler(guardians),
		Admin:       handlers.NewAdminHandler(analytics, roleService, bookService, quizService, eventService, hub, middleware),
	}

	// Background work, all stopped by ctx
	go hub.Run(ctx)
	go limiter.RunPruner(ctx, rateLogPruneInterval)
	go store.Run(ctx, sessionSweepInterval)
	go runPopularity(ctx, analytics, cfg.PopularityInterval)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		// generation waits on the AI upstream
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
}

// runPopularity recomputes the popularity aggregate once at startup and then
// on every tick
func runPopularity(ctx context.Context, analytics *service.AnalyticsService, interval time.Duration) {
	recompute := func() {
		if err := analytics.RecomputePopularity(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Failed to recompute popularity", "error", err)
		}
	}
	recompute()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			recompute()
		}
	}
}
