package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pulsefit/retention-backend/api/routes"
	"github.com/pulsefit/retention-backend/internal/config"
	"github.com/pulsefit/retention-backend/internal/handlers"
	"github.com/pulsefit/retention-backend/internal/middleware"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"github.com/pulsefit/retention-backend/internal/repositories/memory"
	mongorepo "github.com/pulsefit/retention-backend/internal/repositories/mongodb"
	"github.com/pulsefit/retention-backend/internal/services"
	"github.com/pulsefit/retention-backend/pkg/genai"
	"github.com/pulsefit/retention-backend/pkg/jwt"
	"github.com/pulsefit/retention-backend/pkg/mailer"
	mongodb "github.com/pulsefit/retention-backend/pkg/mongodb"
	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
)

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.LogFormat) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx := context.Background()

	var (
		store       *repositories.Store
		mongoClient *mongodb.Client
		healthCheck func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		slog.Warn("Using in-memory storage; data is lost on restart")
		store = memory.NewStore()
	default:
		mongoClient, err = mongodb.NewClient(ctx, cfg.MongoDB.URI)
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		db := mongoClient.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			slog.Error("Failed to create MongoDB indexes", "error", err)
			os.Exit(1)
		}
		store = mongorepo.NewStore(db)
		healthCheck = mongoClient.Ping
	}

	generator := genai.New(genai.Config{
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		BaseURL: cfg.AI.BaseURL,
		Timeout: cfg.AI.Timeout,
	})
	dispatcher := mailer.NewDispatcher(mailer.Config{
		ResendAPIKey:    cfg.Email.ResendAPIKey,
		ResendBaseURL:   cfg.Email.ResendBaseURL,
		SendGridAPIKey:  cfg.Email.SendGridAPIKey,
		SendGridBaseURL: cfg.Email.SendGridBaseURL,
		Timeout:         cfg.Email.Timeout,
	})
	slog.Info("Providers configured", "generator", generator.Name(), "mailers", dispatcher.Available())

	tokens := jwt.NewSessionTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiresIn)*time.Second)

	// Services
	emailService := services.NewEmailService(dispatcher, store.Interactions, store.Suppressions, store.EmailTemplates, cfg.Server.BaseURL, cfg.Email.From)
	trackingService := services.NewTrackingService(store.Interactions, store.Suppressions, cfg.Server.BaseURL)
	churnService := services.NewChurnEmailService(store.Members, store.ChurnEmails, generator, emailService)
	memberService := services.NewMemberService(store.Members)
	notificationService := services.NewNotificationService(store.Notifications)
	loyaltyService := services.NewLoyaltyService(store, notificationService, cfg.Loyalty.PointsPerVisit)
	authService := services.NewAuthService(store.Members, tokens)
	outreachService := services.NewOutreachService(store.Outreach, store.Members)
	workoutService := services.NewWorkoutService(store.Members, store.WorkoutPlans, generator)
	templateService := services.NewEmailTemplateService(store.EmailTemplates)

	stop := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	limiter.StartCleanup(10*time.Minute, stop)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		Tokens:               tokens,
		RateLimiter:          limiter,
		HealthCheck:          healthCheck,
		AuthHandler:          handlers.NewAuthHandler(authService, memberService, cfg.JWT.ExpiresIn, cfg.Server.BaseURL),
		MemberHandler:        handlers.NewMemberHandler(memberService, loyaltyService),
		ChurnEmailHandler:    handlers.NewChurnEmailHandler(churnService),
		EmailHandler:         handlers.NewEmailHandler(emailService, trackingService),
		LoyaltyHandler:       handlers.NewLoyaltyHandler(loyaltyService),
		NotificationHandler:  handlers.NewNotificationHandler(notificationService),
		OutreachHandler:      handlers.NewOutreachHandler(outreachService),
		WorkoutHandler:       handlers.NewWorkoutHandler(workoutService),
		EmailTemplateHandler: handlers.NewEmailTemplateHandler(templateService),
	})

	var scheduler *cron.Cron
	if cfg.Churn.ScanSchedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Churn.ScanSchedule, func() {
			scanCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			result, err := churnService.ScanAtRisk(scanCtx)
			if err != nil {
				slog.Error("Scheduled at-risk scan failed", "error", err)
				return
			}
			slog.Info("Scheduled at-risk scan finished", "scanned", result.Scanned, "generated", result.Generated, "skipped", result.Skipped, "failed", result.Failed)
		})
		if err != nil {
			slog.Error("Invalid Churn.ScanSchedule", "error", err, "schedule", cfg.Churn.ScanSchedule)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("At-risk scan scheduled", "schedule", cfg.Churn.ScanSchedule)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver, "baseUrl", cfg.Server.BaseURL)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	close(stop)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			slog.Error("Error disconnecting from MongoDB", "error", err)
		}
	}

	slog.Info("Server exiting")
}
