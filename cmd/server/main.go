package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/field-service-api/internal/bot"
	"github.com/yukikurage/field-service-api/internal/config"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/database"
	"github.com/yukikurage/field-service-api/internal/events"
	"github.com/yukikurage/field-service-api/internal/handlers"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/storage"
	"gorm.io/gorm"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logger.Logger.WithError(err).Fatal("server stopped")
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	log := logger.Logger

	gin.SetMode(cfg.GinMode)

	if err := database.Connect(cfg); err != nil {
		return err
	}
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db := database.GetDB()

	policy, err := lifecycle.LoadPolicy(cfg.LifecyclePolicyFile)
	if err != nil {
		return err
	}

	publisher, err := events.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}()

	var objects storage.ObjectStorage
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
			cfg.MinioUseSSL, cfg.MinioBucket, cfg.MinioPublicURL)
		if err != nil {
			return err
		}
	} else {
		log.Warn("MINIO_ENDPOINT not set, photos are kept in memory")
		objects = storage.NewMemoryStorage()
	}

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	taskOpts := []services.TaskServiceOption{services.WithLogger(log)}
	if cfg.OpenAIAPIKey != "" {
		taskOpts = append(taskOpts, services.WithDrafter(services.NewAIService(cfg.OpenAIAPIKey)))
	}

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	authService := services.NewAuthService(userRepo, tokens)
	orgService := services.NewOrganizationService(orgRepo)
	employeeService := services.NewEmployeeService(employeeRepo, orgRepo)
	taskService := services.NewTaskService(
		taskRepo,
		repository.NewPauseRepository(db),
		employeeRepo,
		orgRepo,
		lifecycle.NewMachine(policy),
		publisher,
		taskOpts...,
	)
	photoService := services.NewPhotoService(repository.NewPhotoRepository(db), taskRepo, objects)
	commentService := services.NewCommentService(repository.NewCommentRepository(db), taskRepo)
	reportService := services.NewReportService(taskRepo, cfg.ReportLocation())

	rt := &handlers.Router{
		Auth:          handlers.NewAuthHandler(authService),
		Organizations: handlers.NewOrganizationHandler(orgService),
		Tasks:         handlers.NewTaskHandler(taskService, employeeService, photoService, commentService),
		Employees:     handlers.NewEmployeeHandler(employeeService),
		Reports:       handlers.NewReportHandler(reportService),
		Tokens:        tokens,
		OrgRepo:       orgRepo,
		TaskRepo:      taskRepo,
		EmployeeRepo:  employeeRepo,
	}

	switch {
	case cfg.TelegramBotToken == "":
		log.Info("TELEGRAM_BOT_TOKEN not set, chat bot disabled")
	case cfg.TelegramWebhookSecret == "":
		log.Error("TELEGRAM_WEBHOOK_SECRET not set, chat bot disabled")
	default:
		botHandler, err := setupBot(cfg, db, taskService, employeeService, photoService, commentService)
		if err != nil {
			return err
		}
		rt.Bot = handlers.NewBotHandler(botHandler, cfg.TelegramWebhookSecret, log)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		cfg.RedisPassword,
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		return fmt.Errorf("failed to create Redis session store: %w", err)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	rt.Register(r)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func setupBot(
	cfg *config.Config,
	db *gorm.DB,
	tasks *services.TaskService,
	employees *services.EmployeeService,
	photos *services.PhotoService,
	comments *services.CommentService,
) (*bot.Handler, error) {
	transport, err := bot.NewTelegramTransport(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	if cfg.TelegramWebhookURL != "" {
		if err := transport.SetWebhook(cfg.TelegramWebhookURL, cfg.TelegramWebhookSecret); err != nil {
			return nil, fmt.Errorf("failed to register webhook: %w", err)
		}
	}

	var sessionStore bot.Store
	switch cfg.BotSessionStore {
	case "redis":
		sessionStore = bot.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
			Password: cfg.RedisPassword,
		}))
	case "database", "":
		sessionStore = bot.NewGormStore(db)
	default:
		return nil, fmt.Errorf("unknown BOT_SESSION_STORE %q", cfg.BotSessionStore)
	}

	botSessions := bot.NewSessions(sessionStore, cfg.BotSessionTTL)
	return bot.NewHandler(transport, botSessions, tasks, employees, photos, comments), nil
}
