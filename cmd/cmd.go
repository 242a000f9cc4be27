package cmd

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matching-backend/internal/config"
	"matching-backend/internal/handlers"
	"matching-backend/internal/middleware"
	"matching-backend/internal/repository"
	"matching-backend/internal/repository/memory"
	"matching-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stores groups the table implementations selected by database.driver
type stores struct {
	users    services.UserStore
	swipes   services.SwipeStore
	matches  services.MatchStore
	messages services.MessageStore
	invites  services.InviteCodeStore
	health   handlers.Pinger
	close    func()
}

func Run() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	st, err := openStores(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open store")
	}
	defer st.close()

	clock := services.Clock(func() int64 { return time.Now().Unix() })

	// Initialize services
	ledger := services.NewMatchingLedger(st.users, st.swipes, st.matches, st.invites, clock)
	userService := services.NewUserService(st.users, st.invites, ledger, clock, services.UserServiceOptions{
		JWTSecret:         cfg.JWT.Secret,
		JWTExpiryDays:     cfg.JWT.ExpiryDays,
		BcryptCost:        cfg.Auth.BcryptCost,
		RequireInviteCode: cfg.Auth.RequireInviteCode,
	})
	matchService := services.NewMatchService(st.users, st.matches)
	messageService := services.NewMessageService(st.messages, matchService, clock)
	adminService := services.NewAdminService(st.users, st.matches, st.messages, st.invites, ledger, clock)

	storage, uploadDir, err := openPhotoStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to create photo storage")
	}
	photoService := services.NewPhotoService(st.users, storage, clock, int64(cfg.Storage.MaxUploadMB)<<20)

	pushService, err := services.NewPushService(services.PushConfig{
		KeyFile:    cfg.APNs.KeyFile,
		KeyID:      cfg.APNs.KeyID,
		TeamID:     cfg.APNs.TeamID,
		Topic:      cfg.APNs.Topic,
		Production: cfg.APNs.Production,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create push service")
	}

	wsHub := services.NewWSHub()
	notifier := services.NewNotifier(wsHub, pushService, st.users)

	if err := bootstrap(ctx, cfg.Admin, userService, ledger); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin")
	}

	authLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, 5*time.Minute)
	defer authLimiter.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Ledger:         ledger,
		UserService:    userService,
		MatchService:   matchService,
		MessageService: messageService,
		PhotoService:   photoService,
		AdminService:   adminService,
		Hub:            wsHub,
		Notifier:       notifier,
		Health:         handlers.NewHealthHandler(st.health),
		AuthLimiter:    authLimiter,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustedProxies: cfg.Server.TrustedProxies,
		UploadDir:      uploadDir,
		UploadPath:     cfg.Storage.PublicPath,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Str("database", cfg.Database.Driver).
			Bool("require_invite_code", cfg.Auth.RequireInviteCode).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	wsHub.CloseAll()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		mem := memory.New()
		return &stores{
			users:    mem.Users(),
			swipes:   mem.Swipes(),
			matches:  mem.Matches(),
			messages: mem.Messages(),
			invites:  mem.InviteCodes(),
			close:    func() {},
		}, nil
	}

	db, err := repository.Connect(ctx, cfg.DSN(), cfg.MaxConns)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Database connection established")

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	log.Info().Msg("Database schema applied")

	return &stores{
		users:    repository.NewUserRepository(db),
		swipes:   repository.NewSwipeRepository(db),
		matches:  repository.NewMatchRepository(db),
		messages: repository.NewMessageRepository(db),
		invites:  repository.NewInviteCodeRepository(db),
		health:   db,
		close:    db.Close,
	}, nil
}

// openPhotoStorage returns the storage backend and, for local storage, the
// directory to serve.
func openPhotoStorage(ctx context.Context, cfg *config.Config) (services.PhotoStorage, string, error) {
	if cfg.Storage.Driver == "s3" {
		s3Storage, err := services.NewS3Storage(ctx, services.S3Config{
			Region:        cfg.AWS.Region,
			Bucket:        cfg.AWS.S3Bucket,
			AccessKey:     cfg.AWS.AccessKey,
			SecretKey:     cfg.AWS.SecretKey,
			Endpoint:      cfg.AWS.Endpoint,
			PublicBaseURL: cfg.AWS.PublicBaseURL,
		})
		return s3Storage, "", err
	}

	local, err := services.NewLocalStorage(cfg.Storage.UploadDir, cfg.Storage.PublicPath)
	if err != nil {
		return nil, "", err
	}
	return local, cfg.Storage.UploadDir, nil
}

// bootstrap creates the configured admin and seed invite code
func bootstrap(ctx context.Context, cfg config.AdminConfig, userService *services.UserService, ledger *services.MatchingLedger) error {
	if cfg.Email == "" {
		if cfg.SeedInviteCode != "" {
			log.Warn().Msg("admin.seed_invite_code ignored without admin.email")
		}
		return nil
	}

	admin, err := userService.EnsureAdmin(ctx, cfg.Email, cfg.Password, cfg.Name, cfg.Age)
	if err != nil {
		return err
	}

	if cfg.SeedInviteCode != "" {
		return ledger.EnsureInviteCode(ctx, cfg.SeedInviteCode, admin.ID)
	}
	return nil
}

// setupLogger configures zerolog logger
func setupLogger(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
