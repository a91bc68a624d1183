package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/valkey-io/valkey-go"

	appControllers "github.com/campusmind/campusmind/internal/app/controllers"
	appMigrations "github.com/campusmind/campusmind/internal/app/migrations"
	appRepos "github.com/campusmind/campusmind/internal/app/repositories"
	appRoutes "github.com/campusmind/campusmind/internal/app/routes"
	appServices "github.com/campusmind/campusmind/internal/app/services"
	"github.com/campusmind/campusmind/internal/config"
	"github.com/campusmind/campusmind/internal/db"
	appMiddleware "github.com/campusmind/campusmind/internal/middleware"
	pkgAuth "github.com/campusmind/campusmind/internal/pkg/auth"
	"github.com/campusmind/campusmind/internal/pkg/helpers"
	"github.com/campusmind/campusmind/internal/pkg/logger"
	"github.com/campusmind/campusmind/internal/realtime"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos            *appRepos.Repositories
	JWTService       *pkgAuth.JWTService
	AuthService      *appServices.AuthService
	ChatService      *appServices.ChatService
	CommunityService *appServices.CommunityService

	AuthController      *appControllers.AuthController
	ChatController      *appControllers.ChatController
	CommunityController *appControllers.CommunityController
	AuthMiddleware      *appMiddleware.AuthMiddleware

	Hub      *realtime.Hub
	Presence realtime.PresenceRegistry
	Gateway  *realtime.Gateway

	// Valkey is nil unless cache.enabled; the server closes it on shutdown
	Valkey valkey.Client

	Logger zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")
	return dbPool, nil
}

// BuildDependencies initializes repositories, services, controllers and the
// realtime gateway.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		SocketTokenExp:  helpers.ParseDuration(cfg.JWT.SocketTokenExpiration, time.Minute),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.AuthService = appServices.NewAuthService(
		deps.Repos.UserRepository,
		deps.Repos.TokenRepository,
		deps.JWTService,
		lgr,
	)
	deps.ChatService = appServices.NewChatService(
		deps.Repos.ConversationRepository,
		deps.Repos.MessageRepository,
		deps.Repos.UserRepository,
		lgr,
	)
	deps.CommunityService = appServices.NewCommunityService(
		deps.Repos.CommunityRepository,
		deps.Repos.CommunityMemberRepository,
		deps.Repos.CommunityMessageRepository,
		deps.Repos.UserRepository,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.AuthController = appControllers.NewAuthController(deps.AuthService, lgr)
	deps.ChatController = appControllers.NewChatController(deps.ChatService, lgr)
	deps.CommunityController = appControllers.NewCommunityController(deps.CommunityService, lgr)

	// Realtime layer. Presence lives in memory for a single process and in
	// Valkey when several processes must agree on who is online.
	deps.Hub = realtime.NewHub(logger.With("hub"))

	if cfg.Cache.Enabled {
		client, err := db.NewValkeyClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to valkey: %w", err)
		}
		deps.Valkey = client
		deps.Presence = realtime.NewValkeyPresence(client)
		lgr.Info().Str("address", cfg.Cache.Address).Msg("Using Valkey-backed presence")
	} else {
		deps.Presence = realtime.NewMemoryPresence()
	}

	typing := realtime.NewTypingRegistry()
	dmHandler := realtime.NewDMHandler(deps.Hub, typing, deps.ChatService, logger.With("dm"))
	communityHandler := realtime.NewCommunityHandler(
		deps.Hub,
		typing,
		deps.CommunityService,
		cfg.Chat.MaxMessageLength,
		cfg.Chat.MaxHistoryPageSize,
		logger.With("community"),
	)

	deps.Gateway = realtime.NewGateway(
		deps.Hub,
		deps.Presence,
		typing,
		dmHandler,
		communityHandler,
		deps.JWTService,
		logger.With("gateway"),
	)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.AuthController,
		deps.ChatController,
		deps.CommunityController,
		deps.Gateway,
		deps.AuthMiddleware,
	)

	// Test endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong", "status": "success"})
	})

	return router
}
