package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/bootstrap"
	"perito.app/casetrack/internal/config"
	casoRepo "perito.app/casetrack/internal/modules/caso/repository"
	evidenciaRepo "perito.app/casetrack/internal/modules/evidencia/repository"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	"perito.app/casetrack/internal/server"
	"perito.app/casetrack/pkg/database"
	"perito.app/casetrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{Config: cfg, Log: log}

	switch cfg.DBDriver {
	case config.DriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		client, db, err := database.ConnectMongo(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			cancel()
			log.Fatal("failed to connect mongo", zap.Error(err))
		}
		if err := database.EnsureMongoIndexes(connectCtx, db); err != nil {
			cancel()
			log.Fatal("failed to ensure mongo indexes", zap.Error(err))
		}
		cancel()
		defer disconnectMongo(client, log)

		deps.Users = userRepo.NewMongoUserRepository(db)
		deps.Cases = casoRepo.NewMongoCaseRepository(db)
		deps.Evidences = evidenciaRepo.NewMongoEvidenceRepository(db)
	default:
		db, err := database.ConnectPostgres(database.PostgresConfig{
			URL:      cfg.DatabaseURL,
			Host:     cfg.DBHost,
			User:     cfg.DBUser,
			Password: cfg.DBPass,
			Name:     cfg.DBName,
			Port:     cfg.DBPort,
			Debug:    !cfg.IsProduction(),
		})
		if err != nil {
			log.Fatal("failed to connect database", zap.Error(err))
		}
		if err := bootstrap.Migrate(db); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}

		deps.Users = userRepo.NewUserRepository(db)
		deps.Cases = casoRepo.NewCaseRepository(db)
		deps.Evidences = evidenciaRepo.NewEvidenceRepository(db)
	}
	log.Info("database ready", zap.String("driver", cfg.DBDriver))

	if !cfg.IsProduction() {
		seed := bootstrap.AdminSeed{
			Username: cfg.SeedAdminUsername,
			Email:    cfg.SeedAdminEmail,
			Password: cfg.SeedAdminPassword,
		}
		if err := bootstrap.SeedAdminUser(ctx, deps.Users, seed, log); err != nil {
			log.Fatal("failed to seed admin user", zap.Error(err))
		}
	}

	deps.Redis = connectRedis(ctx, cfg.RedisURL, log)
	if deps.Redis != nil {
		defer func() { _ = deps.Redis.Close() }()
	}

	if cfg.MeiliSearchHost != "" {
		deps.Search = meilisearch.New(cfg.MeiliSearchHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	} else {
		log.Warn("MEILISEARCH_HOST not set, case search uses the database")
	}

	srv, err := server.NewServer(deps)
	if err != nil {
		log.Fatal("failed to build server", zap.Error(err))
	}
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

// connectRedis returns nil when Redis is not configured or unreachable;
// throttling and the activity stream are then disabled.
func connectRedis(ctx context.Context, url string, log *zap.Logger) *redis.Client {
	if url == "" {
		log.Warn("REDIS_URL not set, login throttling and activity stream disabled")
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := database.ConnectRedis(pingCtx, url)
	if err != nil {
		log.Warn("redis unavailable, login throttling and activity stream disabled", zap.Error(err))
		return nil
	}
	return client
}

func disconnectMongo(client *mongo.Client, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.Warn("failed to disconnect mongo", zap.Error(err))
	}
}
