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

	"github.com/rs/zerolog/log"

	"kasirdemo/backend/internal/cache"
	"kasirdemo/backend/internal/catalog"
	"kasirdemo/backend/internal/config"
	"kasirdemo/backend/internal/domain"
	"kasirdemo/backend/internal/httpapi"
	"kasirdemo/backend/internal/logger"
	"kasirdemo/backend/internal/service"
	"kasirdemo/backend/internal/store"
	"kasirdemo/backend/internal/store/memory"
	pgstore "kasirdemo/backend/internal/store/postgres"
	"kasirdemo/backend/internal/store/sqlite"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	logCloser, err := logger.Setup(logger.LogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.DemoTimezone).Msg("invalid DEMO_TIMEZONE")
	}
	var def *catalog.Definition
	if cfg.DemoCatalog != "" {
		loaded, err := catalog.LoadFile(cfg.DemoCatalog)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DemoCatalog).Msg("invalid DEMO_CATALOG")
		}
		def = &loaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("storage ready")
	case cfg.SQLitePath != "":
		lite, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite unavailable")
		}
		repo = lite
		closers = append(closers, lite.Close)
		log.Info().Str("repository", "sqlite").Str("path", cfg.SQLitePath).Msg("storage ready")
	default:
		repo = memory.NewSeeded()
		log.Info().Str("repository", "in-memory").Msg("storage ready")
	}
	if err := ensureSeedUsers(ctx, repo); err != nil {
		log.Fatal().Err(err).Msg("seed users")
	}

	snapshotCache := cache.SnapshotCache(cache.NoopSnapshotCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSnapshotCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			snapshotCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Info().Str("cache", "redis").Msg("cache ready")
		}
	} else {
		log.Info().Str("cache", "noop").Msg("cache ready")
	}

	svc := service.New(repo, snapshotCache, service.Options{
		Days:     cfg.DemoDays,
		Seed:     cfg.DemoSeed,
		Catalog:  def,
		Location: loc,
		CacheTTL: time.Duration(cfg.SnapshotCacheTTLSeconds) * time.Second,
		Logger:   log.Logger,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("POS demo backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if err := validateSecretStrength(cfg.AuthSecret); err != nil {
		return fmt.Errorf("AUTH_SECRET is too weak: %w", err)
	}
	if cfg.DemoDays > service.MaxDays {
		return fmt.Errorf("DEMO_DAYS must not exceed %d", service.MaxDays)
	}
	return nil
}

// validateSecretStrength rejects secrets made of a single repeated character
// or a short repeated block.
func validateSecretStrength(secret string) error {
	for block := 1; block <= 4; block++ {
		if len(secret)%block != 0 {
			continue
		}
		repeated := true
		for i := block; i < len(secret); i++ {
			if secret[i] != secret[i%block] {
				repeated = false
				break
			}
		}
		if repeated {
			return fmt.Errorf("repeated pattern not allowed")
		}
	}
	return nil
}

type userRepository interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

// ensureSeedUsers creates the admin and cashier accounts in an empty durable
// store from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD. Passwords are
// stored as given; the auth manager upgrades them to bcrypt on first load.
func ensureSeedUsers(ctx context.Context, repo userRepository) error {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	adminPwd := os.Getenv("SEED_ADMIN_PASSWORD")
	cashierPwd := os.Getenv("SEED_CASHIER_PASSWORD")
	if adminPwd == "" || cashierPwd == "" {
		log.Warn().Msg("no users in store; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to create them")
		return nil
	}
	for _, u := range []domain.UserAccount{
		{Username: "admin", Password: adminPwd, Role: "admin", Active: true},
		{Username: "cashier", Password: cashierPwd, Role: "cashier", Active: true},
	} {
		if err := repo.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("create %s: %w", u.Username, err)
		}
	}
	log.Info().Msg("seed users created")
	return nil
}
