package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string
	AllowedOrigin           string
	DatabaseURL             string
	SQLitePath              string
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	AuthSecret              string
	AccessTokenTTLMinutes   int
	DemoDays                int
	DemoSeed                *uint64
	DemoCatalog             string
	DemoTimezone            string
	SnapshotCacheTTLSeconds int
	LogLevel                string
	LogFormat               string
}

// LoadDotEnv reads KEY=value pairs from the given files (default ".env")
// into the process environment. Variables already set win; a missing file
// is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	days, err := strconv.Atoi(getEnv("DEMO_DAYS", "180"))
	if err != nil || days < 1 {
		days = 180
	}
	cacheTTL, err := strconv.Atoi(getEnv("SNAPSHOT_CACHE_TTL_SECONDS", "300"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 300
	}

	var seed *uint64
	if raw := strings.TrimSpace(os.Getenv("DEMO_SEED")); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			seed = &v
		}
	}

	cfg := Config{
		Port:                    getEnv("PORT", "8080"),
		AllowedOrigin:           getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		SQLitePath:              os.Getenv("SQLITE_PATH"),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisPassword:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:                 redisDB,
		AuthSecret:              strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:   tokenTTL,
		DemoDays:                days,
		DemoSeed:                seed,
		DemoCatalog:             os.Getenv("DEMO_CATALOG"),
		DemoTimezone:            getEnv("DEMO_TIMEZONE", "Local"),
		SnapshotCacheTTLSeconds: cacheTTL,
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves DemoTimezone; day boundaries of generated orders follow it.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.DemoTimezone)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
