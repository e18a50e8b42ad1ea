// Package config собирает настройки сервиса из флагов, переменных окружения и файла .env.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config содержит настройки приложения
type Config struct {
	RunAddr         string
	GRPCAddr        string
	BaseURL         string
	FileStoragePath string
	DatabaseDSN     string
	SQLitePath      string
	RedisAddr       string
	CacheTTL        time.Duration
	JWTSecret       string
	TrustedSubnet   string
	GRPCTrustRealIP bool
	LogLevel        string
	CodeLength      int
	MaxAttempts     int
	BcryptCost      int
	ClickWorkers    int
	ClickQueueSize  int
	ClickTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		RunAddr:         ":8080",
		GRPCAddr:        "",
		BaseURL:         "http://localhost:8080",
		FileStoragePath: "",
		CacheTTL:        10 * time.Minute,
		JWTSecret:       "default_jwt_secret",
		LogLevel:        "info",
		CodeLength:      6,
		MaxAttempts:     5,
		BcryptCost:      bcrypt.DefaultCost,
		ClickWorkers:    4,
		ClickQueueSize:  1024,
		ClickTimeout:    5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// NewConfig загружает .env, разбирает флаги командной строки и переменные окружения
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Load(os.Args[1:], os.LookupEnv)
}

// LookupFunc источник переменных окружения
type LookupFunc func(key string) (string, bool)

// Load разбирает args и переменные окружения; переменные окружения приоритетнее флагов
func Load(args []string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	fset := flag.NewFlagSet("shortener", flag.ContinueOnError)
	fset.StringVar(&cfg.RunAddr, "a", cfg.RunAddr, "address and port to run HTTP server")
	fset.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "address and port to run gRPC server, empty disables it")
	fset.StringVar(&cfg.BaseURL, "b", cfg.BaseURL, "base URL for shortened links")
	fset.StringVar(&cfg.FileStoragePath, "f", cfg.FileStoragePath, "path to file for storing links")
	fset.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN for PostgreSQL")
	fset.StringVar(&cfg.SQLitePath, "s", cfg.SQLitePath, "path to SQLite database")
	fset.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address or URL for link cache")
	fset.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "TTL of cached links")
	fset.StringVar(&cfg.JWTSecret, "j", cfg.JWTSecret, "JWT secret key")
	fset.StringVar(&cfg.TrustedSubnet, "t", cfg.TrustedSubnet, "trusted subnet in CIDR notation")
	fset.BoolVar(&cfg.GRPCTrustRealIP, "grpc-trust-real-ip", cfg.GRPCTrustRealIP, "take gRPC client address from x-real-ip set by a proxy")
	fset.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fset.IntVar(&cfg.CodeLength, "code-length", cfg.CodeLength, "length of generated short codes")
	fset.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "max short code generation attempts")
	fset.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt cost for link passwords")
	fset.IntVar(&cfg.ClickWorkers, "click-workers", cfg.ClickWorkers, "number of click accounting workers")
	fset.IntVar(&cfg.ClickQueueSize, "click-queue", cfg.ClickQueueSize, "click accounting queue size")
	fset.DurationVar(&cfg.ClickTimeout, "click-timeout", cfg.ClickTimeout, "timeout of a single click increment")
	fset.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "graceful shutdown timeout")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	// Проверяем переменные окружения
	strEnv(lookup, "SERVER_ADDRESS", &cfg.RunAddr)
	strEnv(lookup, "GRPC_ADDRESS", &cfg.GRPCAddr)
	strEnv(lookup, "BASE_URL", &cfg.BaseURL)
	strEnv(lookup, "FILE_STORAGE_PATH", &cfg.FileStoragePath)
	strEnv(lookup, "DATABASE_DSN", &cfg.DatabaseDSN)
	strEnv(lookup, "SQLITE_PATH", &cfg.SQLitePath)
	strEnv(lookup, "REDIS_ADDRESS", &cfg.RedisAddr)
	strEnv(lookup, "JWT_SECRET", &cfg.JWTSecret)
	strEnv(lookup, "TRUSTED_SUBNET", &cfg.TrustedSubnet)
	strEnv(lookup, "LOG_LEVEL", &cfg.LogLevel)

	var errs []error
	errs = append(errs,
		durationEnv(lookup, "CACHE_TTL", &cfg.CacheTTL),
		intEnv(lookup, "CODE_LENGTH", &cfg.CodeLength),
		intEnv(lookup, "MAX_ATTEMPTS", &cfg.MaxAttempts),
		intEnv(lookup, "BCRYPT_COST", &cfg.BcryptCost),
		intEnv(lookup, "CLICK_WORKERS", &cfg.ClickWorkers),
		intEnv(lookup, "CLICK_QUEUE_SIZE", &cfg.ClickQueueSize),
		durationEnv(lookup, "CLICK_TIMEOUT", &cfg.ClickTimeout),
		durationEnv(lookup, "SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout),
		boolEnv(lookup, "GRPC_TRUST_REAL_IP", &cfg.GRPCTrustRealIP),
	)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	cfg.RunAddr = validateAddress(cfg.RunAddr)
	if cfg.GRPCAddr != "" {
		cfg.GRPCAddr = validateAddress(cfg.GRPCAddr)
	}
	cfg.BaseURL = validateBaseURL(cfg.BaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.FileStoragePath != "" {
		// Создаём директорию для файла, если она не существует
		if err := os.MkdirAll(filepath.Dir(cfg.FileStoragePath), 0755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return cfg, nil
}

// Validate проверяет числовые границы настроек
func (c *Config) Validate() error {
	var errs []error
	if c.CodeLength < 6 || c.CodeLength > 64 {
		errs = append(errs, fmt.Errorf("code length must be in [6, 64], got %d", c.CodeLength))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be positive, got %d", c.MaxAttempts))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be in [%d, %d], got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost))
	}
	if c.ClickWorkers < 1 {
		errs = append(errs, fmt.Errorf("click workers must be positive, got %d", c.ClickWorkers))
	}
	if c.ClickQueueSize < 1 {
		errs = append(errs, fmt.Errorf("click queue size must be positive, got %d", c.ClickQueueSize))
	}
	if c.ClickTimeout <= 0 {
		errs = append(errs, fmt.Errorf("click timeout must be positive, got %s", c.ClickTimeout))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT secret must not be empty"))
	}
	return errors.Join(errs...)
}

func strEnv(lookup LookupFunc, key string, dst *string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

func intEnv(lookup LookupFunc, key string, dst *int) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func boolEnv(lookup LookupFunc, key string, dst *bool) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}

func durationEnv(lookup LookupFunc, key string, dst *time.Duration) error {
	v, ok := lookup(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func validateAddress(addr string) string {
	if !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

func validateBaseURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	return strings.TrimRight(url, "/")
}
