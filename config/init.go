package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/farellandr/sahmticket/internal/locker"
	"github.com/farellandr/sahmticket/internal/mailer"
	"github.com/farellandr/sahmticket/internal/payment"
	"github.com/farellandr/sahmticket/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewLogger(cfg *Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	gormConfig := &gorm.Config{}
	if cfg.IsProduction() {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// InitRedis returns nil when REDIS_URL is empty.
func InitRedis(cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		opt = &redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// InitLocker prefers Redis so that several API instances share the lock.
func InitLocker(client *redis.Client) locker.Locker {
	if client == nil {
		return locker.NewLocalLocker()
	}
	return locker.NewRedisLocker(client, "sahmticket:")
}

func InitXenditClient(config XenditConfig) *xendit.APIClient {
	return xendit.NewClient(config.SecretKey)
}

// InitPaymentVerifier returns the verifier and the public key handed to the
// browser widget.
func InitPaymentVerifier(cfg *Config) (payment.Verifier, string, error) {
	switch cfg.PaymentProvider {
	case "paystack":
		return payment.NewPaystackClient(cfg.Paystack.SecretKey, cfg.Paystack.BaseURL, cfg.PaymentTimeout), cfg.Paystack.PublicKey, nil
	case "xendit":
		return payment.NewXenditVerifier(InitXenditClient(cfg.Xendit)), cfg.Xendit.PublicKey, nil
	}
	return nil, "", fmt.Errorf("unsupported payment provider %q", cfg.PaymentProvider)
}

func InitMailTransport(cfg *Config, logger *slog.Logger) mailer.Transport {
	if cfg.Mail.Driver == "log" {
		return mailer.LogTransport{Logger: logger}
	}
	return mailer.NewSMTPTransport(cfg.Mail.Accounts, logger)
}
