package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farellandr/sahmticket/internal/mailer"
)

type Config struct {
	// Server
	Port          string
	Environment   string
	PublicBaseURL string
	CORSOrigins   []string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Auth
	JWTSecret           string
	TokenTTL            time.Duration
	TicketSigningSecret string

	// Payment
	PaymentProvider string
	PaymentTimeout  time.Duration
	Paystack        PaystackConfig
	Xendit          XenditConfig

	// Mail
	Mail MailConfig

	// Behaviour
	OTPExpiry         time.Duration
	DiscoveryTimezone string
	LockTTL           time.Duration
}

type PaystackConfig struct {
	PublicKey string
	SecretKey string
	BaseURL   string
}

type XenditConfig struct {
	SecretKey string
	PublicKey string
}

type MailConfig struct {
	Host    string
	Port    int
	Secure  bool
	Timeout time.Duration
	// Driver is "smtp" or "log".
	Driver   string
	Accounts []mailer.Account
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "https://sahmtickethub.online"),
		CORSOrigins:   getEnvAsList("CORS_ORIGINS", "http://localhost:3000"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "sahmticket"),

		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret:           getEnv("JWT_SECRET", ""),
		TokenTTL:            getEnvAsDuration("TOKEN_TTL", "24h"),
		TicketSigningSecret: getEnv("TICKET_SIGNING_SECRET", ""),

		PaymentProvider: strings.ToLower(getEnv("PAYMENT_PROVIDER", "paystack")),
		PaymentTimeout:  getEnvAsDuration("PAYMENT_TIMEOUT", "15s"),
		Paystack: PaystackConfig{
			PublicKey: getEnv("PAYSTACK_PUBLIC_KEY", ""),
			SecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
			BaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		},
		Xendit: XenditConfig{
			SecretKey: getEnv("XENDIT_SECRET_KEY", ""),
			PublicKey: getEnv("XENDIT_PUBLIC_KEY", ""),
		},

		OTPExpiry:         time.Duration(getEnvAsInt("OTP_EXPIRES_IN", 5)) * time.Minute,
		DiscoveryTimezone: getEnv("DISCOVERY_TIMEZONE", "Africa/Lagos"),
		LockTTL:           getEnvAsDuration("FULFILLMENT_LOCK_TTL", "30s"),
	}
	cfg.Mail = loadMailConfig()

	if cfg.TicketSigningSecret == "" {
		cfg.TicketSigningSecret = cfg.JWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadMailConfig() MailConfig {
	host := getEnv("EMAIL_HOST", "mail.privateemail.com")
	port := getEnvAsInt("EMAIL_PORT", 465)
	secure := getEnvAsBool("EMAIL_SECURE", true)

	account := func(key mailer.AccountKey, prefix, defaultUser, fromName, replyTo string) mailer.Account {
		return mailer.Account{
			Key:      key,
			Host:     host,
			Port:     port,
			Secure:   secure,
			User:     getEnv(prefix+"_EMAIL_USER", defaultUser),
			Password: getEnv(prefix+"_EMAIL_PASSWORD", ""),
			FromName: fromName,
			ReplyTo:  replyTo,
		}
	}

	return MailConfig{
		Host:    host,
		Port:    port,
		Secure:  secure,
		Timeout: getEnvAsDuration("MAIL_TIMEOUT", "10s"),
		Driver:  strings.ToLower(getEnv("MAIL_DRIVER", "smtp")),
		Accounts: []mailer.Account{
			account(mailer.AccountNoReply, "NOREPLY", "no-reply@sahmtickethub.online", "Sahm Ticket Hub", ""),
			account(mailer.AccountInfo, "INFO", "info@sahmtickethub.online", "Sahm Ticket Hub Support", "info@sahmtickethub.online"),
			account(mailer.AccountHello, "HELLO", "hello@sahmtickethub.online", "Sahm Ticket Hub Newsletter", ""),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves DiscoveryTimezone, falling back to the server zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DiscoveryTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.PaymentProvider {
	case "paystack":
		if c.Paystack.SecretKey == "" {
			errs = append(errs, errors.New("PAYSTACK_SECRET_KEY is required"))
		}
		if c.Paystack.PublicKey == "" {
			errs = append(errs, errors.New("PAYSTACK_PUBLIC_KEY is required"))
		}
	case "xendit":
		if c.Xendit.SecretKey == "" {
			errs = append(errs, errors.New("XENDIT_SECRET_KEY is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported PAYMENT_PROVIDER %q", c.PaymentProvider))
	}
	switch c.Mail.Driver {
	case "smtp":
		for _, acct := range c.Mail.Accounts {
			if acct.Password == "" {
				errs = append(errs, fmt.Errorf("%s_EMAIL_PASSWORD is required", strings.ToUpper(string(acct.Key))))
			}
		}
	case "log":
		if c.IsProduction() {
			errs = append(errs, errors.New("MAIL_DRIVER=log is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported MAIL_DRIVER %q", c.Mail.Driver))
	}
	if c.OTPExpiry <= 0 {
		errs = append(errs, errors.New("OTP_EXPIRES_IN must be positive"))
	}
	if c.Mail.Timeout <= 0 {
		errs = append(errs, errors.New("MAIL_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
