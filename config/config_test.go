package config

import (
	"testing"
	"time"

	"github.com/farellandr/sahmticket/internal/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PAYSTACK_PUBLIC_KEY", "pk_test")
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test")
	t.Setenv("NOREPLY_EMAIL_PASSWORD", "a")
	t.Setenv("INFO_EMAIL_PASSWORD", "b")
	t.Setenv("HELLO_EMAIL_PASSWORD", "c")
}

func TestLoadConfigDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "paystack", cfg.PaymentProvider)
	assert.Equal(t, 5*time.Minute, cfg.OTPExpiry)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, "secret", cfg.TicketSigningSecret)

	require.Len(t, cfg.Mail.Accounts, 3)
	noreply := cfg.Mail.Accounts[0]
	assert.Equal(t, mailer.AccountNoReply, noreply.Key)
	assert.Equal(t, "mail.privateemail.com", noreply.Host)
	assert.Equal(t, 465, noreply.Port)
	assert.True(t, noreply.Secure)
	assert.Equal(t, "no-reply@sahmtickethub.online", noreply.User)
	assert.Equal(t, "info@sahmtickethub.online", cfg.Mail.Accounts[1].ReplyTo)
}

func TestLoadConfigOverrides(t *testing.T) {
	setValidEnv(t)
	t.Setenv("OTP_EXPIRES_IN", "10")
	t.Setenv("EMAIL_PORT", "587")
	t.Setenv("EMAIL_SECURE", "false")
	t.Setenv("MAIL_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.OTPExpiry)
	assert.Equal(t, 3*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	for _, acct := range cfg.Mail.Accounts {
		assert.Equal(t, 587, acct.Port)
		assert.False(t, acct.Secure)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("MAIL_DRIVER", "log")
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "PAYMENT_PROVIDER")
	assert.Contains(t, err.Error(), "MAIL_DRIVER=log")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SOME_INT", "nope")
	t.Setenv("SOME_DURATION", "bogus")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.Equal(t, 2*time.Second, getEnvAsDuration("SOME_DURATION", "2s"))
	assert.True(t, getEnvAsBool("MISSING_BOOL", true))
	assert.Equal(t, []string{"x"}, getEnvAsList("MISSING_LIST", "x"))
}
