// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/househelp")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)
	t.Setenv("ADMIN_EMAIL", "ops@househelp.rw")
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")

	c, err := load("")
	require.NoError(t, err)

	require.Equal(t, 9090, c.Server.Port)
	require.Equal(t, 168*time.Hour, c.Auth.TokenExpire)
	require.Equal(t, "househelp-token", c.Auth.CookieName)
	require.Equal(t, "memory", c.RateLimit.Store)
	require.Equal(t, 5, c.RateLimit.Login.Max)
	require.Equal(t, 15*time.Minute, c.RateLimit.Login.Window)
	require.Equal(t, WindowLimit{Max: 5, Window: 15 * time.Minute}, c.RateLimit.Attempt)
	require.Equal(t, WindowLimit{Max: 10, Window: 10 * time.Minute}, c.RateLimit.CodeSend)
	require.Equal(t, WindowLimit{Max: 30, Window: 15 * time.Minute}, c.RateLimit.CodeVerify)
}

func TestLoad_VerifyLimitMustExceedAttempts(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"rate_limit:",
		"  code_verify:",
		"    max: 5",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := load(path)
	require.ErrorContains(t, err, "rate_limit.code_verify.max")
}

func TestLoad_ProductionRequiresSMSGateway(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("NOTIFY_DRIVER", "smtp")
	t.Setenv("SMTP_HOST", "smtp.househelp.rw")
	t.Setenv("SMTP_FROM", "no-reply@househelp.rw")

	_, err := load("")
	require.ErrorContains(t, err, "SMS_URL is required in production")

	t.Setenv("SMS_URL", "https://sms.example.rw/send")
	c, err := load("")
	require.NoError(t, err)
	require.True(t, c.IsProduction())
}

func TestLoad_YAMLFileOverridesDefaults(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := strings.Join([]string{
		"auth:",
		"  admin_email_domain: househelp.rw",
		"rate_limit:",
		"  otp:",
		"    max: 7",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c, err := load(path)
	require.NoError(t, err)
	require.Equal(t, 7, c.RateLimit.OTP.Max)
	require.Equal(t, "househelp.rw", c.Auth.AdminEmailDomain)
}

func TestLoad_MissingSecretIsFatal(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_TOKEN_SECRET", "")

	_, err := load("")
	require.ErrorContains(t, err, "AUTH_TOKEN_SECRET is required")
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AUTH_TOKEN_SECRET", "short")

	_, err := load("")
	require.ErrorContains(t, err, "at least 32 bytes")
}

func TestAdminAllowed(t *testing.T) {
	a := AuthConfig{
		AdminEmail:       "Owner@Example.com",
		AdminEmailDomain: "@househelp.rw",
	}

	require.True(t, a.AdminAllowed("owner@example.com"))
	require.True(t, a.AdminAllowed("jane@househelp.rw"))
	require.False(t, a.AdminAllowed("jane@evil-househelp.rw"))
	require.False(t, a.AdminAllowed("jane@househelp.rw.evil.com"))
	require.False(t, a.AdminAllowed(""))

	onlyEmail := AuthConfig{AdminEmail: "root@example.com"}
	require.False(t, onlyEmail.AdminAllowed("someone@example.com"))
}
