package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_fallback")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, "whsec_fallback", cfg.WebhookSecret)
	assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
}

func TestLoad_PerEnvironmentSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STRIPE_SECRET_KEY", "sk_live_x")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_fallback")
	t.Setenv("STRIPE_WEBHOOK_SECRET_PRODUCTION", "whsec_prod")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "whsec_prod", cfg.WebhookSecret)
}

func TestLoad_MissingWebhookSecret(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	t.Setenv("STRIPE_WEBHOOK_SECRET_LOCAL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_StripeKeyRequiredOutsideLocal(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_x")
	t.Setenv("STRIPE_SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t,
		[]string{"http://a", "http://b"},
		splitList("http://a, http://b,"),
	)
}
