package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config is the process configuration, read from the environment. A .env
// file in the working directory is picked up automatically.
type Config struct {
	Env  string
	Port string

	StripeSecretKey  string
	WebhookSecret    string
	WebhookTolerance time.Duration

	Currency       string
	AllowedOrigins []string

	SweepInterval time.Duration
	SweepAge      time.Duration
}

// Load reads config from the environment. APP_ENV selects which webhook
// signing secret applies: STRIPE_WEBHOOK_SECRET_<APP_ENV>, falling back
// to STRIPE_WEBHOOK_SECRET. With APP_ENV=local the mock gateway is used
// and no Stripe key is required.
func Load() (*Config, error) {
	env := getenv("APP_ENV", "local")

	cfg := &Config{
		Env:              env,
		Port:             getenv("PORT", "8080"),
		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:    webhookSecret(env),
		WebhookTolerance: getenvDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
		Currency:         getenv("CURRENCY", "usd"),
		AllowedOrigins:   splitList(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
		SweepInterval:    getenvDuration("SWEEP_INTERVAL", 5*time.Minute),
		SweepAge:         getenvDuration("SWEEP_AGE", 30*time.Minute),
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("no webhook signing secret configured for env %q", env)
	}
	if cfg.Env != "local" && cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY is required when APP_ENV=%s", env)
	}
	return cfg, nil
}

func webhookSecret(env string) string {
	if s := os.Getenv("STRIPE_WEBHOOK_SECRET_" + strings.ToUpper(env)); s != "" {
		return s
	}
	return os.Getenv("STRIPE_WEBHOOK_SECRET")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
