package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	Env        string

	DatabaseURL string

	JWTSecret      []byte
	EncryptionKey  string
	EncryptionSalt string

	BackendOrigin string

	KafkaBrokers []string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	PaymentSecretKey string
	PaymentPortalURL string

	EmailAPIKey string
	EmailAPIURL string
	EmailFrom   string
}

// New reads the environment once at startup. A missing required secret is a
// deployment error: the process must not come up without it.
func New() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := &Config{
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		Env:        getenv("APP_ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		EncryptionKey:  os.Getenv("ENCRYPTION_KEY"),
		EncryptionSalt: os.Getenv("ENCRYPTION_SALT"),

		BackendOrigin: getenv("BACKEND_ORIGIN", "http://localhost:8090"),

		KafkaBrokers: csv(os.Getenv("KAFKA_BROKERS")),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		PaymentSecretKey: os.Getenv("PAYMENT_SECRET_KEY"),
		PaymentPortalURL: getenv("PAYMENT_PORTAL_URL", "https://api.payments.example.com/v1/billing_portal/sessions"),

		EmailAPIKey: os.Getenv("EMAIL_API_KEY"),
		EmailAPIURL: getenv("EMAIL_API_URL", "https://api.email.example.com/v1/send"),
		EmailFrom:   getenv("EMAIL_FROM", "security@skyplanner.app"),
	}

	required := []struct {
		name    string
		missing bool
	}{
		{"DATABASE_URL", cfg.DatabaseURL == ""},
		{"JWT_SECRET", len(cfg.JWTSecret) == 0},
		{"ENCRYPTION_KEY", cfg.EncryptionKey == ""},
		{"ENCRYPTION_SALT", cfg.EncryptionSalt == ""},
	}
	for _, r := range required {
		if r.missing {
			return nil, fmt.Errorf("missing required env %s", r.name)
		}
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func csv(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
