package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	ecM "github.com/labstack/echo/v4/middleware"

	"github.com/skyplanner/skyplanner/internal/billing"
	"github.com/skyplanner/skyplanner/internal/config"
	"github.com/skyplanner/skyplanner/internal/email"
	"github.com/skyplanner/skyplanner/internal/es"
	"github.com/skyplanner/skyplanner/internal/events"
	"github.com/skyplanner/skyplanner/internal/models"
	"github.com/skyplanner/skyplanner/internal/repo"
	"github.com/skyplanner/skyplanner/internal/security/secretbox"
	"github.com/skyplanner/skyplanner/internal/service"
	transport "github.com/skyplanner/skyplanner/internal/transport/http"
	"github.com/skyplanner/skyplanner/pkg/db"
	"github.com/skyplanner/skyplanner/pkg/logging"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Getenv("LOG_LEVEL"))

	ctx := context.Background()
	gdb, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&models.Klient{},
		&models.ActiveSession{},
		&models.TokenBlacklistEntry{},
		&models.TOTPAuditEntry{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	box, err := secretbox.New(cfg.EncryptionKey, cfg.EncryptionSalt)
	if err != nil {
		log.Fatalf("secretbox: %v", err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = events.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer producer.Close()
	} else {
		logger.Warn("KAFKA_BROKERS not set, security events disabled")
	}

	repository := &repo.GormRepo{DB: gdb}
	audit := &service.Recorder{Repo: repository, ESIndex: es.AuditIndex}
	if producer != nil {
		audit.Producer = producer
	}
	if cfg.ES_URL != "" {
		client, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		audit.ES = client
	} else {
		logger.Warn("ES_URL not set, audit search index disabled")
	}

	emailer := email.NewClient(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom)

	deps := &transport.Deps{
		Repo: repository,
		Auth: &service.AuthService{
			Repo:      repository,
			Box:       box,
			JWTSecret: cfg.JWTSecret,
			Audit:     audit,
		},
		TwoFactor: &service.TwoFactorService{
			Repo:    repository,
			Box:     box,
			Audit:   audit,
			Emailer: emailer,
		},
		Sessions: &service.SessionService{Repo: repository, Audit: audit},
		Billing:  billing.NewClient(cfg.PaymentPortalURL, cfg.PaymentSecretKey),

		ES:      audit.ES,
		ESIndex: es.AuditIndex,

		JWTSecret:     cfg.JWTSecret,
		BackendOrigin: cfg.BackendOrigin,
		Secure:        cfg.IsProduction(),
	}

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(ecM.RemoveTrailingSlash())
	e.Use(ecM.Recover())
	e.Use(ecM.RequestID())
	e.Use(ecM.Secure())
	e.Use(logging.RequestLogger(logger))

	if err := transport.Register(e, deps); err != nil {
		log.Fatalf("register routes: %v", err)
	}

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
