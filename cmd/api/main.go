package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/peaberry/peaberry-api/docs"
	"github.com/peaberry/peaberry-api/internal/api"
	"github.com/peaberry/peaberry-api/internal/api/handler"
	"github.com/peaberry/peaberry-api/internal/api/metrics"
	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
	"github.com/peaberry/peaberry-api/internal/core/service"
	"github.com/peaberry/peaberry-api/internal/infrastructure/db/mongo"
	"github.com/peaberry/peaberry-api/internal/infrastructure/db/postgres"
	"github.com/peaberry/peaberry-api/internal/infrastructure/db/redis"
	"github.com/peaberry/peaberry-api/internal/infrastructure/firebase"
	"github.com/peaberry/peaberry-api/internal/infrastructure/mail"
	"github.com/peaberry/peaberry-api/internal/infrastructure/queue"
	"github.com/peaberry/peaberry-api/internal/infrastructure/scheduler"
	"github.com/peaberry/peaberry-api/internal/pkg/config"
	"github.com/peaberry/peaberry-api/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const orphanScanJob = "orphan-scan"

// @title                       Peaberry API
// @version                     1.0
// @description                 Cafe discovery backend with Firebase account sync.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet.
		bootLog := logger.Init(logger.Options{Service: "peaberry-api"})
		bootLog.Fatal().Err(err).Msg("load configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "peaberry-api",
		Version: version,
	})
	log.Info().Str("env", cfg.Env).Msg("starting")

	// --- Relational store ---
	db, err := postgres.Connect(ctx, postgres.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}, logger.Component("gorm"))
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer func() { _ = postgres.Close(db) }()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	// --- Redis (webhook dedup) ---
	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect redis")
	}
	defer rdb.Close()

	// --- MongoDB (audit trail) ---
	mongoClient, mongoDB, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	audit := mongo.NewAuditRepository(mongoDB)
	if err := audit.EnsureIndexes(ctx, cfg.Mongo.Retention); err != nil {
		log.Fatal().Err(err).Msg("create audit indexes")
	}

	// --- Identity provider ---
	var provider ports.IdentityProvider
	if cfg.Firebase.Enabled {
		fbClient, err := firebase.New(ctx, firebase.Config{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsFile: cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("initialise firebase")
		}
		provider = fbClient
	} else {
		log.Warn().Msg("firebase disabled: provider sign-in and orphan scans are unavailable")
	}

	// --- Mail ---
	var sender ports.Mailer = mail.LogMailer{Log: logger.Component("mail")}
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			Sender:   cfg.SMTP.Sender,
		})
	}
	dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, sender, logger.Component("mail"))
	dispatcher.OnSent(func(err error) {
		metrics.MailDeliveriesTotal.WithLabelValues(metrics.Result(err)).Inc()
	})
	dispatcher.Start()

	// --- Services ---
	users := postgres.NewUserRepository(db)
	cafes := postgres.NewCafeRepository(db)

	authSvc := service.NewAuthService(users, provider, dispatcher, service.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		TokenTTL:      cfg.JWTTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		ResetURL:      cfg.AppBaseURL + "/reset-password",
	}, logger.Component("auth"))
	webhookSvc := service.NewWebhookService(
		users, audit,
		redis.NewDedupChecker(rdb, cfg.Webhook.DedupTTL),
		domain.DeletePolicy(cfg.Webhook.DeletePolicy),
		logger.Component("webhook"),
	)
	orphanSvc := service.NewOrphanService(users, provider, audit, logger.Component("orphans"))

	// --- Scheduled orphan scan ---
	jobs := scheduler.New(logger.Component("scheduler"), 30*time.Minute)
	if provider != nil {
		scans := handler.NewOrphanHandler(orphanSvc)
		err := jobs.Add(cfg.Webhook.OrphanScanSchedule, orphanScanJob, func(ctx context.Context) error {
			_, err := scans.RunScan(ctx)
			return err
		})
		if err != nil {
			log.Fatal().Err(err).Msg("schedule orphan scan")
		}
	}
	jobs.Start()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Log:           logger.Component("http"),
		JWTSecret:     cfg.JWTSecret,
		WebhookSecret: cfg.Webhook.Secret,
		Auth:          authSvc,
		Cafes:         service.NewCafeService(cafes, logger.Component("cafes")),
		Engagement: service.NewEngagementService(
			cafes,
			postgres.NewFavoriteRepository(db),
			postgres.NewRatingRepository(db),
		),
		Users:    service.NewUserService(users, logger.Component("users")),
		Orphans:  orphanSvc,
		Webhooks: webhookSvc,
		Health: map[string]handler.Checker{
			"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return redis.Ping(ctx, rdb) },
			"mongodb":  func(ctx context.Context) error { return mongo.Ping(ctx, mongoClient) },
		},
	})
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")
	shutdown(log, e.Shutdown, jobs.Stop, dispatcher.Stop)
	log.Info().Msg("stopped")
}

// shutdown stops each component in order, sharing one deadline. HTTP goes
// first so no new work reaches the scheduler or the mail queue.
func shutdown(log zerolog.Logger, steps ...func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	for _, stop := range steps {
		if err := stop(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}
}
