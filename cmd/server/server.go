package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"evently/docs"
	"evently/internal/auth"
	"evently/internal/cache"
	"evently/internal/config"
	"evently/internal/db"
	"evently/internal/handler"
	"evently/internal/logger"
	"evently/internal/mailer"
	"evently/internal/metrics"
	"evently/internal/repository"
	"evently/internal/router"
	"evently/internal/service"
	"evently/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func loadConfig(cmd *cli.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

func runMigrate(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("mysql pool: %w", err)
	}
	defer sqlDB.Close()

	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, log)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		log.Warn("redis unavailable, serving without cache", "addr", cfg.RedisAddr, "error", err)
	}

	m := metrics.New()

	var sender mailer.Sender = mailer.NewLogSender(log)
	if cfg.SMTP.Host != "" {
		smtp, err := mailer.NewSMTPSender(cfg.SMTP)
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		sender = smtp
	} else {
		log.Warn("SMTP_HOST not set, mails are only logged")
	}
	dispatcher := mailer.NewDispatcher(sender, log, mailer.DispatcherOptions{
		QueueSize:   cfg.Mail.QueueSize,
		Workers:     cfg.Mail.Workers,
		MaxAttempts: cfg.Mail.MaxAttempts,
		Recorder:    m,
	})
	notifier := mailer.NewNotifier(dispatcher, cfg.ClientURL, log)

	banners, err := storage.NewBannerStore(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("banner storage: %w", err)
	}
	if !banners.Enabled() {
		log.Warn("S3_BUCKET not set, banner uploads are disabled")
	}

	var identity auth.IdentityProvider
	if google := auth.NewGoogleProvider(cfg.Google); google != nil {
		identity = google
	} else {
		log.Info("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	bookmarkRepo := repository.NewBookmarkRepository(gormDB)

	// Services
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokens := auth.NewVerificationTokens()
	authService := service.NewAuthService(userRepo, tokens, jwtService, notifier, identity, log)
	profileService := service.NewProfileService(userRepo, bookmarkRepo, tokens, notifier, log)
	eventService := service.NewEventService(eventRepo, bookmarkRepo, cacheClient, banners, m, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.Register(e, cfg, log, jwtService, m, eventService.AuthorOf, router.Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg.ClientURL, log),
		Profile: handler.NewProfileHandler(profileService),
		Event:   handler.NewEventHandler(eventService),
	})
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The dispatcher outlives the HTTP server so requests finishing during
	// shutdown can still enqueue mail.
	mailCtx, stopMail := context.WithCancel(context.Background())
	defer stopMail()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(mailCtx)
	})
	g.Go(func() error {
		addr := ":" + cfg.ServerPort
		log.Info("server_start", "addr", addr, "swagger", "/swagger/index.html")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server start: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := e.Shutdown(shutdownCtx)
		stopMail()
		return err
	})

	return g.Wait()
}
