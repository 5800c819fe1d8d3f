package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/database"
	"github.com/iliyamo/storefront-auth/internal/handler"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/middleware"
	"github.com/iliyamo/storefront-auth/internal/notify"
	"github.com/iliyamo/storefront-auth/internal/queue"
	"github.com/iliyamo/storefront-auth/internal/repository"
	"github.com/iliyamo/storefront-auth/internal/router"
	"github.com/iliyamo/storefront-auth/internal/service"
	"github.com/iliyamo/storefront-auth/internal/utils"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server and the
// in-flight notification sends.
const shutdownTimeout = 15 * time.Second

var skipMigrate bool

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending migrations on startup")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	log := logging.Setup("storefront-auth", version, cfg.LogFormat, os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DBDSN)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	if !skipMigrate {
		if err := database.MigrateUp(ctx, db); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}

	notifier, err := newNotifier(cfg)
	if err != nil {
		return oops.Code("NOTIFIER_INVALID").With("transport", cfg.Mail.Transport).Wrap(err)
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, profile cache disabled")
	} else {
		defer rdb.Close()
	}
	cache := middleware.NewProfileCache(config.LoadCacheConfig(), rdb, log)

	reg, m := metrics.NewRegistry()
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL, nil)

	svc, err := service.NewAuthService(service.Deps{
		Store:    repository.NewAccountRepo(db),
		Hasher:   utils.NewBcryptHasher(cfg.BcryptCost),
		Tokens:   tokens,
		OTPs:     utils.NewOTPGenerator(cfg.OTPTTL, nil),
		Notifier: notifier,
	},
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithNotifyTimeout(cfg.Mail.SendTimeout),
		service.WithConcealUnknownResetEmail(cfg.ResetConcealUnknownEmail),
		service.WithProfileCache(cache),
	)
	if err != nil {
		return oops.Code("SERVICE_INIT_FAILED").Wrap(err)
	}

	e := router.New(log, cfg.ClientOrigin)
	guard := middleware.SessionGuard(tokens)
	router.RegisterRoutes(e, db, metrics.Handler(reg))
	router.RegisterAuth(e, handler.NewAuthHandler(svc, handler.CookiePolicy{CookieConfig: cfg.Cookie(), MaxAge: tokens.TTL()}), guard)
	router.RegisterUser(e, handler.NewUserHandler(svc), guard, cache)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "mail_transport", cfg.Mail.Transport)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	return shutdown(log, e.Shutdown, svc)
}

// shutdown stops accepting requests, then waits for queued notifications.
// The database is closed by the caller once both are done.
func shutdown(log *slog.Logger, stopHTTP func(context.Context) error, svc waiter) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := stopHTTP(ctx)
	if werr := svc.Wait(ctx); werr != nil {
		log.Warn("notifications still in flight at shutdown", "error", werr)
	}
	return err
}

type waiter interface {
	Wait(ctx context.Context) error
}

// newNotifier picks the outbound mail transport named by MAIL_TRANSPORT.
func newNotifier(cfg config.Config) (notify.Notifier, error) {
	switch cfg.Mail.Transport {
	case config.MailTransportSMTP:
		return newSMTPNotifier(cfg.Mail)
	case config.MailTransportQueue:
		return queue.NewPublisher(cfg.RabbitURL, cfg.Mail.SendTimeout), nil
	default:
		return notify.Disabled{}, nil
	}
}

func newSMTPNotifier(mc config.MailConfig) (*notify.SMTPNotifier, error) {
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     mc.SMTPHost,
		Port:     mc.SMTPPort,
		Username: mc.SMTPUser,
		Password: mc.SMTPPass,
		Sender:   mc.Sender,
		Timeout:  mc.SendTimeout,
	})
}
