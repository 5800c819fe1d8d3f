package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/queue"
)

// NewMailWorkerCmd creates the mail-worker subcommand, which delivers the
// messages the API enqueues when MAIL_TRANSPORT=queue.
func NewMailWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mail-worker",
		Short: "Deliver queued account emails over SMTP",
		Args:  cobra.NoArgs,
		RunE:  runMailWorker,
	}
}

func runMailWorker(cmd *cobra.Command, _ []string) error {
	log := logging.Setup("storefront-auth-mail", version, os.Getenv("LOG_FORMAT"), os.Stderr)
	slog.SetDefault(log)

	mc, err := config.LoadMail()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	smtp, err := newSMTPNotifier(mc)
	if err != nil {
		return oops.Code("NOTIFIER_INVALID").With("transport", config.MailTransportSMTP).Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{
		URL:         config.RabbitURL(),
		Deliver:     smtp,
		SendTimeout: mc.SendTimeout,
		Log:         log,
	}
	log.Info("mail worker started", "queue", queue.MailQueueName)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return oops.Code("MAIL_WORKER_FAILED").Wrap(err)
	}
	log.Info("mail worker stopped")
	return nil
}
