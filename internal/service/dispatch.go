package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/storefront-auth/internal/logging"
	"github.com/iliyamo/storefront-auth/internal/metrics"
	"github.com/iliyamo/storefront-auth/internal/notify"
)

// DefaultNotifyTimeout bounds a single notification attempt.
const DefaultNotifyTimeout = 10 * time.Second

// dispatcher runs each notification on its own goroutine. The request that
// triggered it never waits; the outcome is logged and counted. Only shutdown
// waits, through drain. Once drain has started new sends are dropped.
type dispatcher struct {
	notifier notify.Notifier
	timeout  time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func (d *dispatcher) dispatch(ctx context.Context, accountID string, msg notify.Message) {
	// Detach from the request so the send outlives the response.
	base := context.WithoutCancel(ctx)

	// wg.Add must not race with the wg.Wait in drain.
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn("notification dropped, shutting down", "kind", msg.Kind, "account_id", accountID)
		d.metrics.Notification(string(msg.Kind), metrics.OutcomeFailure)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification panicked", "kind", msg.Kind, "account_id", accountID, "panic", r)
				d.metrics.Notification(string(msg.Kind), metrics.OutcomeFailure)
			}
		}()

		sendCtx, cancel := context.WithTimeout(base, d.timeout)
		defer cancel()

		start := time.Now()
		err := d.notifier.Notify(sendCtx, msg)
		switch {
		case err == nil:
			d.log.Info("notification sent", "kind", msg.Kind, "account_id", accountID,
				"duration", time.Since(start).String())
			d.metrics.Notification(string(msg.Kind), metrics.OutcomeSuccess)
		case errors.Is(err, notify.ErrDisabled):
			d.log.Debug("notification skipped, mail transport disabled", "kind", msg.Kind, "account_id", accountID)
			d.metrics.Notification(string(msg.Kind), metrics.OutcomeSkipped)
		default:
			logging.LogError(d.log, "notification failed", fmt.Errorf("%w: %w", ErrNotifierFailure, err),
				"kind", msg.Kind, "account_id", accountID)
			d.metrics.Notification(string(msg.Kind), metrics.OutcomeFailure)
		}
	}()
}

// drain blocks until every in-flight notification has finished or ctx ends.
func (d *dispatcher) drain(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
