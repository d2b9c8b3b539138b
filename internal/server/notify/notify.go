// Package notify sends out-of-band text notifications. Delivery runs in the
// background so callers never wait on, or fail because of, the provider.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/messagely/internal/logging"
)

// Sender delivers one text synchronously.
type Sender interface {
	Notify(ctx context.Context, text string) error
}

// Dispatcher runs each Send on its own goroutine with a bounded timeout and
// logs failures.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	logger  logging.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, logger logging.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, timeout: timeout, logger: logger.With("module", "notify")}
}

// Send returns immediately. The delivery keeps ctx values but not its
// cancellation, so it outlives the request that triggered it.
func (d *Dispatcher) Send(ctx context.Context, text string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx := context.WithoutCancel(ctx)
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}

		if err := d.sender.Notify(ctx, text); err != nil {
			d.logger.Error(ctx, "notification failed", "error", err)
			return
		}
		d.logger.Debug(ctx, "notification sent")
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
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

// LogSender writes notifications to the log instead of delivering them. It
// stands in when no SMS provider is configured.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Notify(ctx context.Context, text string) error {
	s.logger.Info(ctx, "notification suppressed, sms not configured", "text", text)
	return nil
}
