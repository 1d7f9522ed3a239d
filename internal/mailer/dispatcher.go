package mailer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultQueueSize   = 256
	defaultWorkers     = 2
	defaultMaxAttempts = 5
	attemptTimeout     = 30 * time.Second
	drainTimeout       = 10 * time.Second
)

// DeliveryRecorder observes the final outcome of each message.
type DeliveryRecorder interface {
	MailDelivered(ok bool)
}

// DispatcherOptions tunes the dispatcher. Zero values pick defaults.
type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxAttempts int
	Recorder    DeliveryRecorder
	// NewBackOff overrides the retry schedule.
	NewBackOff func() backoff.BackOff
}

// Dispatcher delivers messages asynchronously with retries. Enqueue never
// blocks the caller.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	workers     int
	maxAttempts int
	recorder    DeliveryRecorder
	newBackOff  func() backoff.BackOff
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher around sender.
func NewDispatcher(sender Sender, logger *slog.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxElapsedTime = 5 * time.Minute
			return b
		}
	}
	return &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, opts.QueueSize),
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		recorder:    opts.Recorder,
		newBackOff:  opts.NewBackOff,
		logger:      logger,
	}
}

// Enqueue schedules msg for delivery. It reports false when the queue is full
// and the message was dropped.
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		d.logger.Warn("mail queue full, message dropped", "to", msg.To, "subject", msg.Subject)
		d.record(false)
		return false
	}
}

// Run processes the queue until ctx is cancelled, then makes a single
// best-effort attempt for whatever is still queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-d.queue:
					d.deliver(ctx, msg)
				}
			}
		}()
	}
	wg.Wait()
	d.drain()
	return nil
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case msg := <-d.queue:
			err := d.sender.Send(ctx, msg)
			if err != nil {
				d.logger.Error("mail delivery failed during shutdown", "to", msg.To, "error", err)
			}
			d.record(err == nil)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()
		err := d.sender.Send(attemptCtx, msg)
		if err != nil {
			d.logger.Warn("mail delivery attempt failed",
				"to", msg.To,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(d.newBackOff(), uint64(d.maxAttempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		d.logger.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "attempts", attempt, "error", err)
		d.record(false)
		return
	}
	d.logger.Debug("mail delivered", "to", msg.To, "subject", msg.Subject, "attempts", attempt)
	d.record(true)
}

func (d *Dispatcher) record(ok bool) {
	if d.recorder != nil {
		d.recorder.MailDelivered(ok)
	}
}
