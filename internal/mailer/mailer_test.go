package mailer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"evently/internal/config"
	"evently/internal/logger"
)

type flakySender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []Message
}

func (s *flakySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("smtp: connection refused")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *flakySender) snapshot() (int, []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, append([]Message(nil), s.sent...)
}

type countingRecorder struct {
	ok, failed atomic.Int32
}

func (r *countingRecorder) MailDelivered(ok bool) {
	if ok {
		r.ok.Add(1)
	} else {
		r.failed.Add(1)
	}
}

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func runDispatcher(t *testing.T, d *Dispatcher) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		<-done
	}
}

func TestDispatcher_RetriesUntilSent(t *testing.T) {
	sender := &flakySender{failures: 2}
	rec := &countingRecorder{}
	d := NewDispatcher(sender, logger.Discard(), DispatcherOptions{
		Workers:    1,
		Recorder:   rec,
		NewBackOff: noWait,
	})
	stop := runDispatcher(t, d)
	defer stop()

	require.True(t, d.Enqueue(Message{To: "a@x.com", Subject: "hi"}))

	assert.Eventually(t, func() bool { return rec.ok.Load() == 1 }, time.Second, 5*time.Millisecond)
	calls, sent := sender.snapshot()
	assert.Equal(t, 3, calls)
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].To)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &flakySender{failures: 100}
	rec := &countingRecorder{}
	d := NewDispatcher(sender, logger.Discard(), DispatcherOptions{
		Workers:     1,
		MaxAttempts: 5,
		Recorder:    rec,
		NewBackOff:  noWait,
	})
	stop := runDispatcher(t, d)
	defer stop()

	d.Enqueue(Message{To: "a@x.com"})

	assert.Eventually(t, func() bool { return rec.failed.Load() == 1 }, time.Second, 5*time.Millisecond)
	calls, sent := sender.snapshot()
	assert.Equal(t, 5, calls)
	assert.Empty(t, sent)
}

func TestDispatcher_EnqueueDropsWhenFull(t *testing.T) {
	rec := &countingRecorder{}
	d := NewDispatcher(&flakySender{}, logger.Discard(), DispatcherOptions{
		QueueSize: 1,
		Recorder:  rec,
	})

	assert.True(t, d.Enqueue(Message{To: "a@x.com"}))
	assert.False(t, d.Enqueue(Message{To: "b@x.com"}))
	assert.Equal(t, int32(1), rec.failed.Load())
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	sender := &flakySender{}
	d := NewDispatcher(sender, logger.Discard(), DispatcherOptions{Workers: 1, NewBackOff: noWait})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Enqueue(Message{To: "late@x.com"})
	require.NoError(t, d.Run(ctx))

	_, sent := sender.snapshot()
	require.Len(t, sent, 1)
	assert.Equal(t, "late@x.com", sent[0].To)
}

type captureQueue struct {
	msgs []Message
}

func (q *captureQueue) Enqueue(msg Message) bool {
	q.msgs = append(q.msgs, msg)
	return true
}

func TestNotifier_SendVerification(t *testing.T) {
	q := &captureQueue{}
	n := NewNotifier(q, "http://localhost:5173/", logger.Discard())
	exp := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	n.SendVerification(context.Background(), "alice@x.com", "alice123", "abc123", exp)

	require.Len(t, q.msgs, 1)
	msg := q.msgs[0]
	assert.Equal(t, "alice@x.com", msg.To)
	assert.Equal(t, SubjectVerification, msg.Subject)
	assert.Contains(t, msg.HTMLBody, `href="http://localhost:5173/verify-email?token=abc123"`)
	assert.Contains(t, msg.HTMLBody, "alice123")
	assert.Contains(t, msg.TextBody, "http://localhost:5173/verify-email?token=abc123")
}

func TestNotifier_EscapesUsername(t *testing.T) {
	q := &captureQueue{}
	n := NewNotifier(q, "http://localhost:5173", logger.Discard())

	n.SendEmailChanged(context.Background(), "bob@x.com", "<script>bob</script>", "tok", time.Now())

	require.Len(t, q.msgs, 1)
	assert.Equal(t, SubjectEmailChanged, q.msgs[0].Subject)
	assert.NotContains(t, q.msgs[0].HTMLBody, "<script>")
}

func TestNewSMTPSender(t *testing.T) {
	_, err := NewSMTPSender(config.SMTPConfig{})
	assert.Error(t, err)

	_, err = NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com"})
	assert.Error(t, err)

	s, err := NewSMTPSender(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "no-reply@evently.com", FromName: "Evently", TLS: true})
	require.NoError(t, err)

	msg, err := s.build(Message{To: "a@x.com", Subject: "Hello", TextBody: "hi", HTMLBody: "<p>hi</p>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, msg.GetGenHeader(mail.HeaderSubject))

	_, err = s.build(Message{To: "not an address"})
	assert.Error(t, err)
}

func TestLogSender_KeepsBodyOutOfInfoLogs(t *testing.T) {
	msg := Message{
		To:       "a@x.com",
		Subject:  "Evently Email Verification",
		TextBody: "http://localhost:3000/verify-email?token=raw-secret",
	}

	var info bytes.Buffer
	require.NoError(t, NewLogSender(logger.New("info", "json", &info)).Send(context.Background(), msg))
	assert.Contains(t, info.String(), "a@x.com")
	assert.NotContains(t, info.String(), "raw-secret")

	var debug bytes.Buffer
	require.NoError(t, NewLogSender(logger.New("debug", "json", &debug)).Send(context.Background(), msg))
	assert.Contains(t, debug.String(), "raw-secret")
}
