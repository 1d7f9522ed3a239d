package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

const (
	SubjectVerification = "Evently Account Confirmation"
	SubjectEmailChanged = "Evently Email Changed"
)

var (
	verificationHTML = template.Must(template.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Welcome to Evently, {{.Username}}!</h2>
  <p>Please confirm your email address by clicking the link below.</p>
  <p><a href="{{.Link}}">Verify my email</a></p>
  <p>This link expires at {{.ExpiresAt}}.</p>
  <p>If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

	emailChangedHTML = template.Must(template.New("email_changed").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Hi {{.Username}},</h2>
  <p>The email address on your Evently account was changed to this one.</p>
  <p>Please confirm it by clicking the link below.</p>
  <p><a href="{{.Link}}">Verify my email</a></p>
  <p>This link expires at {{.ExpiresAt}}.</p>
</body>
</html>`))
)

type mailData struct {
	Username  string
	Link      string
	ExpiresAt string
}

// Enqueuer accepts messages for asynchronous delivery.
type Enqueuer interface {
	Enqueue(msg Message) bool
}

// Notifier renders account mails and hands them to the dispatcher.
type Notifier struct {
	queue     Enqueuer
	clientURL string
	logger    *slog.Logger
}

// NewNotifier creates a notifier that links back to clientURL.
func NewNotifier(queue Enqueuer, clientURL string, logger *slog.Logger) *Notifier {
	return &Notifier{
		queue:     queue,
		clientURL: strings.TrimRight(clientURL, "/"),
		logger:    logger,
	}
}

// VerificationLink builds the link carrying the raw token.
func (n *Notifier) VerificationLink(rawToken string) string {
	return n.clientURL + "/verify-email?token=" + url.QueryEscape(rawToken)
}

// SendVerification queues the account confirmation mail.
func (n *Notifier) SendVerification(ctx context.Context, to, username, rawToken string, expiresAt time.Time) {
	n.send(ctx, SubjectVerification, verificationHTML, to, username, rawToken, expiresAt)
}

// SendEmailChanged queues the confirmation mail for a changed address.
func (n *Notifier) SendEmailChanged(ctx context.Context, to, username, rawToken string, expiresAt time.Time) {
	n.send(ctx, SubjectEmailChanged, emailChangedHTML, to, username, rawToken, expiresAt)
}

func (n *Notifier) send(ctx context.Context, subject string, tmpl *template.Template, to, username, rawToken string, expiresAt time.Time) {
	data := mailData{
		Username:  username,
		Link:      n.VerificationLink(rawToken),
		ExpiresAt: expiresAt.UTC().Format(time.RFC1123),
	}

	var html bytes.Buffer
	if err := tmpl.Execute(&html, data); err != nil {
		n.logger.ErrorContext(ctx, "render mail failed", "subject", subject, "error", err)
		return
	}

	text := fmt.Sprintf("Hi %s,\n\nPlease confirm your email address by opening this link:\n%s\n\nThe link expires at %s.\n",
		data.Username, data.Link, data.ExpiresAt)

	n.queue.Enqueue(Message{
		To:       to,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text,
	})
}
