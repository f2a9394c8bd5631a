// Package mail delivers verification codes to account email addresses.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"
)

// Sender is the outbound mail collaborator used by the OTP issuer.
type Sender interface {
	SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error
}

// Message is a rendered verification email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

const otpSubject = "Your Recipe Blog verification code"

var otpHTML = template.Must(template.New("otp").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<p>Welcome to Recipe Blog!</p>
<p>Your verification code is:</p>
<p style="font-size:28px;letter-spacing:6px"><strong>{{.Code}}</strong></p>
<p>The code expires at {{.Expires}}. If you did not sign up, ignore this email.</p>
</body></html>`))

// BuildOTPMessage renders the verification email for code.
func BuildOTPMessage(to, code string, expiresAt time.Time) (Message, error) {
	expires := expiresAt.UTC().Format("15:04 MST, 2 Jan 2006")

	var html bytes.Buffer
	if err := otpHTML.Execute(&html, struct{ Code, Expires string }{code, expires}); err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	return Message{
		To:      to,
		Subject: otpSubject,
		Text:    fmt.Sprintf("Your verification code is %s. It expires at %s.", code, expires),
		HTML:    html.String(),
	}, nil
}

// LogSender writes codes to the log instead of sending mail. Development only.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(l *slog.Logger) *LogSender {
	if l == nil {
		l = slog.Default()
	}
	return &LogSender{log: l}
}

func (s *LogSender) SendOTP(ctx context.Context, to, code string, expiresAt time.Time) error {
	s.log.InfoContext(ctx, "otp email (log sender)", "to", to, "code", code, "expires_at", expiresAt.UTC())
	return nil
}
