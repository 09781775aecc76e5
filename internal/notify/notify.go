// Package notify delivers evaluation outcomes by email.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/screening-agent/internal/types"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Email is one rendered HTML message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// SMTPConfig configures the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of "mandatory", "opportunistic" or "none".
	TLS     string
	Timeout time.Duration
}

// SMTPSender sends emails through an SMTP relay.
type SMTPSender struct {
	client *mail.Client
	from   string
}

// NewSMTPSender creates a sender for the configured relay. No connection is made until Send.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from address is required")
	}

	opts := []mail.Option{mail.WithTLSPolicy(tlsPolicy(cfg.TLS))}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func tlsPolicy(s string) mail.TLSPolicy {
	switch s {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

// Send delivers one email.
func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(email.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextHTML, email.HTML)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Dispatcher renders and sends result emails and HR alerts.
type Dispatcher struct {
	sender  Sender
	company Company
	hrEmail string
	log     *zap.Logger
}

// NewDispatcher creates a dispatcher. hrEmail may be empty, in which case HR alerts are skipped.
func NewDispatcher(sender Sender, company Company, hrEmail string, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{sender: sender, company: company, hrEmail: hrEmail, log: log}
}

// SendResult emails the candidate their result.
func (d *Dispatcher) SendResult(ctx context.Context, notice types.ResultNotice) error {
	if notice.Email == "" {
		return fmt.Errorf("recipient email is required")
	}
	email, err := ResultEmail(d.company, notice)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, email); err != nil {
		return err
	}
	d.log.Info("result email sent", zap.Bool("passed", notice.Passed), zap.Float64("total", notice.Scores.Total))
	return nil
}

// SendHRAlert emails recruiters about a passed candidate.
func (d *Dispatcher) SendHRAlert(ctx context.Context, alert types.HRAlert) error {
	if d.hrEmail == "" {
		d.log.Debug("hr alert skipped, no recipient configured", zap.String("evaluation_id", alert.EvaluationID.String()))
		return nil
	}
	email, err := HRAlertEmail(d.hrEmail, alert)
	if err != nil {
		return err
	}
	if err := d.sender.Send(ctx, email); err != nil {
		return err
	}
	d.log.Info("hr alert sent", zap.String("evaluation_id", alert.EvaluationID.String()))
	return nil
}

// Noop is a notifier that only logs.
type Noop struct {
	Log *zap.Logger
}

func (n Noop) logger() *zap.Logger {
	if n.Log == nil {
		return zap.NewNop()
	}
	return n.Log
}

// SendResult logs the notice and reports success.
func (n Noop) SendResult(_ context.Context, notice types.ResultNotice) error {
	n.logger().Info("result email disabled", zap.Bool("passed", notice.Passed))
	return nil
}

// SendHRAlert logs the alert and reports success.
func (n Noop) SendHRAlert(_ context.Context, alert types.HRAlert) error {
	n.logger().Info("hr alert disabled", zap.String("evaluation_id", alert.EvaluationID.String()))
	return nil
}
