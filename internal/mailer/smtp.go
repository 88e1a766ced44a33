package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/model"
)

// ErrAuth is wrapped by send errors caused by rejected credentials.
var ErrAuth = errors.New("smtp authentication failed")

// Transport security modes.
const (
	SecurityTLS      = "tls"
	SecurityStartTLS = "starttls"
	SecurityNone     = "none"
)

const dialTimeout = 30 * time.Second

// SMTPConfig holds the SMTP server settings for sending drafts.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// Security is SecurityTLS, SecurityStartTLS or SecurityNone.
	Security string
}

// Addr returns host:port.
func (c SMTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// SentRecorder persists delivered messages.
type SentRecorder interface {
	RecordSent(ctx context.Context, m model.SentMessage) error
}

// Archiver stores a copy of a delivered message.
type Archiver interface {
	Archive(ctx context.Context, m *Message) error
}

// SMTPSender transmits drafts over SMTP.
type SMTPSender struct {
	cfg      SMTPConfig
	archiver Archiver
	sentLog  SentRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures an SMTPSender.
type Option func(*SMTPSender)

// WithArchiver copies each delivered message to a mailbox.
func WithArchiver(a Archiver) Option {
	return func(s *SMTPSender) { s.archiver = a }
}

// WithSentLog records each delivered message.
func WithSentLog(r SentRecorder) Option {
	return func(s *SMTPSender) { s.sentLog = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *SMTPSender) { s.logger = l }
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg SMTPConfig, opts ...Option) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" {
		return nil, fmt.Errorf("smtp host and port are required")
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if !dialogue.ValidAddress(cfg.From) {
		return nil, fmt.Errorf("smtp sender address %q is not valid", cfg.From)
	}
	switch cfg.Security {
	case "":
		cfg.Security = SecurityStartTLS
	case SecurityTLS, SecurityStartTLS, SecurityNone:
	default:
		return nil, fmt.Errorf("unknown smtp security mode %q", cfg.Security)
	}

	s := &SMTPSender{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send delivers the draft. Archiving and sent-log failures are logged and do
// not fail the send.
func (s *SMTPSender) Send(ctx context.Context, d dialogue.Draft) error {
	msg, err := BuildMessage(s.cfg.From, d, s.now())
	if err != nil {
		return err
	}

	if err := s.transmit(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("email sent",
		zap.String("to", msg.To),
		zap.String("message_id", msg.ID),
	)

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, msg); err != nil {
			s.logger.Warn("archiving sent message failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	if s.sentLog != nil {
		err := s.sentLog.RecordSent(ctx, model.SentMessage{
			MessageID: msg.ID,
			To:        msg.To,
			ToName:    msg.ToName,
			Subject:   msg.Subject,
			Body:      msg.Body,
			SentAt:    msg.Date,
		})
		if err != nil {
			s.logger.Warn("recording sent message failed",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *SMTPSender) transmit(ctx context.Context, msg *Message) error {
	addr := s.cfg.Addr()

	conn, err := s.dial(ctx, addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if s.cfg.Security == SecurityStartTLS {
		tlsConfig := &tls.Config{ServerName: s.cfg.Host}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("SMTP STARTTLS: %w", err)
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			if isAuthFailure(err) {
				return fmt.Errorf("%w: %v", ErrAuth, err)
			}
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	return sendViaClient(client, msg.From, msg.To, msg.Raw)
}

func (s *SMTPSender) dial(ctx context.Context, addr string) (net.Conn, error) {
	if s.cfg.Security == SecurityTLS {
		d := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: dialTimeout},
			Config:    &tls.Config{ServerName: s.cfg.Host},
		}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("TLS dial to %s: %w", addr, err)
		}
		return conn, nil
	}

	d := &net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial to %s: %w", addr, err)
	}
	return conn, nil
}

// sendViaClient sends a message using an already-authenticated SMTP client.
func sendViaClient(client *smtp.Client, from, to string, raw []byte) error {
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("SMTP MAIL FROM: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("SMTP RCPT TO: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA: %w", err)
	}

	if _, err := writer.Write(raw); err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}

// isAuthFailure reports SMTP 535 (bad credentials) and 534/530 (auth
// required or too weak) replies.
func isAuthFailure(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code == 535 || tpErr.Code == 534 || tpErr.Code == 530
	}
	return false
}

// Reason turns a send error into a short spoken explanation.
func Reason(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuth):
		return "the mail server rejected the login, please check your email username and app password"
	case errors.Is(err, context.DeadlineExceeded):
		return "the mail server took too long to respond"
	case errors.As(err, &netErr):
		return "I couldn't reach the mail server"
	default:
		return "the mail server refused the message"
	}
}
