package mailer

import (
	"context"
	"fmt"
	"net"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// DefaultSentMailbox is used when no Sent mailbox is configured.
const DefaultSentMailbox = "Sent"

// IMAPConfig holds the IMAP settings used to archive sent mail.
type IMAPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	TLS      bool
	Mailbox  string
}

// SentArchiver appends delivered messages to an IMAP mailbox.
type SentArchiver struct {
	cfg IMAPConfig
}

// NewSentArchiver creates an archiver for cfg.
func NewSentArchiver(cfg IMAPConfig) *SentArchiver {
	if cfg.Mailbox == "" {
		cfg.Mailbox = DefaultSentMailbox
	}
	return &SentArchiver{cfg: cfg}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (a *SentArchiver) connect() (*imapclient.Client, error) {
	addr := net.JoinHostPort(a.cfg.Host, a.cfg.Port)

	var client *imapclient.Client
	var err error

	if a.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(a.cfg.Username, a.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("%w: IMAP login for %s: %v", ErrAuth, a.cfg.Username, err)
	}

	return client, nil
}

// Archive appends m to the configured mailbox with the \Seen flag.
func (a *SentArchiver) Archive(ctx context.Context, m *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := a.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	cmd := client.Append(a.cfg.Mailbox, int64(len(m.Raw)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagSeen},
		Time:  m.Date,
	})
	if _, err := cmd.Write(m.Raw); err != nil {
		_ = cmd.Close()
		return fmt.Errorf("writing message to %s: %w", a.cfg.Mailbox, err)
	}
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("closing append to %s: %w", a.cfg.Mailbox, err)
	}
	if _, err := cmd.Wait(); err != nil {
		return fmt.Errorf("appending to %s: %w", a.cfg.Mailbox, err)
	}
	return nil
}
