package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/model"
)

var completeDraft = dialogue.Draft{
	RecipientName:    "John",
	RecipientAddress: "john@example.com",
	Subject:          "project update",
	Body:             []string{"the meeting is on thursday", "please bring the slides"},
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	msg, err := BuildMessage("me@example.com", completeDraft, now)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "The meeting is on thursday. Please bring the slides.", msg.Body)

	r, err := mail.CreateReader(bytes.NewReader(msg.Raw))
	require.NoError(t, err)
	defer r.Close()

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "project update", subject)

	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "john@example.com", to[0].Address)
	assert.Equal(t, "John", to[0].Name)

	date, err := r.Header.Date()
	require.NoError(t, err)
	assert.True(t, date.Equal(now))

	part, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, msg.Body, strings.TrimSpace(string(body)))
}

func TestBuildMessageRejectsIncompleteDraft(t *testing.T) {
	_, err := BuildMessage("me@example.com", dialogue.Draft{RecipientAddress: "john@example.com"}, time.Now())
	assert.Error(t, err)

	_, err = BuildMessage("not an address", completeDraft, time.Now())
	assert.Error(t, err)
}

func TestNewSMTPSenderValidation(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Port: "25", From: "me@example.com"})
	assert.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "h", Port: "25", From: "nope"})
	assert.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "h", Port: "25", From: "me@example.com", Security: "ssl3"})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "h", Port: "25", Username: "me@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", s.cfg.From)
	assert.Equal(t, SecurityStartTLS, s.cfg.Security)
}

// fakeSMTP is a minimal plaintext SMTP server that accepts one password.
type fakeSMTP struct {
	ln       net.Listener
	password string

	mu       sync.Mutex
	from     string
	rcpt     string
	data     string
	received int
}

func startFakeSMTP(t *testing.T, password string) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	f := &fakeSMTP{ln: ln, password: password}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			f.serve(conn)
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	return f
}

func (f *fakeSMTP) port() string {
	return strconv.Itoa(f.ln.Addr().(*net.TCPAddr).Port)
}

func (f *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	reply := func(s string) { _ = tp.PrintfLine("%s", s) }

	reply("220 localhost ESMTP ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO", "HELO":
			reply("250-localhost")
			reply("250 AUTH PLAIN")
		case "AUTH":
			if strings.Contains(decodePlain(line), "\x00"+f.password) {
				reply("235 2.7.0 Authentication successful")
			} else {
				reply("535 5.7.8 Authentication credentials invalid")
			}
		case "MAIL":
			f.mu.Lock()
			f.from = line
			f.mu.Unlock()
			reply("250 OK")
		case "RCPT":
			f.mu.Lock()
			f.rcpt = line
			f.mu.Unlock()
			reply("250 OK")
		case "DATA":
			reply("354 go ahead")
			lines, err := tp.ReadDotLines()
			if err != nil {
				return
			}
			f.mu.Lock()
			f.data = strings.Join(lines, "\n")
			f.received++
			f.mu.Unlock()
			reply("250 queued")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func decodePlain(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(fields[2])
	if err != nil {
		return ""
	}
	return string(b)
}

type recordingArchiver struct {
	err  error
	msgs []*Message
}

func (a *recordingArchiver) Archive(_ context.Context, m *Message) error {
	a.msgs = append(a.msgs, m)
	return a.err
}

type recordingLog struct {
	sent []model.SentMessage
}

func (r *recordingLog) RecordSent(_ context.Context, m model.SentMessage) error {
	r.sent = append(r.sent, m)
	return nil
}

func newTestSender(t *testing.T, srv *fakeSMTP, password string, opts ...Option) *SMTPSender {
	t.Helper()
	s, err := NewSMTPSender(SMTPConfig{
		Host:     "127.0.0.1",
		Port:     srv.port(),
		Username: "me@example.com",
		Password: password,
		Security: SecurityNone,
	}, opts...)
	require.NoError(t, err)
	return s
}

func TestSMTPSenderDelivers(t *testing.T) {
	srv := startFakeSMTP(t, "secret")
	archive := &recordingArchiver{err: errors.New("imap down")}
	sentLog := &recordingLog{}
	core, logs := observer.New(zapcore.InfoLevel)

	s := newTestSender(t, srv, "secret",
		WithArchiver(archive), WithSentLog(sentLog), WithLogger(zap.New(core)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, completeDraft))

	srv.mu.Lock()
	assert.Equal(t, 1, srv.received)
	assert.Contains(t, srv.from, "me@example.com")
	assert.Contains(t, srv.rcpt, "john@example.com")
	assert.Contains(t, srv.data, "Subject: project update")
	srv.mu.Unlock()

	require.Len(t, archive.msgs, 1)
	require.Len(t, sentLog.sent, 1)
	assert.Equal(t, archive.msgs[0].ID, sentLog.sent[0].MessageID)
	assert.Equal(t, "john@example.com", sentLog.sent[0].To)

	assert.Equal(t, 1, logs.FilterMessage("email sent").Len())
	assert.Equal(t, 1, logs.FilterMessage("archiving sent message failed").Len())
}

func TestSMTPSenderAuthFailure(t *testing.T) {
	srv := startFakeSMTP(t, "secret")
	sentLog := &recordingLog{}
	s := newTestSender(t, srv, "wrong", WithSentLog(sentLog))

	err := s.Send(context.Background(), completeDraft)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuth)
	assert.Contains(t, Reason(err), "rejected the login")
	assert.Empty(t, sentLog.sent)
}

func TestSMTPSenderUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	ln.Close()

	s, err := NewSMTPSender(SMTPConfig{
		Host: "127.0.0.1", Port: port, From: "me@example.com", Security: SecurityNone,
	})
	require.NoError(t, err)

	err = s.Send(context.Background(), completeDraft)
	require.Error(t, err)
	assert.Equal(t, "I couldn't reach the mail server", Reason(err))
}

func TestSMTPSenderIncompleteDraft(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: "1", From: "me@example.com"})
	require.NoError(t, err)

	err = s.Send(context.Background(), dialogue.Draft{RecipientAddress: "john@example.com"})
	assert.Error(t, err)
}

func TestReason(t *testing.T) {
	assert.Empty(t, Reason(nil))
	assert.Contains(t, Reason(context.DeadlineExceeded), "too long")
	assert.Equal(t, "the mail server refused the message", Reason(errors.New("SMTP RCPT TO: 550")))
}

func TestIsAuthFailure(t *testing.T) {
	assert.True(t, isAuthFailure(&textproto.Error{Code: 535, Msg: "bad"}))
	assert.False(t, isAuthFailure(&textproto.Error{Code: 550, Msg: "no"}))
	assert.False(t, isAuthFailure(errors.New("x")))
}

func TestNewSentArchiverDefaultsMailbox(t *testing.T) {
	a := NewSentArchiver(IMAPConfig{Host: "imap.example.com", Port: "993"})
	assert.Equal(t, DefaultSentMailbox, a.cfg.Mailbox)
}

func TestArchiveHonorsCancelledContext(t *testing.T) {
	a := NewSentArchiver(IMAPConfig{Host: "127.0.0.1", Port: "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.Archive(ctx, &Message{}), context.Canceled)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, "smtp.example.com:587", SMTPConfig{Host: "smtp.example.com", Port: "587"}.Addr())
}
