package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/voice-mail/internal/model"
)

// defaultSentLimit caps RecentSent when no limit is given.
const defaultSentLimit = 20

// RecordSent appends a delivered message to the sent log.
func (s *SQLiteStore) RecordSent(ctx context.Context, m model.SentMessage) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sent_log (id, message_id, recipient, recipient_name, subject, body, sent_at)
		VALUES (:id, :message_id, :recipient, :recipient_name, :subject, :body, :sent_at)`,
		map[string]any{
			"id":             m.ID,
			"message_id":     m.MessageID,
			"recipient":      m.To,
			"recipient_name": m.ToName,
			"subject":        m.Subject,
			"body":           m.Body,
			"sent_at":        m.SentAt.UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("recording sent message to %s: %w", m.To, err)
	}
	return nil
}

// RecentSent returns up to limit sent messages, newest first.
func (s *SQLiteStore) RecentSent(ctx context.Context, limit int) ([]model.SentMessage, error) {
	if limit <= 0 {
		limit = defaultSentLimit
	}

	var out []model.SentMessage
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, message_id, recipient, recipient_name, subject, body, sent_at
		FROM sent_log
		ORDER BY sent_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sent log: %w", err)
	}
	return out, nil
}
