package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// Preference returns the stored value for key and whether it was set.
func (s *SQLiteStore) Preference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM preferences WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading preference %s: %w", key, err)
	}
	return value, true, nil
}

// SetPreference stores value under key.
func (s *SQLiteStore) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing preference %s: %w", key, err)
	}
	return nil
}

// Theme returns the persisted display theme, or "" when none was saved.
func (s *SQLiteStore) Theme(ctx context.Context) (string, error) {
	v, _, err := s.Preference(ctx, PrefTheme)
	return v, err
}

// SetTheme persists the display theme. Only dark and light are stored.
func (s *SQLiteStore) SetTheme(ctx context.Context, mode string) error {
	if mode != dialogue.ThemeDark && mode != dialogue.ThemeLight {
		return fmt.Errorf("unsupported theme %q", mode)
	}
	return s.SetPreference(ctx, PrefTheme, mode)
}
