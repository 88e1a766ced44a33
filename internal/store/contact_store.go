package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/voice-mail/internal/dialogue"
)

// Lookup returns the contact whose name matches case-insensitively, or
// (nil, nil) when there is none.
func (s *SQLiteStore) Lookup(ctx context.Context, name string) (*dialogue.Contact, error) {
	key := dialogue.NameKey(name)
	if key == "" {
		return nil, nil
	}

	var c dialogue.Contact
	err := s.db.GetContext(ctx, &c,
		"SELECT name, address FROM contacts WHERE name_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up contact %q: %w", name, err)
	}
	return &c, nil
}

// LookupAddress returns the most recently updated contact with the given
// address, or (nil, nil).
func (s *SQLiteStore) LookupAddress(ctx context.Context, address string) (*dialogue.Contact, error) {
	var c dialogue.Contact
	err := s.db.GetContext(ctx, &c, `
		SELECT name, address FROM contacts
		WHERE address = ? COLLATE NOCASE
		ORDER BY updated_at DESC
		LIMIT 1`,
		strings.TrimSpace(address),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up address %q: %w", address, err)
	}
	return &c, nil
}

// Upsert creates a contact or replaces the address of the contact with the
// same name. The write is a single statement, so concurrent upserts of one
// name never produce duplicates.
func (s *SQLiteStore) Upsert(ctx context.Context, c dialogue.Contact) error {
	name := strings.Join(strings.Fields(c.Name), " ")
	address := strings.TrimSpace(c.Address)
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidContact)
	}
	if !dialogue.ValidAddress(address) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidContact, address)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name_key, name, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			updated_at = excluded.updated_at`,
		uuid.New().String(), dialogue.NameKey(name), name, address, now, now,
	)
	if err != nil {
		return fmt.Errorf("saving contact %q: %w", name, err)
	}
	return nil
}

// List returns all contacts ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]dialogue.Contact, error) {
	var contacts []dialogue.Contact
	err := s.db.SelectContext(ctx, &contacts,
		"SELECT name, address FROM contacts ORDER BY name_key")
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// DeleteContact removes the contact with the given name.
func (s *SQLiteStore) DeleteContact(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM contacts WHERE name_key = ?", dialogue.NameKey(name))
	if err != nil {
		return fmt.Errorf("deleting contact %q: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("contact %q not found", name)
	}
	return nil
}
