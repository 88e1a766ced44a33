package store

import (
	"context"
	"errors"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/model"
)

// ErrInvalidContact is wrapped by contact writes that fail validation.
var ErrInvalidContact = errors.New("invalid contact")

// Preference keys.
const (
	PrefTheme = "display.theme"
)

// Store defines the persistence interface for contacts, preferences and
// the sent log.
type Store interface {
	// === Contacts ===

	Lookup(ctx context.Context, name string) (*dialogue.Contact, error)
	LookupAddress(ctx context.Context, address string) (*dialogue.Contact, error)
	Upsert(ctx context.Context, c dialogue.Contact) error
	List(ctx context.Context) ([]dialogue.Contact, error)
	DeleteContact(ctx context.Context, name string) error

	// === Preferences ===

	Preference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, mode string) error

	// === Sent log ===

	RecordSent(ctx context.Context, m model.SentMessage) error
	RecentSent(ctx context.Context, limit int) ([]model.SentMessage, error)

	Close() error
}

var (
	_ Store                  = (*SQLiteStore)(nil)
	_ dialogue.ContactLookup = (*SQLiteStore)(nil)
	_ dialogue.AddressLookup = (*SQLiteStore)(nil)
)
