package testutil

import (
	"context"
	"testing"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewTestStoreWithContacts creates a test store seeded with contacts.
func NewTestStoreWithContacts(t *testing.T, contacts ...dialogue.Contact) *store.SQLiteStore {
	t.Helper()

	s := NewTestStore(t)
	for _, c := range contacts {
		if err := s.Upsert(context.Background(), c); err != nil {
			t.Fatalf("seeding contact %q: %v", c.Name, err)
		}
	}
	return s
}

// John and Sarah are the contacts most tests seed.
var (
	John  = dialogue.Contact{Name: "John", Address: "john@example.com"}
	Sarah = dialogue.Contact{Name: "Sarah", Address: "sarah@example.com"}
)
