package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memContacts is an in-memory ContactLookup keyed by NameKey.
type memContacts struct {
	byName map[string]Contact
	err    error
}

func newMemContacts(cs ...Contact) *memContacts {
	m := &memContacts{byName: map[string]Contact{}}
	for _, c := range cs {
		m.byName[NameKey(c.Name)] = c
	}
	return m
}

func (m *memContacts) Lookup(_ context.Context, name string) (*Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.byName[NameKey(name)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memContacts) Upsert(_ context.Context, c Contact) error {
	if m.err != nil {
		return m.err
	}
	m.byName[NameKey(c.Name)] = c
	return nil
}

func (m *memContacts) List(_ context.Context) ([]Contact, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Contact, 0, len(m.byName))
	for _, c := range m.byName {
		out = append(out, c)
	}
	return out, nil
}

var john = Contact{Name: "John", Address: "john@example.com"}

// run applies actions in order and returns the final state and last outcome.
func run(t *testing.T, contacts ContactLookup, s State, actions ...Action) (State, Outcome) {
	t.Helper()
	var out Outcome
	for _, a := range actions {
		s, out = Apply(context.Background(), a, s, contacts)
		require.NoError(t, s.Validate())
	}
	return s, out
}

func TestApply_ComposeRecipientAndSubject(t *testing.T) {
	contacts := newMemContacts(john)

	s, out := run(t, contacts, NewState(0), ComposeField{
		Field:  FieldRecipient,
		Value:  "john",
		Follow: []FieldValue{{Field: FieldSubject, Value: "project update"}},
	})

	assert.Equal(t, FieldsUpdated{Fields: []Field{FieldRecipient, FieldSubject}}, out)
	assert.Equal(t, PhaseComposing, s.Phase)
	assert.Equal(t, "John", s.Draft.RecipientName)
	assert.Equal(t, "john@example.com", s.Draft.RecipientAddress)
	assert.Equal(t, "project update", s.Draft.Subject)
	assert.False(t, s.PendingConfirmation)
}

func TestApply_ComposeCarriesBodyText(t *testing.T) {
	contacts := newMemContacts(john)

	s, out := run(t, contacts, NewState(0), ComposeField{
		Field: FieldRecipient,
		Value: "john",
		Follow: []FieldValue{
			{Field: FieldSubject, Value: "lunch"},
			{Field: FieldBody, Value: "i will be ten minutes late"},
		},
	})

	assert.Equal(t, FieldsUpdated{Fields: []Field{FieldRecipient, FieldSubject, FieldBody}}, out)
	assert.Equal(t, []string{"i will be ten minutes late"}, s.Draft.Body)
	assert.True(t, s.Draft.Complete())
	assert.Equal(t,
		`Recipient set to John (john@example.com). Subject set to "lunch". Message added. Your email is ready. Say send it when you're ready.`,
		Compose(out, s))

	_, out = run(t, contacts, s, ComposeField{
		Field:  FieldSubject,
		Value:  "lunch",
		Follow: []FieldValue{{Field: FieldBody, Value: "  "}},
	})
	assert.Equal(t, Invalid{Field: "body"}, out)
}

func TestApply_AddContactResolvesSpacedName(t *testing.T) {
	contacts := newMemContacts()

	s, out := run(t, contacts, NewState(0), ComposeField{Field: FieldRecipient, Value: "John  Smith"})
	require.Equal(t, NeedsAddress{Name: "John  Smith"}, out)

	s, out = run(t, contacts, s, AddContact{Name: "john smith", Address: "js@example.com"})
	assert.Equal(t, ContactSaved{Contact: Contact{Name: "john smith", Address: "js@example.com"}, Resolved: true}, out)
	assert.Equal(t, "js@example.com", s.Draft.RecipientAddress)
}

func TestApply_RecipientAsAddress(t *testing.T) {
	s, out := run(t, nil, NewState(0), ComposeField{Field: FieldRecipient, Value: "bob@example.com"})

	assert.Equal(t, FieldsUpdated{Fields: []Field{FieldRecipient}}, out)
	assert.Equal(t, "bob@example.com", s.Draft.RecipientAddress)
	assert.Empty(t, s.Draft.RecipientName)
}

func TestApply_UnknownRecipientThenAddContact(t *testing.T) {
	contacts := newMemContacts()

	s, out := run(t, contacts, NewState(0), ComposeField{Field: FieldRecipient, Value: "Sarah"})
	assert.Equal(t, NeedsAddress{Name: "Sarah"}, out)
	assert.Equal(t, "Sarah", s.Draft.RecipientName)
	assert.Empty(t, s.Draft.RecipientAddress)

	s, out = run(t, contacts, s, AddContact{Name: "sarah", Address: "sarah@example.com"})
	assert.Equal(t, ContactSaved{Contact: Contact{Name: "sarah", Address: "sarah@example.com"}, Resolved: true}, out)
	assert.Equal(t, "sarah@example.com", s.Draft.RecipientAddress)

	saved, err := contacts.Lookup(context.Background(), "SARAH")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "sarah@example.com", saved.Address)
}

func TestApply_AddContactValidation(t *testing.T) {
	contacts := newMemContacts()

	tests := []struct {
		name   string
		action AddContact
		want   Outcome
	}{
		{"bad address", AddContact{Name: "Sarah", Address: "sarah at example"}, Invalid{Field: "address"}},
		{"missing name", AddContact{Name: " ", Address: "sarah@example.com"}, Invalid{Field: "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := NewState(0)
			s, out := run(t, contacts, start, tt.action)
			assert.Equal(t, tt.want, out)
			assert.Empty(t, cmp.Diff(start, s))
			assert.Empty(t, contacts.byName)
		})
	}
}

func TestApply_StoreFailures(t *testing.T) {
	boom := errors.New("disk on fire")
	contacts := &memContacts{byName: map[string]Contact{}, err: boom}
	start := NewState(0)

	s, out := run(t, contacts, start, ComposeField{Field: FieldRecipient, Value: "john"})
	assert.Equal(t, StoreFailed{Op: "lookup", Err: boom}, out)
	assert.Empty(t, cmp.Diff(start, s))

	_, out = run(t, contacts, start, AddContact{Name: "John", Address: "john@example.com"})
	assert.Equal(t, StoreFailed{Op: "save", Err: boom}, out)

	_, out = run(t, contacts, start, ListContacts{})
	assert.Equal(t, StoreFailed{Op: "list", Err: boom}, out)

	_, out = run(t, nil, start, ListContacts{})
	assert.Equal(t, StoreFailed{Op: "list", Err: ErrNoContactStore}, out)
}

func TestApply_SendBlockedOnEmptyDraft(t *testing.T) {
	start := NewState(0)

	s, out := run(t, nil, start, SendEmail{})

	assert.Equal(t, Blocked{Reason: ReasonEmptyBody}, out)
	assert.Empty(t, cmp.Diff(start, s))
}

func TestApply_SendBlockedWithoutRecipient(t *testing.T) {
	s, out := run(t, nil, NewState(0), AddFragment{Text: "see you soon"}, SendEmail{})

	assert.Equal(t, Blocked{Reason: ReasonNoRecipient}, out)
	assert.Equal(t, PhaseComposing, s.Phase)
	assert.False(t, s.PendingConfirmation)
}

func TestApply_ConfirmWithoutPendingSend(t *testing.T) {
	for _, start := range []State{
		NewState(0),
		mustState(t, ComposeField{Field: FieldRecipient, Value: "john"}, AddFragment{Text: "hi"}),
	} {
		s, out := run(t, newMemContacts(john), start, Confirm{})
		assert.Equal(t, NoPendingSend{}, out)
		assert.Empty(t, cmp.Diff(start, s))
	}
}

func TestApply_SendFlowNeverAuthorizesTwice(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "the meeting is at 2pm"},
	)
	contacts := newMemContacts(john)

	s, out := run(t, contacts, s, SendEmail{})
	assert.Equal(t, ConfirmRequested{}, out)
	assert.Equal(t, PhaseAwaitingSendConfirmation, s.Phase)
	assert.True(t, s.PendingConfirmation)

	s, out = run(t, contacts, s, SendEmail{})
	assert.Equal(t, ConfirmRequested{}, out, "repeated send re-asks")

	s, out = run(t, contacts, s, Confirm{})
	assert.Equal(t, SendAuthorized{}, out)
	assert.Equal(t, PhaseSent, s.Phase)
	assert.False(t, s.PendingConfirmation)

	authorized := 0
	for _, a := range []Action{Confirm{}, SendEmail{}, Confirm{}} {
		s, out = run(t, contacts, s, a)
		if _, ok := out.(SendAuthorized); ok {
			authorized++
		}
		assert.Equal(t, NoPendingSend{}, out)
	}
	assert.Zero(t, authorized)
}

func TestApply_EditWithdrawsPendingConfirmation(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "hello"},
		SendEmail{},
	)
	require.True(t, s.PendingConfirmation)

	s, out := run(t, newMemContacts(john), s, AddFragment{Text: "one more thing"})

	assert.Equal(t, FragmentAdded{Count: 2}, out)
	assert.Equal(t, PhaseComposing, s.Phase)
	assert.False(t, s.PendingConfirmation)
}

func TestApply_CancelKeepsDraft(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "hello"},
		SendEmail{},
	)

	s, out := run(t, nil, s, Cancel{})

	assert.Equal(t, SendCancelled{}, out)
	assert.Equal(t, PhaseComposing, s.Phase)
	assert.Equal(t, []string{"hello"}, s.Draft.Body)
}

func TestApply_ReadBackIsIdempotent(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "hello"},
	)

	once, out1 := run(t, nil, s, ReadBack{})
	twice, out2 := run(t, nil, once, ReadBack{})

	assert.Equal(t, DraftReadBack{}, out1)
	assert.Equal(t, out1, out2)
	assert.Empty(t, cmp.Diff(s, once))
	assert.Empty(t, cmp.Diff(once, twice))
}

func TestApply_ClearThenCompose(t *testing.T) {
	contacts := newMemContacts(john)
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john", Follow: []FieldValue{{Field: FieldSubject, Value: "lunch"}}},
		AddFragment{Text: "noon works"},
	)

	cleared, out := run(t, contacts, s, ClearDraft{})
	assert.Equal(t, Cleared{}, out)
	assert.Empty(t, cmp.Diff(NewState(s.HistoryLimit), cleared))

	again, _ := run(t, contacts, cleared,
		ComposeField{Field: FieldRecipient, Value: "john", Follow: []FieldValue{{Field: FieldSubject, Value: "lunch"}}},
		AddFragment{Text: "noon works"},
	)
	assert.Empty(t, cmp.Diff(s.Draft, again.Draft))
}

func TestApply_ClearThenSubjectMatchesFreshSession(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "draft text"},
		SendEmail{},
	)

	fromCleared, _ := run(t, nil, s, ClearDraft{}, ComposeField{Field: FieldSubject, Value: "X"})
	fromFresh, _ := run(t, nil, NewState(s.HistoryLimit), ComposeField{Field: FieldSubject, Value: "X"})

	assert.Empty(t, cmp.Diff(fromFresh, fromCleared))
}

func TestApply_DoesNotAliasInputState(t *testing.T) {
	s := mustState(t, AddFragment{Text: "first"})
	before := s.Clone()

	_, _ = Apply(context.Background(), AddFragment{Text: "second"}, s, nil)

	assert.Empty(t, cmp.Diff(before, s))
}

func TestApply_CorruptStateResets(t *testing.T) {
	tests := []struct {
		name  string
		state State
	}{
		{"pending without awaiting", State{Phase: PhaseComposing, PendingConfirmation: true, HistoryLimit: 4}},
		{"idle with content", State{Phase: PhaseIdle, Draft: Draft{Subject: "x"}, HistoryLimit: 4}},
		{"bad address", State{Phase: PhaseComposing, Draft: Draft{RecipientAddress: "nope"}, HistoryLimit: 4}},
		{"awaiting incomplete draft", State{Phase: PhaseAwaitingSendConfirmation, PendingConfirmation: true, HistoryLimit: 4}},
		{"unknown phase", State{Phase: Phase(9), HistoryLimit: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := Apply(context.Background(), Help{}, tt.state, nil)

			reset, ok := out.(SessionReset)
			require.True(t, ok, "got %T", out)
			assert.Contains(t, reset.Reason, ErrCorruptState.Error())
			assert.Empty(t, cmp.Diff(NewState(4), s))
		})
	}
}

func TestApply_InvalidInputs(t *testing.T) {
	start := NewState(0)

	_, out := run(t, nil, start, ComposeField{Field: FieldSubject, Value: "  "})
	assert.Equal(t, Invalid{Field: "subject"}, out)

	_, out = run(t, nil, start, AddFragment{Text: ""})
	assert.Equal(t, Invalid{Field: "body"}, out)

	_, out = run(t, nil, start, SwitchTheme{Mode: "purple"})
	assert.Equal(t, Invalid{Field: "theme"}, out)

	_, out = run(t, nil, start, SwitchTheme{Mode: "Dark"})
	assert.Equal(t, ThemeSwitched{Mode: ThemeDark}, out)

	_, out = run(t, nil, start, Unknown{RawText: "blah"})
	assert.Equal(t, Unrecognized{RawText: "blah"}, out)
}

func TestReopen(t *testing.T) {
	s := mustState(t,
		ComposeField{Field: FieldRecipient, Value: "john"},
		AddFragment{Text: "hello"},
		SendEmail{},
		Confirm{},
	)
	require.Equal(t, PhaseSent, s.Phase)

	reopened := Reopen(s)
	assert.Equal(t, PhaseComposing, reopened.Phase)
	assert.NoError(t, reopened.Validate())

	s, out := run(t, newMemContacts(john), reopened, SendEmail{})
	assert.Equal(t, ConfirmRequested{}, out)
	assert.True(t, s.PendingConfirmation)

	idle := NewState(0)
	assert.Empty(t, cmp.Diff(idle, Reopen(idle)))
}

func TestState_RememberEvictsOldest(t *testing.T) {
	s := NewState(2)
	s = s.Remember("one", Help{})
	s = s.Remember("two", ReadBack{})
	s = s.Remember("three", SendEmail{})

	require.Len(t, s.History, 2)
	assert.Equal(t, "two", s.History[0].Utterance)
	assert.Equal(t, "three", s.History[1].Utterance)
	assert.NoError(t, s.Validate())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "compose_field recipient=john subject=lunch",
		Describe(ComposeField{Field: FieldRecipient, Value: "john", Follow: []FieldValue{{Field: FieldSubject, Value: "lunch"}}}))
	assert.Equal(t, "add_fragment text=hi", Describe(AddFragment{Text: "hi"}))
	assert.Equal(t, "unknown", Describe(nil))
	assert.Equal(t, "confirm", Describe(Confirm{}))
}

// mustState builds a state by applying actions to a fresh one, with John
// in the contact store.
func mustState(t *testing.T, actions ...Action) State {
	t.Helper()
	s, _ := run(t, newMemContacts(john), NewState(0), actions...)
	return s
}
