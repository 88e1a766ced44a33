package dialogue

import (
	"context"
	"errors"
	"strings"
)

// ContactLookup is the narrow contact store interface the machine reads and
// writes through. Lookup returns (nil, nil) when no contact matches.
type ContactLookup interface {
	Lookup(ctx context.Context, name string) (*Contact, error)
	Upsert(ctx context.Context, c Contact) error
	List(ctx context.Context) ([]Contact, error)
}

// AddressLookup is implemented by stores that can find a contact by address.
// It lets a directly spoken address pick up the contact's name.
type AddressLookup interface {
	LookupAddress(ctx context.Context, address string) (*Contact, error)
}

// ErrNoContactStore is reported when a contact operation runs without a store.
var ErrNoContactStore = errors.New("no contact store configured")

// Apply interprets action against state and returns the next state with the
// outcome of the turn. state itself is never modified. Illegal requests
// resolve to an Outcome; only a state that fails Validate is replaced, with a
// fresh one and a SessionReset outcome.
func Apply(
	ctx context.Context,
	action Action,
	state State,
	contacts ContactLookup,
) (State, Outcome) {
	if err := state.Validate(); err != nil {
		return NewState(state.HistoryLimit), SessionReset{Reason: err.Error()}
	}

	next, outcome := apply(ctx, action, state.Clone(), contacts)

	if err := next.Validate(); err != nil {
		return NewState(state.HistoryLimit), SessionReset{Reason: err.Error()}
	}
	return next, outcome
}

// Reopen moves a Sent state back to composing so a draft whose delivery
// failed can be edited or sent again. Other states are returned unchanged.
func Reopen(state State) State {
	if state.Phase != PhaseSent {
		return state
	}
	out := state.Clone()
	out.PendingConfirmation = false
	out.Phase = PhaseComposing
	if out.Draft.IsEmpty() {
		out.Phase = PhaseIdle
	}
	return out
}

// apply works on s, a private copy of the caller's state. Paths that leave the
// state untouched return s as is.
func apply(
	ctx context.Context,
	action Action,
	s State,
	contacts ContactLookup,
) (State, Outcome) {
	if s.Phase == PhaseSent && mutatesDraft(action) {
		return s, NoPendingSend{}
	}

	switch a := action.(type) {
	case ComposeField:
		return applyComposeField(ctx, a, s, contacts)

	case AddFragment:
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return s, Invalid{Field: "body"}
		}
		s.Draft.Body = append(s.Draft.Body, text)
		touch(&s)
		return s, FragmentAdded{Count: len(s.Draft.Body)}

	case AddContact:
		return applyAddContact(ctx, a, s, contacts)

	case ListContacts:
		if contacts == nil {
			return s, StoreFailed{Op: "list", Err: ErrNoContactStore}
		}
		list, err := contacts.List(ctx)
		if err != nil {
			return s, StoreFailed{Op: "list", Err: err}
		}
		return s, ContactsListed{Contacts: list}

	case ReadBack:
		return s, DraftReadBack{}

	case ClearDraft:
		return NewState(s.HistoryLimit), Cleared{}

	case SwitchTheme:
		mode := strings.ToLower(strings.TrimSpace(a.Mode))
		switch mode {
		case ThemeDark, ThemeLight, ThemeToggle:
			return s, ThemeSwitched{Mode: mode}
		default:
			return s, Invalid{Field: "theme"}
		}

	case SendEmail:
		if s.Phase == PhaseAwaitingSendConfirmation {
			return s, ConfirmRequested{}
		}
		if !s.Draft.HasBody() {
			return s, Blocked{Reason: ReasonEmptyBody}
		}
		if s.Draft.RecipientAddress == "" {
			return s, Blocked{Reason: ReasonNoRecipient}
		}
		s.PendingConfirmation = true
		s.Phase = PhaseAwaitingSendConfirmation
		return s, ConfirmRequested{}

	case Confirm:
		if s.Phase != PhaseAwaitingSendConfirmation {
			return s, NoPendingSend{}
		}
		s.PendingConfirmation = false
		s.Phase = PhaseSent
		return s, SendAuthorized{}

	case Cancel:
		if s.Phase != PhaseAwaitingSendConfirmation {
			return s, NoPendingSend{}
		}
		s.PendingConfirmation = false
		s.Phase = PhaseComposing
		return s, SendCancelled{}

	case Help:
		return s, HelpShown{}

	case Unknown:
		return s, Unrecognized{RawText: a.RawText}

	}
	return s, Unrecognized{}
}

func applyComposeField(
	ctx context.Context,
	a ComposeField,
	s State,
	contacts ContactLookup,
) (State, Outcome) {
	original := s.Clone()

	var updated []Field
	missing := ""

	for _, fv := range a.Fields() {
		value := strings.TrimSpace(fv.Value)
		if value == "" {
			return original, Invalid{Field: string(fv.Field)}
		}

		switch fv.Field {
		case FieldSubject:
			s.Draft.Subject = value
			updated = append(updated, FieldSubject)

		case FieldBody:
			s.Draft.Body = append(s.Draft.Body, value)
			updated = append(updated, FieldBody)

		case FieldRecipient:
			if ValidAddress(value) {
				s.Draft.RecipientAddress = value
				s.Draft.RecipientName = ""
				if al, ok := contacts.(AddressLookup); ok {
					c, err := al.LookupAddress(ctx, value)
					if err != nil {
						return original, StoreFailed{Op: "lookup", Err: err}
					}
					if c != nil {
						s.Draft.RecipientName = c.Name
					}
				}
				updated = append(updated, FieldRecipient)
				continue
			}

			var c *Contact
			if contacts != nil {
				var err error
				c, err = contacts.Lookup(ctx, value)
				if err != nil {
					return original, StoreFailed{Op: "lookup", Err: err}
				}
			}
			if c == nil {
				s.Draft.RecipientName = value
				s.Draft.RecipientAddress = ""
				missing = value
				continue
			}
			s.Draft.RecipientName = c.Name
			s.Draft.RecipientAddress = c.Address
			updated = append(updated, FieldRecipient)

		default:
			return original, Invalid{Field: "field"}
		}
	}

	touch(&s)
	if missing != "" {
		return s, NeedsAddress{Name: missing}
	}
	return s, FieldsUpdated{Fields: updated}
}

func applyAddContact(
	ctx context.Context,
	a AddContact,
	s State,
	contacts ContactLookup,
) (State, Outcome) {
	name := strings.TrimSpace(a.Name)
	address := strings.TrimSpace(a.Address)
	if name == "" {
		return s, Invalid{Field: "name"}
	}
	if !ValidAddress(address) {
		return s, Invalid{Field: "address"}
	}
	if contacts == nil {
		return s, StoreFailed{Op: "save", Err: ErrNoContactStore}
	}

	c := Contact{Name: name, Address: address}
	if err := contacts.Upsert(ctx, c); err != nil {
		return s, StoreFailed{Op: "save", Err: err}
	}

	resolved := false
	if s.Draft.RecipientAddress == "" && NameKey(s.Draft.RecipientName) == NameKey(name) {
		s.Draft.RecipientAddress = address
		resolved = true
	}
	return s, ContactSaved{Contact: c, Resolved: resolved}
}

// touch marks the draft as edited. An edit while a send is pending withdraws
// the pending confirmation.
func touch(s *State) {
	s.PendingConfirmation = false
	s.Phase = PhaseComposing
}

func mutatesDraft(a Action) bool {
	switch a.(type) {
	case ComposeField, AddFragment, SendEmail, Confirm, Cancel:
		return true
	default:
		return false
	}
}
