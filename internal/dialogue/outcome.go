package dialogue

// Outcome is the structured result of one turn. Every turn produces exactly
// one Outcome and Compose maps every Outcome to one response string.
//
//sumtype:decl
type Outcome interface {
	isOutcome()
}

// FieldsUpdated reports draft headers that were set.
type FieldsUpdated struct {
	Fields []Field
}

// NeedsAddress reports a recipient name with no known address.
type NeedsAddress struct {
	Name string
}

// FragmentAdded reports a body append; Count is the new fragment count.
type FragmentAdded struct {
	Count int
}

// ContactSaved reports a persisted contact. Resolved is true when the saved
// contact also filled in the draft's pending recipient.
type ContactSaved struct {
	Contact  Contact
	Resolved bool
}

// Invalid reports a validation failure; Field names what was rejected
// ("address", "name", "theme", "field").
type Invalid struct {
	Field string
}

type ContactsListed struct {
	Contacts []Contact
}

type DraftReadBack struct{}

type Cleared struct{}

type ThemeSwitched struct {
	Mode string
}

// Blocked reports a send attempt on an incomplete draft.
type Blocked struct {
	Reason string
}

// Blocked reasons.
const (
	ReasonEmptyBody   = "empty body"
	ReasonNoRecipient = "no recipient"
)

type ConfirmRequested struct{}

// SendAuthorized tells the caller to hand the draft to the transmission
// collaborator. The machine never sends by itself.
type SendAuthorized struct{}

type SendCancelled struct{}

// NoPendingSend reports a confirm or cancel with nothing awaiting it.
type NoPendingSend struct{}

type HelpShown struct{}

type Unrecognized struct {
	RawText string
}

// SessionReset reports that the state failed its invariant checks and was
// replaced with a fresh one.
type SessionReset struct {
	Reason string
}

// StoreFailed reports a contact store error; Op is "save", "list" or
// "lookup".
type StoreFailed struct {
	Op  string
	Err error
}

// Silence is produced by the caller for an empty transcript.
type Silence struct{}

// Delivered is produced by the caller after a successful transmission.
type Delivered struct {
	To string
}

// DeliveryFailed is produced by the caller when transmission fails.
type DeliveryFailed struct {
	Reason string
}

// Abandoned is produced by the caller when a turn was cancelled before its
// result could be committed.
type Abandoned struct{}

func (FieldsUpdated) isOutcome()    {}
func (NeedsAddress) isOutcome()     {}
func (FragmentAdded) isOutcome()    {}
func (ContactSaved) isOutcome()     {}
func (Invalid) isOutcome()          {}
func (ContactsListed) isOutcome()   {}
func (DraftReadBack) isOutcome()    {}
func (Cleared) isOutcome()          {}
func (ThemeSwitched) isOutcome()    {}
func (Blocked) isOutcome()          {}
func (ConfirmRequested) isOutcome() {}
func (SendAuthorized) isOutcome()   {}
func (SendCancelled) isOutcome()    {}
func (NoPendingSend) isOutcome()    {}
func (HelpShown) isOutcome()        {}
func (Unrecognized) isOutcome()     {}
func (SessionReset) isOutcome()     {}
func (StoreFailed) isOutcome()      {}
func (Silence) isOutcome()          {}
func (Delivered) isOutcome()        {}
func (DeliveryFailed) isOutcome()   {}
func (Abandoned) isOutcome()        {}
