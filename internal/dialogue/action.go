package dialogue

// Kind names an action in the closed vocabulary shared with the
// language-understanding backend.
type Kind string

const (
	KindComposeField Kind = "compose_field"
	KindAddFragment  Kind = "add_fragment"
	KindAddContact   Kind = "add_contact"
	KindListContacts Kind = "list_contacts"
	KindReadBack     Kind = "read_back"
	KindClearDraft   Kind = "clear_draft"
	KindSwitchTheme  Kind = "switch_theme"
	KindSendEmail    Kind = "send_email"
	KindConfirm      Kind = "confirm"
	KindCancel       Kind = "cancel"
	KindHelp         Kind = "help"
	KindUnknown      Kind = "unknown"
)

// Field identifies a draft header that ComposeField can set.
type Field string

const (
	FieldRecipient Field = "recipient"
	FieldSubject   Field = "subject"

	// FieldBody appends a fragment to the body instead of replacing a value.
	FieldBody Field = "body"
)

// FieldValue pairs a header with the value spoken for it.
type FieldValue struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Theme modes accepted by SwitchTheme.
const (
	ThemeDark   = "dark"
	ThemeLight  = "light"
	ThemeToggle = "toggle"
)

// Action is one structured interpretation of an utterance. The set of
// implementations is closed; Apply switches over all of them.
//
//sumtype:decl
type Action interface {
	Kind() Kind
	isAction()
}

// ComposeField sets a draft header. Follow carries further headers, and body
// text, named in the same utterance and is applied in order after the
// primary one.
type ComposeField struct {
	Field  Field
	Value  string
	Follow []FieldValue
}

// AddFragment appends dictated text to the body.
type AddFragment struct {
	Text string
}

// AddContact creates or replaces a contact.
type AddContact struct {
	Name    string
	Address string
}

type ListContacts struct{}

type ReadBack struct{}

type ClearDraft struct{}

// SwitchTheme changes the feedback display theme. Mode is ThemeDark,
// ThemeLight or ThemeToggle.
type SwitchTheme struct {
	Mode string
}

type SendEmail struct{}

// Confirm is an explicit "yes, send it" while a send is pending.
type Confirm struct{}

// Cancel declines a pending send and keeps the draft.
type Cancel struct{}

type Help struct{}

// Unknown is what an utterance becomes when nothing could be understood.
type Unknown struct {
	RawText string
}

func (ComposeField) Kind() Kind { return KindComposeField }
func (AddFragment) Kind() Kind  { return KindAddFragment }
func (AddContact) Kind() Kind   { return KindAddContact }
func (ListContacts) Kind() Kind { return KindListContacts }
func (ReadBack) Kind() Kind     { return KindReadBack }
func (ClearDraft) Kind() Kind   { return KindClearDraft }
func (SwitchTheme) Kind() Kind  { return KindSwitchTheme }
func (SendEmail) Kind() Kind    { return KindSendEmail }
func (Confirm) Kind() Kind      { return KindConfirm }
func (Cancel) Kind() Kind       { return KindCancel }
func (Help) Kind() Kind         { return KindHelp }
func (Unknown) Kind() Kind      { return KindUnknown }

func (ComposeField) isAction() {}
func (AddFragment) isAction()  {}
func (AddContact) isAction()   {}
func (ListContacts) isAction() {}
func (ReadBack) isAction()     {}
func (ClearDraft) isAction()   {}
func (SwitchTheme) isAction()  {}
func (SendEmail) isAction()    {}
func (Confirm) isAction()      {}
func (Cancel) isAction()       {}
func (Help) isAction()         {}
func (Unknown) isAction()      {}

// Fields returns the primary header followed by any Follow headers.
func (c ComposeField) Fields() []FieldValue {
	out := make([]FieldValue, 0, 1+len(c.Follow))
	out = append(out, FieldValue{Field: c.Field, Value: c.Value})
	return append(out, c.Follow...)
}

// Describe renders an action compactly for turn history serialization.
func Describe(a Action) string {
	switch a := a.(type) {
	case ComposeField:
		s := string(a.Kind())
		for _, fv := range a.Fields() {
			s += " " + string(fv.Field) + "=" + fv.Value
		}
		return s
	case AddFragment:
		return string(a.Kind()) + " text=" + a.Text
	case AddContact:
		return string(a.Kind()) + " name=" + a.Name + " address=" + a.Address
	case SwitchTheme:
		return string(a.Kind()) + " mode=" + a.Mode
	case ListContacts, ReadBack, ClearDraft, SendEmail, Confirm, Cancel, Help, Unknown:
		return string(a.Kind())
	}
	return string(KindUnknown)
}
