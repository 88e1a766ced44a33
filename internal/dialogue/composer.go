package dialogue

import (
	"fmt"
	"strings"

	"github.com/nhle/voice-mail/internal/normalize"
)

const (
	// previewLength is how much of the body a send confirmation reads out.
	previewLength = 50

	fallbackResponse = "I didn't understand that."
)

// Compose maps an outcome to the short confirmation spoken or shown to the
// user. It depends only on the outcome and the state after the turn.
func Compose(outcome Outcome, state State) string {
	switch o := outcome.(type) {
	case FieldsUpdated:
		return joinSentences(describeFields(o.Fields, state.Draft), nextStep(state.Draft))

	case NeedsAddress:
		return fmt.Sprintf(
			"I don't have an address for %s. Say \"add %s to contacts\" followed by their email address.",
			o.Name, o.Name,
		)

	case FragmentAdded:
		if o.Count == 1 {
			return joinSentences("Message started.", nextStep(state.Draft))
		}
		return joinSentences("Message updated.", nextStep(state.Draft))

	case ContactSaved:
		msg := fmt.Sprintf("Saved %s as %s.", o.Contact.Name, o.Contact.Address)
		if o.Resolved {
			return joinSentences(msg, "The email will go to that address.", nextStep(state.Draft))
		}
		return msg

	case Invalid:
		switch o.Field {
		case "address":
			return "That doesn't look like a valid email address. Nothing was saved."
		case "name":
			return "I need a name for that contact."
		case "theme":
			return "I can switch to dark mode or light mode."
		case "body":
			return "I didn't catch any message text."
		default:
			return "I couldn't use that value. Please try again."
		}

	case ContactsListed:
		if len(o.Contacts) == 0 {
			return "You don't have any contacts yet."
		}
		parts := make([]string, 0, len(o.Contacts))
		for _, c := range o.Contacts {
			parts = append(parts, c.Name+" at "+c.Address)
		}
		return fmt.Sprintf("You have %d %s: %s.",
			len(o.Contacts), plural(len(o.Contacts), "contact", "contacts"),
			strings.Join(parts, ", "))

	case DraftReadBack:
		return readBack(state.Draft)

	case Cleared:
		return "Draft cleared. Who would you like to email?"

	case ThemeSwitched:
		return fmt.Sprintf("Switched to %s mode.", o.Mode)

	case Blocked:
		switch o.Reason {
		case ReasonEmptyBody:
			if state.Draft.RecipientAddress == "" {
				return "I can't send yet. The email has no recipient and no message."
			}
			return "I can't send an empty email. What should the message say?"
		case ReasonNoRecipient:
			if state.Draft.RecipientName != "" {
				return fmt.Sprintf("I can't send yet. I don't have an email address for %s.",
					state.Draft.RecipientName)
			}
			return "I can't send yet. Who should receive this email?"
		default:
			return "I can't send this email yet."
		}

	case ConfirmRequested:
		return confirmation(state.Draft)

	case SendAuthorized:
		return fmt.Sprintf("Sending your email to %s.", state.Draft.Recipient())

	case SendCancelled:
		return "Okay, I won't send it. The draft is still here."

	case NoPendingSend:
		if state.Phase == PhaseSent {
			return "That email has already been sent."
		}
		return "There's nothing waiting to be sent. Say \"send it\" when the email is ready."

	case HelpShown:
		return "You can say things like: \"email John about the project\", " +
			"\"the meeting is scheduled for Thursday\", \"read it back\", " +
			"\"send it\", \"start over\", or \"add Sarah to my contacts, sarah@example.com\"."

	case Unrecognized:
		if state.Draft.IsEmpty() {
			return "I'm not sure what you want to do. Try \"send an email to\" someone."
		}
		return "I didn't understand that in the context of your email. Please try again."

	case SessionReset:
		return "Something went wrong with the draft, so I started over."

	case StoreFailed:
		switch o.Op {
		case "save":
			return "I couldn't save that contact."
		case "list":
			return "I couldn't load your contacts."
		default:
			return "I couldn't look up that contact."
		}

	case Silence:
		return "I didn't hear anything."

	case Delivered:
		return fmt.Sprintf("Email sent to %s.", o.To)

	case DeliveryFailed:
		return fmt.Sprintf("Sending failed: %s. The draft is still here.", o.Reason)

	case Abandoned:
		return "Stopped. Nothing was changed."

	}
	return fallbackResponse
}

// Missing lists the draft parts still needed, in the order they are asked for.
func Missing(d Draft) []string {
	var missing []string
	if d.RecipientAddress == "" {
		missing = append(missing, "recipient")
	}
	if d.Subject == "" {
		missing = append(missing, "subject")
	}
	if !d.HasBody() {
		missing = append(missing, "message")
	}
	return missing
}

// BodyText renders the body fragments as dictated sentences.
func BodyText(d Draft) string {
	parts := make([]string, 0, len(d.Body))
	for _, f := range d.Body {
		if s := normalize.Sentence(f); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func nextStep(d Draft) string {
	missing := Missing(d)
	if len(missing) == 0 {
		return "Your email is ready. Say send it when you're ready."
	}
	return "I still need the " + joinWords(missing) + "."
}

func describeFields(fields []Field, d Draft) string {
	var parts []string
	body := false
	for _, f := range fields {
		switch f {
		case FieldRecipient:
			parts = append(parts, "Recipient set to "+d.Recipient()+".")
		case FieldSubject:
			parts = append(parts, fmt.Sprintf("Subject set to %q.", d.Subject))
		case FieldBody:
			if !body {
				parts = append(parts, "Message added.")
				body = true
			}
		}
	}
	return strings.Join(parts, " ")
}

func readBack(d Draft) string {
	if d.IsEmpty() {
		return "The draft is empty."
	}
	var parts []string
	if r := d.Recipient(); r != "" {
		parts = append(parts, "To "+r+".")
	} else {
		parts = append(parts, "No recipient yet.")
	}
	if d.Subject != "" {
		parts = append(parts, fmt.Sprintf("Subject: %s.", d.Subject))
	} else {
		parts = append(parts, "No subject yet.")
	}
	if body := BodyText(d); body != "" {
		parts = append(parts, "Message: "+body)
	} else {
		parts = append(parts, "No message yet.")
	}
	return strings.Join(parts, " ")
}

func confirmation(d Draft) string {
	body := BodyText(d)
	preview := body
	if r := []rune(body); len(r) > previewLength {
		preview = string(r[:previewLength]) + "..."
	}
	subject := d.Subject
	if subject == "" {
		subject = "no subject"
	}
	return fmt.Sprintf(
		"Send email to %s with %s? Message: %s Say yes to send or no to keep editing.",
		d.Recipient(), quoteSubject(subject, d.Subject != ""), preview,
	)
}

func quoteSubject(subject string, set bool) string {
	if !set {
		return subject
	}
	return fmt.Sprintf("subject %q", subject)
}

func joinSentences(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func joinWords(words []string) string {
	switch len(words) {
	case 0:
		return ""
	case 1:
		return words[0]
	case 2:
		return words[0] + " and " + words[1]
	default:
		return strings.Join(words[:len(words)-1], ", ") + " and " + words[len(words)-1]
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
