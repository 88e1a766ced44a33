package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/extract"
)

// Offline is a rule-based extract.Backend for use without an API key. It
// recognizes common phrasings of each action and treats other sentences as
// dictation once a draft is under way.
type Offline struct{}

// NewOffline creates an Offline backend.
func NewOffline() *Offline {
	return &Offline{}
}

type rule struct {
	pattern *regexp.Regexp
	build   func(m []string) extract.Candidate
}

var offlineRules = []rule{
	{
		regexp.MustCompile(`^(?:please )?(?:add|save|create) (?:a )?(?:new )?contact (?:named |called )?(\S+)(?:,? (?:with )?(?:email|address|email address)(?: is)?)?:?,? (\S+)$`),
		func(m []string) extract.Candidate { return addContact(m[1], m[2]) },
	},
	{
		regexp.MustCompile(`^(?:please )?(?:add|save) (.+?) (?:to|in|as) (?:my )?contacts?(?:,? (?:with )?(?:email|address|email address)(?: is)?)?:?,? (\S+)$`),
		func(m []string) extract.Candidate { return addContact(m[1], m[2]) },
	},
	{
		regexp.MustCompile(`^(?:i want to |i'd like to |please |can you )?(?:send|write|compose|start|draft)(?: an| a| new)* (?:email|e-mail|mail|message|note) to (\S+(?: \S+)?)(?: (?:about|regarding|re|with the subject|with subject) (.+))?$`),
		func(m []string) extract.Candidate { return composeCandidate(m[1], m[2]) },
	},
	{
		regexp.MustCompile(`^(?:email|mail|message|write to) (\S+(?: \S+)?)(?: (?:about|regarding|re) (.+))?$`),
		func(m []string) extract.Candidate { return composeCandidate(m[1], m[2]) },
	},
	{
		regexp.MustCompile(`^(?:set |change )?(?:the )?(?:recipient|send it) (?:to|is) (.+)$`),
		func(m []string) extract.Candidate { return composeCandidate(m[1], "") },
	},
	{
		regexp.MustCompile(`^(?:set |change )?(?:the )?subject(?: line)?(?: to| is| should be)?:? (.+)$`),
		func(m []string) extract.Candidate { return composeCandidate("", m[1]) },
	},
	{
		regexp.MustCompile(`^(?:make it |it's |it is )?(?:about|regarding) (.+)$`),
		func(m []string) extract.Candidate { return composeCandidate("", m[1]) },
	},
	{
		regexp.MustCompile(`^(?:switch|change|go) to (dark|light)(?: mode| theme)?$`),
		func(m []string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindSwitchTheme), Mode: m[1]} },
	},
	{
		regexp.MustCompile(`^(?:who are my|show me my|what are my) contacts$`),
		func([]string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindListContacts)} },
	},
	{
		regexp.MustCompile(`^(?:read (?:me )?(?:the|my) (?:email|draft|message)(?: back)?|what do i have so far|what have i got)$`),
		func([]string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindReadBack)} },
	},
	{
		regexp.MustCompile(`^(?:clear|delete|discard|erase) (?:the |my |this )?(?:email|draft|message)$`),
		func([]string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindClearDraft)} },
	},
	{
		regexp.MustCompile(`^(?:ok |okay |alright )?(?:send|send off) (?:the |this |my )?(?:email|message|mail)(?: now)?$`),
		func([]string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindSendEmail)} },
	},
	{
		regexp.MustCompile(`^(?:say|write|add|tell (?:him|her|them)|and say|also say|the message is|message)(?: that)?:? (.+)$`),
		func(m []string) extract.Candidate { return extract.Candidate{Kind: string(dialogue.KindAddFragment), Text: m[1]} },
	},
}

func addContact(name, address string) extract.Candidate {
	return extract.Candidate{
		Kind:    string(dialogue.KindAddContact),
		Name:    strings.TrimSpace(name),
		Address: strings.TrimRight(strings.TrimSpace(address), ".,"),
	}
}

func composeCandidate(recipient, subject string) extract.Candidate {
	recipient = strings.TrimPrefix(strings.TrimSpace(recipient), "to ")
	return extract.Candidate{
		Kind:      string(dialogue.KindComposeField),
		Recipient: strings.TrimRight(recipient, ".,"),
		Subject:   strings.TrimRight(strings.TrimSpace(subject), ".,"),
	}
}

// dictationMinWords is the shortest unmatched sentence taken as body text.
const dictationMinWords = 3

// Understand implements extract.Backend.
func (o *Offline) Understand(_ context.Context, req extract.Request) (json.RawMessage, error) {
	u := strings.TrimRight(strings.ToLower(strings.TrimSpace(req.Utterance)), ".!?")

	var resp extract.Response
	for _, r := range offlineRules {
		if m := r.pattern.FindStringSubmatch(u); m != nil {
			resp.Candidates = append(resp.Candidates, r.build(m))
			break
		}
	}

	composing := req.Draft.Phase != dialogue.PhaseIdle.String()
	if len(resp.Candidates) == 0 && composing && len(strings.Fields(u)) >= dictationMinWords {
		resp.Candidates = append(resp.Candidates, extract.Candidate{
			Kind: string(dialogue.KindAddFragment),
			Text: strings.TrimSpace(req.Utterance),
		})
	}

	resp.NoMatch = len(resp.Candidates) == 0
	return json.Marshal(resp)
}
