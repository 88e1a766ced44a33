// Package normalize cleans raw speech transcripts before they are
// interpreted: case folding, filler removal, spoken punctuation, spoken
// email addresses, and number and date words.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

var defaultFillers = []string{
	"um", "umm", "uh", "uhh", "uhm", "er", "erm", "ah", "hmm", "mm",
	"you know", "i mean",
}

// DefaultFillers returns the filler words removed when no list is configured.
func DefaultFillers() []string {
	return append([]string(nil), defaultFillers...)
}

// Normalizer turns raw transcripts into interpreter input. It is stateless
// after construction and safe for concurrent use.
type Normalizer struct {
	fillers [][]string
}

// New creates a Normalizer that removes the given fillers. A nil list selects
// DefaultFillers; an empty non-nil list disables filler removal.
func New(fillers []string) *Normalizer {
	if fillers == nil {
		fillers = defaultFillers
	}

	n := &Normalizer{}
	for _, f := range fillers {
		words := strings.Fields(strings.ToLower(f))
		if len(words) > 0 {
			n.fillers = append(n.fillers, words)
		}
	}
	// Longest first so "you know" wins over a one-word entry sharing its head.
	sort.SliceStable(n.fillers, func(i, j int) bool {
		return len(n.fillers[i]) > len(n.fillers[j])
	})
	return n
}

// Normalize returns the cleaned form of raw. Empty or whitespace-only input
// yields "".
func (n *Normalizer) Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	toks := tokenize(s)
	toks = n.removeFillers(toks)
	toks = spokenPunctuation(toks)
	toks = convertNumbers(toks)

	out := render(toks)
	out = spokenAddresses(out)
	return strings.TrimSpace(strings.TrimLeft(out, ",.;:!? "))
}

// token is a word with the punctuation that trailed it in the transcript.
// A token with an empty word is bare punctuation attached to its predecessor.
type token struct {
	word  string
	trail string
}

const trailingPunct = ",.;:!?"

func tokenize(s string) []token {
	fields := strings.Fields(s)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimRight(f, trailingPunct)
		out = append(out, token{word: w, trail: f[len(w):]})
	}
	return out
}

func render(toks []token) string {
	var b strings.Builder
	for _, t := range toks {
		if t.word == "" {
			b.WriteString(t.trail)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.word)
		b.WriteString(t.trail)
	}
	return b.String()
}

func (n *Normalizer) removeFillers(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); {
		if m := n.matchFiller(toks, i); m > 0 {
			i += m
			continue
		}
		out = append(out, toks[i])
		i++
	}
	return out
}

func (n *Normalizer) matchFiller(toks []token, i int) int {
	for _, f := range n.fillers {
		if i+len(f) > len(toks) {
			continue
		}
		ok := true
		for k, w := range f {
			t := toks[i+k]
			// A filler phrase cannot span punctuation.
			if t.word != w || (k < len(f)-1 && t.trail != "") {
				ok = false
				break
			}
		}
		if ok {
			return len(f)
		}
	}
	return 0
}

var punctuationWords = []struct {
	words  []string
	symbol string
	// noun marks words that are also ordinary nouns ("the trial period").
	noun bool
}{
	{[]string{"question", "mark"}, "?", false},
	{[]string{"exclamation", "mark"}, "!", false},
	{[]string{"exclamation", "point"}, "!", false},
	{[]string{"full", "stop"}, ".", false},
	{[]string{"comma"}, ",", false},
	{[]string{"period"}, ".", true},
	{[]string{"semicolon"}, ";", false},
	{[]string{"colon"}, ":", false},
}

// clauseStarts are words that open a new sentence after a dictated "period".
var clauseStarts = map[string]bool{
	"i": true, "i'm": true, "i'll": true, "we": true, "we'll": true, "you": true,
	"he": true, "she": true, "they": true, "it's": true, "let's": true,
	"thanks": true, "thank": true, "please": true, "see": true, "regards": true,
}

// nounLeads are words after which "period" is the noun ("the grace period").
var nounLeads = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true, "each": true,
	"every": true, "per": true, "trial": true, "grace": true, "billing": true,
	"notice": true, "waiting": true, "time": true, "cooling": true, "probation": true,
}

// dictatedPeriod reports whether a noun-like punctuation word between prev
// and toks[next] is dictated punctuation rather than part of the sentence.
func dictatedPeriod(prev token, toks []token, next int) bool {
	if prev.trail != "" || nounLeads[prev.word] {
		return false
	}
	return next >= len(toks) || clauseStarts[toks[next].word]
}

// spokenPunctuation replaces dictated punctuation names with the symbol,
// attached to the preceding word. A leading punctuation word is kept as a word.
// "period" only counts at the end of the utterance or before a clause start,
// and never after a word that makes it a noun.
func spokenPunctuation(toks []token) []token {
	out := make([]token, 0, len(toks))
	for i := 0; i < len(toks); {
		matched := false
		if len(out) > 0 {
			for _, p := range punctuationWords {
				if !hasWords(toks, i, p.words) {
					continue
				}
				if p.noun && !dictatedPeriod(out[len(out)-1], toks, i+len(p.words)) {
					continue
				}
				prev := &out[len(out)-1]
				prev.trail = strings.TrimRight(prev.trail, trailingPunct) + p.symbol
				i += len(p.words)
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, toks[i])
			i++
		}
	}
	return out
}

func hasWords(toks []token, i int, words []string) bool {
	if i+len(words) > len(toks) {
		return false
	}
	for k, w := range words {
		if toks[i+k].word != w {
			return false
		}
		if k < len(words)-1 && toks[i+k].trail != "" {
			return false
		}
	}
	return true
}

var (
	spokenAddressPattern = regexp.MustCompile(
		`\b((?:[a-z0-9_%+-]+ dot )*[a-z0-9_%+-]+) at ((?:[a-z0-9-]+ dot )+[a-z]{2,})\b`,
	)
	spacePattern = regexp.MustCompile(`\s+`)

	// notLocalParts are words that come before "at" in ordinary speech and
	// never name a mailbox on their own.
	notLocalParts = map[string]bool{
		"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
		"am": true, "me": true, "us": true, "you": true, "him": true, "her": true,
		"them": true, "it": true, "we": true, "i": true, "they": true,
		"met": true, "meet": true, "see": true, "look": true, "arrive": true,
		"here": true, "there": true, "home": true, "work": true, "stay": true,
	}
)

// spokenAddresses rewrites "john dot smith at example dot com" as
// "john.smith@example.com". The top-level label must be alphabetic, and a
// single-word local part must not be an everyday word like "is" or "met".
func spokenAddresses(s string) string {
	return spokenAddressPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := spokenAddressPattern.FindStringSubmatch(m)
		if notLocalParts[sub[1]] {
			return m
		}
		local := strings.ReplaceAll(sub[1], " dot ", ".")
		domain := strings.ReplaceAll(sub[2], " dot ", ".")
		return spacePattern.ReplaceAllString(local, "") + "@" + domain
	})
}

// Sentence formats a dictated fragment as prose: sentence starts and the
// pronoun "i" are capitalized and a final period is added when the fragment
// has no terminal punctuation.
func Sentence(fragment string) string {
	words := strings.Fields(fragment)
	if len(words) == 0 {
		return ""
	}

	capNext := true
	for i, w := range words {
		core := strings.TrimRight(w, trailingPunct+`"')`)
		if core == "i" || strings.HasPrefix(core, "i'") {
			w = "I" + w[1:]
		}
		if capNext {
			w = upperFirst(w)
		}
		words[i] = w
		capNext = strings.HasSuffix(w, ".") || strings.HasSuffix(w, "?") || strings.HasSuffix(w, "!")
	}

	out := strings.Join(words, " ")
	if !strings.ContainsAny(out[len(out)-1:], ".?!") {
		out += "."
	}
	return out
}

func upperFirst(s string) string {
	for i, r := range s {
		if r >= 'a' && r <= 'z' {
			return s[:i] + string(r-'a'+'A') + s[i+1:]
		}
		if r != '"' && r != '\'' && r != '(' {
			return s
		}
	}
	return s
}
