package testutil

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"time"

	"github.com/nhle/voice-mail/internal/extract"
)

// Script is one canned backend reply.
type Script struct {
	// Pattern is matched against the request utterance. Empty matches any.
	Pattern string

	// Response is encoded as the reply unless Raw or Err is set.
	Response extract.Response

	// Raw is returned verbatim, for malformed-response tests.
	Raw string

	// Err is returned instead of a reply.
	Err error

	// Delay is waited before replying; a cancelled context ends the wait.
	Delay time.Duration

	// Repeatable scripts are not consumed when they match.
	Repeatable bool
}

// ScriptedBackend is a deterministic extract.Backend for tests. Scripts are
// tried in order; a request matching none gets a no_match reply.
type ScriptedBackend struct {
	mu      sync.Mutex
	scripts []Script
	used    []bool
	calls   []extract.Request
}

// NewScriptedBackend creates an empty ScriptedBackend.
func NewScriptedBackend() *ScriptedBackend {
	return &ScriptedBackend{}
}

// AddScript appends a script.
func (b *ScriptedBackend) AddScript(s Script) *ScriptedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.scripts = append(b.scripts, s)
	b.used = append(b.used, false)
	return b
}

// On answers utterances matching pattern with the given candidates, repeatedly.
func (b *ScriptedBackend) On(pattern string, candidates ...extract.Candidate) *ScriptedBackend {
	return b.AddScript(Script{
		Pattern:    pattern,
		Response:   extract.Response{Candidates: candidates},
		Repeatable: true,
	})
}

// OnRaw answers utterances matching pattern with a raw body, repeatedly.
func (b *ScriptedBackend) OnRaw(pattern, raw string) *ScriptedBackend {
	return b.AddScript(Script{Pattern: pattern, Raw: raw, Repeatable: true})
}

// OnError fails utterances matching pattern, repeatedly.
func (b *ScriptedBackend) OnError(pattern string, err error) *ScriptedBackend {
	return b.AddScript(Script{Pattern: pattern, Err: err, Repeatable: true})
}

// Understand implements extract.Backend.
func (b *ScriptedBackend) Understand(ctx context.Context, req extract.Request) (json.RawMessage, error) {
	script, ok := b.match(req)
	if !ok {
		return json.RawMessage(`{"candidates":[],"no_match":true}`), nil
	}

	if script.Delay > 0 {
		timer := time.NewTimer(script.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if script.Err != nil {
		return nil, script.Err
	}
	if script.Raw != "" {
		return json.RawMessage(script.Raw), nil
	}
	return json.Marshal(script.Response)
}

func (b *ScriptedBackend) match(req extract.Request) (Script, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, req)
	for i, s := range b.scripts {
		if b.used[i] {
			continue
		}
		if s.Pattern != "" && !regexp.MustCompile(s.Pattern).MatchString(req.Utterance) {
			continue
		}
		if !s.Repeatable {
			b.used[i] = true
		}
		return s, true
	}
	return Script{}, false
}

// Calls returns the requests received so far.
func (b *ScriptedBackend) Calls() []extract.Request {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]extract.Request, len(b.calls))
	copy(out, b.calls)
	return out
}
