package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/voice-mail/internal/dialogue"
	"github.com/nhle/voice-mail/internal/extract"
)

func request(utterance string, phase dialogue.Phase) extract.Request {
	s := dialogue.NewState(0)
	s.Phase = phase
	return extract.NewRequest(utterance, s)
}

func TestClaude_ForcesToolAndReturnsInput(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "type": "message", "role": "assistant", "stop_reason": "tool_use",
			"content": [
				{"type": "text", "text": "Recording."},
				{"type": "tool_use", "id": "tu_1", "name": "record_candidates",
				 "input": {"candidates": [{"kind": "compose_field", "recipient": "john", "subject": "project update"}]}}
			]
		}`)
	}))
	defer srv.Close()

	c, err := NewClaude("test-key", "", 0, WithBaseURL(srv.URL))
	require.NoError(t, err)

	raw, err := c.Understand(context.Background(), request("email john about the project update", dialogue.PhaseIdle))
	require.NoError(t, err)

	resp, err := extract.ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []extract.Candidate{{Kind: "compose_field", Recipient: "john", Subject: "project update"}}, resp.Candidates)

	assert.Equal(t, defaultClaudeModel, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	require.NotNil(t, got.ToolChoice)
	assert.Equal(t, apiToolChoice{Type: "tool", Name: recordTool}, *got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.JSONEq(t, string(extract.ResponseSchema()), string(got.Tools[0].InputSchema))
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Content[0].Text, "Utterance: email john about the project update")
	assert.Contains(t, got.System, "voice email assistant")
}

func TestClaude_TextFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"{\"candidates\":[],\"no_match\":true}"}],"stop_reason":"end_turn"}`)
	}))
	defer srv.Close()

	c, err := NewClaude("k", "m", 10, WithBaseURL(srv.URL))
	require.NoError(t, err)

	raw, err := c.Understand(context.Background(), request("purple elephant dance", dialogue.PhaseIdle))
	require.NoError(t, err)
	assert.JSONEq(t, `{"candidates":[],"no_match":true}`, string(raw))
}

func TestClaude_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	c, err := NewClaude("bad", "", 0, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Understand(context.Background(), request("hello", dialogue.PhaseIdle))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (401): invalid x-api-key")
}

func TestClaude_NoToolCallNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"content":[],"stop_reason":"max_tokens"}`)
	}))
	defer srv.Close()

	c, err := NewClaude("k", "", 0, WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Understand(context.Background(), request("hello", dialogue.PhaseIdle))
	assert.ErrorContains(t, err, "max_tokens")
}

func TestGemini_GeneratesJSON(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[
			{"text":"{\"candidates\":[{\"kind\":\"add_fragment\",\"text\":\"see you friday\"}]}"}
		]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	g, err := NewGemini(context.Background(), "g-key", "gemini-test", 256, srv.URL)
	require.NoError(t, err)

	raw, err := g.Understand(context.Background(), request("see you friday", dialogue.PhaseComposing))
	require.NoError(t, err)

	a, err := extract.Resolve(mustParse(t, raw))
	require.NoError(t, err)
	assert.Equal(t, dialogue.AddFragment{Text: "see you friday"}, a)

	cfg, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "request body: %v", body)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.NotNil(t, cfg["responseSchema"])
}

func TestResponseSchemaCoversVocabulary(t *testing.T) {
	s := responseSchema()

	items := s.Properties["candidates"].Items
	require.NotNil(t, items)
	assert.Len(t, items.Properties["kind"].Enum, len(extract.Vocabulary()))
	assert.Equal(t, []string{"kind"}, items.Required)
	for _, slot := range []string{"recipient", "subject", "text", "name", "address", "mode"} {
		assert.Contains(t, items.Properties, slot)
	}
}

func TestNewBackend(t *testing.T) {
	_, err := NewBackend(context.Background(), Settings{Provider: ProviderClaude})
	assert.True(t, errors.Is(err, ErrNoAPIKey))

	_, err = NewBackend(context.Background(), Settings{Provider: ProviderGemini})
	assert.True(t, errors.Is(err, ErrNoAPIKey))

	b, err := NewBackend(context.Background(), Settings{Provider: "Offline"})
	require.NoError(t, err)
	assert.IsType(t, &Offline{}, b)

	_, err = NewBackend(context.Background(), Settings{Provider: "parrot"})
	assert.ErrorContains(t, err, `unknown ai provider "parrot"`)
}

func TestOffline(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		phase     dialogue.Phase
		want      dialogue.Action
	}{
		{
			name:      "recipient and subject",
			utterance: "email john about the project update",
			want: dialogue.ComposeField{
				Field:  dialogue.FieldRecipient,
				Value:  "john",
				Follow: []dialogue.FieldValue{{Field: dialogue.FieldSubject, Value: "the project update"}},
			},
		},
		{
			name:      "send an email to",
			utterance: "send an email to sarah",
			want:      dialogue.ComposeField{Field: dialogue.FieldRecipient, Value: "sarah"},
		},
		{
			name:      "subject",
			utterance: "the subject is lunch plans",
			phase:     dialogue.PhaseComposing,
			want:      dialogue.ComposeField{Field: dialogue.FieldSubject, Value: "lunch plans"},
		},
		{
			name:      "contact with invalid address",
			utterance: "add tom to contacts: not-an-email",
			want:      dialogue.AddContact{Name: "tom", Address: "not-an-email"},
		},
		{
			name:      "contact with address",
			utterance: "add sarah to my contacts sarah@example.com",
			want:      dialogue.AddContact{Name: "sarah", Address: "sarah@example.com"},
		},
		{
			name:      "dictation while composing",
			utterance: "the meeting is friday at 2pm",
			phase:     dialogue.PhaseComposing,
			want:      dialogue.AddFragment{Text: "the meeting is friday at 2pm"},
		},
		{
			name:      "explicit dictation",
			utterance: "say that i will be late",
			want:      dialogue.AddFragment{Text: "i will be late"},
		},
		{
			name:      "theme",
			utterance: "switch to light theme",
			want:      dialogue.SwitchTheme{Mode: "light"},
		},
		{
			name:      "send",
			utterance: "okay send the email now",
			phase:     dialogue.PhaseComposing,
			want:      dialogue.SendEmail{},
		},
	}

	o := NewOffline()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := o.Understand(context.Background(), request(tt.utterance, tt.phase))
			require.NoError(t, err)

			got, err := extract.Resolve(mustParse(t, raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffline_NoMatchWhenIdle(t *testing.T) {
	raw, err := NewOffline().Understand(context.Background(), request("purple elephant dance", dialogue.PhaseIdle))
	require.NoError(t, err)

	resp := mustParse(t, raw)
	assert.True(t, resp.NoMatch)
	assert.Empty(t, resp.Candidates)
}

func mustParse(t *testing.T, raw json.RawMessage) extract.Response {
	t.Helper()
	resp, err := extract.ParseResponse(raw)
	require.NoError(t, err)
	return resp
}
