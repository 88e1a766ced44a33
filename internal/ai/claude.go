package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nhle/voice-mail/internal/extract"
)

const (
	defaultClaudeModel = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 1024
	claudeBaseURL      = "https://api.anthropic.com"
	apiVersion         = "2023-06-01"

	// recordTool is the single tool the model is forced to call; its input
	// is the extraction response.
	recordTool = "record_candidates"
)

// Claude is an extract.Backend using the Claude Messages API with forced
// tool use, so the reply is always a JSON document shaped by the tool schema.
type Claude struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// ClaudeOption configures a Claude backend.
type ClaudeOption func(*Claude)

// WithBaseURL points the backend at a different API host.
func WithBaseURL(u string) ClaudeOption {
	return func(c *Claude) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClaudeOption {
	return func(c *Claude) {
		c.client = h
	}
}

// NewClaude creates a Claude backend.
func NewClaude(apiKey, modelName string, maxTokens int, opts ...ClaudeOption) (*Claude, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("claude: %w", ErrNoAPIKey)
	}
	if modelName == "" {
		modelName = defaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	c := &Claude{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		baseURL:   claudeBaseURL,
		client:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Understand implements extract.Backend.
func (c *Claude) Understand(ctx context.Context, req extract.Request) (json.RawMessage, error) {
	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, err
	}

	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "tool_use":
			if block.Name == recordTool && len(block.Input) > 0 {
				return block.Input, nil
			}
		case "text":
			text = append(text, block.Text)
		}
	}

	// Without the tool call, the text may still hold the JSON document.
	if joined := strings.TrimSpace(strings.Join(text, "")); joined != "" {
		return json.RawMessage(joined), nil
	}
	return nil, fmt.Errorf("claude: no %s call in response (stop reason %q)", recordTool, resp.StopReason)
}

// callAPI makes a single request to the Claude Messages API.
func (c *Claude) callAPI(ctx context.Context, r extract.Request) (*apiResponse, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    extract.SystemPrompt(),
		Messages: []apiMessage{{
			Role:    "user",
			Content: []apiContentBlock{{Type: "text", Text: r.Render()}},
		}},
		Tools: []apiTool{{
			Name:        recordTool,
			Description: "Record the candidate interpretations of the user's utterance.",
			InputSchema: extract.ResponseSchema(),
		}},
		ToolChoice: &apiToolChoice{Type: "tool", Name: recordTool},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

type apiRequest struct {
	Model      string         `json:"model"`
	MaxTokens  int            `json:"max_tokens"`
	System     string         `json:"system"`
	Messages   []apiMessage   `json:"messages"`
	Tools      []apiTool      `json:"tools,omitempty"`
	ToolChoice *apiToolChoice `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	// Common
	Type string `json:"type"`

	// Text block
	Text string `json:"text,omitempty"`

	// Tool use block
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type apiToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
