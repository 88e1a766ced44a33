package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nhle/voice-mail/internal/extract"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini is an extract.Backend using the Gemini API in JSON mode with a
// response schema mirroring extract.ResponseSchema.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini backend. baseURL may be empty for the public
// endpoint.
func NewGemini(ctx context.Context, apiKey, modelName string, maxTokens int, baseURL string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNoAPIKey)
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		model:     modelName,
		maxTokens: int32(maxTokens),
	}, nil
}

// Understand implements extract.Backend.
func (g *Gemini) Understand(ctx context.Context, req extract.Request) (json.RawMessage, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.Render(), genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(extract.SystemPrompt(), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    responseSchema(),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("gemini: empty response")
	}
	return json.RawMessage(text), nil
}

// responseSchema builds the genai form of the extraction response schema
// from the vocabulary.
func responseSchema() *genai.Schema {
	kinds := make([]string, 0)
	props := map[string]*genai.Schema{}
	for _, spec := range extract.Vocabulary() {
		kinds = append(kinds, string(spec.Kind))
		for _, slot := range spec.Slots {
			if _, seen := props[slot.Name]; seen {
				continue
			}
			props[slot.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: slot.Description,
				Enum:        slot.Enum,
			}
		}
	}
	props["kind"] = &genai.Schema{
		Type:        genai.TypeString,
		Description: "Action kind.",
		Enum:        kinds,
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"candidates": {
				Type:        genai.TypeArray,
				Description: "Plausible interpretations of the utterance, most likely first.",
				Items: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: props,
					Required:   []string{"kind"},
				},
			},
			"no_match": {
				Type:        genai.TypeBoolean,
				Description: "True when the utterance matches no action kind.",
			},
		},
		Required: []string{"candidates"},
	}
}
