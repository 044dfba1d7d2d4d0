// Package openai provides a vision oracle backed by the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kmordal/namelens/internal/oracle"
)

// Ensure Oracle implements the interface.
var _ oracle.Oracle = (*Oracle)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI oracle.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the vision model to use (default: gpt-4o).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Oracle calls the OpenAI chat completions API with data-URI image parts.
type Oracle struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatMessage carries mixed text and image content parts.
type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates an OpenAI-backed oracle.
func New(cfg Config) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Oracle{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Provider returns "openai".
func (o *Oracle) Provider() string { return "openai" }

// Model returns the configured model identifier.
func (o *Oracle) Model() string { return o.model }

// Assess judges whether currentName is suitable for the image content.
func (o *Oracle) Assess(ctx context.Context, content []byte, currentName string) (oracle.Assessment, error) {
	prompt := fmt.Sprintf("%s\n\nProposed filename: '%s'.", oracle.AssessPrompt, currentName)

	text, err := o.chat(ctx, prompt, content, currentName)
	if err != nil {
		return oracle.Assessment{}, err
	}

	var result oracle.Assessment
	if err := oracle.DecodeJSON(text, &result); err != nil {
		return oracle.Assessment{}, err
	}
	return result, nil
}

// Propose suggests filename components for the image content.
func (o *Oracle) Propose(ctx context.Context, content []byte) (oracle.Proposal, error) {
	text, err := o.chat(ctx, oracle.ProposePrompt, content, "image")
	if err != nil {
		return oracle.Proposal{}, err
	}

	var result oracle.Proposal
	if err := oracle.DecodeJSON(text, &result); err != nil {
		return oracle.Proposal{}, err
	}
	if result.Stem == "" {
		return oracle.Proposal{}, fmt.Errorf("model returned empty stem")
	}
	return result, nil
}

// chat sends one prompt with one inline image and returns the reply text.
// name is used only to derive the image MIME type for the data URI.
func (o *Oracle) chat(ctx context.Context, prompt string, image []byte, name string) (string, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s",
		oracle.MIMEType(name), base64.StdEncoding.EncodeToString(image))

	reqBody := chatCompletionRequest{
		Model: o.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
				},
			},
		},
		MaxTokens:      300,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, body)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
