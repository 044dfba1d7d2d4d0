// Package ollama provides a vision oracle backed by a local Ollama server.
package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "gemma3:27b"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama oracle.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the vision model to use (default: gemma3:27b).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Oracle calls a local Ollama server's chat API with attached images.
type Oracle struct {
	client  *http.Client
	baseURL string
	model   string
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
}

// chatMessage is the Ollama chat message format. Images are base64-encoded.
type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// New creates an Ollama-backed oracle.
func New(cfg Config) *Oracle {
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
		model:   cfg.Model,
	}
}

// Provider returns "ollama".
func (o *Oracle) Provider() string { return "ollama" }

// Model returns the configured model identifier.
func (o *Oracle) Model() string { return o.model }

// Assess judges whether currentName is suitable for the image content.
func (o *Oracle) Assess(ctx context.Context, content []byte, currentName string) (oracle.Assessment, error) {
	prompt := fmt.Sprintf("%s\n\nProposed filename: '%s'.", oracle.AssessPrompt, currentName)

	text, err := o.chat(ctx, prompt, content)
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
	text, err := o.chat(ctx, oracle.ProposePrompt, content)
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

// chat sends one prompt with one attached image and returns the reply text.
func (o *Oracle) chat(ctx context.Context, prompt string, image []byte) (string, error) {
	reqBody := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{base64.StdEncoding.EncodeToString(image)},
			},
		},
		Stream: false,
		Format: "json",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, body)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return chatResp.Message.Content, nil
}
