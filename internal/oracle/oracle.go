// Package oracle defines the vision capability consumed by the planner.
//
// An Oracle judges whether an image's current filename fits the naming
// rubric, and proposes a new name when it does not. Implementations live in
// subpackages, one per provider.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Assessment is a suitability judgement for an asset's current filename.
type Assessment struct {
	Suitable bool `json:"suitable"`
}

// Proposal holds proposed filename components. The extension is advisory:
// callers must keep the asset's own extension to avoid format corruption.
type Proposal struct {
	Stem      string `json:"stem"`
	Extension string `json:"extension"`
}

// Oracle is the external vision capability. Both calls are blocking and
// treated as atomic units of work; cancellation is checked between calls,
// never mid-call.
type Oracle interface {
	// Assess judges whether currentName is suitable for the image content.
	Assess(ctx context.Context, content []byte, currentName string) (Assessment, error)

	// Propose suggests filename components for the image content.
	Propose(ctx context.Context, content []byte) (Proposal, error)

	// Provider returns the provider identifier (e.g. "ollama").
	Provider() string

	// Model returns the model identifier.
	Model() string
}

// AssessPrompt instructs the model to judge the current filename only.
const AssessPrompt = `You are validating whether a filename is suitable for the given image.
Use this rubric:
- 5-8 short words, lowercase, hyphen-separated.
- Prefer structure: <primary-subject>--<specific-detail>.
- Use helpful discriminators when applicable.
- If the name already satisfies the rubric and matches the content, mark it suitable.
Answer by assessing suitability only; do not propose alternatives.
Respond with JSON: {"suitable": true|false}`

// ProposePrompt instructs the model to propose filename components.
const ProposePrompt = `You are an expert at naming image files for clarity and organization.
Follow this strict rubric to propose a filename for the provided image:
- Compose 5-8 short words.
- Lowercase letters only; separate words with hyphens.
- Maximum total length: 80 characters.
- Prefer structure: <primary-subject>--<specific-detail>.
- Use helpful discriminators when applicable (e.g. chart-type, version, color, angle, year).
Respond with JSON: {"stem": "...", "extension": "..."}`

// MIMEType maps an image filename to its MIME type for transport encoding.
func MIMEType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

// DecodeJSON parses a model response into out. Models sometimes wrap the
// JSON object in markdown fences or prose; the first balanced object in the
// text is used.
func DecodeJSON(text string, out any) error {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object in response: %q", truncate(text, 120))
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
