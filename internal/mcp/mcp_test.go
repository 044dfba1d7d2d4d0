package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kmordal/namelens/internal/cache"
	"github.com/kmordal/namelens/internal/config"
	"github.com/kmordal/namelens/internal/oracle"
	"github.com/kmordal/namelens/internal/planner"
	"github.com/kmordal/namelens/internal/runlog"
)

// fakeOracle returns canned results keyed by content.
type fakeOracle struct {
	suitable map[string]bool
	stems    map[string]string
}

func (f *fakeOracle) Assess(_ context.Context, _ []byte, currentName string) (oracle.Assessment, error) {
	return oracle.Assessment{Suitable: f.suitable[currentName]}, nil
}

func (f *fakeOracle) Propose(_ context.Context, content []byte) (oracle.Proposal, error) {
	stem, ok := f.stems[string(content)]
	if !ok {
		return oracle.Proposal{}, fmt.Errorf("unexpected content %q", content)
	}
	return oracle.Proposal{Stem: stem, Extension: ".png"}, nil
}

func (f *fakeOracle) Provider() string { return "fake" }
func (f *fakeOracle) Model() string    { return "fake-model" }

// testSetup creates a temporary database, config, and planner factory.
func testSetup(t *testing.T, fake *fakeOracle) (*sql.DB, *config.Config, PlannerFactory) {
	t.Helper()

	database, err := runlog.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init runlog: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cacheDir := filepath.Join(t.TempDir(), "cache")
	newPlanner := func(dir, provider, model string) (*planner.Planner, error) {
		store, err := cache.Open(cacheDir)
		if err != nil {
			return nil, err
		}
		return planner.New(store, fake), nil
	}

	return database, config.DefaultConfig(), newPlanner
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func writeImage(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// resultText extracts the text payload from a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return tc.Text
}

func TestHandleAssess(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{
		stems: map[string]string{"chart": "revenue-chart--q3"},
	})
	dir := t.TempDir()
	path := writeImage(t, dir, "img001.png", "chart")

	h := NewHandlers(database, cfg, newPlanner)
	result, err := h.HandleAssess(context.Background(), makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("HandleAssess() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("IsError = true: %s", resultText(t, result))
	}

	var out struct {
		Entry struct {
			Status    string `json:"status"`
			FinalName string `json:"final_name"`
		} `json:"entry"`
		DryRun bool `json:"dry_run"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.Entry.Status != "renamed" || out.Entry.FinalName != "revenue-chart--q3.png" {
		t.Errorf("entry = %+v", out.Entry)
	}
	if !out.DryRun {
		t.Error("DryRun = false, want true (assess never applies)")
	}

	// Assessment never mutates the filesystem
	if _, err := os.Stat(path); err != nil {
		t.Errorf("source file touched by assess: %v", err)
	}
}

func TestHandleRenameFile_Apply(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{
		stems: map[string]string{"chart": "revenue-chart--q3"},
	})
	dir := t.TempDir()
	path := writeImage(t, dir, "img001.png", "chart")

	h := NewHandlers(database, cfg, newPlanner)
	result, err := h.HandleRenameFile(context.Background(), makeRequest(map[string]any{
		"path":  path,
		"apply": true,
	}))
	if err != nil {
		t.Fatalf("HandleRenameFile() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("IsError = true: %s", resultText(t, result))
	}

	if _, err := os.Stat(filepath.Join(dir, "revenue-chart--q3.png")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
}

func TestHandleRenameFile_NotFound(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{})
	h := NewHandlers(database, cfg, newPlanner)

	missing := filepath.Join(t.TempDir(), "ghost.png")
	result, err := h.HandleRenameFile(context.Background(), makeRequest(map[string]any{"path": missing}))
	if err != nil {
		t.Fatalf("HandleRenameFile() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("IsError = false, want error result")
	}
	if !strings.Contains(resultText(t, result), "NOT_FOUND") {
		t.Errorf("error payload = %s, want NOT_FOUND code", resultText(t, result))
	}
}

func TestHandleRenameFolder_DryRun(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{
		suitable: map[string]bool{"keep-me--as-is.png": true},
		stems:    map[string]string{"chart": "revenue-chart--q3"},
	})
	dir := t.TempDir()
	writeImage(t, dir, "img001.png", "chart")
	writeImage(t, dir, "keep-me--as-is.png", "diagram")

	h := NewHandlers(database, cfg, newPlanner)
	result, err := h.HandleRenameFolder(context.Background(), makeRequest(map[string]any{"dir": dir}))
	if err != nil {
		t.Fatalf("HandleRenameFolder() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("IsError = true: %s", resultText(t, result))
	}

	var out struct {
		Summary struct {
			Unchanged int `json:"unchanged"`
			Renamed   int `json:"renamed"`
		} `json:"summary"`
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if out.Summary.Renamed != 1 || out.Summary.Unchanged != 1 {
		t.Errorf("summary = %+v", out.Summary)
	}
	if out.RunID == "" {
		t.Error("run not recorded")
	}

	// Dry run: originals untouched
	if _, err := os.Stat(filepath.Join(dir, "img001.png")); err != nil {
		t.Errorf("img001.png missing after dry run: %v", err)
	}
}

func TestHandleRenameFolder_MissingDir(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{})
	h := NewHandlers(database, cfg, newPlanner)

	result, err := h.HandleRenameFolder(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("HandleRenameFolder() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("IsError = false, want error result")
	}
	if !strings.Contains(resultText(t, result), "INVALID_REQUEST") {
		t.Errorf("error payload = %s, want INVALID_REQUEST code", resultText(t, result))
	}
}

func TestHandleFindRefs(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{})
	dir := t.TempDir()
	writeImage(t, dir, "old.png", "chart")
	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("![x](old.png)"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	h := NewHandlers(database, cfg, newPlanner)
	result, err := h.HandleFindRefs(context.Background(), makeRequest(map[string]any{"root": dir}))
	if err != nil {
		t.Fatalf("HandleFindRefs() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("IsError = true: %s", resultText(t, result))
	}

	var out struct {
		References []struct {
			Kind    string `json:"kind"`
			OldName string `json:"old_name"`
		} `json:"references"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &out); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if len(out.References) != 1 || out.References[0].OldName != "old.png" {
		t.Errorf("references = %+v", out.References)
	}
}

func TestNewServer_DisabledTools(t *testing.T) {
	database, cfg, newPlanner := testSetup(t, &fakeOracle{})
	cfg.DisabledTools = []string{"folder_rename"}

	s := NewServer(database, cfg, newPlanner, "test")
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"image_rename", "no_such_tool"})
	if len(unknown) != 1 || unknown[0] != "no_such_tool" {
		t.Errorf("unknown = %v, want [no_such_tool]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 4 {
		t.Errorf("got %d tool names, want 4", len(names))
	}
}
