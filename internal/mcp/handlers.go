package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kmordal/namelens/internal/config"
	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/ops"
	"github.com/kmordal/namelens/internal/planner"
)

// PlannerFactory builds a planner for the given directory and provider
// settings. Tests inject a fake; production wiring uses NewPlannerFactory.
type PlannerFactory func(dir, provider, model string) (*planner.Planner, error)

// NewPlannerFactory returns the production factory backed by ops.NewPlanner.
func NewPlannerFactory(cfg *config.Config) PlannerFactory {
	return func(dir, provider, model string) (*planner.Planner, error) {
		return ops.NewPlanner(cfg, dir, provider, model)
	}
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	newPlanner PlannerFactory
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, newPlanner PlannerFactory) *Handlers {
	return &Handlers{db: db, cfg: cfg, newPlanner: newPlanner}
}

// Request types for each tool

// AssessRequest represents the arguments for image_assess.
type AssessRequest struct {
	Path     string `json:"path"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// RenameFileRequest represents the arguments for image_rename.
type RenameFileRequest struct {
	Path       string `json:"path"`
	Apply      bool   `json:"apply,omitempty"`
	UpdateRefs bool   `json:"update_refs,omitempty"`
	RefsRoot   string `json:"refs_root,omitempty"`
	Recursive  bool   `json:"recursive,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}

// RenameFolderRequest represents the arguments for folder_rename.
type RenameFolderRequest struct {
	Dir        string `json:"dir"`
	Apply      bool   `json:"apply,omitempty"`
	UpdateRefs bool   `json:"update_refs,omitempty"`
	RefsRoot   string `json:"refs_root,omitempty"`
	Recursive  bool   `json:"recursive,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
}

// FindRefsRequest represents the arguments for refs_find.
type FindRefsRequest struct {
	Root      string   `json:"root"`
	Names     []string `json:"names,omitempty"`
	AssetDir  string   `json:"asset_dir,omitempty"`
	Recursive bool     `json:"recursive,omitempty"`
}

// Handler implementations

// HandleAssess handles the image_assess tool call.
func (h *Handlers) HandleAssess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AssessRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.newPlanner(filepath.Dir(input.Path), input.Provider, input.Model)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RenameFile(ctx, p, h.db, ops.RenameFileInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRenameFile handles the image_rename tool call.
func (h *Handlers) HandleRenameFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameFileRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.newPlanner(filepath.Dir(input.Path), input.Provider, input.Model)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RenameFile(ctx, p, h.db, ops.RenameFileInput{
		Path:       input.Path,
		Apply:      input.Apply,
		UpdateRefs: input.UpdateRefs,
		RefsRoot:   input.RefsRoot,
		Recursive:  input.Recursive,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRenameFolder handles the folder_rename tool call.
func (h *Handlers) HandleRenameFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenameFolderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.newPlanner(input.Dir, input.Provider, input.Model)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.RenameFolder(ctx, p, h.db, ops.RenameFolderInput{
		Dir:        input.Dir,
		Apply:      input.Apply,
		UpdateRefs: input.UpdateRefs,
		RefsRoot:   input.RefsRoot,
		Recursive:  input.Recursive,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFindRefs handles the refs_find tool call.
func (h *Handlers) HandleFindRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FindRefsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FindRefs(ops.FindRefsInput{
		Root:      input.Root,
		Names:     input.Names,
		AssetDir:  input.AssetDir,
		Recursive: input.Recursive,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if nErr, ok := err.(*errors.NamerError); ok {
		errorObj := map[string]any{
			"code":    nErr.Code,
			"message": nErr.Message,
			"status":  nErr.Status,
		}
		if nErr.Code != errors.ErrInternal && nErr.Details != nil {
			errorObj["details"] = nErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
