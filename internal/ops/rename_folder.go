// Package ops implements the operations shared by the CLI and MCP
// surfaces. Each operation takes an input struct and returns an output
// struct, so both surfaces stay thin.
package ops

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/planner"
	"github.com/kmordal/namelens/internal/refs"
	"github.com/kmordal/namelens/internal/runlog"
)

// RenameFolderInput contains parameters for the RenameFolder operation.
type RenameFolderInput struct {
	Dir        string // required
	Apply      bool   // false = plan only, nothing touches disk
	UpdateRefs bool   // rewrite markdown references after applying
	RefsRoot   string // default: Dir
	Recursive  bool   // reference scan walks subdirectories
}

// Summary counts plan entries by terminal status.
type Summary struct {
	Unchanged        int `json:"unchanged"`
	Renamed          int `json:"renamed"`
	ConflictResolved int `json:"conflict_resolved"`
	Skipped          int `json:"skipped"`
	Errored          int `json:"errored"`
	OracleCalls      int `json:"oracle_calls"`
}

// RenameFolderOutput contains the result of the RenameFolder operation.
type RenameFolderOutput struct {
	Entries   []planner.PlanEntry `json:"entries"`
	Summary   Summary             `json:"summary"`
	Refs      []refs.UpdateResult `json:"refs,omitempty"`
	RefErrors []string            `json:"ref_errors,omitempty"`
	RunID     string              `json:"run_id,omitempty"`
	DryRun    bool                `json:"dry_run"`
}

// RenameFolder plans names for every supported image directly under
// input.Dir and, when Apply is set, performs the renames and optional
// reference rewrites. Per-asset failures downgrade that entry, never the
// whole batch. The run is recorded in database when one is provided.
func RenameFolder(ctx context.Context, p *planner.Planner, database *sql.DB, input RenameFolderInput) (*RenameFolderOutput, error) {
	if input.Dir == "" {
		return nil, errors.NewInvalidRequest("dir is required")
	}

	entries, err := p.PlanBatch(ctx, input.Dir)
	if err != nil {
		return nil, err
	}

	out := &RenameFolderOutput{Entries: entries, DryRun: !input.Apply}

	renameMap := make(map[string]string)
	if input.Apply {
		for i := range entries {
			e := &entries[i]
			if e.Status != planner.StatusRenamed && e.Status != planner.StatusConflictResolved {
				continue
			}
			target := filepath.Join(input.Dir, e.FinalName)
			if err := os.Rename(e.Asset.Path, target); err != nil {
				e.Status = planner.StatusErrored
				e.Error = errors.NewWrite(target, err).Error()
				continue
			}
			renameMap[e.Asset.Name] = e.FinalName
		}

		if input.UpdateRefs && len(renameMap) > 0 {
			refsRoot := input.RefsRoot
			if refsRoot == "" {
				refsRoot = input.Dir
			}
			results, failures := refs.UpdateAll(refsRoot, renameMap, input.Recursive)
			out.Refs = results
			for _, f := range failures {
				out.RefErrors = append(out.RefErrors, f.Error())
			}
		}
	}

	out.Summary = summarize(entries)

	if database != nil {
		run := newRunRecord("folder", input.Dir, !input.Apply, p, out)
		if err := runlog.Insert(database, run); err != nil {
			return nil, err
		}
		out.RunID = run.ID
	}

	return out, nil
}

func summarize(entries []planner.PlanEntry) Summary {
	var s Summary
	for _, e := range entries {
		switch e.Status {
		case planner.StatusUnchanged:
			s.Unchanged++
		case planner.StatusRenamed:
			s.Renamed++
		case planner.StatusConflictResolved:
			s.ConflictResolved++
		case planner.StatusSkipped:
			s.Skipped++
		case planner.StatusErrored:
			s.Errored++
		}
		s.OracleCalls += e.OracleCalls
	}
	return s
}

func newRunRecord(mode, root string, dryRun bool, p *planner.Planner, out *RenameFolderOutput) *runlog.Run {
	run := runlog.NewRun(p.Provider(), p.Model(), root, mode, dryRun)
	run.Unchanged = out.Summary.Unchanged
	run.Renamed = out.Summary.Renamed
	run.ConflictResolved = out.Summary.ConflictResolved
	run.Skipped = out.Summary.Skipped
	run.Errored = out.Summary.Errored
	run.OracleCalls = out.Summary.OracleCalls
	run.RefFiles = len(out.Refs)
	for _, r := range out.Refs {
		run.RefReplacements += r.Replacements
	}
	return run
}
