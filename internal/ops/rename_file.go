package ops

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/kmordal/namelens/internal/asset"
	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/planner"
	"github.com/kmordal/namelens/internal/refs"
	"github.com/kmordal/namelens/internal/runlog"
)

// RenameFileInput contains parameters for the RenameFile operation.
type RenameFileInput struct {
	Path       string // required
	Apply      bool
	UpdateRefs bool
	RefsRoot   string // default: the file's directory
	Recursive  bool
}

// RenameFileOutput contains the result of the RenameFile operation.
type RenameFileOutput struct {
	Entry     planner.PlanEntry   `json:"entry"`
	Refs      []refs.UpdateResult `json:"refs,omitempty"`
	RefErrors []string            `json:"ref_errors,omitempty"`
	RunID     string              `json:"run_id,omitempty"`
	DryRun    bool                `json:"dry_run"`
}

// RenameFile plans a name for a single image and, when Apply is set,
// performs the rename and optional reference rewrite. Unlike folder mode,
// any failure is fatal.
func RenameFile(ctx context.Context, p *planner.Planner, database *sql.DB, input RenameFileInput) (*RenameFileOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if !asset.IsSupported(input.Path) {
		return nil, errors.NewInvalidRequest("unsupported image extension: " + filepath.Base(input.Path))
	}
	if _, err := os.Stat(input.Path); err != nil {
		return nil, errors.NewNotFound(input.Path)
	}

	entry, err := p.PlanSingle(ctx, input.Path)
	if err != nil {
		return nil, err
	}

	out := &RenameFileOutput{Entry: entry, DryRun: !input.Apply}

	if input.Apply && entry.Status != planner.StatusUnchanged {
		target := filepath.Join(entry.Asset.Dir(), entry.FinalName)
		if err := os.Rename(entry.Asset.Path, target); err != nil {
			return nil, errors.NewWrite(target, err)
		}

		if input.UpdateRefs {
			refsRoot := input.RefsRoot
			if refsRoot == "" {
				refsRoot = entry.Asset.Dir()
			}
			renameMap := map[string]string{entry.Asset.Name: entry.FinalName}
			results, failures := refs.UpdateAll(refsRoot, renameMap, input.Recursive)
			out.Refs = results
			for _, f := range failures {
				out.RefErrors = append(out.RefErrors, f.Error())
			}
		}
	}

	if database != nil {
		folderOut := &RenameFolderOutput{
			Entries: []planner.PlanEntry{entry},
			Summary: summarize([]planner.PlanEntry{entry}),
			Refs:    out.Refs,
		}
		run := newRunRecord("file", input.Path, !input.Apply, p, folderOut)
		if err := runlog.Insert(database, run); err != nil {
			return nil, err
		}
		out.RunID = run.ID
	}

	return out, nil
}
