package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kmordal/namelens/internal/cache"
	"github.com/kmordal/namelens/internal/planner"
	"github.com/kmordal/namelens/internal/runlog"
)

// TestFullWorkflow exercises the complete rename lifecycle:
// dry run → apply with reference rewrite → re-run (idempotent) →
// run ledger → cache stats → cache clear
func TestFullWorkflow(t *testing.T) {
	database, err := runlog.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	fake := &fakeOracle{
		suitable: map[string]bool{"login-form--error-state.png": true},
		stems: map[string]string{
			"screenshot-a": "dashboard--overview",
			"screenshot-b": "settings--profile-tab",
		},
	}
	p := planner.New(store, fake)

	dir := t.TempDir()
	writeImage(t, dir, "img001.png", "screenshot-a")
	writeImage(t, dir, "img002.png", "screenshot-b")
	writeImage(t, dir, "login-form--error-state.png", "screenshot-c")

	doc := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(doc, []byte("![a](img001.png)\n[[img002.png|Settings]]\n"), 0644))

	ctx := context.Background()

	// 1. Dry run: plan only
	dryOut, err := RenameFolder(ctx, p, database, RenameFolderInput{Dir: dir})
	require.NoError(t, err)
	require.True(t, dryOut.DryRun)
	require.Equal(t, 2, dryOut.Summary.Renamed)
	require.Equal(t, 1, dryOut.Summary.Unchanged)
	_, err = os.Stat(filepath.Join(dir, "img001.png"))
	require.NoError(t, err, "dry run must not rename")

	// 2. Apply with reference rewrite; the dry run warmed the cache
	applyOut, err := RenameFolder(ctx, p, database, RenameFolderInput{
		Dir:        dir,
		Apply:      true,
		UpdateRefs: true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, applyOut.Summary.Renamed)
	require.Equal(t, 0, applyOut.Summary.OracleCalls, "apply after dry run must hit the cache")
	_, err = os.Stat(filepath.Join(dir, "dashboard--overview.png"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "settings--profile-tab.png"))
	require.NoError(t, err)

	content, err := os.ReadFile(doc)
	require.NoError(t, err)
	require.Equal(t, "![a](dashboard--overview.png)\n[[settings--profile-tab.png|Settings]]\n", string(content))

	// 3. Re-run: converges with nothing to do
	againOut, err := RenameFolder(ctx, p, database, RenameFolderInput{Dir: dir, Apply: true})
	require.NoError(t, err)
	require.Equal(t, 3, againOut.Summary.Unchanged)
	require.Equal(t, 0, againOut.Summary.Renamed)

	// 4. Ledger recorded all three runs, newest first
	runsOut, err := ListRuns(database, ListRunsInput{})
	require.NoError(t, err)
	require.Len(t, runsOut.Runs, 3)
	require.Equal(t, againOut.RunID, runsOut.Runs[0].ID)
	require.Equal(t, 1, runsOut.Runs[1].RefFiles)
	require.Equal(t, 2, runsOut.Runs[1].RefReplacements)

	// 5. Cache holds one assessment per fingerprint plus proposals for the
	// two unsuitable ones
	statsOut, err := CacheStats(store)
	require.NoError(t, err)
	require.Equal(t, 3, statsOut.Assessments)
	require.Equal(t, 2, statsOut.Proposals)

	// 6. Clear
	clearOut, err := CacheClear(store)
	require.NoError(t, err)
	require.Equal(t, 5, clearOut.Removed)

	statsOut, err = CacheStats(store)
	require.NoError(t, err)
	require.Equal(t, 0, statsOut.Assessments+statsOut.Proposals)
}
