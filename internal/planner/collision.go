package planner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kmordal/namelens/internal/asset"
)

// Resolver guarantees uniqueness of final names within one run and against
// the target directory. It is scoped to a single planning pass: the planned
// set is seeded from the directory listing at construction and never
// persisted.
type Resolver struct {
	dir             string
	caseInsensitive bool
	existing        map[string]bool // on-disk names at construction time
	planned         map[string]bool // names claimed during this run
}

// NewResolver lists dir and probes its case sensitivity.
func NewResolver(dir string) (*Resolver, error) {
	names, err := asset.ListNames(dir)
	if err != nil {
		return nil, err
	}

	r := &Resolver{
		dir:             dir,
		caseInsensitive: detectCaseInsensitive(dir, names),
		existing:        make(map[string]bool, len(names)),
		planned:         make(map[string]bool),
	}
	for _, name := range names {
		r.existing[r.fold(name)] = true
	}
	return r, nil
}

// detectCaseInsensitive probes whether dir lives on a case-insensitive
// filesystem. It stats the case-flipped variant of an existing entry and
// compares inodes; with no foldable entries to probe it falls back to the
// platform default (insensitive on macOS and Windows).
func detectCaseInsensitive(dir string, names []string) bool {
	for _, name := range names {
		flipped := flipCase(name)
		if flipped == name {
			continue
		}
		orig, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		alt, err := os.Stat(filepath.Join(dir, flipped))
		if err != nil {
			return false
		}
		return os.SameFile(orig, alt)
	}
	return runtime.GOOS == "darwin" || runtime.GOOS == "windows"
}

// flipCase inverts the case of every letter in s.
func flipCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		default:
			return r
		}
	}, s)
}

// fold normalizes a name for comparison under the directory's case regime.
func (r *Resolver) fold(name string) string {
	if r.caseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// Resolve returns the first non-colliding name for (stem, ext), trying
// stem.ext, stem-2.ext, stem-3.ext, and so on. currentName is the asset's
// own on-disk name; it never blocks itself. The accepted name is claimed in
// the planned set immediately, so no two assets in one run can receive the
// same final name. The search always terminates: each attempt strictly
// increases the suffix against a finite set of enumerated names.
func (r *Resolver) Resolve(stem, ext, currentName string) string {
	current := r.fold(currentName)
	for n := 1; ; n++ {
		candidate := stem
		if n > 1 {
			candidate = fmt.Sprintf("%s-%d", stem, n)
		}
		candidate += ext

		folded := r.fold(candidate)
		if r.planned[folded] {
			continue
		}
		if r.existing[folded] && folded != current {
			continue
		}
		r.planned[folded] = true
		return candidate
	}
}

// Claimed reports whether name has already been planned this run.
func (r *Resolver) Claimed(name string) bool {
	return r.planned[r.fold(name)]
}
