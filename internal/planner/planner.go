// Package planner decides canonical filenames for image assets.
//
// Each asset moves through a small state machine: fingerprint, cached or
// fresh suitability assessment, cached or fresh name proposal, idempotency
// short-circuit, collision resolution. Oracle calls happen only on cache
// misses; a cached suitable assessment guarantees no proposal call is ever
// made for that key.
package planner

import (
	"context"

	"github.com/kmordal/namelens/internal/asset"
	"github.com/kmordal/namelens/internal/cache"
	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/oracle"
)

// Status is the terminal state of a plan entry.
type Status string

const (
	StatusUnchanged        Status = "unchanged"
	StatusRenamed          Status = "renamed"
	StatusConflictResolved Status = "conflict_resolved"
	StatusSkipped          Status = "skipped" // unreadable asset
	StatusErrored          Status = "errored" // oracle or write failure
)

// PlanEntry is the outcome of planning one asset. Scoped to one run.
type PlanEntry struct {
	Asset     asset.Asset `json:"-"`
	Source    string      `json:"source"`
	FinalName string      `json:"final_name,omitempty"`
	Status    Status      `json:"status"`
	Error     string      `json:"error,omitempty"`

	// OracleCalls counts fresh oracle round-trips made for this asset.
	OracleCalls int `json:"-"`

	// CacheRecovered lists corrupt or miskeyed cache records that were
	// treated as misses and recomputed while planning this asset.
	CacheRecovered []string `json:"cache_recovered,omitempty"`
}

// Planner runs the per-asset pipeline against one cache store and oracle.
type Planner struct {
	store  *cache.Store
	oracle oracle.Oracle
}

// New creates a Planner.
func New(store *cache.Store, o oracle.Oracle) *Planner {
	return &Planner{store: store, oracle: o}
}

// Provider reports the oracle's provider name.
func (p *Planner) Provider() string { return p.oracle.Provider() }

// Model reports the oracle's model identifier.
func (p *Planner) Model() string { return p.oracle.Model() }

// PlanOne plans a single asset. Collision resolution is delegated to res,
// which accumulates claimed names across the batch. The returned entry is
// terminal: Unchanged, Renamed, ConflictResolved, Skipped, or Errored.
func (p *Planner) PlanOne(ctx context.Context, a asset.Asset, res *Resolver) PlanEntry {
	entry := PlanEntry{Asset: a, Source: a.Path}

	hash, err := asset.Fingerprint(a.Path)
	if err != nil {
		entry.Status = StatusSkipped
		entry.Error = err.Error()
		return entry
	}
	key := cache.NewKey(hash, p.oracle.Provider(), p.oracle.Model())

	assessment, ok, cerr := p.store.GetAssessment(key)
	if cerr != nil {
		entry.CacheRecovered = append(entry.CacheRecovered, cerr.Error())
	}
	if !ok {
		content, err := asset.ReadContent(a.Path)
		if err != nil {
			entry.Status = StatusSkipped
			entry.Error = err.Error()
			return entry
		}
		assessment, err = p.oracle.Assess(ctx, content, a.Name)
		if err != nil {
			entry.Status = StatusErrored
			entry.Error = errors.NewOracle("assess", err).Error()
			return entry
		}
		entry.OracleCalls++
		if err := p.store.PutAssessment(key, assessment); err != nil {
			entry.Status = StatusErrored
			entry.Error = err.Error()
			return entry
		}
	}

	// A suitable name terminates planning; the proposal tier is never
	// consulted for this key.
	if assessment.Suitable {
		entry.Status = StatusUnchanged
		entry.FinalName = a.Name
		return entry
	}

	proposal, ok, cerr := p.store.GetProposal(key)
	if cerr != nil {
		entry.CacheRecovered = append(entry.CacheRecovered, cerr.Error())
	}
	if !ok {
		content, err := asset.ReadContent(a.Path)
		if err != nil {
			entry.Status = StatusSkipped
			entry.Error = err.Error()
			return entry
		}
		proposal, err = p.oracle.Propose(ctx, content)
		if err != nil {
			entry.Status = StatusErrored
			entry.Error = errors.NewOracle("propose", err).Error()
			return entry
		}
		entry.OracleCalls++
		if err := p.store.PutProposal(key, proposal); err != nil {
			entry.Status = StatusErrored
			entry.Error = err.Error()
			return entry
		}
	}

	// The extension always comes from the asset; a proposal can never
	// change an image's format.
	stem, ext := proposal.Stem, a.Ext()

	// Idempotency short-circuit, independent of the assessment. Defends
	// against an oracle that flags a name unsuitable yet proposes the
	// same stem, and makes re-runs after a cancelled run converge.
	if stem == a.Stem() {
		entry.Status = StatusUnchanged
		entry.FinalName = a.Name
		return entry
	}

	final := res.Resolve(stem, ext, a.Name)
	entry.FinalName = final
	switch {
	case final == a.Name:
		// The resolver landed on the asset's own name. This happens on
		// re-runs after a suffixed rename: the cached stem still collides,
		// the suffix search self-accepts, and the asset must converge to
		// Unchanged rather than report the same resolution forever.
		entry.Status = StatusUnchanged
	case final == stem+ext:
		entry.Status = StatusRenamed
	default:
		entry.Status = StatusConflictResolved
	}
	return entry
}

// PlanBatch plans every supported asset directly under dir, in sorted
// order, sequentially. A per-asset failure never halts the batch.
// Cancellation is honored between assets only; each oracle call is an
// atomic unit of work.
func (p *Planner) PlanBatch(ctx context.Context, dir string) ([]PlanEntry, error) {
	assets, err := asset.Enumerate(dir)
	if err != nil {
		return nil, err
	}

	res, err := NewResolver(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]PlanEntry, 0, len(assets))
	for _, a := range assets {
		select {
		case <-ctx.Done():
			return entries, errors.NewCancelled("plan")
		default:
		}
		entries = append(entries, p.PlanOne(ctx, a, res))
	}
	return entries, nil
}

// PlanSingle plans exactly one asset path with a fresh resolver over its
// directory. Unlike batch mode, any failure is returned as an error.
func (p *Planner) PlanSingle(ctx context.Context, path string) (PlanEntry, error) {
	a := asset.New(path)

	res, err := NewResolver(a.Dir())
	if err != nil {
		return PlanEntry{}, err
	}

	entry := p.PlanOne(ctx, a, res)
	if entry.Status == StatusSkipped {
		return entry, errors.NewFingerprint(path, errorString(entry.Error))
	}
	if entry.Status == StatusErrored {
		return entry, errors.NewOracle("plan", errorString(entry.Error))
	}
	return entry, nil
}

// errorString wraps a recorded message back into an error value.
type errorString string

func (e errorString) Error() string { return string(e) }
