package ops

import (
	"github.com/kmordal/namelens/internal/cache"
)

// CacheStatsOutput contains the result of the CacheStats operation.
type CacheStatsOutput struct {
	Root        string `json:"root"`
	Assessments int    `json:"assessments"`
	Proposals   int    `json:"proposals"`
}

// CacheStats reports record counts per tier.
func CacheStats(store *cache.Store) (*CacheStatsOutput, error) {
	assessments, proposals, err := store.Stats()
	if err != nil {
		return nil, err
	}
	return &CacheStatsOutput{
		Root:        store.Root(),
		Assessments: assessments,
		Proposals:   proposals,
	}, nil
}

// CacheClearOutput contains the result of the CacheClear operation.
type CacheClearOutput struct {
	Removed int `json:"removed"`
}

// CacheClear deletes every cached record in both tiers.
func CacheClear(store *cache.Store) (*CacheClearOutput, error) {
	removed, err := store.Clear()
	if err != nil {
		return nil, err
	}
	return &CacheClearOutput{Removed: removed}, nil
}
