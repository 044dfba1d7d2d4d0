package ops

import (
	"database/sql"

	"github.com/kmordal/namelens/internal/runlog"
)

// ListRunsInput contains parameters for the ListRuns operation.
type ListRunsInput struct {
	Limit int // default 20
}

// ListRunsOutput contains the result of the ListRuns operation.
type ListRunsOutput struct {
	Runs []*runlog.Run `json:"runs"`
}

// ListRuns returns recorded runs, newest first.
func ListRuns(database *sql.DB, input ListRunsInput) (*ListRunsOutput, error) {
	runs, err := runlog.ListRecent(database, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListRunsOutput{Runs: runs}, nil
}
