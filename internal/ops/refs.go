package ops

import (
	"github.com/kmordal/namelens/internal/asset"
	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/refs"
)

// FindRefsInput contains parameters for the FindRefs operation.
type FindRefsInput struct {
	Root      string   // required: directory scanned for markdown documents
	Names     []string // image basenames to look for; empty = every supported image under AssetDir
	AssetDir  string   // default: Root
	Recursive bool
}

// FindRefsOutput contains the result of the FindRefs operation.
type FindRefsOutput struct {
	References []refs.Reference `json:"references"`

	// ReadErrors lists documents that could not be read and were skipped.
	ReadErrors []string `json:"read_errors,omitempty"`
}

// FindRefs locates markdown references to the named images under Root.
// When no names are given, every supported image in AssetDir is a target.
func FindRefs(input FindRefsInput) (*FindRefsOutput, error) {
	if input.Root == "" {
		return nil, errors.NewInvalidRequest("root is required")
	}

	names := input.Names
	if len(names) == 0 {
		assetDir := input.AssetDir
		if assetDir == "" {
			assetDir = input.Root
		}
		assets, err := asset.Enumerate(assetDir)
		if err != nil {
			return nil, err
		}
		for _, a := range assets {
			names = append(names, a.Name)
		}
	}

	references, failures, err := refs.Locate(input.Root, names, input.Recursive)
	if err != nil {
		return nil, err
	}

	out := &FindRefsOutput{References: references}
	for _, f := range failures {
		out.ReadErrors = append(out.ReadErrors, f.Error())
	}
	return out, nil
}
