// Package asset models image files under consideration for renaming.
package asset

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kmordal/namelens/internal/errors"
)

// SupportedExtensions lists the image file extensions namelens will process.
// Lookup keys are lowercase and include the leading dot.
var SupportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// IsSupported reports whether the filename carries a supported image extension.
func IsSupported(name string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Asset is a source image file. Immutable during planning.
type Asset struct {
	Path string // absolute or caller-relative path
	Name string // basename, including extension
}

// Stem returns the filename without its extension.
func (a Asset) Stem() string {
	return strings.TrimSuffix(a.Name, filepath.Ext(a.Name))
}

// Ext returns the filename extension including the leading dot.
// The extension always comes from the asset itself, never from a proposal.
func (a Asset) Ext() string {
	return filepath.Ext(a.Name)
}

// Dir returns the directory containing the asset.
func (a Asset) Dir() string {
	return filepath.Dir(a.Path)
}

// New creates an Asset for the given path.
func New(path string) Asset {
	return Asset{Path: path, Name: filepath.Base(path)}
}

// Fingerprint computes the SHA-256 hex digest of the file's contents.
// The file is streamed so large images do not load fully into memory.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.NewFingerprint(path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.NewFingerprint(path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadContent reads the full asset bytes for an oracle call.
func ReadContent(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFingerprint(path, err)
	}
	return data, nil
}

// Enumerate lists supported image assets directly inside dir, sorted
// lexicographically by name. Sorting is what makes collision-suffix
// assignment reproducible across runs regardless of readdir order.
func Enumerate(dir string) ([]Asset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(dir)
		}
		return nil, errors.NewFingerprint(dir, err)
	}

	var assets []Asset
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		assets = append(assets, New(filepath.Join(dir, e.Name())))
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })
	return assets, nil
}

// ListNames returns every entry name (files and directories) in dir.
// Used to seed collision checking with the directory's current contents.
func ListNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewFingerprint(dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
