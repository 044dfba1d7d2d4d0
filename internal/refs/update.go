package refs

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kmordal/namelens/internal/errors"
)

// UpdateResult reports rewrites applied to one document. Produced only for
// documents with at least one replacement.
type UpdateResult struct {
	File         string `json:"file"`
	Replacements int    `json:"replacements"`
}

// Rewrite applies the renames in renameMap (old basename to new basename)
// to the given references of a single document. The file is read once,
// substitutions run in descending byte-offset order so earlier replacements
// never invalidate later offsets, and only the filename component of each
// target changes. The write is atomic: temp file, then rename. A document
// with zero applicable replacements is left untouched and yields nil.
func Rewrite(file string, references []Reference, renameMap map[string]string) (*UpdateResult, error) {
	// Reference.OldName is canonical (decoded, NFC); index the rename map
	// the same way so caller-provided keys always line up.
	canon := make(map[string]string, len(renameMap))
	for oldName, newName := range renameMap {
		canon[canonical(oldName)] = newName
	}

	relevant := make([]Reference, 0, len(references))
	for _, ref := range references {
		if ref.File != file {
			continue
		}
		if _, ok := canon[ref.OldName]; ok {
			relevant = append(relevant, ref)
		}
	}
	if len(relevant) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.NewWrite(file, err)
	}
	content := string(data)

	sort.Slice(relevant, func(i, j int) bool {
		return relevant[i].TargetSpan[0] > relevant[j].TargetSpan[0]
	})

	count := 0
	for _, ref := range relevant {
		newName := canon[ref.OldName]
		replacement := newName
		if ref.StemRef {
			replacement = strings.TrimSuffix(newName, filepath.Ext(newName))
		}

		// Replace only the basename segment of the target; any directory
		// prefix stays byte-for-byte as written.
		start := ref.TargetSpan[0]
		if i := strings.LastIndexByte(ref.Target, '/'); i >= 0 {
			start += i + 1
		}
		end := ref.TargetSpan[1]
		if start < 0 || end > len(content) || start > end {
			continue
		}

		if content[start:end] == replacement {
			continue
		}
		content = content[:start] + replacement + content[end:]
		count++
	}

	if count == 0 {
		return nil, nil
	}

	if err := writeAtomic(file, []byte(content)); err != nil {
		return nil, err
	}
	return &UpdateResult{File: file, Replacements: count}, nil
}

// UpdateAll locates references to the renamed assets under rootDir and
// rewrites every affected document. Per-file failures are collected, not
// fatal; the caller decides how to report them.
func UpdateAll(rootDir string, renameMap map[string]string, recursive bool) ([]UpdateResult, []error) {
	oldNames := make([]string, 0, len(renameMap))
	for old := range renameMap {
		oldNames = append(oldNames, old)
	}
	sort.Strings(oldNames)

	references, failures, err := Locate(rootDir, oldNames, recursive)
	if err != nil {
		return nil, []error{err}
	}

	byFile := make(map[string][]Reference)
	for _, ref := range references {
		byFile[ref.File] = append(byFile[ref.File], ref)
	}

	files := make([]string, 0, len(byFile))
	for file := range byFile {
		files = append(files, file)
	}
	sort.Strings(files)

	var results []UpdateResult
	for _, file := range files {
		result, err := Rewrite(file, byFile[file], renameMap)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		if result != nil {
			results = append(results, *result)
		}
	}
	return results, failures
}

// writeAtomic writes data via a temp file in the same directory plus
// rename, so a crash mid-write cannot leave a half-rewritten document.
func writeAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(err)
	}
	tmp := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	info, err := os.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode()
	}

	if err := os.WriteFile(tmp, data, mode); err != nil {
		return errors.NewWrite(path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.NewWrite(path, err)
	}
	return nil
}
