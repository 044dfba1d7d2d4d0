// Package refs locates and rewrites markdown references to image files.
//
// Four syntactic forms are recognized: standard images ![alt](target),
// standard links [text](target), wiki links [[target]] / [[target|alias]],
// and wiki embeds ![[target]] / ![[target|alias]]. Matching is by basename:
// directory prefixes and absolute/relative style are never altered.
package refs

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"

	"github.com/kmordal/namelens/internal/errors"
)

// Kind identifies the syntactic form of a reference.
type Kind string

const (
	KindImage     Kind = "image"      // ![alt](target)
	KindLink      Kind = "link"       // [text](target)
	KindWiki      Kind = "wiki"       // [[target]] or [[target|alias]]
	KindWikiEmbed Kind = "wiki_embed" // ![[target]] or ![[target|alias]]
)

// Reference is one located occurrence of an asset in a document.
type Reference struct {
	File string `json:"file"`
	Kind Kind   `json:"kind"`

	// Span is the byte range of the full syntactic match.
	Span [2]int `json:"span"`

	// TargetSpan is the byte range of the target string inside the file.
	TargetSpan [2]int `json:"-"`

	// Target is the raw target text as written, encoding intact.
	Target string `json:"target"`

	// Alt is the alt text or wiki alias, empty when absent.
	Alt string `json:"alt,omitempty"`

	// OldName is the asset basename this reference matched, in decoded
	// NFC form.
	OldName string `json:"old_name"`

	// StemRef marks a wiki reference that names the asset by stem only.
	StemRef bool `json:"stem_ref,omitempty"`
}

// Inline reference patterns. Standard markdown carries the optional embed
// bang in the first group; wiki forms carry target and optional alias.
var (
	inlinePattern = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\n]+)\)`)
	wikiPattern   = regexp.MustCompile(`(!?)\[\[([^\]|\n]+)(?:\|([^\]\n]+))?\]\]`)
)

// Locate scans markdown documents under rootDir for references to any of
// targetBasenames. Matches inside fenced code blocks are ignored. An
// unreadable document is reported in the failures slice and skipped; only
// enumerating rootDir itself can fail the whole pass.
func Locate(rootDir string, targetBasenames []string, recursive bool) ([]Reference, []error, error) {
	files, err := markdownFiles(rootDir, recursive)
	if err != nil {
		return nil, nil, err
	}

	// Index decoded names and stems for O(1) match checks.
	byName := make(map[string]string, len(targetBasenames))
	byStem := make(map[string]string, len(targetBasenames))
	for _, name := range targetBasenames {
		canon := canonical(name)
		byName[canon] = canon
		byStem[strings.TrimSuffix(canon, filepath.Ext(canon))] = canon
	}

	var found []Reference
	var failures []error
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			failures = append(failures, errors.NewWrite(file, err))
			continue
		}
		found = append(found, scan(file, content, byName, byStem)...)
	}
	return found, failures, nil
}

// LocateInFile scans a single document.
func LocateInFile(file string, targetBasenames []string) ([]Reference, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.NewWrite(file, err)
	}
	byName := make(map[string]string, len(targetBasenames))
	byStem := make(map[string]string, len(targetBasenames))
	for _, name := range targetBasenames {
		canon := canonical(name)
		byName[canon] = canon
		byStem[strings.TrimSuffix(canon, filepath.Ext(canon))] = canon
	}
	return scan(file, content, byName, byStem), nil
}

// scan finds all matching references in one document's content.
func scan(file string, content []byte, byName, byStem map[string]string) []Reference {
	text := string(content)
	fenced := fencedRanges(content)

	var found []Reference

	for _, m := range inlinePattern.FindAllStringSubmatchIndex(text, -1) {
		if insideFence(m[0], fenced) {
			continue
		}
		bang := text[m[2]:m[3]] == "!"
		alt := text[m[4]:m[5]]
		target := text[m[6]:m[7]]

		// A plain link needs link text; an image may have empty alt.
		if !bang && alt == "" {
			continue
		}

		base := canonical(pathBase(target))
		old, ok := byName[base]
		if !ok {
			continue
		}

		kind := KindLink
		if bang {
			kind = KindImage
		}
		found = append(found, Reference{
			File:       file,
			Kind:       kind,
			Span:       [2]int{m[0], m[1]},
			TargetSpan: [2]int{m[6], m[7]},
			Target:     target,
			Alt:        alt,
			OldName:    old,
		})
	}

	for _, m := range wikiPattern.FindAllStringSubmatchIndex(text, -1) {
		if insideFence(m[0], fenced) {
			continue
		}
		bang := text[m[2]:m[3]] == "!"
		target := text[m[4]:m[5]]
		alt := ""
		if m[6] >= 0 {
			alt = text[m[6]:m[7]]
		}

		base := canonical(pathBase(target))
		old, ok := byName[base]
		stemRef := false
		if !ok {
			old, ok = byStem[base]
			stemRef = true
		}
		if !ok {
			continue
		}

		kind := KindWiki
		if bang {
			kind = KindWikiEmbed
		}
		found = append(found, Reference{
			File:       file,
			Kind:       kind,
			Span:       [2]int{m[0], m[1]},
			TargetSpan: [2]int{m[4], m[5]},
			Target:     target,
			Alt:        alt,
			OldName:    old,
			StemRef:    stemRef,
		})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Span[0] < found[j].Span[0] })
	return found
}

// canonical percent-decodes a name and normalizes it to NFC, so that
// editor-introduced encoding differences do not cause missed matches.
func canonical(name string) string {
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return norm.NFC.String(name)
}

// pathBase returns the final path segment of a markdown target. Markdown
// targets use forward slashes regardless of platform.
func pathBase(target string) string {
	if i := strings.LastIndexByte(target, '/'); i >= 0 {
		return target[i+1:]
	}
	return target
}

// fencedRanges parses the document and returns byte ranges covered by
// fenced and indented code blocks. References inside code are samples, not
// live links, and must not be rewritten.
func fencedRanges(content []byte) [][2]int {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(content))

	var ranges [][2]int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			lines := n.Lines()
			if lines.Len() == 0 {
				return ast.WalkContinue, nil
			}
			start := lines.At(0).Start
			stop := lines.At(lines.Len() - 1).Stop
			ranges = append(ranges, [2]int{start, stop})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return ranges
}

// insideFence reports whether byte offset pos falls inside any range.
func insideFence(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// markdownFiles lists *.md files under root, sorted for deterministic
// scan order. Hidden directories (including the cache root) are skipped.
func markdownFiles(root string, recursive bool) ([]string, error) {
	var files []string

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.NewNotFound(root)
			}
			return nil, errors.NewWrite(root, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".md") {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
		sort.Strings(files)
		return files, nil
	}

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound(root)
		}
		return nil, errors.NewWrite(root, err)
	}
	sort.Strings(files)
	return files, nil
}
