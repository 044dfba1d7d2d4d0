package refs

import (
	"os"
	"testing"
)

func TestRewriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	doc := "# Notes\n\n![Caption](old.png)\n\nsome text\n\n[[old.png|Alias]]\n"
	path := writeDoc(t, dir, "n.md", doc)

	refs, err := LocateInFile(path, []string{"old.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}

	result, err := Rewrite(path, refs, map[string]string{"old.png": "new.png"})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if result == nil || result.Replacements != 2 {
		t.Fatalf("result = %+v, want 2 replacements", result)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	want := "# Notes\n\n![Caption](new.png)\n\nsome text\n\n[[new.png|Alias]]\n"
	if string(got) != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestRewritePreservesPathPrefix(t *testing.T) {
	dir := t.TempDir()
	doc := "![a](images/sub/old.png) and [b](/abs/old.png)"
	path := writeDoc(t, dir, "n.md", doc)

	refs, err := LocateInFile(path, []string{"old.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}
	if _, err := Rewrite(path, refs, map[string]string{"old.png": "new.png"}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "![a](images/sub/new.png) and [b](/abs/new.png)"
	if string(got) != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestRewriteStemReference(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "n.md", "[[old]] and [[old.png]]")

	refs, err := LocateInFile(path, []string{"old.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}
	if _, err := Rewrite(path, refs, map[string]string{"old.png": "new.png"}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "[[new]] and [[new.png]]"
	if string(got) != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestRewriteNoMatchLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "n.md", "![a](other.png)")

	before, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}

	refs, err := LocateInFile(path, []string{"old.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}
	result, err := Rewrite(path, refs, map[string]string{"old.png": "new.png"})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil for zero matches", result)
	}

	after, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("file was rewritten despite zero matches")
	}
}

func TestRewriteMultipleReferencesOneLine(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "n.md", "![a](old.png) ![b](old.png) ![c](old.png)")

	refs, err := LocateInFile(path, []string{"old.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}
	result, err := Rewrite(path, refs, map[string]string{"old.png": "new.png"})
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if result.Replacements != 3 {
		t.Errorf("Replacements = %d, want 3", result.Replacements)
	}

	got, _ := os.ReadFile(path)
	want := "![a](new.png) ![b](new.png) ![c](new.png)"
	if string(got) != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestRewritePercentEncodedTarget(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "n.md", "![shot](screen%20shot.png)")

	refs, err := LocateInFile(path, []string{"screen shot.png"})
	if err != nil {
		t.Fatalf("LocateInFile failed: %v", err)
	}
	if _, err := Rewrite(path, refs, map[string]string{"screen shot.png": "login-form--error-state.png"}); err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}

	got, _ := os.ReadFile(path)
	want := "![shot](login-form--error-state.png)"
	if string(got) != want {
		t.Errorf("document = %q, want %q", got, want)
	}
}

func TestUpdateAll(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.md", "![x](old.png)\n")
	writeDoc(t, dir, "b.md", "[[old.png]] and ![y](old.png)\n")
	writeDoc(t, dir, "c.md", "nothing relevant\n")

	results, failures := UpdateAll(dir, map[string]string{"old.png": "new.png"}, false)
	if len(failures) != 0 {
		t.Fatalf("failures: %v", failures)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (untouched file not reported)", len(results))
	}
	if results[0].Replacements != 1 || results[1].Replacements != 2 {
		t.Errorf("replacement counts = %d, %d, want 1, 2",
			results[0].Replacements, results[1].Replacements)
	}
}
