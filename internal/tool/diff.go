package tool

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// fileDiff is a patch between two versions of a file.
type fileDiff struct {
	Text      string
	Additions int
	Deletions int
}

// summary renders the counts followed by the patch text.
func (d fileDiff) summary() string {
	if d.Text == "" {
		return "No changes"
	}
	return fmt.Sprintf("+%d -%d\n%s", d.Additions, d.Deletions, d.Text)
}

// computeDiff builds a line-level patch of before against after, labelled with path
// relative to baseDir.
func computeDiff(path, before, after, baseDir string) fileDiff {
	if before == after {
		return fileDiff{}
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var d fileDiff
	for _, change := range diffs {
		switch change.Type {
		case diffmatchpatch.DiffInsert:
			d.Additions += countLines(change.Text)
		case diffmatchpatch.DiffDelete:
			d.Deletions += countLines(change.Text)
		}
	}

	patch := dmp.PatchToText(dmp.PatchMake(before, diffs))
	if patch == "" {
		return d
	}

	var sb strings.Builder
	if rel := relativePath(path, baseDir); rel != "" {
		fmt.Fprintf(&sb, "--- %s\n+++ %s\n", rel, rel)
	}
	sb.WriteString(patch)
	d.Text = sb.String()
	return d
}

func relativePath(path, baseDir string) string {
	if path == "" || baseDir == "" {
		return path
	}
	if rel, err := filepath.Rel(baseDir, path); err == nil {
		return rel
	}
	return path
}

func countLines(text string) int {
	if text == "" {
		return 0
	}
	lines := strings.Count(text, "\n")
	if !strings.HasSuffix(text, "\n") {
		lines++
	}
	return lines
}
