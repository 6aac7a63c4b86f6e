// Package scenediff implements the scene-change detector (spec.md §4.7):
// a per-line diff between the scene text a session was saved against and
// its current content, used to remap or stale-mark findings' line ranges.
// The line-granular diff is derived from diffmatchpatch's char-encoding
// trick, the same DiffLinesToChars -> DiffMain -> DiffCharsToLines sequence
// telnet2-opencode/go-opencode/internal/tool/diff.go uses to turn a
// char-granular diff into line-granular diff ops.
package scenediff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff is the per-line comparison of an old and new scene text: a
// mapping of surviving old line numbers to their new position, the set of
// old line numbers that were deleted, and (informationally) the set of new
// line numbers that were inserted. Line numbers are 1-indexed.
type LineDiff struct {
	Mapping  map[int]int
	Deleted  map[int]bool
	Inserted map[int]bool
}

// Compute derives a LineDiff between before and after.
func Compute(before, after string) LineDiff {
	result := LineDiff{Mapping: map[int]int{}, Deleted: map[int]bool{}, Inserted: map[int]bool{}}
	if before == after {
		oldLines := splitLines(before)
		for i := range oldLines {
			result.Mapping[i+1] = i + 1
		}
		return result
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	oldLine, newLine := 1, 1
	for _, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for range lines {
				result.Mapping[oldLine] = newLine
				oldLine++
				newLine++
			}
		case diffmatchpatch.DiffDelete:
			for range lines {
				result.Deleted[oldLine] = true
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			for range lines {
				result.Inserted[newLine] = true
				newLine++
			}
		}
	}
	return result
}

// splitLines splits text into lines the same way
// telnet2-opencode/go-opencode/internal/tool/diff.go's countLines counts
// them: a trailing unterminated fragment still counts as one line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
