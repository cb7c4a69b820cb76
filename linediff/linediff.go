// Package linediff wraps sergi/go-diff's line-mode diffing, the same
// adaptation go-git's own utils/diff package makes over diffmatchpatch, for
// use by the merge engine's content merge.
package linediff

import "github.com/sergi/go-diff/diffmatchpatch"

// Do returns the line-level diff operations transforming src into dst.
func Do(src, dst string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	wSrc, wDst, lines := dmp.DiffLinesToChars(src, dst)
	diffs := dmp.DiffMain(wSrc, wDst, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

// Src reconstructs the source string implied by a diff (the concatenation
// of DiffEqual and DiffDelete segments).
func Src(diffs []diffmatchpatch.Diff) string {
	var out string
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffInsert {
			out += d.Text
		}
	}
	return out
}

// Dst reconstructs the destination string implied by a diff (the
// concatenation of DiffEqual and DiffInsert segments).
func Dst(diffs []diffmatchpatch.Diff) string {
	var out string
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffDelete {
			out += d.Text
		}
	}
	return out
}
