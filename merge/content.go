package merge

import (
	"bytes"
	"strings"

	"github.com/chr33s/git/linediff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// isBinary reports whether b looks binary: any NUL byte within the first
// 8 KiB (spec §4.H).
func isBinary(b []byte) bool {
	n := len(b)
	if n > 8192 {
		n = 8192
	}
	return bytes.IndexByte(b[:n], 0) >= 0
}

// ContentMerge performs the line-level three-way merge of a path modified on
// both sides. It returns the merged bytes and whether the result still
// contains unresolved conflict hunks.
//
// base/ours/theirs lines are first aligned to base's line positions using a
// line-mode diff (sergi/go-diff via the linediff package) against base, so
// that insertions and deletions on either side line up before the
// index-aligned comparison described in spec §4.H runs.
func ContentMerge(base, ours, theirs []byte) (merged []byte, conflicted bool) {
	baseLines := splitLines(string(base))
	oursAligned := alignToBase(baseLines, string(base), string(ours))
	theirsAligned := alignToBase(baseLines, string(base), string(theirs))

	var out []string
	inConflict := false
	var ourHunk, theirHunk []string

	flush := func() {
		if !inConflict {
			return
		}
		out = append(out, "<<<<<<< ours")
		out = append(out, ourHunk...)
		out = append(out, "=======")
		out = append(out, theirHunk...)
		out = append(out, ">>>>>>> theirs")
		conflicted = true
		inConflict = false
		ourHunk, theirHunk = nil, nil
	}

	for i := range baseLines {
		b := baseLines[i]
		o := oursAligned[i]
		t := theirsAligned[i]

		switch {
		case o == b && t == b:
			flush()
			appendNonEmpty(&out, b)
		case o == b && t != b:
			flush()
			appendNonEmpty(&out, t)
		case t == b && o != b:
			flush()
			appendNonEmpty(&out, o)
		case o == t:
			flush()
			appendNonEmpty(&out, o)
		default:
			inConflict = true
			if o != "" {
				ourHunk = append(ourHunk, splitLines(o)...)
			}
			if t != "" {
				theirHunk = append(theirHunk, splitLines(t)...)
			}
		}
	}
	flush()

	return []byte(strings.Join(out, "\n")), conflicted
}

func appendNonEmpty(out *[]string, s string) {
	if s == "" {
		return
	}
	*out = append(*out, splitLines(s)...)
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// alignToBase returns, for every line of baseLines, the text side contains
// in place of that base line: unchanged for equal lines, the replacement
// text for changed/replaced lines, "" for deleted lines. Pure insertions
// that don't replace any base line are folded into the preceding index (or
// the first index, for an insertion at the very start of the file).
func alignToBase(baseLines []string, base, side string) []string {
	aligned := make([]string, len(baseLines))
	copy(aligned, baseLines)

	if base == side {
		return aligned
	}

	diffs := linediff.Do(base, side)
	baseIdx := 0
	lastTouched := -1

	for _, d := range diffs {
		lines := splitLines(trimTrailingNewline(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			for range lines {
				if baseIdx < len(aligned) {
					lastTouched = baseIdx
					baseIdx++
				}
			}
		case diffmatchpatch.DiffDelete:
			for _, ln := range lines {
				_ = ln
				if baseIdx < len(aligned) {
					aligned[baseIdx] = ""
					lastTouched = baseIdx
					baseIdx++
				}
			}
		case diffmatchpatch.DiffInsert:
			text := strings.Join(lines, "\n")
			if lastTouched >= 0 && lastTouched < len(aligned) {
				if aligned[lastTouched] == "" {
					aligned[lastTouched] = text
				} else {
					aligned[lastTouched] = aligned[lastTouched] + "\n" + text
				}
			} else if len(aligned) > 0 {
				aligned[0] = text + "\n" + aligned[0]
			}
		}
	}
	return aligned
}

func trimTrailingNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
