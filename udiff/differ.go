// Package udiff computes intraline differences with the go-udiff library.
package udiff

import (
	"unicode"
	"unicode/utf8"

	udifflib "github.com/aymanbagabas/go-udiff"

	"github.com/fwojciec/stagehand"
)

var _ stagehand.WordDiffer = (*Differ)(nil)

// Differ marks the changed spans of a replace pair. Character-level edits
// are widened to whitespace-delimited words so whole words light up instead
// of the scattered characters a minimal edit script touches.
type Differ struct{}

// NewDiffer creates a word-granularity differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// span is a half-open byte range.
type span struct {
	start, end int
}

// Diff returns both lines split into changed and unchanged segments. The
// segments concatenate back to their line. Identical lines return nil.
func (d *Differ) Diff(old, new string) ([]stagehand.Segment, []stagehand.Segment) {
	edits := udifflib.Strings(old, new)
	if len(edits) == 0 {
		return nil, nil
	}

	var oldSpans, newSpans []span
	oldCur, newCur := 0, 0
	for _, e := range edits {
		newCur += e.Start - oldCur // text copied unchanged
		if e.End > e.Start {
			oldSpans = append(oldSpans, span{e.Start, e.End})
		}
		if e.New != "" {
			newSpans = append(newSpans, span{newCur, newCur + len(e.New)})
		}
		oldCur = e.End
		newCur += len(e.New)
	}

	oldSpans = merge(widen(old, oldSpans))
	newSpans = merge(widen(new, newSpans))
	return segments(old, oldSpans), segments(new, newSpans)
}

// widen grows each span to the whitespace-delimited words it touches.
// Leading and trailing whitespace inside a span stays out of the word
// expansion; a span that is nothing but whitespace is kept as it is, so
// indentation changes still get marked.
func widen(s string, spans []span) []span {
	out := make([]span, 0, len(spans))
	for _, sp := range spans {
		core := sp
		for core.start < core.end {
			r, size := utf8.DecodeRuneInString(s[core.start:])
			if !unicode.IsSpace(r) {
				break
			}
			core.start += size
		}
		for core.end > core.start {
			r, size := utf8.DecodeLastRuneInString(s[:core.end])
			if !unicode.IsSpace(r) {
				break
			}
			core.end -= size
		}
		if core.start == core.end {
			out = append(out, sp)
			continue
		}
		for core.start > 0 {
			r, size := utf8.DecodeLastRuneInString(s[:core.start])
			if unicode.IsSpace(r) {
				break
			}
			core.start -= size
		}
		for core.end < len(s) {
			r, size := utf8.DecodeRuneInString(s[core.end:])
			if unicode.IsSpace(r) {
				break
			}
			core.end += size
		}
		out = append(out, core)
	}
	return out
}

// merge folds spans that overlap or touch after widening.
func merge(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	out := spans[:1]
	for _, sp := range spans[1:] {
		last := &out[len(out)-1]
		if sp.start <= last.end {
			if sp.end > last.end {
				last.end = sp.end
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

// segments splits s at the changed spans.
func segments(s string, spans []span) []stagehand.Segment {
	var segs []stagehand.Segment
	cur := 0
	for _, sp := range spans {
		if sp.start > cur {
			segs = append(segs, stagehand.Segment{Text: s[cur:sp.start]})
		}
		segs = append(segs, stagehand.Segment{Text: s[sp.start:sp.end], Changed: true})
		cur = sp.end
	}
	if cur < len(s) || segs == nil {
		segs = append(segs, stagehand.Segment{Text: s[cur:]})
	}
	return segs
}
