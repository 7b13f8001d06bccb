package stagehand

import (
	"bytes"
	"fmt"
)

// Extract produces a new unified-diff patch containing only the change lines
// selected by the inclusive record range [start, end] of doc. Unselected
// lines inside an emitted hunk follow the plusLinesAreContext policy: when
// reverse is false unselected additions are dropped and unselected removals
// are demoted to context; when reverse is true the roles swap, so the side
// that still exists in the apply target survives as context. Each emitted
// hunk spans the original hunk start through its last selected line and
// remains individually valid, with lengths recomputed from the emitted lines
// and starts shifted by the cumulative delta of preceding emitted hunks.
//
// The input patch is never mutated. A range that selects no change lines
// returns ErrEmptySelection. A malformed range (start > end or out of
// bounds) is a caller bug and panics.
func Extract(doc *Document, start, end int, reverse bool) ([]byte, error) {
	if start > end || start < 0 || end >= len(doc.Records) {
		panic(fmt.Sprintf("stagehand: malformed extraction range [%d, %d] over %d records", start, end, len(doc.Records)))
	}

	// Selected change lines per hunk, keyed by hunk-local index.
	selected := make(map[int]map[int]bool)
	lastSel := make(map[int]int)
	for i := start; i <= end; i++ {
		rec := doc.Records[i]
		if rec.IsHunkHeader() || !rec.Type.isChange() {
			continue
		}
		m := selected[rec.HunkID]
		if m == nil {
			m = make(map[int]bool)
			selected[rec.HunkID] = m
		}
		m[rec.HunkLine] = true
		lastSel[rec.HunkID] = rec.HunkLine
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}

	src := doc.Patch
	out := header(src)
	delta := 0
	for hunkID := range src.Hunks {
		sel, any := selected[hunkID]
		if !any {
			continue
		}
		h := emitHunk(&src.Hunks[hunkID], sel, lastSel[hunkID], reverse, delta)
		delta += h.NewCount - h.OldCount
		out.Hunks = append(out.Hunks, h)
	}

	if reverse {
		out = Reverse(out)
	}
	return Format(out), nil
}

// ExtractHunk produces a new patch containing exactly one hunk of p,
// optionally reversed. The whole hunk is kept, trailing context included.
// A hunk with no change lines returns ErrEmptySelection; an out-of-range
// hunk id panics.
func ExtractHunk(p *Patch, hunkID int, reverse bool) ([]byte, error) {
	if hunkID < 0 || hunkID >= len(p.Hunks) {
		panic(fmt.Sprintf("stagehand: hunk id %d out of range, patch has %d hunks", hunkID, len(p.Hunks)))
	}
	src := &p.Hunks[hunkID]

	sel := make(map[int]bool, len(src.Lines))
	any := false
	for i, line := range src.Lines {
		if line.IsChange() {
			sel[i] = true
			any = true
		}
	}
	if !any {
		return nil, ErrEmptySelection
	}

	out := header(p)
	out.Hunks = append(out.Hunks, emitHunk(src, sel, len(src.Lines)-1, reverse, 0))
	if reverse {
		out = Reverse(out)
	}
	return Format(out), nil
}

// header copies the file-level patch metadata without any hunks.
func header(p *Patch) *Patch {
	return &Patch{
		OldPath:   p.OldPath,
		NewPath:   p.NewPath,
		Operation: p.Operation,
		IsBinary:  p.IsBinary,
		OldMode:   p.OldMode,
		NewMode:   p.NewMode,
	}
}

// emitHunk builds one sub-patch hunk from the lines of h up to and including
// the last selected line, applying the plusLinesAreContext policy, and
// recomputes the header so that context+removed matches the old length and
// context+added matches the new length.
func emitHunk(h *Hunk, sel map[int]bool, lastSel int, reverse bool, delta int) Hunk {
	var lines []Line
	for i := 0; i <= lastSel; i++ {
		line := h.Lines[i]
		switch {
		case line.Type == LineContext || sel[i]:
			lines = append(lines, line)
		case line.Type == LineAdded && reverse:
			lines = append(lines, demote(line))
		case line.Type == LineDeleted && !reverse:
			lines = append(lines, demote(line))
		}
		// Remaining cases: unselected additions (forward) and unselected
		// removals (reverse) do not exist on either side of the sub-patch.
	}

	oldCount, newCount := 0, 0
	for _, line := range lines {
		if line.Type != LineAdded {
			oldCount++
		}
		if line.Type != LineDeleted {
			newCount++
		}
	}

	oldStart := h.OldStart
	if oldCount == 0 && h.OldCount > 0 {
		oldStart-- // pure insertion: anchor after the preceding old line
	}
	newStart := oldStart + delta
	if oldCount == 0 {
		newStart++
	}
	if newCount == 0 {
		newStart--
	}

	return Hunk{
		OldStart: oldStart,
		OldCount: oldCount,
		NewStart: newStart,
		NewCount: newCount,
		Section:  h.Section,
		Lines:    lines,
	}
}

// demote turns an unselected change line into context in the sub-patch.
func demote(l Line) Line {
	n := l.OldLineNum
	if n == 0 {
		n = l.NewLineNum
	}
	return Line{
		Type:       LineContext,
		Content:    l.Content,
		OldLineNum: n,
		NewLineNum: n,
		NoNewline:  l.NoNewline,
	}
}

// Reverse returns a new patch that undoes p: line origins, line numbers,
// hunk start/length pairs, paths, modes, and the file operation are all
// swapped. Reversing twice round-trips to a byte-identical patch.
func Reverse(p *Patch) *Patch {
	out := &Patch{
		OldPath:   p.NewPath,
		NewPath:   p.OldPath,
		Operation: reverseOp(p.Operation),
		IsBinary:  p.IsBinary,
		OldMode:   p.NewMode,
		NewMode:   p.OldMode,
	}
	for i := range p.Hunks {
		h := &p.Hunks[i]
		rh := Hunk{
			OldStart: h.NewStart,
			OldCount: h.NewCount,
			NewStart: h.OldStart,
			NewCount: h.OldCount,
			Section:  h.Section,
			Lines:    make([]Line, len(h.Lines)),
		}
		for j, line := range h.Lines {
			rh.Lines[j] = Line{
				Type:       reverseType(line.Type),
				Content:    line.Content,
				OldLineNum: line.NewLineNum,
				NewLineNum: line.OldLineNum,
				NoNewline:  line.NoNewline,
			}
		}
		out.Hunks = append(out.Hunks, rh)
	}
	return out
}

func reverseOp(op FileOp) FileOp {
	switch op {
	case FileAdded:
		return FileDeleted
	case FileDeleted:
		return FileAdded
	default:
		return op
	}
}

func reverseType(t LineType) LineType {
	switch t {
	case LineAdded:
		return LineDeleted
	case LineDeleted:
		return LineAdded
	default:
		return t
	}
}

// Format renders p as unified diff bytes consumable by the same apply
// primitive as full patches.
func Format(p *Patch) []byte {
	var buf bytes.Buffer

	oldName := p.OldPath
	if oldName == "" {
		oldName = p.NewPath
	}
	newName := p.NewPath
	if newName == "" {
		newName = p.OldPath
	}
	fmt.Fprintf(&buf, "diff --git a/%s b/%s\n", oldName, newName)

	switch p.Operation {
	case FileAdded:
		if p.NewMode != 0 {
			fmt.Fprintf(&buf, "new file mode %06o\n", p.NewMode)
		}
	case FileDeleted:
		if p.OldMode != 0 {
			fmt.Fprintf(&buf, "deleted file mode %06o\n", p.OldMode)
		}
	case FileRenamed:
		fmt.Fprintf(&buf, "rename from %s\n", p.OldPath)
		fmt.Fprintf(&buf, "rename to %s\n", p.NewPath)
	}

	if p.IsBinary {
		fmt.Fprintf(&buf, "Binary files a/%s and b/%s differ\n", oldName, newName)
		return buf.Bytes()
	}
	if len(p.Hunks) == 0 {
		return buf.Bytes()
	}

	if p.Operation == FileAdded {
		buf.WriteString("--- /dev/null\n")
	} else {
		fmt.Fprintf(&buf, "--- a/%s\n", oldName)
	}
	if p.Operation == FileDeleted {
		buf.WriteString("+++ /dev/null\n")
	} else {
		fmt.Fprintf(&buf, "+++ b/%s\n", newName)
	}

	for i := range p.Hunks {
		h := &p.Hunks[i]
		buf.WriteString(h.Header())
		buf.WriteByte('\n')
		for _, line := range h.Lines {
			buf.WriteString(linePrefix(line.Type))
			buf.WriteString(line.Content)
			buf.WriteByte('\n')
			if line.NoNewline {
				buf.WriteString("\\ No newline at end of file\n")
			}
		}
	}
	return buf.Bytes()
}
