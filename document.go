package stagehand

import (
	"sort"
	"strings"
)

// Sentinel values used by LineRecord fields and Document lookups.
const (
	// HeaderRow is the HunkLine value of a synthetic hunk-header row.
	HeaderRow = -1
	// NoClump is the ClumpID of context lines and hunk-header rows.
	NoClump = -1
	// NotFound is returned by LineAt and HunkAt on an empty document.
	NotFound = -1
)

// LineRecord is one row of the rendered diff document: either a synthetic
// hunk-header row or a single patch line tagged with its position metadata.
type LineRecord struct {
	Type       LineType // origin; header rows report LineContext
	OldLineNum int      // 0 for added lines and header rows
	NewLineNum int      // 0 for deleted lines and header rows
	HunkID     int      // index of the owning hunk, non-decreasing
	HunkLine   int      // position within the hunk, HeaderRow for headers
	ClumpID    int      // run of same-origin change lines, NoClump otherwise
	TextStart  int      // byte offset of the row in Text()
	TextEnd    int      // byte offset one past the row's trailing newline
}

// IsHunkHeader reports whether the record is a synthetic hunk-header row.
func (r LineRecord) IsHunkHeader() bool {
	return r.HunkLine == HeaderRow
}

// Document is a line-addressable view of a single Patch. Each hunk
// contributes a header row followed by one row per line, and every row knows
// its byte extent in the rendered text so a text-buffer offset can be mapped
// back to a line in O(log n). Construction is a single O(n) pass; documents
// are rebuilt from scratch on every redisplay rather than updated in place.
type Document struct {
	Patch   *Patch
	Records []LineRecord

	text    string
	starts  []int // Records[i].TextStart, sorted by construction
	hunkIDs []int // Records[i].HunkID, parallel to starts
}

// NewDocument builds the line index and rendered text for a patch.
func NewDocument(p *Patch) *Document {
	d := &Document{Patch: p}

	var sb strings.Builder
	nextClump := 0
	prevChange := LineContext // origin of the previous change line, if any

	for hunkID := range p.Hunks {
		h := &p.Hunks[hunkID]

		header := h.Header()
		d.append(LineRecord{
			HunkID:   hunkID,
			HunkLine: HeaderRow,
			ClumpID:  NoClump,
		}, &sb, header)
		prevChange = LineContext

		for i, line := range h.Lines {
			rec := LineRecord{
				Type:       line.Type,
				OldLineNum: line.OldLineNum,
				NewLineNum: line.NewLineNum,
				HunkID:     hunkID,
				HunkLine:   i,
				ClumpID:    NoClump,
			}
			if line.IsChange() {
				if line.Type != prevChange {
					nextClump++
				}
				rec.ClumpID = nextClump - 1
				prevChange = line.Type
			} else {
				prevChange = LineContext
			}
			d.append(rec, &sb, linePrefix(line.Type)+line.Content)
		}
	}

	d.text = sb.String()
	return d
}

func (d *Document) append(rec LineRecord, sb *strings.Builder, row string) {
	rec.TextStart = sb.Len()
	sb.WriteString(row)
	sb.WriteByte('\n')
	rec.TextEnd = sb.Len()
	d.Records = append(d.Records, rec)
	d.starts = append(d.starts, rec.TextStart)
	d.hunkIDs = append(d.hunkIDs, rec.HunkID)
}

func linePrefix(t LineType) string {
	switch t {
	case LineAdded:
		return "+"
	case LineDeleted:
		return "-"
	default:
		return " "
	}
}

// Text returns the rendered plain-text buffer the record offsets refer to.
func (d *Document) Text() string {
	return d.text
}

// LineAt returns the index of the last record whose TextStart is at or
// before offset. Out-of-range offsets clamp to the nearest valid record;
// an empty document returns NotFound.
func (d *Document) LineAt(offset int) int {
	if len(d.Records) == 0 {
		return NotFound
	}
	i := sort.Search(len(d.starts), func(i int) bool {
		return d.starts[i] > offset
	})
	if i == 0 {
		return 0
	}
	return i - 1
}

// HunkAt returns the hunk id of the record at offset, or NotFound on an
// empty document.
func (d *Document) HunkAt(offset int) int {
	i := d.LineAt(offset)
	if i == NotFound {
		return NotFound
	}
	return d.hunkIDs[i]
}

// ClumpExtent returns the inclusive record range sharing a clump with the
// record at index. A hunk-header row expands to the whole hunk. Context
// lines are not actionable and report ok=false with the index itself as the
// extent. An out-of-range index is a caller bug and panics.
func (d *Document) ClumpExtent(index int) (start, end int, ok bool) {
	if index < 0 || index >= len(d.Records) {
		panic("stagehand: ClumpExtent index out of range")
	}
	rec := d.Records[index]

	if rec.IsHunkHeader() {
		start, end = index, index
		for end+1 < len(d.Records) && d.Records[end+1].HunkID == rec.HunkID {
			end++
		}
		return start, end, true
	}
	if rec.ClumpID == NoClump {
		return index, index, false
	}

	start, end = index, index
	for start > 0 && d.Records[start-1].ClumpID == rec.ClumpID {
		start--
	}
	for end+1 < len(d.Records) && d.Records[end+1].ClumpID == rec.ClumpID {
		end++
	}
	return start, end, true
}
