// Package stagehand provides the domain model for interactive Git staging:
// per-file patches, a line-addressable diff document, sub-patch extraction,
// and a single-flight engine for repository-mutating tasks.
package stagehand

import (
	"fmt"
	"io/fs"
)

// Patch represents the changes to a single file as an ordered list of hunks.
// Every diff read produces fresh Patch values; derived patches (sub-patches,
// reversals) are always new values and never mutate their source.
type Patch struct {
	OldPath   string      // repo-relative, empty for new files
	NewPath   string      // repo-relative, empty for deleted files
	Operation FileOp      // Added, Deleted, Modified, Renamed, Copied
	IsBinary  bool        // binary files have no hunks
	OldMode   fs.FileMode // 0 if unchanged
	NewMode   fs.FileMode // for permission changes
	Hunks     []Hunk
}

// Path returns the display path for the file: the new path when present,
// otherwise the old one.
func (p *Patch) Path() string {
	if p.NewPath != "" {
		return p.NewPath
	}
	return p.OldPath
}

// Additions returns the number of added lines across all hunks.
func (p *Patch) Additions() int {
	n := 0
	for i := range p.Hunks {
		for _, l := range p.Hunks[i].Lines {
			if l.Type == LineAdded {
				n++
			}
		}
	}
	return n
}

// Deletions returns the number of deleted lines across all hunks.
func (p *Patch) Deletions() int {
	n := 0
	for i := range p.Hunks {
		for _, l := range p.Hunks[i].Lines {
			if l.Type == LineDeleted {
				n++
			}
		}
	}
	return n
}

// FileOp represents the type of operation performed on a file.
type FileOp int

// File operation types.
const (
	FileModified FileOp = iota
	FileAdded
	FileDeleted
	FileRenamed
	FileCopied
)

// Hunk represents a contiguous block of changes within a file.
type Hunk struct {
	OldStart int    // from @@ -X,...
	OldCount int    // from @@ -X,Y ...
	NewStart int    // from @@ ...,+X
	NewCount int    // from @@ ...,+X,Y
	Section  string // optional function name after @@ ... @@
	Lines    []Line
}

// Header returns the hunk header in unified diff form, counts always
// explicit: "@@ -1,3 +1,4 @@", with the section name appended when present.
func (h *Hunk) Header() string {
	s := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
	if h.Section != "" {
		s += " " + h.Section
	}
	return s
}

// Line represents a single line within a hunk.
type Line struct {
	Type       LineType
	Content    string // without the +/-/space prefix and trailing newline
	OldLineNum int    // 0 if line is Added
	NewLineNum int    // 0 if line is Deleted
	NoNewline  bool   // "\ No newline at end of file" marker
}

// IsChange reports whether the line is an addition or a deletion.
func (l Line) IsChange() bool {
	return l.Type.isChange()
}

// LineType represents the type of a diff line.
type LineType int

// Line types.
const (
	LineContext LineType = iota
	LineAdded
	LineDeleted
)

func (t LineType) isChange() bool {
	return t != LineContext
}
