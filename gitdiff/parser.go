// Package gitdiff parses raw git diff output into stagehand patches using
// bluekeyes/go-gitdiff.
package gitdiff

import (
	"fmt"
	"io"
	"strings"

	gitdifflib "github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/fwojciec/stagehand"
)

// Parser converts unified diff content into domain types.
type Parser struct{}

var _ stagehand.Parser = (*Parser)(nil)

// NewParser returns a ready Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads unified diff content and returns one Patch per file, in input
// order. Empty input yields an empty slice.
func (p *Parser) Parse(r io.Reader) ([]*stagehand.Patch, error) {
	files, _, err := gitdifflib.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}

	patches := make([]*stagehand.Patch, 0, len(files))
	for _, f := range files {
		patches = append(patches, convertFile(f))
	}
	return patches, nil
}

func convertFile(f *gitdifflib.File) *stagehand.Patch {
	patch := &stagehand.Patch{
		OldPath:   f.OldName,
		NewPath:   f.NewName,
		Operation: operation(f),
		IsBinary:  f.IsBinary,
		OldMode:   f.OldMode,
		NewMode:   f.NewMode,
	}
	for _, frag := range f.TextFragments {
		patch.Hunks = append(patch.Hunks, convertFragment(frag))
	}
	return patch
}

func operation(f *gitdifflib.File) stagehand.FileOp {
	switch {
	case f.IsNew:
		return stagehand.FileAdded
	case f.IsDelete:
		return stagehand.FileDeleted
	case f.IsRename:
		return stagehand.FileRenamed
	case f.IsCopy:
		return stagehand.FileCopied
	default:
		return stagehand.FileModified
	}
}

func convertFragment(frag *gitdifflib.TextFragment) stagehand.Hunk {
	h := stagehand.Hunk{
		OldStart: int(frag.OldPosition),
		OldCount: int(frag.OldLines),
		NewStart: int(frag.NewPosition),
		NewCount: int(frag.NewLines),
		Section:  frag.Comment,
	}

	oldNum := int(frag.OldPosition)
	newNum := int(frag.NewPosition)
	for _, fl := range frag.Lines {
		line := stagehand.Line{
			Content:   strings.TrimSuffix(fl.Line, "\n"),
			NoNewline: !strings.HasSuffix(fl.Line, "\n"),
		}
		switch fl.Op {
		case gitdifflib.OpAdd:
			line.Type = stagehand.LineAdded
			line.NewLineNum = newNum
			newNum++
		case gitdifflib.OpDelete:
			line.Type = stagehand.LineDeleted
			line.OldLineNum = oldNum
			oldNum++
		default:
			line.Type = stagehand.LineContext
			line.OldLineNum = oldNum
			line.NewLineNum = newNum
			oldNum++
			newNum++
		}
		h.Lines = append(h.Lines, line)
	}
	return h
}
