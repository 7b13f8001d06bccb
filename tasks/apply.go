package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fwojciec/stagehand"
)

// ApplyPatch applies an extracted sub-patch: staging and unstaging target
// the index, discarding targets the working tree. Discards confirm first
// and deposit the patch in the trash so the change can be recovered.
//
// The patch bytes already carry their direction (reversed extractions are
// reversed byte patches), so the repository applies them forward.
type ApplyPatch struct {
	Repo    stagehand.Repository
	Trash   stagehand.Trash
	Purpose stagehand.Purpose
	Path    string // file the selection came from, labels the backup
	Patch   []byte
}

var _ stagehand.Task = (*ApplyPatch)(nil)

func (t *ApplyPatch) Name() string { return t.Purpose.String() }

func (t *ApplyPatch) Steps() []stagehand.Step {
	if t.Purpose.Verb() != stagehand.PurposeDiscard {
		return nil
	}
	return []stagehand.Step{
		stagehand.Confirm{
			Title: "Discard changes",
			Body:  fmt.Sprintf("Really discard the %s? A copy will be kept in the trash.", unitNoun(t.Purpose)),
			Verb:  "Discard",
		},
	}
}

func (t *ApplyPatch) Execute(ctx context.Context) error {
	if t.Purpose.Verb() == stagehand.PurposeDiscard {
		if _, err := t.Trash.Deposit(t.stem(), t.Patch); err != nil {
			return fmt.Errorf("back up to trash: %w", err)
		}
	}
	return t.Repo.Apply(ctx, t.Patch, t.Purpose.Location(), false)
}

func (t *ApplyPatch) Effects() stagehand.Effects {
	if t.Purpose.Verb() == stagehand.PurposeDiscard {
		return stagehand.AffectsWorkdir
	}
	return stagehand.AffectsIndex
}

func (t *ApplyPatch) stem() string {
	if t.Path == "" {
		return "selection"
	}
	return filepath.Base(t.Path)
}

func unitNoun(p stagehand.Purpose) string {
	switch p.Unit() {
	case stagehand.PurposeLines:
		return "selected lines"
	case stagehand.PurposeHunk:
		return "hunk"
	case stagehand.PurposeFile:
		return "file"
	}
	return "selection"
}
