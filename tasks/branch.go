package tasks

import (
	"context"
	"fmt"

	"github.com/fwojciec/stagehand"
)

// NewBranch creates a branch named in an input step, optionally from a
// given start point, and can switch to it right away.
type NewBranch struct {
	Repo        stagehand.Repository
	From        string // start point; "" means HEAD
	SwitchAfter bool

	name string
}

var _ stagehand.Task = (*NewBranch)(nil)

func (t *NewBranch) Name() string { return "create branch" }

func (t *NewBranch) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Input{
			Title:    "New branch",
			Prompt:   "Name",
			Validate: requireText("branch name"),
			Accept:   func(s string) { t.name = s },
		},
	}
}

func (t *NewBranch) Execute(ctx context.Context) error {
	if err := t.Repo.CreateBranch(ctx, t.name, t.From); err != nil {
		return err
	}
	if t.SwitchAfter {
		return t.Repo.SwitchBranch(ctx, t.name)
	}
	return nil
}

func (t *NewBranch) Effects() stagehand.Effects { return stagehand.AffectsRefs }

// DeleteBranch deletes a local branch after confirmation.
type DeleteBranch struct {
	Repo   stagehand.Repository
	Branch string
	Force  bool
}

var _ stagehand.Task = (*DeleteBranch)(nil)

func (t *DeleteBranch) Name() string { return "delete branch" }

func (t *DeleteBranch) Steps() []stagehand.Step {
	body := fmt.Sprintf("Really delete branch %q?", t.Branch)
	if t.Force {
		body = fmt.Sprintf("Really delete branch %q? It is not fully merged.", t.Branch)
	}
	return []stagehand.Step{
		stagehand.Confirm{Title: "Delete branch", Body: body, Verb: "Delete"},
	}
}

func (t *DeleteBranch) Execute(ctx context.Context) error {
	return t.Repo.DeleteBranch(ctx, t.Branch, t.Force)
}

func (t *DeleteBranch) Effects() stagehand.Effects { return stagehand.AffectsRefs }

// RenameBranch renames a local branch; the input is prefilled with the
// current name.
type RenameBranch struct {
	Repo   stagehand.Repository
	Branch string

	newName string
}

var _ stagehand.Task = (*RenameBranch)(nil)

func (t *RenameBranch) Name() string { return "rename branch" }

func (t *RenameBranch) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Input{
			Title:    "Rename branch",
			Prompt:   "Name",
			Default:  func() string { return t.Branch },
			Validate: requireText("branch name"),
			Accept:   func(s string) { t.newName = s },
		},
	}
}

func (t *RenameBranch) Execute(ctx context.Context) error {
	return t.Repo.RenameBranch(ctx, t.Branch, t.newName)
}

func (t *RenameBranch) Effects() stagehand.Effects { return stagehand.AffectsRefs }
