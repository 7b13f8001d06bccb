package tasks

import (
	"context"
	"fmt"

	"github.com/fwojciec/stagehand"
)

// NewStash saves the current changes to a new stash entry. The message is
// optional; git falls back to its own label when it is empty.
type NewStash struct {
	Repo             stagehand.Repository
	IncludeUntracked bool

	message string
}

var _ stagehand.Task = (*NewStash)(nil)

func (t *NewStash) Name() string { return "stash changes" }

func (t *NewStash) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Input{
			Title:  "Stash changes",
			Prompt: "Message (optional)",
			Accept: func(s string) { t.message = s },
		},
	}
}

func (t *NewStash) Execute(ctx context.Context) error {
	return t.Repo.SaveStash(ctx, t.message, t.IncludeUntracked)
}

func (t *NewStash) Effects() stagehand.Effects {
	return stagehand.AffectsWorkdir | stagehand.AffectsIndex | stagehand.AffectsRefs
}

// ApplyStash restores a stash entry into the working tree, keeping the
// entry.
type ApplyStash struct {
	Repo  stagehand.Repository
	Entry stagehand.StashEntry
}

var _ stagehand.Task = (*ApplyStash)(nil)

func (t *ApplyStash) Name() string { return "apply stash" }

func (t *ApplyStash) Steps() []stagehand.Step { return nil }

func (t *ApplyStash) Execute(ctx context.Context) error {
	return t.Repo.ApplyStash(ctx, t.Entry.Index)
}

func (t *ApplyStash) Effects() stagehand.Effects { return stagehand.AffectsWorkdir }

// PopStash restores a stash entry and drops it on success.
type PopStash struct {
	Repo  stagehand.Repository
	Entry stagehand.StashEntry
}

var _ stagehand.Task = (*PopStash)(nil)

func (t *PopStash) Name() string { return "pop stash" }

func (t *PopStash) Steps() []stagehand.Step { return nil }

func (t *PopStash) Execute(ctx context.Context) error {
	return t.Repo.PopStash(ctx, t.Entry.Index)
}

func (t *PopStash) Effects() stagehand.Effects {
	return stagehand.AffectsWorkdir | stagehand.AffectsRefs
}

// DropStash deletes a stash entry after confirmation.
type DropStash struct {
	Repo  stagehand.Repository
	Entry stagehand.StashEntry
}

var _ stagehand.Task = (*DropStash)(nil)

func (t *DropStash) Name() string { return "drop stash" }

func (t *DropStash) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Confirm{
			Title: "Drop stash",
			Body:  fmt.Sprintf("Really drop stash@{%d} (%s)? This cannot be undone.", t.Entry.Index, t.Entry.Message),
			Verb:  "Drop",
		},
	}
}

func (t *DropStash) Execute(ctx context.Context) error {
	return t.Repo.DropStash(ctx, t.Entry.Index)
}

func (t *DropStash) Effects() stagehand.Effects { return stagehand.AffectsRefs }
