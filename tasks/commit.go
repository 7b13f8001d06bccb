package tasks

import (
	"bytes"
	"context"

	"github.com/fwojciec/stagehand"
)

// Commit records the staged changes. The message comes from an input step;
// amending prefills it with the head commit's message, and a configured
// suggester prefills new commits from the staged diff.
type Commit struct {
	Repo      stagehand.Repository
	Suggester stagehand.MessageSuggester // optional
	Amend     bool

	prefill string
	message string
}

var _ stagehand.Task = (*Commit)(nil)

func (t *Commit) Name() string {
	if t.Amend {
		return "amend commit"
	}
	return "commit"
}

func (t *Commit) Steps() []stagehand.Step {
	title := "Commit"
	if t.Amend {
		title = "Amend commit"
	}
	return []stagehand.Step{
		stagehand.Do(t.prepare),
		stagehand.Input{
			Title:    title,
			Prompt:   "Message",
			Default:  func() string { return t.prefill },
			Validate: requireText("commit message"),
			Accept:   func(s string) { t.message = s },
		},
	}
}

// prepare fills the message default. A failed suggestion only loses the
// prefill; it never blocks the commit.
func (t *Commit) prepare(ctx context.Context) error {
	if t.Amend {
		msg, err := t.Repo.HeadMessage(ctx)
		if err != nil {
			return err
		}
		t.prefill = msg
		return nil
	}
	if t.Suggester == nil {
		return nil
	}
	diff, err := t.Repo.DiffStaged(ctx, "")
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(diff)) == 0 {
		return nil
	}
	if msg, err := t.Suggester.SuggestCommitMessage(ctx, string(diff)); err == nil {
		t.prefill = msg
	}
	return nil
}

func (t *Commit) Execute(ctx context.Context) error {
	return t.Repo.Commit(ctx, t.message, t.Amend)
}

func (t *Commit) Effects() stagehand.Effects {
	return stagehand.AffectsIndex | stagehand.AffectsRefs
}
