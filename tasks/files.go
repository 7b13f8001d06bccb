package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/stagehand"
)

// StageFiles stages whole files, including untracked ones.
type StageFiles struct {
	Repo  stagehand.Repository
	Paths []string
}

var _ stagehand.Task = (*StageFiles)(nil)

func (t *StageFiles) Name() string                      { return "stage files" }
func (t *StageFiles) Steps() []stagehand.Step           { return nil }
func (t *StageFiles) Execute(ctx context.Context) error { return t.Repo.StageFiles(ctx, t.Paths) }
func (t *StageFiles) Effects() stagehand.Effects        { return stagehand.AffectsIndex }

// UnstageFiles removes whole files from the index, leaving the working
// tree untouched.
type UnstageFiles struct {
	Repo  stagehand.Repository
	Paths []string
}

var _ stagehand.Task = (*UnstageFiles)(nil)

func (t *UnstageFiles) Name() string                      { return "unstage files" }
func (t *UnstageFiles) Steps() []stagehand.Step           { return nil }
func (t *UnstageFiles) Execute(ctx context.Context) error { return t.Repo.UnstageFiles(ctx, t.Paths) }
func (t *UnstageFiles) Effects() stagehand.Effects        { return stagehand.AffectsIndex }

// DiscardFiles throws away the working-tree changes of whole files after a
// confirmation. Every file's current diff is deposited in the trash first.
// Untracked files are deleted from disk once their content is backed up;
// tracked files are restored to their index content.
type DiscardFiles struct {
	Repo      stagehand.Repository
	Trash     stagehand.Trash
	Tracked   []string
	Untracked []string
}

var _ stagehand.Task = (*DiscardFiles)(nil)

func (t *DiscardFiles) Name() string { return "discard files" }

func (t *DiscardFiles) Steps() []stagehand.Step {
	n := len(t.Tracked) + len(t.Untracked)
	noun := "files"
	if n == 1 {
		noun = "file"
	}
	return []stagehand.Step{
		stagehand.Confirm{
			Title: "Discard changes",
			Body:  fmt.Sprintf("Really discard changes to %d %s? A copy will be kept in the trash.", n, noun),
			Verb:  "Discard",
		},
	}
}

func (t *DiscardFiles) Execute(ctx context.Context) error {
	for _, path := range t.paths() {
		diff, err := t.Repo.DiffWorkdir(ctx, path)
		if err != nil {
			return err
		}
		if len(diff) == 0 {
			continue
		}
		if _, err := t.Trash.Deposit(filepath.Base(path), diff); err != nil {
			return fmt.Errorf("back up to trash: %w", err)
		}
	}
	if len(t.Tracked) > 0 {
		if err := t.Repo.DiscardFiles(ctx, t.Tracked); err != nil {
			return err
		}
	}
	for _, path := range t.Untracked {
		if err := os.Remove(filepath.Join(t.Repo.Root(), path)); err != nil {
			return err
		}
	}
	return nil
}

func (t *DiscardFiles) Effects() stagehand.Effects { return stagehand.AffectsWorkdir }

func (t *DiscardFiles) paths() []string {
	all := make([]string, 0, len(t.Tracked)+len(t.Untracked))
	all = append(all, t.Tracked...)
	return append(all, t.Untracked...)
}
