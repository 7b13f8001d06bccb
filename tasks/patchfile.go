package tasks

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/stagehand"
)

// ExportPatch writes patch bytes to a file chosen in an input step.
type ExportPatch struct {
	Patch       []byte
	DefaultPath string

	path string
}

var _ stagehand.Task = (*ExportPatch)(nil)

func (t *ExportPatch) Name() string { return "export patch" }

func (t *ExportPatch) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Input{
			Title:    "Export patch",
			Prompt:   "File",
			Default:  func() string { return t.DefaultPath },
			Validate: requireText("file name"),
			Accept:   func(s string) { t.path = s },
		},
	}
}

func (t *ExportPatch) Execute(context.Context) error {
	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(t.path, t.Patch, 0o644)
}

func (t *ExportPatch) Effects() stagehand.Effects { return stagehand.AffectsNothing }

// RevertPatch applies a patch file in reverse to the working tree. The
// file is read and parsed up front so an unreadable or malformed file
// fails before anything is prompted.
type RevertPatch struct {
	Repo   stagehand.Repository
	Parser stagehand.Parser
	Path   string

	raw []byte
}

var _ stagehand.Task = (*RevertPatch)(nil)

func (t *RevertPatch) Name() string { return "revert patch" }

func (t *RevertPatch) Steps() []stagehand.Step {
	return []stagehand.Step{
		stagehand.Do(t.load),
		stagehand.Confirm{
			Title: "Revert patch",
			Body:  fmt.Sprintf("Really apply %s in reverse to the working tree?", filepath.Base(t.Path)),
			Verb:  "Revert",
		},
	}
}

func (t *RevertPatch) load(context.Context) error {
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		return err
	}
	patches, err := t.Parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return err
	}
	if len(patches) == 0 {
		return fmt.Errorf("%s contains no patch", filepath.Base(t.Path))
	}
	t.raw = raw
	return nil
}

func (t *RevertPatch) Execute(ctx context.Context) error {
	return t.Repo.Apply(ctx, t.raw, stagehand.ApplyToWorkdir, true)
}

func (t *RevertPatch) Effects() stagehand.Effects { return stagehand.AffectsWorkdir }
