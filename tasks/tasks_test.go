package tasks_test

import (
	"context"
	"io"
	"testing"

	"github.com/fwojciec/stagehand"
	"github.com/stretchr/testify/require"
)

// runTask drives task through a synchronous runner and returns its
// completion report. Prompt steps are answered by p; tests whose tasks
// have no prompts pass nil.
func runTask(t *testing.T, task stagehand.Task, p stagehand.Prompter) stagehand.Report {
	t.Helper()
	var report stagehand.Report
	runner := &stagehand.Runner{
		Prompter: p,
		Sync:     true,
		Report:   func(r stagehand.Report) { report = r },
		Logf:     t.Logf,
	}
	require.NoError(t, runner.Submit(context.Background(), task))
	return report
}

// scriptPrompter answers prompts with the configured functions and fails
// the test on any prompt it was not scripted for.
type scriptPrompter struct {
	t       *testing.T
	confirm func(stagehand.ConfirmRequest)
	input   func(stagehand.InputRequest)
	secret  func(stagehand.SecretRequest)
}

func (p *scriptPrompter) Confirm(req stagehand.ConfirmRequest) {
	if p.confirm == nil {
		p.t.Fatalf("unexpected confirm prompt %q", req.Title)
	}
	p.confirm(req)
}

func (p *scriptPrompter) Input(req stagehand.InputRequest) {
	if p.input == nil {
		p.t.Fatalf("unexpected input prompt %q", req.Title)
	}
	p.input(req)
}

func (p *scriptPrompter) Secret(req stagehand.SecretRequest) {
	if p.secret == nil {
		p.t.Fatalf("unexpected secret prompt %q", req.Title)
	}
	p.secret(req)
}

type mockRepository struct {
	RootFn         func() string
	StatusFn       func(ctx context.Context) (*stagehand.Status, error)
	SnapshotFn     func(ctx context.Context) (*stagehand.Snapshot, error)
	DiffWorkdirFn  func(ctx context.Context, path string) ([]byte, error)
	DiffStagedFn   func(ctx context.Context, path string) ([]byte, error)
	ApplyFn        func(ctx context.Context, patch []byte, to stagehand.ApplyLocation, reverse bool) error
	StageFilesFn   func(ctx context.Context, paths []string) error
	UnstageFilesFn func(ctx context.Context, paths []string) error
	DiscardFilesFn func(ctx context.Context, paths []string) error
	CommitFn       func(ctx context.Context, message string, amend bool) error
	HeadMessageFn  func(ctx context.Context) (string, error)
	BranchesFn     func(ctx context.Context) ([]stagehand.Branch, error)
	CreateBranchFn func(ctx context.Context, name, from string) error
	SwitchBranchFn func(ctx context.Context, name string) error
	DeleteBranchFn func(ctx context.Context, name string, force bool) error
	RenameBranchFn func(ctx context.Context, oldName, newName string) error
	StashesFn      func(ctx context.Context) ([]stagehand.StashEntry, error)
	SaveStashFn    func(ctx context.Context, message string, includeUntracked bool) error
	ApplyStashFn   func(ctx context.Context, index int) error
	PopStashFn     func(ctx context.Context, index int) error
	DropStashFn    func(ctx context.Context, index int) error
	RemotesFn      func(ctx context.Context) ([]stagehand.Remote, error)
	FetchFn        func(ctx context.Context, remote string, cred *stagehand.Credential) error
}

func (m *mockRepository) Root() string {
	return m.RootFn()
}

func (m *mockRepository) Status(ctx context.Context) (*stagehand.Status, error) {
	return m.StatusFn(ctx)
}

func (m *mockRepository) Snapshot(ctx context.Context) (*stagehand.Snapshot, error) {
	return m.SnapshotFn(ctx)
}

func (m *mockRepository) DiffWorkdir(ctx context.Context, path string) ([]byte, error) {
	return m.DiffWorkdirFn(ctx, path)
}

func (m *mockRepository) DiffStaged(ctx context.Context, path string) ([]byte, error) {
	return m.DiffStagedFn(ctx, path)
}

func (m *mockRepository) Apply(ctx context.Context, patch []byte, to stagehand.ApplyLocation, reverse bool) error {
	return m.ApplyFn(ctx, patch, to, reverse)
}

func (m *mockRepository) StageFiles(ctx context.Context, paths []string) error {
	return m.StageFilesFn(ctx, paths)
}

func (m *mockRepository) UnstageFiles(ctx context.Context, paths []string) error {
	return m.UnstageFilesFn(ctx, paths)
}

func (m *mockRepository) DiscardFiles(ctx context.Context, paths []string) error {
	return m.DiscardFilesFn(ctx, paths)
}

func (m *mockRepository) Commit(ctx context.Context, message string, amend bool) error {
	return m.CommitFn(ctx, message, amend)
}

func (m *mockRepository) HeadMessage(ctx context.Context) (string, error) {
	return m.HeadMessageFn(ctx)
}

func (m *mockRepository) Branches(ctx context.Context) ([]stagehand.Branch, error) {
	return m.BranchesFn(ctx)
}

func (m *mockRepository) CreateBranch(ctx context.Context, name, from string) error {
	return m.CreateBranchFn(ctx, name, from)
}

func (m *mockRepository) SwitchBranch(ctx context.Context, name string) error {
	return m.SwitchBranchFn(ctx, name)
}

func (m *mockRepository) DeleteBranch(ctx context.Context, name string, force bool) error {
	return m.DeleteBranchFn(ctx, name, force)
}

func (m *mockRepository) RenameBranch(ctx context.Context, oldName, newName string) error {
	return m.RenameBranchFn(ctx, oldName, newName)
}

func (m *mockRepository) Stashes(ctx context.Context) ([]stagehand.StashEntry, error) {
	return m.StashesFn(ctx)
}

func (m *mockRepository) SaveStash(ctx context.Context, message string, includeUntracked bool) error {
	return m.SaveStashFn(ctx, message, includeUntracked)
}

func (m *mockRepository) ApplyStash(ctx context.Context, index int) error {
	return m.ApplyStashFn(ctx, index)
}

func (m *mockRepository) PopStash(ctx context.Context, index int) error {
	return m.PopStashFn(ctx, index)
}

func (m *mockRepository) DropStash(ctx context.Context, index int) error {
	return m.DropStashFn(ctx, index)
}

func (m *mockRepository) Remotes(ctx context.Context) ([]stagehand.Remote, error) {
	return m.RemotesFn(ctx)
}

func (m *mockRepository) Fetch(ctx context.Context, remote string, cred *stagehand.Credential) error {
	return m.FetchFn(ctx, remote, cred)
}

type mockTrash struct {
	DepositFn func(stem string, content []byte) (string, error)
}

func (m *mockTrash) Deposit(stem string, content []byte) (string, error) {
	return m.DepositFn(stem, content)
}

type mockSecretStore struct {
	GetFn    func(service, user string) (string, error)
	SetFn    func(service, user, secret string) error
	DeleteFn func(service, user string) error
}

func (m *mockSecretStore) Get(service, user string) (string, error) {
	return m.GetFn(service, user)
}

func (m *mockSecretStore) Set(service, user, secret string) error {
	return m.SetFn(service, user, secret)
}

func (m *mockSecretStore) Delete(service, user string) error {
	return m.DeleteFn(service, user)
}

type mockSuggester struct {
	SuggestCommitMessageFn func(ctx context.Context, patch string) (string, error)
}

func (m *mockSuggester) SuggestCommitMessage(ctx context.Context, patch string) (string, error) {
	return m.SuggestCommitMessageFn(ctx, patch)
}

type mockParser struct {
	ParseFn func(r io.Reader) ([]*stagehand.Patch, error)
}

func (m *mockParser) Parse(r io.Reader) ([]*stagehand.Patch, error) {
	return m.ParseFn(r)
}
