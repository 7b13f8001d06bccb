package bubbletea_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/fwojciec/stagehand"
)

// trueColorRenderer creates a lipgloss renderer that outputs true colors.
// This is useful for testing color output without affecting global state.
func trueColorRenderer() *lipgloss.Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.TrueColor)
	return r
}

// extractLastLine returns the last non-empty line from the output.
func extractLastLine(s string) string {
	lines := bytes.Split([]byte(s), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) > 0 {
			return string(lines[i])
		}
	}
	return ""
}

// unstagedSnapshot wraps patches in a snapshot with one modified unstaged
// status entry per patch.
func unstagedSnapshot(patches ...*stagehand.Patch) *stagehand.Snapshot {
	status := &stagehand.Status{Branch: "main"}
	snap := &stagehand.Snapshot{Status: status}
	for _, p := range patches {
		code := byte('M')
		switch p.Operation {
		case stagehand.FileAdded:
			code = 'A'
		case stagehand.FileDeleted:
			code = 'D'
		}
		status.Unstaged = append(status.Unstaged, stagehand.FileChange{Path: p.Path(), Code: code})
		snap.Unstaged = append(snap.Unstaged, p)
	}
	return snap
}

// mockTokenizer implements stagehand.Tokenizer for testing.
type mockTokenizer struct {
	TokenizeLinesFn func(language, source string) [][]stagehand.Token
}

func (m *mockTokenizer) TokenizeLines(language, source string) [][]stagehand.Token {
	return m.TokenizeLinesFn(language, source)
}

// mockLanguageDetector implements stagehand.LanguageDetector for testing.
type mockLanguageDetector struct {
	DetectFromPathFn func(path string) string
}

func (m *mockLanguageDetector) DetectFromPath(path string) string {
	return m.DetectFromPathFn(path)
}

// mockWordDiffer implements stagehand.WordDiffer for testing.
type mockWordDiffer struct {
	DiffFn func(old, new string) (oldSegs, newSegs []stagehand.Segment)
}

func (m *mockWordDiffer) Diff(old, new string) (oldSegs, newSegs []stagehand.Segment) {
	return m.DiffFn(old, new)
}

// fakeRepo is a scripted Repository. Reads serve the configured snapshot;
// mutations are recorded as call strings for assertions.
type fakeRepo struct {
	mu      sync.Mutex
	snap    *stagehand.Snapshot
	remotes []stagehand.Remote
	calls   []string
	applied [][]byte
}

var _ stagehand.Repository = (*fakeRepo)(nil)

func (r *fakeRepo) record(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *fakeRepo) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRepo) Applied() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.applied...)
}

func (r *fakeRepo) Root() string { return "/fake/repo" }

func (r *fakeRepo) Status(context.Context) (*stagehand.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Status, nil
}

func (r *fakeRepo) Snapshot(context.Context) (*stagehand.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "snapshot")
	return r.snap, nil
}

func (r *fakeRepo) DiffWorkdir(_ context.Context, path string) ([]byte, error) {
	return []byte("--- a/" + path + "\n"), nil
}

func (r *fakeRepo) DiffStaged(_ context.Context, path string) ([]byte, error) {
	return []byte("--- a/" + path + "\n"), nil
}

func (r *fakeRepo) Apply(_ context.Context, patch []byte, to stagehand.ApplyLocation, reverse bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, append([]byte(nil), patch...))
	r.calls = append(r.calls, fmt.Sprintf("apply %s reverse=%t", to, reverse))
	return nil
}

func (r *fakeRepo) StageFiles(_ context.Context, paths []string) error {
	r.record("stage %s", strings.Join(paths, ","))
	return nil
}

func (r *fakeRepo) UnstageFiles(_ context.Context, paths []string) error {
	r.record("unstage %s", strings.Join(paths, ","))
	return nil
}

func (r *fakeRepo) DiscardFiles(_ context.Context, paths []string) error {
	r.record("discard %s", strings.Join(paths, ","))
	return nil
}

func (r *fakeRepo) Commit(_ context.Context, message string, amend bool) error {
	r.record("commit %q amend=%t", message, amend)
	return nil
}

func (r *fakeRepo) HeadMessage(context.Context) (string, error) {
	return "previous subject", nil
}

func (r *fakeRepo) Branches(context.Context) ([]stagehand.Branch, error) { return nil, nil }

func (r *fakeRepo) CreateBranch(_ context.Context, name, from string) error {
	r.record("create-branch %s from=%s", name, from)
	return nil
}

func (r *fakeRepo) SwitchBranch(_ context.Context, name string) error {
	r.record("switch-branch %s", name)
	return nil
}

func (r *fakeRepo) DeleteBranch(_ context.Context, name string, force bool) error {
	r.record("delete-branch %s force=%t", name, force)
	return nil
}

func (r *fakeRepo) RenameBranch(_ context.Context, oldName, newName string) error {
	r.record("rename-branch %s to=%s", oldName, newName)
	return nil
}

func (r *fakeRepo) Stashes(context.Context) ([]stagehand.StashEntry, error) { return nil, nil }

func (r *fakeRepo) SaveStash(_ context.Context, message string, includeUntracked bool) error {
	r.record("stash %q untracked=%t", message, includeUntracked)
	return nil
}

func (r *fakeRepo) ApplyStash(_ context.Context, index int) error {
	r.record("apply-stash %d", index)
	return nil
}

func (r *fakeRepo) PopStash(_ context.Context, index int) error {
	r.record("pop-stash %d", index)
	return nil
}

func (r *fakeRepo) DropStash(_ context.Context, index int) error {
	r.record("drop-stash %d", index)
	return nil
}

func (r *fakeRepo) Remotes(context.Context) ([]stagehand.Remote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remotes, nil
}

func (r *fakeRepo) Fetch(_ context.Context, remote string, cred *stagehand.Credential) error {
	user := ""
	if cred != nil {
		user = cred.Username
	}
	r.record("fetch %s user=%s", remote, user)
	return nil
}

// fakeTrash records deposits without touching the filesystem.
type fakeTrash struct {
	mu    sync.Mutex
	stems []string
}

var _ stagehand.Trash = (*fakeTrash)(nil)

func (t *fakeTrash) Deposit(stem string, content []byte) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stems = append(t.stems, stem)
	return "/trash/" + stem, nil
}

func (t *fakeTrash) Stems() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.stems...)
}

// fakeSecrets is an in-memory SecretStore.
type fakeSecrets struct {
	mu    sync.Mutex
	store map[string]string
}

var _ stagehand.SecretStore = (*fakeSecrets)(nil)

func (s *fakeSecrets) Get(service, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	secret, ok := s.store[service+"/"+user]
	if !ok {
		return "", stagehand.ErrSecretNotFound
	}
	return secret, nil
}

func (s *fakeSecrets) Set(service, user, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string]string)
	}
	s.store[service+"/"+user] = secret
	return nil
}

func (s *fakeSecrets) Delete(service, user string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, service+"/"+user)
	return nil
}

func (s *fakeSecrets) Stored(service, user string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store[service+"/"+user]
}
