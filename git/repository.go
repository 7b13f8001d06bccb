// Package git implements stagehand.Repository on top of the git CLI. Every
// operation shells out to git with the repository root pinned via -C, so the
// implementation works against any repository the installed git can read.
package git

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/stagehand"
	"golang.org/x/sync/errgroup"
)

// ErrNotRepository is returned by Open when the directory is not inside a
// git working tree.
var ErrNotRepository = errors.New("not a git repository")

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	fetchTimeout = 5 * time.Minute
)

// conflictStatuses are the porcelain XY codes that mark an unmerged path.
var conflictStatuses = map[string]struct{}{
	"UU": {}, "AA": {}, "DD": {}, "AU": {}, "UA": {}, "DU": {}, "UD": {},
}

var (
	applyErrorPath = regexp.MustCompile(`(?m)^error: (?:patch failed: (.+):\d+|(.+?): (?:patch does not apply|does not match index|already exists in working directory|does not exist in index))`)
	mergeConflict  = regexp.MustCompile(`(?m)^CONFLICT \([^)]+\): Merge conflict in (.+)$`)
)

// runner executes a single git invocation. Tests substitute it to assert
// argv and to feed canned output.
type runner func(ctx context.Context, timeout time.Duration, stdin string, args ...string) (stdout, stderr string, exitCode int, err error)

// Repository is a git CLI backed stagehand.Repository.
type Repository struct {
	root   string
	run    runner
	parser stagehand.Parser
}

var _ stagehand.Repository = (*Repository)(nil)

// Open locates the working tree containing dir. The parser is used by
// Snapshot to turn raw diff output into patches.
func Open(ctx context.Context, dir string, parser stagehand.Parser) (*Repository, error) {
	out, stderr, _, err := runGit(ctx, readTimeout, "", "-C", dir, "rev-parse", "--show-toplevel")
	if err != nil {
		if strings.Contains(stderr, "not a git repository") {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return nil, commandError([]string{"rev-parse"}, stderr, err)
	}
	return newRepository(strings.TrimSpace(out), runGit, parser), nil
}

func newRepository(root string, run runner, parser stagehand.Parser) *Repository {
	if run == nil {
		run = runGit
	}
	return &Repository{root: root, run: run, parser: parser}
}

// Root returns the absolute path of the working tree.
func (r *Repository) Root() string {
	return r.root
}

// git runs one command under the repository root and returns stdout,
// wrapping failures with the first stderr line.
func (r *Repository) git(ctx context.Context, timeout time.Duration, stdin string, args ...string) (string, error) {
	full := append([]string{"-C", r.root}, args...)
	stdout, stderr, _, err := r.run(ctx, timeout, stdin, full...)
	if err != nil {
		return stdout, commandError(args, stderr, err)
	}
	return stdout, nil
}

func (r *Repository) Status(ctx context.Context) (*stagehand.Status, error) {
	out, err := r.git(ctx, readTimeout, "", "status", "--porcelain=v1", "-z", "--branch")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// Snapshot gathers the status and both patch sets concurrently.
func (r *Repository) Snapshot(ctx context.Context) (*stagehand.Snapshot, error) {
	var snap stagehand.Snapshot
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := r.Status(ctx)
		if err != nil {
			return err
		}
		snap.Status = st
		return nil
	})
	g.Go(func() error {
		out, err := r.DiffWorkdir(ctx, "")
		if err != nil {
			return err
		}
		patches, err := r.parser.Parse(bytes.NewReader(out))
		if err != nil {
			return err
		}
		snap.Unstaged = patches
		return nil
	})
	g.Go(func() error {
		out, err := r.DiffStaged(ctx, "")
		if err != nil {
			return err
		}
		patches, err := r.parser.Parse(bytes.NewReader(out))
		if err != nil {
			return err
		}
		snap.Staged = patches
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *Repository) DiffWorkdir(ctx context.Context, path string) ([]byte, error) {
	if path != "" {
		untracked, err := r.isUntracked(ctx, path)
		if err != nil {
			return nil, err
		}
		if untracked {
			return r.untrackedDiff(ctx, path)
		}
		out, err := r.git(ctx, readTimeout, "", "diff", "--no-color", "--no-ext-diff", "--", path)
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	out, err := r.git(ctx, readTimeout, "", "diff", "--no-color", "--no-ext-diff")
	if err != nil {
		return nil, err
	}
	buf := []byte(out)
	paths, err := r.untrackedPaths(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		extra, err := r.untrackedDiff(ctx, p)
		if err != nil {
			return nil, err
		}
		buf = append(buf, extra...)
	}
	return buf, nil
}

func (r *Repository) DiffStaged(ctx context.Context, path string) ([]byte, error) {
	args := []string{"diff", "--cached", "--no-color", "--no-ext-diff"}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := r.git(ctx, readTimeout, "", args...)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func (r *Repository) isUntracked(ctx context.Context, path string) (bool, error) {
	out, err := r.git(ctx, readTimeout, "", "ls-files", "--others", "--exclude-standard", "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (r *Repository) untrackedPaths(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, readTimeout, "", "ls-files", "--others", "--exclude-standard", "-z")
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, p := range strings.Split(out, "\x00") {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// untrackedDiff renders an untracked file as an addition against /dev/null.
// git diff --no-index exits 1 when the files differ, which is the expected
// outcome here.
func (r *Repository) untrackedDiff(ctx context.Context, path string) ([]byte, error) {
	args := []string{"-C", r.root, "diff", "--no-color", "--no-index", "--", "/dev/null", path}
	stdout, stderr, code, err := r.run(ctx, readTimeout, "", args...)
	if err != nil && code != 1 {
		return nil, commandError(args[2:], stderr, err)
	}
	return []byte(stdout), nil
}

func (r *Repository) Apply(ctx context.Context, patch []byte, to stagehand.ApplyLocation, reverse bool) error {
	args := []string{"apply", "--whitespace=nowarn", "--unidiff-zero"}
	if to == stagehand.ApplyToIndex {
		args = append(args, "--cached")
	}
	if reverse {
		args = append(args, "--reverse")
	}
	args = append(args, "-")

	full := append([]string{"-C", r.root}, args...)
	_, stderr, _, err := r.run(ctx, writeTimeout, string(patch), full...)
	if err != nil {
		if paths := applyConflictPaths(stderr); len(paths) > 0 {
			return &stagehand.ConflictError{Op: "apply patch", Paths: paths}
		}
		return commandError(args, stderr, err)
	}
	return nil
}

func (r *Repository) StageFiles(ctx context.Context, paths []string) error {
	args := append([]string{"add", "-A", "--"}, paths...)
	_, err := r.git(ctx, writeTimeout, "", args...)
	return err
}

func (r *Repository) UnstageFiles(ctx context.Context, paths []string) error {
	args := append([]string{"restore", "--staged", "--"}, paths...)
	_, err := r.git(ctx, writeTimeout, "", args...)
	return err
}

func (r *Repository) DiscardFiles(ctx context.Context, paths []string) error {
	args := append([]string{"restore", "--worktree", "--"}, paths...)
	_, err := r.git(ctx, writeTimeout, "", args...)
	return err
}

func (r *Repository) Commit(ctx context.Context, message string, amend bool) error {
	args := []string{"commit", "--file=-", "--cleanup=strip"}
	if amend {
		args = append(args, "--amend")
	}
	_, err := r.git(ctx, writeTimeout, message, args...)
	return err
}

func (r *Repository) HeadMessage(ctx context.Context) (string, error) {
	out, err := r.git(ctx, readTimeout, "", "log", "-1", "--format=%B")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

func (r *Repository) Branches(ctx context.Context) ([]stagehand.Branch, error) {
	out, err := r.git(ctx, readTimeout, "",
		"for-each-ref", "refs/heads/", "--format=%(refname:short)%00%(upstream:short)%00%(HEAD)")
	if err != nil {
		return nil, err
	}
	var branches []stagehand.Branch
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\x00")
		if len(fields) != 3 {
			continue
		}
		branches = append(branches, stagehand.Branch{
			Name:      fields[0],
			Upstream:  fields[1],
			IsCurrent: fields[2] == "*",
		})
	}
	return branches, nil
}

func (r *Repository) CreateBranch(ctx context.Context, name, from string) error {
	args := []string{"branch", name}
	if from != "" {
		args = append(args, from)
	}
	_, err := r.git(ctx, writeTimeout, "", args...)
	return err
}

func (r *Repository) SwitchBranch(ctx context.Context, name string) error {
	_, err := r.git(ctx, writeTimeout, "", "switch", name)
	return err
}

func (r *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.git(ctx, writeTimeout, "", "branch", flag, name)
	return err
}

func (r *Repository) RenameBranch(ctx context.Context, oldName, newName string) error {
	_, err := r.git(ctx, writeTimeout, "", "branch", "-m", oldName, newName)
	return err
}

func (r *Repository) Stashes(ctx context.Context) ([]stagehand.StashEntry, error) {
	out, err := r.git(ctx, readTimeout, "", "stash", "list", "-z", "--format=%gd%x1f%gs")
	if err != nil {
		return nil, err
	}
	var stashes []stagehand.StashEntry
	for _, rec := range strings.Split(out, "\x00") {
		if rec == "" {
			continue
		}
		fields := strings.SplitN(rec, "\x1f", 2)
		if len(fields) != 2 {
			continue
		}
		var index int
		if _, err := fmt.Sscanf(fields[0], "stash@{%d}", &index); err != nil {
			continue
		}
		stashes = append(stashes, stagehand.StashEntry{Index: index, Message: fields[1]})
	}
	return stashes, nil
}

func (r *Repository) SaveStash(ctx context.Context, message string, includeUntracked bool) error {
	args := []string{"stash", "push"}
	if includeUntracked {
		args = append(args, "--include-untracked")
	}
	if message != "" {
		args = append(args, "-m", message)
	}
	_, err := r.git(ctx, writeTimeout, "", args...)
	return err
}

func (r *Repository) ApplyStash(ctx context.Context, index int) error {
	return r.stashOp(ctx, "apply", index)
}

func (r *Repository) PopStash(ctx context.Context, index int) error {
	return r.stashOp(ctx, "pop", index)
}

func (r *Repository) DropStash(ctx context.Context, index int) error {
	_, err := r.git(ctx, writeTimeout, "", "stash", "drop", stashRef(index))
	return err
}

// stashOp runs a stash mutation that can leave unmerged paths behind and
// reports those as a ConflictError.
func (r *Repository) stashOp(ctx context.Context, op string, index int) error {
	args := []string{"-C", r.root, "stash", op, stashRef(index)}
	stdout, stderr, _, err := r.run(ctx, writeTimeout, "", args...)
	if err != nil {
		if paths := mergeConflictPaths(stdout + "\n" + stderr); len(paths) > 0 {
			return &stagehand.ConflictError{Op: op + " stash", Paths: paths}
		}
		return commandError(args[2:], stderr, err)
	}
	return nil
}

func stashRef(index int) string {
	return fmt.Sprintf("stash@{%d}", index)
}

func (r *Repository) Remotes(ctx context.Context) ([]stagehand.Remote, error) {
	out, err := r.git(ctx, readTimeout, "", "remote", "-v")
	if err != nil {
		return nil, err
	}
	var remotes []stagehand.Remote
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] != "(fetch)" || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, stagehand.Remote{Name: fields[0], URL: fields[1]})
	}
	return remotes, nil
}

func (r *Repository) Fetch(ctx context.Context, remote string, cred *stagehand.Credential) error {
	var args []string
	if cred != nil {
		token := base64.StdEncoding.EncodeToString([]byte(cred.Username + ":" + cred.Password))
		args = append(args, "-c", "http.extraHeader=Authorization: Basic "+token)
	}
	args = append(args, "fetch", "--prune", "--", remote)
	_, err := r.git(ctx, fetchTimeout, "", args...)
	return err
}

// runGit executes git with buffered output, returning stdout, stderr and
// the exit code alongside the error.
func runGit(ctx context.Context, timeout time.Duration, stdin string, args ...string) (string, string, int, error) {
	if timeout <= 0 {
		timeout = readTimeout
	}
	childCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(childCtx, "git", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if childCtx.Err() == context.DeadlineExceeded {
			runErr = fmt.Errorf("timed out after %s: %w", timeout, childCtx.Err())
		}
	}
	return stdout.String(), stderr.String(), exitCode, runErr
}

// commandError attaches the git verb and the first stderr line to err.
func commandError(args []string, stderr string, err error) error {
	verb := "git"
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++
			continue
		}
		verb = args[i]
		break
	}
	if msg := firstLine(stderr); msg != "" {
		return fmt.Errorf("git %s: %s: %w", verb, msg, err)
	}
	return fmt.Errorf("git %s: %w", verb, err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "fatal: ")
	s = strings.TrimPrefix(s, "error: ")
	return s
}

func applyConflictPaths(stderr string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range applyErrorPath.FindAllStringSubmatch(stderr, -1) {
		p := m[1]
		if p == "" {
			p = m[2]
		}
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

func mergeConflictPaths(out string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range mergeConflict.FindAllStringSubmatch(out, -1) {
		if p := m[1]; p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// parseStatus decodes porcelain v1 -z --branch output.
func parseStatus(raw string) *stagehand.Status {
	st := &stagehand.Status{}
	records := strings.Split(raw, "\x00")
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if rec == "" {
			continue
		}
		if strings.HasPrefix(rec, "## ") {
			parseBranchHeader(st, strings.TrimRight(rec, "\n"))
			continue
		}
		if len(rec) < 4 {
			continue
		}
		x, y := rec[0], rec[1]
		path := rec[3:]

		var orig string
		if (x == 'R' || x == 'C' || y == 'R' || y == 'C') && i+1 < len(records) {
			i++
			orig = records[i]
		}

		xy := rec[:2]
		if _, ok := conflictStatuses[xy]; ok {
			st.Conflicts = append(st.Conflicts, path)
			continue
		}
		if xy == "??" {
			st.Unstaged = append(st.Unstaged, stagehand.FileChange{Path: path, Code: '?'})
			continue
		}
		if x != ' ' {
			st.Staged = append(st.Staged, stagehand.FileChange{Path: path, OrigPath: orig, Code: x})
		}
		if y != ' ' {
			st.Unstaged = append(st.Unstaged, stagehand.FileChange{Path: path, OrigPath: orig, Code: y})
		}
	}
	return st
}

// parseBranchHeader decodes the "## branch...upstream [ahead N, behind M]"
// line, including the unborn and detached HEAD spellings.
func parseBranchHeader(st *stagehand.Status, line string) {
	t := strings.TrimSpace(strings.TrimPrefix(line, "## "))
	if t == "" {
		return
	}

	branch := t
	meta := ""
	if i := strings.Index(t, " ["); i >= 0 {
		branch = t[:i]
		meta = strings.Trim(t[i+1:], "[]")
	}
	if i := strings.Index(branch, "..."); i >= 0 {
		st.Upstream = branch[i+3:]
		branch = branch[:i]
	}
	if rest, ok := strings.CutPrefix(branch, "No commits yet on "); ok {
		branch = rest
	}
	if branch == "HEAD (no branch)" {
		branch = ""
	}
	st.Branch = branch

	for _, tok := range strings.Split(meta, ",") {
		tok = strings.TrimSpace(tok)
		if v, ok := strings.CutPrefix(tok, "ahead "); ok {
			st.Ahead, _ = strconv.Atoi(v)
		}
		if v, ok := strings.CutPrefix(tok, "behind "); ok {
			st.Behind, _ = strconv.Atoi(v)
		}
	}
}
