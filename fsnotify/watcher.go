// Package fsnotify watches a repository for changes made outside the
// program and turns filesystem events into stagehand.Effects hints that
// the UI consumes to refresh.
package fsnotify

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	fsnotifylib "github.com/fsnotify/fsnotify"

	"github.com/fwojciec/stagehand"
)

// debounceWindow coalesces event bursts into one hint. Git writes refs
// and the index via lock files plus renames, so a single operation
// produces several events.
const debounceWindow = 500 * time.Millisecond

// Watcher emits refresh hints for one repository.
type Watcher struct {
	root   string
	gitDir string
	fsw    *fsnotifylib.Watcher
	hints  chan stagehand.Effects
	logf   func(format string, args ...any)
	window time.Duration

	mu      sync.Mutex
	pending stagehand.Effects
	timer   *time.Timer
	closed  bool

	done chan struct{}
}

// Watch starts watching the working tree and the git directory of the
// repository rooted at root. logf may be nil.
func Watch(root string, logf func(format string, args ...any)) (*Watcher, error) {
	gitDir, err := resolveGitDir(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotifylib.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logf == nil {
		logf = log.Printf
	}
	w := &Watcher{
		root:   filepath.Clean(root),
		gitDir: gitDir,
		fsw:    fsw,
		hints:  make(chan stagehand.Effects, 1),
		logf:   logf,
		window: debounceWindow,
		done:   make(chan struct{}),
	}
	w.addTree(w.root)
	for _, p := range gitWatchPaths(gitDir) {
		w.add(p)
	}
	go w.loop()
	return w, nil
}

// Hints returns the channel refresh hints are delivered on. It is never
// closed; receivers stop reading after Close.
func (w *Watcher) Hints() <-chan stagehand.Effects {
	return w.hints
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logf("stagehand: watcher error: %v", err)
		}
	}
}

func (w *Watcher) handle(event fsnotifylib.Event) {
	// A bare chmod changes no content.
	if event.Op == fsnotifylib.Chmod {
		return
	}

	// New directories (a fresh refs/heads/feature, a new source tree
	// directory) need their own watch to not lose later events.
	if event.Has(fsnotifylib.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.add(event.Name)
		}
	}

	effects := w.classify(event.Name)
	if effects == stagehand.AffectsNothing {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending |= effects
	w.rearm()
}

// flush delivers the accumulated hint. When the consumer has not drained
// the previous hint yet, the bits are folded back into the pending set
// and delivery retried after another window.
func (w *Watcher) flush() {
	w.mu.Lock()
	effects := w.pending
	w.pending = stagehand.AffectsNothing
	closed := w.closed
	w.mu.Unlock()
	if effects == stagehand.AffectsNothing || closed {
		return
	}

	select {
	case w.hints <- effects:
	default:
		w.mu.Lock()
		w.pending |= effects
		if !w.closed {
			w.rearm()
		}
		w.mu.Unlock()
	}
}

// rearm schedules or postpones the flush. Callers hold w.mu.
func (w *Watcher) rearm() {
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, w.flush)
		return
	}
	w.timer.Reset(w.window)
}

// classify maps an event path to the state categories it invalidates.
// Paths inside the git directory that match nothing known here are noise
// (object packs, reflogs, editor state) and map to nothing.
func (w *Watcher) classify(path string) stagehand.Effects {
	path = normalizeEventPath(path)
	sep := string(os.PathSeparator)

	if path != w.gitDir && !strings.HasPrefix(path, w.gitDir+sep) {
		return stagehand.AffectsWorkdir
	}
	rel, err := filepath.Rel(w.gitDir, path)
	if err != nil {
		return stagehand.AffectsNothing
	}

	switch {
	case rel == "HEAD", rel == "ORIG_HEAD", rel == "MERGE_HEAD":
		return stagehand.AffectsRefs
	case rel == "index":
		return stagehand.AffectsIndex
	case rel == "FETCH_HEAD", strings.HasPrefix(rel, filepath.Join("refs", "remotes")+sep):
		return stagehand.AffectsRemotes
	case rel == "refs", strings.HasPrefix(rel, "refs"+sep):
		return stagehand.AffectsRefs
	case rel == "packed-refs":
		return stagehand.AffectsRefs | stagehand.AffectsRemotes
	}
	return stagehand.AffectsNothing
}

// addTree watches every directory of the working tree except the git
// directory itself.
func (w *Watcher) addTree(root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || !d.IsDir() {
			return nil
		}
		if filepath.Clean(path) == w.gitDir || d.Name() == ".git" {
			return filepath.SkipDir
		}
		w.add(path)
		return nil
	})
	if err != nil {
		w.logf("stagehand: watch %s: %v", root, err)
	}
}

func (w *Watcher) add(path string) {
	if err := w.fsw.Add(path); err != nil {
		w.logf("stagehand: could not watch %s: %v", path, err)
	}
}

// gitWatchPaths lists the git-directory paths worth watching: the top
// level (HEAD, index, FETCH_HEAD) and the refs hierarchies.
func gitWatchPaths(gitDir string) []string {
	paths := []string{gitDir}
	for _, candidate := range []string{
		filepath.Join(gitDir, "refs", "heads"),
		filepath.Join(gitDir, "refs", "remotes"),
	} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		paths = append(paths, candidate)
		entries, _ := os.ReadDir(candidate)
		for _, entry := range entries {
			if entry.IsDir() {
				paths = append(paths, filepath.Join(candidate, entry.Name()))
			}
		}
	}
	return paths
}

// resolveGitDir locates the git directory, following the indirection
// file used by worktrees and submodules.
func resolveGitDir(root string) (string, error) {
	gitPath := filepath.Join(root, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return "", fmt.Errorf("locate git directory: %w", err)
	}
	if info.IsDir() {
		return filepath.Clean(gitPath), nil
	}

	data, err := os.ReadFile(gitPath)
	if err != nil {
		return "", fmt.Errorf("read .git file: %w", err)
	}
	content := strings.TrimSpace(string(data))
	dir, ok := strings.CutPrefix(content, "gitdir:")
	if !ok {
		return "", fmt.Errorf("unexpected .git file format in %s", root)
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("empty gitdir in %s", gitPath)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return filepath.Clean(dir), nil
}

// normalizeEventPath folds lock-file events onto the file they guard.
func normalizeEventPath(path string) string {
	clean := filepath.Clean(path)
	if strings.HasSuffix(clean, ".lock") {
		return strings.TrimSuffix(clean, ".lock")
	}
	return clean
}
