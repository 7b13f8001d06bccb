// Package main is the entry point for the stagehand staging UI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/stagehand"
	"github.com/fwojciec/stagehand/bubbletea"
	"github.com/fwojciec/stagehand/chroma"
	"github.com/fwojciec/stagehand/fs"
	"github.com/fwojciec/stagehand/fsnotify"
	"github.com/fwojciec/stagehand/genai"
	"github.com/fwojciec/stagehand/git"
	"github.com/fwojciec/stagehand/gitdiff"
	"github.com/fwojciec/stagehand/keyring"
	"github.com/fwojciec/stagehand/lipgloss"
	"github.com/fwojciec/stagehand/trash"
	"github.com/fwojciec/stagehand/udiff"
)

// version is set via ldflags during release builds.
var version = "dev"

// App assembles one interactive session. Tests inject the dependencies
// they exercise; Run fills the rest with defaults where one exists.
type App struct {
	// Dir is the directory to locate the repository from. Empty means the
	// current working directory.
	Dir string

	// Repo, when nil, is opened from Dir with the git CLI.
	Repo stagehand.Repository

	// Runner, when nil, is replaced with a fresh runner. The caller wires
	// the program's Send into its Prompter and Report after Run returns.
	Runner *stagehand.Runner

	Trash      stagehand.Trash
	Secrets    stagehand.SecretStore
	Suggester  stagehand.MessageSuggester
	Tokenizer  stagehand.Tokenizer
	Detector   stagehand.LanguageDetector
	WordDiffer stagehand.WordDiffer
	Hints      <-chan stagehand.Effects
}

// Run opens the repository, loads the snapshot the session starts from,
// and builds the session model around it.
func (a *App) Run(ctx context.Context) (bubbletea.Model, error) {
	if a.Runner == nil {
		a.Runner = &stagehand.Runner{}
	}
	if a.Repo == nil {
		dir := a.Dir
		if dir == "" {
			dir = "."
		}
		repo, err := git.Open(ctx, dir, gitdiff.NewParser())
		if err != nil {
			return bubbletea.Model{}, err
		}
		a.Repo = repo
	}

	snap, err := a.Repo.Snapshot(ctx)
	if err != nil {
		return bubbletea.Model{}, fmt.Errorf("load repository state: %w", err)
	}

	opts := []bubbletea.Option{
		bubbletea.WithContext(ctx),
		bubbletea.WithRepository(a.Repo),
		bubbletea.WithRunner(a.Runner),
	}
	if a.Trash != nil {
		opts = append(opts, bubbletea.WithTrash(a.Trash))
	}
	if a.Secrets != nil {
		opts = append(opts, bubbletea.WithSecrets(a.Secrets))
	}
	if a.Suggester != nil {
		opts = append(opts, bubbletea.WithSuggester(a.Suggester))
	}
	if a.Tokenizer != nil && a.Detector != nil {
		opts = append(opts,
			bubbletea.WithTokenizer(a.Tokenizer),
			bubbletea.WithLanguageDetector(a.Detector))
	}
	if a.WordDiffer != nil {
		opts = append(opts, bubbletea.WithWordDiffer(a.WordDiffer))
	}
	if a.Hints != nil {
		opts = append(opts, bubbletea.WithHints(a.Hints))
	}
	return bubbletea.NewModel(snap, opts...), nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		dir         string
		logPath     string
		trashDir    string
		noSuggest   bool
		syncTasks   bool
		showVersion bool
	)
	flag.StringVar(&dir, "C", "", "Run as if started in this directory")
	flag.StringVar(&logPath, "log", "", "Write a debug log to this file")
	flag.StringVar(&trashDir, "trash-dir", "", "Directory for discard backups")
	flag.BoolVar(&noSuggest, "no-suggest", false, "Disable commit message suggestions")
	flag.BoolVar(&syncTasks, "sync", false, "Run tasks synchronously (debugging aid)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "stagehand - interactive git staging\n\n")
		fmt.Fprintf(os.Stderr, "Usage: stagehand [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("stagehand %s\n", version)
		return 0
	}

	if logPath != "" {
		f, err := tea.LogToFile(logPath, "stagehand")
		if err != nil {
			fmt.Fprintf(os.Stderr, "stagehand: open log file: %v\n", err)
			return 1
		}
		defer f.Close()
	}

	ctx := context.Background()

	repo, err := git.Open(ctx, orDot(dir), gitdiff.NewParser())
	if err != nil {
		if errors.Is(err, git.ErrNotRepository) {
			fmt.Fprintln(os.Stderr, "stagehand: not a git repository (run inside a working tree)")
			return 1
		}
		fmt.Fprintf(os.Stderr, "stagehand: %v\n", err)
		return 1
	}

	if trashDir == "" {
		trashDir = filepath.Join(fs.DefaultDataDir(), "trash")
	}
	bin, err := trash.NewBin(trashDir, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: %v\n", err)
		return 1
	}

	app := &App{
		Repo:       repo,
		Runner:     &stagehand.Runner{Sync: syncTasks},
		Trash:      bin,
		Secrets:    keyring.NewStore(),
		WordDiffer: udiff.NewDiffer(),
	}

	theme := lipgloss.DefaultTheme()
	tokenizer, err := chroma.NewTokenizer(chroma.StyleFromPalette(theme.Palette()))
	if err == nil {
		app.Tokenizer = tokenizer
		app.Detector = chroma.NewLanguageDetector()
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" && !noSuggest {
		suggester, err := genai.NewSuggester(ctx, key, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "stagehand: commit suggestions disabled: %v\n", err)
		} else {
			app.Suggester = suggester
		}
	}

	// External changes (editor saves, git run from a shell) arrive as
	// refresh hints. The UI still works without the watcher; r reloads.
	watcher, err := fsnotify.Watch(repo.Root(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: file watching disabled: %v\n", err)
	} else {
		defer watcher.Close()
		app.Hints = watcher.Hints()
	}

	model, err := app.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: %v\n", err)
		return 1
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	prompter := &bubbletea.Prompter{Send: p.Send}
	app.Runner.Prompter = prompter
	app.Runner.Report = prompter.Report

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: %v\n", err)
		return 1
	}

	// Let an in-flight task finish before the process goes away.
	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Runner.Close(closeCtx); err != nil {
		fmt.Fprintf(os.Stderr, "stagehand: shutdown: %v\n", err)
		return 1
	}
	return 0
}

func orDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
