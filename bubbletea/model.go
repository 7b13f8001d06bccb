// Package bubbletea implements the interactive staging UI.
package bubbletea

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	lipglosslib "github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/stagehand"
	"github.com/fwojciec/stagehand/lipgloss"
	"github.com/fwojciec/stagehand/tasks"
)

// filePaneWidth is the fixed width of the file list column.
const filePaneWidth = 30

// paneFocus selects which pane receives navigation keys.
type paneFocus int

const (
	focusFiles paneFocus = iota
	focusDiff
)

// fileArea says which patch set a file entry belongs to.
type fileArea int

const (
	areaUnstaged fileArea = iota
	areaStaged
)

// fileEntry is one selectable row of the file pane.
type fileEntry struct {
	area   fileArea
	change stagehand.FileChange
	patch  *stagehand.Patch // nil when the file has no textual diff
}

// Messages delivered into the event loop.
type (
	snapshotMsg struct {
		snap *stagehand.Snapshot
		err  error
	}
	remotesMsg struct{ remotes []stagehand.Remote }
	reportMsg  struct{ report stagehand.Report }
	hintMsg    struct{ effects stagehand.Effects }
	noticeMsg  struct{ text string }
	confirmMsg struct{ req stagehand.ConfirmRequest }
	inputMsg   struct{ req stagehand.InputRequest }
	secretMsg  struct{ req stagehand.SecretRequest }
)

// Model is the terminal UI: a file pane with the unstaged and staged
// change sets, a diff pane with a line cursor and visual selection, and a
// status bar. Staging keys build tasks and hand them to the runner; prompt
// requests surface as modal overlays.
type Model struct {
	ctx        context.Context
	repo       stagehand.Repository
	runner     *stagehand.Runner
	trash      stagehand.Trash
	secrets    stagehand.SecretStore
	suggester  stagehand.MessageSuggester
	tokenizer  stagehand.Tokenizer
	detector   stagehand.LanguageDetector
	wordDiffer stagehand.WordDiffer
	hints      <-chan stagehand.Effects

	theme    lipgloss.Theme
	renderer *lipglosslib.Renderer
	styles   styles

	snap    *stagehand.Snapshot
	loadErr error
	remotes []stagehand.Remote

	entries []fileEntry
	fileIdx int

	doc      *stagehand.Document
	docArea  fileArea
	tokens   map[int][]stagehand.Token
	segments map[int][]stagehand.Segment
	gutterW  int
	cursor   int
	anchor   int // selection anchor record, -1 when inactive

	focus    paneFocus
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	overlay *overlay
	notice  string
}

// Option configures the model.
type Option func(*Model)

// WithTheme sets the color scheme.
func WithTheme(theme lipgloss.Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithRenderer sets the lipgloss renderer styles are derived from. Tests
// use this to force a color profile without touching global state.
func WithRenderer(r *lipglosslib.Renderer) Option {
	return func(m *Model) { m.renderer = r }
}

// WithTokenizer enables syntax highlighting of diff content.
func WithTokenizer(t stagehand.Tokenizer) Option {
	return func(m *Model) { m.tokenizer = t }
}

// WithLanguageDetector sets the path-based language guess for highlighting.
func WithLanguageDetector(d stagehand.LanguageDetector) Option {
	return func(m *Model) { m.detector = d }
}

// WithWordDiffer enables intraline highlighting on replace pairs.
func WithWordDiffer(d stagehand.WordDiffer) Option {
	return func(m *Model) { m.wordDiffer = d }
}

// WithRepository connects the UI to a repository for refreshes.
func WithRepository(repo stagehand.Repository) Option {
	return func(m *Model) { m.repo = repo }
}

// WithRunner connects the staging keys to a task runner.
func WithRunner(r *stagehand.Runner) Option {
	return func(m *Model) { m.runner = r }
}

// WithTrash routes destructive operations through a recovery area.
func WithTrash(t stagehand.Trash) Option {
	return func(m *Model) { m.trash = t }
}

// WithSecrets supplies stored credentials for authenticated fetches.
func WithSecrets(s stagehand.SecretStore) Option {
	return func(m *Model) { m.secrets = s }
}

// WithSuggester enables commit message prefill.
func WithSuggester(s stagehand.MessageSuggester) Option {
	return func(m *Model) { m.suggester = s }
}

// WithHints subscribes the UI to filesystem refresh hints.
func WithHints(ch <-chan stagehand.Effects) Option {
	return func(m *Model) { m.hints = ch }
}

// WithContext sets the context handed to submitted tasks and repository
// reads. Defaults to context.Background.
func WithContext(ctx context.Context) Option {
	return func(m *Model) { m.ctx = ctx }
}

// NewModel builds the UI over an initial snapshot, which may be nil when a
// repository is connected; the first refresh then fills it in.
func NewModel(snap *stagehand.Snapshot, opts ...Option) Model {
	m := Model{
		ctx:      context.Background(),
		theme:    lipgloss.DefaultTheme(),
		renderer: lipglosslib.DefaultRenderer(),
		viewport: viewport.New(0, 0),
		anchor:   -1,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.styles = newStyles(m.renderer, m.theme)
	m.setSnapshot(snap)
	return m
}

// FilePositions returns the entry index of every file in pane order.
func (m Model) FilePositions() []int {
	positions := make([]int, len(m.entries))
	for i := range m.entries {
		positions[i] = i
	}
	return positions
}

// HunkPositions returns the record index of every hunk header in the
// current document.
func (m Model) HunkPositions() []int {
	if m.doc == nil {
		return nil
	}
	var positions []int
	for i, rec := range m.doc.Records {
		if rec.IsHunkHeader() {
			positions = append(positions, i)
		}
	}
	return positions
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.repo != nil {
		cmds = append(cmds, m.loadSnapshot(), m.loadRemotes())
	}
	if m.hints != nil {
		cmds = append(cmds, waitForHint(m.hints))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = max(0, msg.Width-filePaneWidth)
		m.viewport.Height = max(0, msg.Height-1)
		m.ready = true
		m.refreshContent()
		return m, nil

	case snapshotMsg:
		m.loadErr = msg.err
		if msg.err == nil {
			m.setSnapshot(msg.snap)
		}
		m.refreshContent()
		return m, nil

	case remotesMsg:
		m.remotes = msg.remotes
		return m, nil

	case reportMsg:
		m.notice = noticeFor(msg.report)
		if m.runner != nil && m.repo != nil {
			if effects := m.runner.ConsumeEffects(); effects != stagehand.AffectsNothing {
				return m, m.loadSnapshot()
			}
		}
		return m, nil

	case hintMsg:
		cmds := []tea.Cmd{waitForHint(m.hints)}
		if m.repo != nil && (m.runner == nil || !m.runner.Busy()) {
			cmds = append(cmds, m.loadSnapshot())
		}
		return m, tea.Batch(cmds...)

	case noticeMsg:
		m.notice = msg.text
		return m, nil

	case confirmMsg:
		m.overlay = newConfirmOverlay(msg.req)
		return m, nil

	case inputMsg:
		ov, cmd := newInputOverlay(msg.req)
		m.overlay = ov
		return m, cmd

	case secretMsg:
		ov, cmd := newSecretOverlay(msg.req)
		m.overlay = ov
		return m, cmd

	case tea.KeyMsg:
		if m.overlay != nil {
			return m.updateOverlay(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	switch msg.String() {
	case "q", "ctrl+c":
		if m.runner != nil && m.runner.Busy() {
			m.notice = "a task is still running"
			return m, nil
		}
		return m, tea.Quit

	case "tab":
		if m.focus == focusFiles {
			m.focus = focusDiff
		} else {
			m.focus = focusFiles
		}
		m.refreshContent()

	case "esc":
		if m.anchor >= 0 {
			m.anchor = -1
		} else {
			m.focus = focusFiles
		}
		m.refreshContent()

	case "r":
		if m.repo != nil {
			return m, m.loadSnapshot()
		}

	case "j", "down":
		if m.focus == focusFiles {
			m.moveFile(1)
		} else {
			m.moveCursor(1)
		}

	case "k", "up":
		if m.focus == focusFiles {
			m.moveFile(-1)
		} else {
			m.moveCursor(-1)
		}

	case "]":
		m.moveFile(1)

	case "[":
		m.moveFile(-1)

	case "n":
		m.jumpHunk(1)

	case "N":
		m.jumpHunk(-1)

	case "g":
		m.setCursor(0)
		m.viewport.GotoTop()
		m.refreshContent()

	case "G":
		if m.doc != nil {
			m.setCursor(len(m.doc.Records) - 1)
		}
		m.viewport.GotoBottom()
		m.refreshContent()

	case "ctrl+d":
		m.viewport.HalfViewDown()
		m.clampCursorToView()
		m.refreshContent()

	case "ctrl+u":
		m.viewport.HalfViewUp()
		m.clampCursorToView()
		m.refreshContent()

	case "v":
		if m.focus == focusDiff && m.doc != nil {
			if m.anchor >= 0 {
				m.anchor = -1
			} else {
				m.anchor = m.cursor
			}
			m.refreshContent()
		}

	case " ":
		m.selectClump()

	case "s":
		return m.stageSelected()

	case "u":
		return m.unstageSelected()

	case "d":
		return m.discardSelected()

	case "c":
		return m, m.submit(&tasks.Commit{Repo: m.repo, Suggester: m.suggester})

	case "C":
		return m, m.submit(&tasks.Commit{Repo: m.repo, Suggester: m.suggester, Amend: true})

	case "b":
		from := ""
		if m.snap != nil && m.snap.Status != nil {
			from = m.snap.Status.Branch
		}
		return m, m.submit(&tasks.NewBranch{Repo: m.repo, From: from, SwitchAfter: true})

	case "z":
		return m, m.submit(&tasks.NewStash{Repo: m.repo, IncludeUntracked: true})

	case "F":
		return m.fetch(false)

	case "ctrl+f":
		return m.fetch(true)

	case "e":
		if m.doc != nil {
			name := filepath.Base(m.doc.Patch.Path()) + ".patch"
			return m, m.submit(&tasks.ExportPatch{
				Patch:       stagehand.Format(m.doc.Patch),
				DefaultPath: name,
			})
		}
	}
	return m, nil
}

// selectClump snaps the visual selection to the clump under the cursor: a
// run of same-origin change lines, or the whole hunk from its header row.
func (m *Model) selectClump() {
	if m.focus != focusDiff || m.doc == nil || len(m.doc.Records) == 0 {
		return
	}
	start, end, ok := m.doc.ClumpExtent(m.cursor)
	if !ok {
		m.notice = "no change under cursor"
		return
	}
	m.anchor = start
	m.cursor = end
	m.ensureCursorVisible()
	m.refreshContent()
}

func (m Model) stageSelected() (tea.Model, tea.Cmd) {
	entry := m.selectedEntry()
	if entry == nil {
		return m, nil
	}
	if entry.area == areaStaged {
		m.notice = "already staged"
		return m, nil
	}
	if m.focus == focusFiles {
		return m, m.submit(&tasks.StageFiles{Repo: m.repo, Paths: []string{entry.change.Path}})
	}
	return m.applySelection(stagehand.PurposeStage)
}

func (m Model) unstageSelected() (tea.Model, tea.Cmd) {
	entry := m.selectedEntry()
	if entry == nil {
		return m, nil
	}
	if entry.area != areaStaged {
		m.notice = "not staged"
		return m, nil
	}
	if m.focus == focusFiles {
		return m, m.submit(&tasks.UnstageFiles{Repo: m.repo, Paths: []string{entry.change.Path}})
	}
	return m.applySelection(stagehand.PurposeUnstage)
}

func (m Model) discardSelected() (tea.Model, tea.Cmd) {
	entry := m.selectedEntry()
	if entry == nil {
		return m, nil
	}
	if entry.area == areaStaged {
		m.notice = "unstage before discarding"
		return m, nil
	}
	if m.focus == focusFiles {
		task := &tasks.DiscardFiles{Repo: m.repo, Trash: m.trash}
		if entry.change.Untracked() {
			task.Untracked = []string{entry.change.Path}
		} else {
			task.Tracked = []string{entry.change.Path}
		}
		return m, m.submit(task)
	}
	return m.applySelection(stagehand.PurposeDiscard)
}

// applySelection extracts the current selection as a sub-patch and submits
// it: an explicit visual range or the clump under the cursor as lines, a
// hunk-header cursor as the whole hunk.
func (m Model) applySelection(verb stagehand.Purpose) (tea.Model, tea.Cmd) {
	if m.focus != focusDiff || m.doc == nil || len(m.doc.Records) == 0 {
		return m, nil
	}

	var (
		patch []byte
		err   error
		unit  stagehand.Purpose
	)
	switch {
	case m.anchor >= 0:
		unit = stagehand.PurposeLines
		start, end := m.anchor, m.cursor
		if start > end {
			start, end = end, start
		}
		patch, err = stagehand.Extract(m.doc, start, end, verb.Reverse())

	case m.doc.Records[m.cursor].IsHunkHeader():
		unit = stagehand.PurposeHunk
		patch, err = stagehand.ExtractHunk(m.doc.Patch, m.doc.Records[m.cursor].HunkID, verb.Reverse())

	default:
		unit = stagehand.PurposeLines
		start, end, ok := m.doc.ClumpExtent(m.cursor)
		if !ok {
			m.notice = "no change under cursor"
			return m, nil
		}
		patch, err = stagehand.Extract(m.doc, start, end, verb.Reverse())
	}

	if errors.Is(err, stagehand.ErrEmptySelection) {
		m.notice = "selection has no changes"
		return m, nil
	}
	if err != nil {
		m.notice = err.Error()
		return m, nil
	}

	m.anchor = -1
	return m, m.submit(&tasks.ApplyPatch{
		Repo:    m.repo,
		Trash:   m.trash,
		Purpose: verb | unit,
		Path:    m.doc.Patch.Path(),
		Patch:   patch,
	})
}

func (m Model) fetch(withAuth bool) (tea.Model, tea.Cmd) {
	if len(m.remotes) == 0 {
		m.notice = "no remotes configured"
		return m, nil
	}
	if withAuth && m.secrets == nil {
		m.notice = "no secret store configured"
		return m, nil
	}
	return m, m.submit(&tasks.FetchRemote{
		Repo:     m.repo,
		Secrets:  m.secrets,
		Remote:   m.remotes[0],
		WithAuth: withAuth,
	})
}

// submit hands a task to the runner on a command goroutine. Runner code
// never runs inside Update: a prompt step delivers its request back into
// this event loop, which must be free to receive it.
func (m *Model) submit(task stagehand.Task) tea.Cmd {
	if m.runner == nil || m.repo == nil {
		m.notice = "read-only session"
		return nil
	}
	runner, ctx := m.runner, m.ctx
	return func() tea.Msg {
		if err := runner.Submit(ctx, task); err != nil {
			return noticeMsg{text: err.Error()}
		}
		return nil
	}
}

func (m Model) loadSnapshot() tea.Cmd {
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		snap, err := repo.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) loadRemotes() tea.Cmd {
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		remotes, err := repo.Remotes(ctx)
		if err != nil {
			return noticeMsg{text: err.Error()}
		}
		return remotesMsg{remotes: remotes}
	}
}

func waitForHint(ch <-chan stagehand.Effects) tea.Cmd {
	return func() tea.Msg {
		effects, ok := <-ch
		if !ok {
			return nil
		}
		return hintMsg{effects: effects}
	}
}

// setSnapshot swaps in a fresh snapshot, keeping the selection on the same
// path when it still exists.
func (m *Model) setSnapshot(snap *stagehand.Snapshot) {
	keepPath := ""
	keepArea := areaUnstaged
	if entry := m.selectedEntry(); entry != nil {
		keepPath, keepArea = entry.change.Path, entry.area
	}

	m.snap = snap
	m.entries = buildEntries(snap)
	m.fileIdx = 0
	for i, entry := range m.entries {
		if entry.change.Path == keepPath && entry.area == keepArea {
			m.fileIdx = i
			break
		}
	}
	m.openSelected()
}

func buildEntries(snap *stagehand.Snapshot) []fileEntry {
	if snap == nil || snap.Status == nil {
		return nil
	}
	byPath := func(patches []*stagehand.Patch) map[string]*stagehand.Patch {
		idx := make(map[string]*stagehand.Patch, len(patches))
		for _, p := range patches {
			idx[p.Path()] = p
		}
		return idx
	}
	unstaged := byPath(snap.Unstaged)
	staged := byPath(snap.Staged)

	entries := make([]fileEntry, 0, len(snap.Status.Unstaged)+len(snap.Status.Staged))
	for _, change := range snap.Status.Unstaged {
		entries = append(entries, fileEntry{area: areaUnstaged, change: change, patch: unstaged[change.Path]})
	}
	for _, change := range snap.Status.Staged {
		entries = append(entries, fileEntry{area: areaStaged, change: change, patch: staged[change.Path]})
	}
	return entries
}

func (m *Model) selectedEntry() *fileEntry {
	if m.fileIdx < 0 || m.fileIdx >= len(m.entries) {
		return nil
	}
	return &m.entries[m.fileIdx]
}

// openSelected rebuilds the diff document for the selected file.
func (m *Model) openSelected() {
	m.doc = nil
	m.tokens = nil
	m.segments = nil
	m.cursor = 0
	m.anchor = -1
	entry := m.selectedEntry()
	if entry == nil || entry.patch == nil {
		m.refreshContent()
		return
	}
	m.docArea = entry.area
	m.doc = stagehand.NewDocument(entry.patch)
	m.gutterW = gutterWidth(m.doc)
	m.tokenize()
	m.wordDiff()
	m.viewport.GotoTop()
	m.refreshContent()
}

func (m *Model) lineContent(record int) string {
	rec := m.doc.Records[record]
	return m.doc.Patch.Hunks[rec.HunkID].Lines[rec.HunkLine].Content
}

// tokenize highlights the document content in one pass so multi-line
// constructs keep their styling across lines.
func (m *Model) tokenize() {
	if m.doc == nil || m.tokenizer == nil || m.detector == nil {
		return
	}
	language := m.detector.DetectFromPath(m.doc.Patch.Path())
	if language == "" {
		return
	}

	contents := make([]string, 0, len(m.doc.Records))
	recordIdx := make([]int, 0, len(m.doc.Records))
	for i, rec := range m.doc.Records {
		if rec.IsHunkHeader() {
			continue
		}
		contents = append(contents, m.lineContent(i))
		recordIdx = append(recordIdx, i)
	}

	rows := m.tokenizer.TokenizeLines(language, strings.Join(contents, "\n"))
	if len(rows) != len(contents) {
		return
	}
	m.tokens = make(map[int][]stagehand.Token, len(rows))
	for j, tokens := range rows {
		m.tokens[recordIdx[j]] = tokens
	}
}

// wordDiff marks intraline changes on replace pairs: within a run of
// deletions directly followed by a run of additions, the k-th deletion
// pairs with the k-th addition.
func (m *Model) wordDiff() {
	if m.doc == nil || m.wordDiffer == nil {
		return
	}
	recs := m.doc.Records
	m.segments = make(map[int][]stagehand.Segment)
	i := 0
	for i < len(recs) {
		// Header rows report LineContext, so runs never span hunks.
		if recs[i].Type != stagehand.LineDeleted {
			i++
			continue
		}
		delStart := i
		for i < len(recs) && recs[i].Type == stagehand.LineDeleted {
			i++
		}
		addStart := i
		for i < len(recs) && recs[i].Type == stagehand.LineAdded {
			i++
		}
		pairs := min(addStart-delStart, i-addStart)
		for k := 0; k < pairs; k++ {
			del, add := delStart+k, addStart+k
			oldSegs, newSegs := m.wordDiffer.Diff(m.lineContent(del), m.lineContent(add))
			if !worthHighlighting(oldSegs, newSegs) {
				continue
			}
			m.segments[del] = oldSegs
			m.segments[add] = newSegs
		}
	}
	if len(m.segments) == 0 {
		m.segments = nil
	}
}

// worthHighlighting gates intraline emphasis. When less than 30% of a
// pair's content is shared, the marks would cover nearly everything, so
// the pair keeps uniform line styling.
func worthHighlighting(oldSegs, newSegs []stagehand.Segment) bool {
	if oldSegs == nil || newSegs == nil {
		return false
	}
	var shared, total int
	for _, segs := range [2][]stagehand.Segment{oldSegs, newSegs} {
		for _, seg := range segs {
			total += len(seg.Text)
			if !seg.Changed {
				shared += len(seg.Text)
			}
		}
	}
	return total > 0 && shared*10 >= total*3
}

func (m *Model) moveFile(delta int) {
	if len(m.entries) == 0 {
		return
	}
	next := min(max(m.fileIdx+delta, 0), len(m.entries)-1)
	if next == m.fileIdx {
		return
	}
	m.fileIdx = next
	m.openSelected()
}

func (m *Model) moveCursor(delta int) {
	if m.doc == nil {
		return
	}
	m.setCursor(m.cursor + delta)
	m.refreshContent()
}

func (m *Model) setCursor(to int) {
	if m.doc == nil || len(m.doc.Records) == 0 {
		return
	}
	m.cursor = min(max(to, 0), len(m.doc.Records)-1)
	m.ensureCursorVisible()
}

// jumpHunk moves the cursor to the next or previous hunk header.
func (m *Model) jumpHunk(direction int) {
	if m.doc == nil {
		return
	}
	for i := m.cursor + direction; i >= 0 && i < len(m.doc.Records); i += direction {
		if m.doc.Records[i].IsHunkHeader() {
			m.setCursor(i)
			m.refreshContent()
			return
		}
	}
}

// ensureCursorVisible scrolls the viewport so the cursor row stays on
// screen. Row 0 of the content is the file banner, so records are offset
// by one.
func (m *Model) ensureCursorVisible() {
	if m.viewport.Height <= 0 {
		return
	}
	line := m.cursor + 1
	top := m.viewport.YOffset
	bottom := top + m.viewport.Height - 1
	if line < top {
		m.viewport.SetYOffset(line)
	} else if line > bottom {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

// clampCursorToView pulls the cursor into the visible window after a page
// scroll.
func (m *Model) clampCursorToView() {
	if m.doc == nil || len(m.doc.Records) == 0 || m.viewport.Height <= 0 {
		return
	}
	first := m.viewport.YOffset - 1
	last := m.viewport.YOffset + m.viewport.Height - 2
	m.cursor = min(max(m.cursor, max(first, 0)), min(max(last, 0), len(m.doc.Records)-1))
}

func (m *Model) isSelected(record int) bool {
	if m.anchor < 0 {
		return false
	}
	start, end := m.anchor, m.cursor
	if start > end {
		start, end = end, start
	}
	return record >= start && record <= end
}

func gutterWidth(doc *stagehand.Document) int {
	width := 4
	maxNum := 0
	for _, rec := range doc.Records {
		maxNum = max(maxNum, rec.OldLineNum, rec.NewLineNum)
	}
	for n := maxNum; n >= 10000; n /= 10 {
		width++
	}
	return width
}

func noticeFor(rep stagehand.Report) string {
	switch {
	case rep.Aborted:
		return rep.Task + " cancelled"
	case rep.Err != nil:
		return rep.Err.Error()
	default:
		return rep.Task + " done"
	}
}
