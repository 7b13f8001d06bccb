package bubbletea

import (
	"fmt"
	"strconv"
	"strings"

	lipglosslib "github.com/charmbracelet/lipgloss"

	"github.com/fwojciec/stagehand"
	"github.com/fwojciec/stagehand/lipgloss"
)

// styles are the renderer-bound lipgloss styles derived from the theme.
// They must come from the model's renderer, not the package default, or
// color output ignores the configured profile.
type styles struct {
	context       lipglosslib.Style
	added         lipglosslib.Style
	deleted       lipglosslib.Style
	wordAdded     lipglosslib.Style
	wordDeleted   lipglosslib.Style
	gutter        lipglosslib.Style
	gutterAdded   lipglosslib.Style
	gutterDeleted lipglosslib.Style
	fileHeader    lipglosslib.Style
	hunkHeader    lipglosslib.Style
	statusBar     lipglosslib.Style
	paneTitle     lipglosslib.Style
	paneCursor    lipglosslib.Style
	conflict      lipglosslib.Style
	dim           lipglosslib.Style
	overlayBox    lipglosslib.Style
	overlayTitle  lipglosslib.Style
	overlayErr    lipglosslib.Style
}

func newStyles(r *lipglosslib.Renderer, t lipgloss.Theme) styles {
	ns := r.NewStyle
	return styles{
		context:       ns().Foreground(t.ContextFg),
		added:         ns().Foreground(t.AddedFg).Background(t.AddedBg),
		deleted:       ns().Foreground(t.DeletedFg).Background(t.DeletedBg),
		wordAdded:     ns().Foreground(t.AddedFg).Background(t.AddedHighlightBg),
		wordDeleted:   ns().Foreground(t.DeletedFg).Background(t.DeletedHighlightBg),
		gutter:        ns().Foreground(t.GutterFg).Background(t.GutterBg),
		gutterAdded:   ns().Foreground(t.GutterFg).Background(t.AddedGutterBg),
		gutterDeleted: ns().Foreground(t.GutterFg).Background(t.DeletedGutterBg),
		fileHeader:    ns().Foreground(t.FileHeaderFg).Bold(true),
		hunkHeader:    ns().Foreground(t.HunkHeaderFg),
		statusBar:     ns().Foreground(t.UIForeground).Background(t.UIBackground),
		paneTitle:     ns().Foreground(t.FileHeaderFg).Bold(true),
		paneCursor:    ns().Foreground(t.UIForeground).Background(t.UIBackground),
		conflict:      ns().Foreground(t.DeletedFg).Bold(true),
		dim:           ns().Foreground(t.GutterFg),
		overlayBox:    ns().Border(lipglosslib.RoundedBorder()).BorderForeground(t.FileHeaderFg).Padding(1, 2).Width(56),
		overlayTitle:  ns().Foreground(t.FileHeaderFg).Bold(true),
		overlayErr:    ns().Foreground(t.DeletedFg),
	}
}

func (m Model) View() string {
	if !m.ready {
		return ""
	}
	body := lipglosslib.JoinHorizontal(
		lipglosslib.Top,
		m.renderFilePane(m.viewport.Height),
		m.viewport.View(),
	)
	if m.overlay != nil {
		body = lipglosslib.Place(m.width, max(m.height-1, 0), lipglosslib.Center, lipglosslib.Center, m.overlay.view(m.styles))
	}
	return body + "\n" + m.renderStatusBar()
}

// refreshContent re-renders the diff pane into the viewport.
func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderDiff())
}

// renderDiff renders the selected file's document: a banner row followed
// by one row per record.
func (m *Model) renderDiff() string {
	width := m.viewport.Width
	if width <= 0 {
		return ""
	}
	if m.loadErr != nil {
		return m.styles.conflict.Render(padTo("cannot read repository: "+m.loadErr.Error(), width))
	}
	if m.doc == nil {
		if len(m.entries) == 0 {
			return m.styles.dim.Render(padTo("working tree clean", width))
		}
		return m.styles.dim.Render(padTo("no diff for this entry", width))
	}

	var sb strings.Builder
	sb.WriteString(m.renderBanner(width))

	gutterCols := 2*m.gutterW + 1
	lineArea := max(width-gutterCols, 0)
	for i, rec := range m.doc.Records {
		sb.WriteByte('\n')
		if rec.IsHunkHeader() {
			m.renderHunkRow(&sb, i, gutterCols, lineArea)
			continue
		}
		m.renderLineRow(&sb, i, rec, lineArea)
	}
	return sb.String()
}

// renderBanner renders the file header row: box-drawing rule, display
// path, and the addition and deletion counts when the file has any.
func (m *Model) renderBanner(width int) string {
	p := m.doc.Patch

	label := p.Path()
	if p.OldPath != "" && p.NewPath != "" && p.OldPath != p.NewPath {
		label = p.OldPath + " → " + p.NewPath
	}
	switch {
	case p.IsBinary:
		label += " (binary)"
	case len(p.Hunks) == 0:
		label += " (empty)"
	}

	left := "── " + label + " "
	tail := "──"
	if adds, dels := p.Additions(), p.Deletions(); adds > 0 || dels > 0 {
		tail = fmt.Sprintf("+%d -%d ──", adds, dels)
	}
	fill := width - DisplayWidth(left) - DisplayWidth(tail) - 1
	banner := left + strings.Repeat("─", max(fill, 2)) + " " + tail
	return m.styles.fileHeader.Render(padTo(banner, width))
}

func (m *Model) renderHunkRow(sb *strings.Builder, i, gutterCols, lineArea int) {
	header := m.styles.hunkHeader
	if m.isSelected(i) {
		header = header.Background(m.theme.SelectBg)
	} else if i == m.cursor && m.focus == focusDiff {
		header = header.Background(m.theme.CursorBg)
	}
	sb.WriteString(m.styles.gutter.Render(strings.Repeat(" ", gutterCols)))
	text := m.doc.Patch.Hunks[m.doc.Records[i].HunkID].Header()
	sb.WriteString(header.Render(padTo(" "+text, lineArea)))
}

// renderLineRow renders the gutter and the line area. The padding space,
// the origin prefix and the content belong to one styled run so the line
// reads as " +added" in the output; the fill extends the background to the
// full pane width. Replace pairs with intraline segments split the area
// into line-styled and highlight-styled runs, merged so the prefix stays
// attached to a leading unchanged word.
func (m *Model) renderLineRow(sb *strings.Builder, i int, rec stagehand.LineRecord, lineArea int) {
	gutterStyle := m.styles.gutter
	lineStyle := m.styles.context
	switch rec.Type {
	case stagehand.LineAdded:
		gutterStyle = m.styles.gutterAdded
		lineStyle = m.styles.added
	case stagehand.LineDeleted:
		gutterStyle = m.styles.gutterDeleted
		lineStyle = m.styles.deleted
	}
	overridden := false
	if m.isSelected(i) {
		lineStyle = lineStyle.Background(m.theme.SelectBg)
		overridden = true
	} else if i == m.cursor && m.focus == focusDiff {
		lineStyle = lineStyle.Background(m.theme.CursorBg)
		overridden = true
	}

	sb.WriteString(gutterStyle.Render(fmt.Sprintf("%*s %*s", m.gutterW, gutterNum(rec.OldLineNum), m.gutterW, gutterNum(rec.NewLineNum))))

	line := m.doc.Patch.Hunks[rec.HunkID].Lines[rec.HunkLine]
	prefix := " " + linePrefix(rec.Type)
	content := expandTabs(line.Content)

	if segs, ok := m.segments[i]; ok && !overridden {
		m.renderSegments(sb, rec, lineStyle, prefix, segs, lineArea)
		return
	}

	tokens, ok := m.tokens[i]
	if !ok {
		sb.WriteString(lineStyle.Render(padTo(prefix+content, lineArea)))
		return
	}

	// Highlighted lines render token by token: each token keeps the line
	// background and takes its own foreground.
	sb.WriteString(lineStyle.Render(prefix))
	col := DisplayWidth(prefix)
	for _, tok := range tokens {
		text := expandTabs(tok.Text)
		style := lineStyle
		if tok.Style.Foreground != "" {
			style = style.Foreground(lipglosslib.Color(tok.Style.Foreground))
		}
		if tok.Style.Bold {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(text))
		col += DisplayWidth(text)
	}
	if col < lineArea {
		sb.WriteString(lineStyle.Render(strings.Repeat(" ", lineArea-col)))
	}
}

// renderSegments renders a replace-pair line: unchanged segments keep the
// line style, changed ones take the highlight background. Neighboring
// segments on the same style collapse into one run.
func (m *Model) renderSegments(sb *strings.Builder, rec stagehand.LineRecord, lineStyle lipglosslib.Style, prefix string, segs []stagehand.Segment, lineArea int) {
	wordStyle := m.styles.wordAdded
	if rec.Type == stagehand.LineDeleted {
		wordStyle = m.styles.wordDeleted
	}

	type run struct {
		text string
		word bool
	}
	runs := []run{{text: prefix}}
	for _, seg := range segs {
		text := expandTabs(seg.Text)
		if text == "" {
			continue
		}
		if last := &runs[len(runs)-1]; last.word == seg.Changed {
			last.text += text
			continue
		}
		runs = append(runs, run{text: text, word: seg.Changed})
	}

	col := 0
	for _, r := range runs {
		style := lineStyle
		if r.word {
			style = wordStyle
		}
		sb.WriteString(style.Render(r.text))
		col += DisplayWidth(r.text)
	}
	if col < lineArea {
		sb.WriteString(lineStyle.Render(strings.Repeat(" ", lineArea-col)))
	}
}

func linePrefix(t stagehand.LineType) string {
	switch t {
	case stagehand.LineAdded:
		return "+"
	case stagehand.LineDeleted:
		return "-"
	default:
		return " "
	}
}

func gutterNum(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// renderFilePane renders the left column: branch summary, the unstaged
// and staged sections, and conflicts when present. The window scrolls to
// keep the selected entry visible.
func (m *Model) renderFilePane(height int) string {
	if height <= 0 {
		return ""
	}

	type paneRow struct {
		text  string
		style lipglosslib.Style
	}
	var rows []paneRow
	selRow := 0

	branch := "(no repository)"
	if m.snap != nil && m.snap.Status != nil {
		st := m.snap.Status
		branch = st.Branch
		if branch == "" {
			branch = "(detached)"
		}
		if st.Ahead > 0 || st.Behind > 0 {
			branch += fmt.Sprintf(" ↑%d ↓%d", st.Ahead, st.Behind)
		}
	}
	rows = append(rows, paneRow{text: " " + branch, style: m.styles.paneTitle})
	rows = append(rows, paneRow{style: m.styles.dim})

	section := func(title string, area fileArea) {
		count := 0
		for _, e := range m.entries {
			if e.area == area {
				count++
			}
		}
		rows = append(rows, paneRow{text: fmt.Sprintf(" %s (%d)", title, count), style: m.styles.paneTitle})
		for i, e := range m.entries {
			if e.area != area {
				continue
			}
			marker := "  "
			style := m.styles.context
			if i == m.fileIdx {
				marker = "▸ "
				selRow = len(rows)
				if m.focus == focusFiles {
					style = m.styles.paneCursor
				}
			}
			code := e.change.Code
			if code == 0 {
				code = ' '
			}
			text := fmt.Sprintf(" %s%c %s", marker, code, e.change.Path)
			rows = append(rows, paneRow{text: text, style: style})
		}
		rows = append(rows, paneRow{style: m.styles.dim})
	}
	section("Unstaged", areaUnstaged)
	section("Staged", areaStaged)

	if m.snap != nil && m.snap.Status != nil && len(m.snap.Status.Conflicts) > 0 {
		rows = append(rows, paneRow{text: fmt.Sprintf(" Conflicts (%d)", len(m.snap.Status.Conflicts)), style: m.styles.conflict})
		for _, path := range m.snap.Status.Conflicts {
			rows = append(rows, paneRow{text: "   U " + path, style: m.styles.conflict})
		}
	}

	start := 0
	if selRow >= height {
		start = selRow - height + 1
	}

	var sb strings.Builder
	for i := 0; i < height; i++ {
		if i > 0 {
			sb.WriteByte('\n')
		}
		j := start + i
		if j >= len(rows) {
			sb.WriteString(strings.Repeat(" ", filePaneWidth))
			continue
		}
		sb.WriteString(rows[j].style.Render(padOrTrim(rows[j].text, filePaneWidth)))
	}
	return sb.String()
}

// renderStatusBar renders the bottom line: positions, scroll state, and
// either the pending notice or the key hints.
func (m *Model) renderStatusBar() string {
	var segments []string
	if len(m.entries) > 0 {
		segments = append(segments, fmt.Sprintf("file %d/%d", m.fileIdx+1, len(m.entries)))
	}
	if m.doc != nil && len(m.doc.Patch.Hunks) > 0 && len(m.doc.Records) > 0 {
		segments = append(segments, fmt.Sprintf("hunk %d/%d", m.doc.Records[m.cursor].HunkID+1, len(m.doc.Patch.Hunks)))
	}
	segments = append(segments, m.scrollLabel())
	if m.runner != nil && m.runner.Busy() {
		segments = append(segments, "working…")
	}

	tail := "j/k  n/N hunk  ]/[ file  s/u/d  c commit  q quit"
	if m.notice != "" {
		tail = m.notice
	}
	bar := strings.Join(append(segments, tail), " │ ")
	return m.styles.statusBar.Render(padOrTrim(bar, m.width))
}

func (m *Model) scrollLabel() string {
	switch {
	case m.viewport.AtTop():
		return "Top"
	case m.viewport.AtBottom():
		return "Bot"
	default:
		return fmt.Sprintf("%d%%", int(m.viewport.ScrollPercent()*100))
	}
}

// expandTabs replaces tabs with spaces up to the next tab stop so padding
// and cell math can treat every character as fixed width.
func expandTabs(s string) string {
	if !strings.ContainsRune(s, '\t') {
		return s
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		if r == '\t' {
			next := ((col / tabWidth) + 1) * tabWidth
			sb.WriteString(strings.Repeat(" ", next-col))
			col = next
			continue
		}
		sb.WriteRune(r)
		col += DisplayWidth(string(r))
	}
	return sb.String()
}

// padTo extends s with spaces to the given display width. Content wider
// than the target is returned unchanged.
func padTo(s string, width int) string {
	if gap := width - DisplayWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// padOrTrim pads like padTo but also truncates overlong content on a rune
// boundary so single-line chrome never wraps.
func padOrTrim(s string, width int) string {
	if DisplayWidth(s) <= width {
		return padTo(s, width)
	}
	var sb strings.Builder
	col := 0
	for _, r := range s {
		w := DisplayWidth(string(r))
		if col+w > width {
			break
		}
		sb.WriteRune(r)
		col += w
	}
	return padTo(sb.String(), width)
}
