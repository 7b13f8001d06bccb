package bubbletea

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/stagehand"
)

type overlayKind int

const (
	overlayConfirm overlayKind = iota
	overlayInput
	overlaySecret
)

// overlay is a modal prompt: a confirmation question or a one-line text
// entry. Exactly one response is delivered, when the overlay closes.
type overlay struct {
	kind   overlayKind
	title  string
	body   string
	verb   string
	prompt string

	input    textinput.Model
	validate func(string) error
	errText  string

	respondConfirm func(ok bool)
	respondText    func(text string, ok bool)
}

func newConfirmOverlay(req stagehand.ConfirmRequest) *overlay {
	verb := req.Verb
	if verb == "" {
		verb = "confirm"
	}
	return &overlay{
		kind:           overlayConfirm,
		title:          req.Title,
		body:           req.Body,
		verb:           verb,
		respondConfirm: req.Respond,
	}
}

func newInputOverlay(req stagehand.InputRequest) (*overlay, tea.Cmd) {
	in := textinput.New()
	in.Prompt = ""
	in.SetValue(req.Default)
	in.CursorEnd()
	return &overlay{
		kind:        overlayInput,
		title:       req.Title,
		prompt:      req.Prompt,
		input:       in,
		validate:    req.Validate,
		respondText: req.Respond,
	}, in.Focus()
}

func newSecretOverlay(req stagehand.SecretRequest) (*overlay, tea.Cmd) {
	in := textinput.New()
	in.Prompt = ""
	in.EchoMode = textinput.EchoPassword
	in.EchoCharacter = '•'
	return &overlay{
		kind:        overlaySecret,
		title:       req.Title,
		prompt:      req.Prompt,
		input:       in,
		respondText: req.Respond,
	}, in.Focus()
}

// updateOverlay routes keys to the active overlay. Responses run on a
// command goroutine: the runner resumes the task inside Respond, and a
// follow-up prompt or report has to find this event loop receiving.
func (m Model) updateOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ov := m.overlay
	if ov.kind == overlayConfirm {
		switch msg.String() {
		case "enter", "y":
			m.overlay = nil
			return m, respondConfirm(ov.respondConfirm, true)
		case "esc", "n", "q":
			m.overlay = nil
			return m, respondConfirm(ov.respondConfirm, false)
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		text := ov.input.Value()
		if ov.validate != nil {
			if err := ov.validate(text); err != nil {
				ov.errText = err.Error()
				return m, nil
			}
		}
		m.overlay = nil
		return m, respondText(ov.respondText, text, true)
	case "esc":
		m.overlay = nil
		return m, respondText(ov.respondText, "", false)
	}

	var cmd tea.Cmd
	ov.input, cmd = ov.input.Update(msg)
	ov.errText = ""
	return m, cmd
}

func respondConfirm(respond func(bool), ok bool) tea.Cmd {
	if respond == nil {
		return nil
	}
	return func() tea.Msg {
		respond(ok)
		return nil
	}
}

func respondText(respond func(string, bool), text string, ok bool) tea.Cmd {
	if respond == nil {
		return nil
	}
	return func() tea.Msg {
		respond(text, ok)
		return nil
	}
}

func (ov *overlay) view(st styles) string {
	var lines []string
	lines = append(lines, st.overlayTitle.Render(ov.title), "")

	switch ov.kind {
	case overlayConfirm:
		if ov.body != "" {
			lines = append(lines, ov.body, "")
		}
		lines = append(lines, st.dim.Render("[enter] "+strings.ToLower(ov.verb)+"   [esc] cancel"))
	default:
		label := ov.prompt
		if label != "" {
			label += ": "
		}
		lines = append(lines, label+ov.input.View())
		if ov.errText != "" {
			lines = append(lines, st.overlayErr.Render(ov.errText))
		}
		lines = append(lines, "", st.dim.Render("[enter] accept   [esc] cancel"))
	}

	return st.overlayBox.Render(strings.Join(lines, "\n"))
}
