package bubbletea

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fwojciec/stagehand"
)

// Prompter delivers runner prompt requests into the program's event loop,
// where they become overlays. Send is typically (*tea.Program).Send; the
// runner may call these from any goroutine.
type Prompter struct {
	Send func(tea.Msg)
}

var _ stagehand.Prompter = (*Prompter)(nil)

func (p *Prompter) Confirm(req stagehand.ConfirmRequest) { p.Send(confirmMsg{req: req}) }

func (p *Prompter) Input(req stagehand.InputRequest) { p.Send(inputMsg{req: req}) }

func (p *Prompter) Secret(req stagehand.SecretRequest) { p.Send(secretMsg{req: req}) }

// Report forwards a task completion report; install it as the runner's
// Report callback alongside the Prompter.
func (p *Prompter) Report(rep stagehand.Report) { p.Send(reportMsg{report: rep}) }
