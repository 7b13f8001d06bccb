package stagehand

// Prompter renders the dialogs that suspended interactive steps wait on.
// Each request carries a Respond closure that must be invoked exactly once;
// the runner resumes the suspended task inside Respond, so implementations
// that live on an event loop should call it from that loop.
type Prompter interface {
	Confirm(ConfirmRequest)
	Input(InputRequest)
	Secret(SecretRequest)
}

// ConfirmRequest asks a yes/cancel question. Respond(false) aborts the task.
type ConfirmRequest struct {
	Title   string
	Body    string
	Verb    string
	Respond func(ok bool)
}

// InputRequest asks for one line of text. Responding with ok=false aborts
// the task; Validate, when set, is enforced by the dialog before it accepts.
type InputRequest struct {
	Title    string
	Prompt   string
	Default  string
	Validate func(string) error
	Respond  func(text string, ok bool)
}

// SecretRequest asks for a masked secret such as a password or token.
type SecretRequest struct {
	Title   string
	Prompt  string
	Respond func(text string, ok bool)
}
