package stagehand

import "context"

// Task is a single repository-mutating operation, modeled as a short state
// machine driven by a Runner: the interactive steps run on the coordination
// side and may suspend for user decisions, Execute then runs once on the
// single worker slot, and the declared effects are published on success.
//
// Implementations carry their arguments and collaborators as struct fields
// and accumulate interactive results there between steps.
type Task interface {
	// Name is the human-readable operation label; failures are wrapped
	// with it before they reach the user.
	Name() string
	// Steps returns the interactive flow, walked in order before Execute.
	Steps() []Step
	// Execute performs the mutation. It must not touch UI state. It may
	// block on repository or network I/O and is never cancelled once
	// started.
	Execute(ctx context.Context) error
	// Effects declares the state categories affected on success.
	Effects() Effects
}

// Step is one state of a task's interactive flow. Concrete types are Do,
// Confirm, Input and Secret; the prompt steps suspend the flow until the
// Prompter responds.
type Step interface {
	isStep()
}

// Do is a synchronous step: prepare data, validate preconditions. It runs
// with the context passed to Submit, so short repository reads are fine
// here. Returning ErrAborted abandons the task silently; any other error
// fails it before the worker phase runs.
type Do func(ctx context.Context) error

func (Do) isStep() {}

// Confirm suspends the flow on a yes/cancel question. Declining aborts the
// task; this is the gate in front of destructive operations.
type Confirm struct {
	When  func() bool // optional: skip the step when false
	Title string
	Body  string
	Verb  string // accept-button label, e.g. "Delete"
}

func (Confirm) isStep() {}

// Input suspends the flow on a text-entry prompt.
type Input struct {
	When     func() bool
	Title    string
	Prompt   string
	Default  func() string      // optional initial value, evaluated on entry
	Validate func(string) error // optional: the dialog rejects bad input
	Accept   func(string)       // receives the entered text on confirm
}

func (Input) isStep() {}

// Secret suspends the flow on a masked prompt for credentials.
type Secret struct {
	When   func() bool
	Title  string
	Prompt string
	Accept func(string)
}

func (Secret) isStep() {}
