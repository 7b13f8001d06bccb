package stagehand

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// Report describes one finished task. Exactly one report is delivered per
// accepted submission, on whichever goroutine finished the task.
type Report struct {
	Task    string
	Err     error // nil on success and on user abort
	Aborted bool
	Effects Effects // AffectsNothing unless the task succeeded
}

// Runner drives tasks one at a time: at most one task is current and at
// most one Execute runs concurrently, which is the invariant that protects
// the repository handle. There is deliberately no queue; submitting while
// busy is a programmer error and the submission is dropped with a warning.
type Runner struct {
	// Prompter renders suspended prompt steps. It may be nil only if every
	// submitted task has a prompt-free flow.
	Prompter Prompter
	// Report, when set, receives the completion report for each accepted
	// submission.
	Report func(Report)
	// Sync runs the worker phase inline during Submit instead of on a
	// goroutine. The state machine is unchanged; tests use this to make
	// assertions linear.
	Sync bool
	// Logf receives programmer-error warnings. Defaults to log.Printf.
	Logf func(format string, args ...any)

	mu      sync.Mutex
	current Task
	steps   []Step
	next    int
	pending Effects
	wg      sync.WaitGroup
}

// Submit starts task. It returns ErrTaskInProgress, after logging a
// warning, if another task is still current: callers are expected to gate
// on Busy rather than race each other. The context is handed to Execute and
// should outlive the task; there is no mid-execution cancellation.
func (r *Runner) Submit(ctx context.Context, task Task) error {
	r.mu.Lock()
	if r.current != nil {
		name := r.current.Name()
		r.mu.Unlock()
		r.logf("stagehand: task %q submitted while %q is in progress; dropped", task.Name(), name)
		return ErrTaskInProgress
	}
	r.current = task
	r.steps = task.Steps()
	r.next = 0
	r.mu.Unlock()

	r.advance(ctx, task)
	return nil
}

// Busy reports whether a task is current, in any of its states.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil
}

// ConsumeEffects takes and clears the effects accumulated by tasks that
// succeeded since the previous call. The taking and clearing are one
// atomic step, so effects published concurrently are either returned now
// or kept for the next call, never lost.
func (r *Runner) ConsumeEffects() Effects {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.pending
	r.pending = AffectsNothing
	return e
}

// Close waits for an in-flight worker phase to finish or for ctx to
// expire. Callers stop submitting before closing.
func (r *Runner) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// advance walks the interactive flow from the current position. It returns
// after handing the task to the worker phase, suspending on a prompt, or
// finishing early on an error.
func (r *Runner) advance(ctx context.Context, task Task) {
	for {
		r.mu.Lock()
		if r.current != task {
			r.mu.Unlock()
			return
		}
		if r.next >= len(r.steps) {
			r.mu.Unlock()
			r.execute(ctx, task)
			return
		}
		step := r.steps[r.next]
		r.next++
		r.mu.Unlock()

		switch s := step.(type) {
		case Do:
			if err := s(ctx); err != nil {
				r.finish(task, err)
				return
			}
		case Confirm:
			if s.When != nil && !s.When() {
				continue
			}
			respond := r.respondOnce(task)
			r.prompter().Confirm(ConfirmRequest{
				Title: s.Title,
				Body:  s.Body,
				Verb:  s.Verb,
				Respond: func(ok bool) {
					respond(func() {
						if !ok {
							r.finish(task, ErrAborted)
							return
						}
						r.advance(ctx, task)
					})
				},
			})
			return
		case Input:
			if s.When != nil && !s.When() {
				continue
			}
			var def string
			if s.Default != nil {
				def = s.Default()
			}
			respond := r.respondOnce(task)
			r.prompter().Input(InputRequest{
				Title:    s.Title,
				Prompt:   s.Prompt,
				Default:  def,
				Validate: s.Validate,
				Respond: func(text string, ok bool) {
					respond(func() {
						if !ok {
							r.finish(task, ErrAborted)
							return
						}
						if s.Accept != nil {
							s.Accept(text)
						}
						r.advance(ctx, task)
					})
				},
			})
			return
		case Secret:
			if s.When != nil && !s.When() {
				continue
			}
			respond := r.respondOnce(task)
			r.prompter().Secret(SecretRequest{
				Title:  s.Title,
				Prompt: s.Prompt,
				Respond: func(text string, ok bool) {
					respond(func() {
						if !ok {
							r.finish(task, ErrAborted)
							return
						}
						if s.Accept != nil {
							s.Accept(text)
						}
						r.advance(ctx, task)
					})
				},
			})
			return
		default:
			panic(fmt.Sprintf("stagehand: unknown step type %T", step))
		}
	}
}

// execute runs the worker phase, inline when Sync is set.
func (r *Runner) execute(ctx context.Context, task Task) {
	if r.Sync {
		r.finish(task, task.Execute(ctx))
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.finish(task, task.Execute(ctx))
	}()
}

// finish retires the current task, folds its effects into the pending set
// on success, and delivers the report.
func (r *Runner) finish(task Task, err error) {
	rep := Report{Task: task.Name()}
	switch {
	case err == nil:
		rep.Effects = task.Effects()
	case errors.Is(err, ErrAborted):
		rep.Aborted = true
	default:
		rep.Err = fmt.Errorf("%s: %w", task.Name(), err)
	}

	r.mu.Lock()
	r.pending |= rep.Effects
	r.current = nil
	r.steps = nil
	r.next = 0
	r.mu.Unlock()

	if r.Report != nil {
		r.Report(rep)
	}
}

// respondOnce wraps a prompt resumption so that late or repeated responses
// are dropped with a warning instead of corrupting a later task.
func (r *Runner) respondOnce(task Task) func(func()) {
	var done bool
	return func(resume func()) {
		r.mu.Lock()
		if done || r.current != task {
			r.mu.Unlock()
			r.logf("stagehand: stale prompt response for task %q ignored", task.Name())
			return
		}
		done = true
		r.mu.Unlock()
		resume()
	}
}

func (r *Runner) prompter() Prompter {
	if r.Prompter == nil {
		panic("stagehand: task has a prompt step but the runner has no Prompter")
	}
	return r.Prompter
}

func (r *Runner) logf(format string, args ...any) {
	if r.Logf != nil {
		r.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
