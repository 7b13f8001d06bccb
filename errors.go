package stagehand

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAborted signals user cancellation during a task's interactive
	// phase. It is not a failure: the task is abandoned silently, with no
	// side effects and no refresh.
	ErrAborted = errors.New("aborted by user")

	// ErrEmptySelection is returned by the extractors when the requested
	// range contains no added or removed lines, so the caller can no-op
	// instead of applying an empty patch.
	ErrEmptySelection = errors.New("selection contains no changes")

	// ErrTaskInProgress is returned by Runner.Submit while another task is
	// current. There is no task queue; overlapping submissions are a
	// caller bug and are additionally logged as a warning.
	ErrTaskInProgress = errors.New("a task is already in progress")
)

// maxConflictPaths caps how many conflicting paths an error message lists.
const maxConflictPaths = 10

// ConflictError reports that a mutation failed because the repository no
// longer matches the patch preconditions, e.g. the working tree changed
// under a patch being applied. Paths holds every conflicting path; the
// message lists at most maxConflictPaths of them.
type ConflictError struct {
	Op    string
	Paths []string
}

func (e *ConflictError) Error() string {
	shown := e.Paths
	extra := 0
	if len(shown) > maxConflictPaths {
		extra = len(shown) - maxConflictPaths
		shown = shown[:maxConflictPaths]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: conflicts in %d file(s)", e.Op, len(e.Paths))
	if len(shown) > 0 {
		fmt.Fprintf(&sb, ": %s", strings.Join(shown, ", "))
	}
	if extra > 0 {
		fmt.Fprintf(&sb, " and %d more", extra)
	}
	return sb.String()
}
