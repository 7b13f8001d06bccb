// Package tasks contains the repository-mutating operations the UI can
// trigger. Each task implements stagehand.Task: a struct carrying its
// arguments and collaborators, an interactive flow of confirmation and
// input steps, and an Execute that performs the mutation on the runner's
// worker slot.
package tasks

import (
	"errors"
	"strings"
)

// requireText validates interactive input that must not be blank.
func requireText(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(what + " must not be empty")
		}
		return nil
	}
}
