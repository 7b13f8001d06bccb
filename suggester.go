package stagehand

import "context"

// MessageSuggester proposes a commit message for a staged patch.
type MessageSuggester interface {
	SuggestCommitMessage(ctx context.Context, patch string) (string, error)
}
