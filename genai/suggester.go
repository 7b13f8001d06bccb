// Package genai suggests commit messages with the Gemini API.
package genai

import (
	"context"
	"fmt"
	"strings"

	genailib "google.golang.org/genai"

	"github.com/fwojciec/stagehand"
)

var _ stagehand.MessageSuggester = (*Suggester)(nil)

const defaultModel = "gemini-2.5-flash"

// maxPatchBytes bounds the patch sent with the prompt. Larger diffs are
// truncated; the opening hunks carry enough signal for a subject line.
const maxPatchBytes = 64 * 1024

// Suggester proposes commit messages from staged patch text.
type Suggester struct {
	client *genailib.Client
	model  string
}

// NewSuggester builds a suggester backed by the Gemini API. model may be
// empty to use the default.
func NewSuggester(ctx context.Context, apiKey, model string) (*Suggester, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genailib.NewClient(ctx, &genailib.ClientConfig{
		APIKey:  apiKey,
		Backend: genailib.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Suggester{client: client, model: model}, nil
}

// SuggestCommitMessage returns a one-line commit subject for the patch.
func (s *Suggester) SuggestCommitMessage(ctx context.Context, patch string) (string, error) {
	config := &genailib.GenerateContentConfig{
		Temperature: genailib.Ptr[float32](0.2),
	}
	result, err := s.client.Models.GenerateContent(ctx, s.model, genailib.Text(buildPrompt(patch)), config)
	if err != nil {
		return "", fmt.Errorf("generate commit message: %w", err)
	}
	message := cleanMessage(result.Text())
	if message == "" {
		return "", fmt.Errorf("model returned no usable commit message")
	}
	return message, nil
}

func buildPrompt(patch string) string {
	if len(patch) > maxPatchBytes {
		patch = patch[:maxPatchBytes]
		if i := strings.LastIndexByte(patch, '\n'); i > 0 {
			patch = patch[:i+1]
		}
	}
	var b strings.Builder
	b.WriteString("Write a commit message subject for the following diff.\n")
	b.WriteString("Respond with a single line, imperative mood, at most 72 characters.\n")
	b.WriteString("No quotes, no markdown, no trailing period.\n\n")
	b.WriteString(patch)
	return b.String()
}

// cleanMessage reduces a model response to one plain subject line.
// Models wrap answers in code fences or quotes often enough that the raw
// text cannot be trusted.
func cleanMessage(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.Trim(line, "`\"'")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return line
	}
	return ""
}
