package stagehand

import "io"

// Parser parses raw diff output into domain types.
type Parser interface {
	// Parse reads unified diff content and returns one Patch per file.
	Parse(r io.Reader) ([]*Patch, error)
}
