package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// tabWidth is the terminal tab stop interval.
const tabWidth = 8

// DisplayWidth returns the number of terminal cells s occupies. Tabs
// advance to the next tab stop, which lipgloss.Width alone reports as
// zero width.
func DisplayWidth(s string) int {
	if !strings.ContainsRune(s, '\t') {
		return lipgloss.Width(s)
	}
	col := 0
	for _, r := range s {
		if r == '\t' {
			col = ((col / tabWidth) + 1) * tabWidth
			continue
		}
		col += lipgloss.Width(string(r))
	}
	return col
}
