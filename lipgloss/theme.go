// Package lipgloss defines the color themes for the staging UI.
package lipgloss

import (
	"fmt"
	"strconv"

	lipglosslib "github.com/charmbracelet/lipgloss"
)

// Palette carries the syntax highlighting colors keyed by token category.
type Palette struct {
	Keyword  lipglosslib.Color
	Comment  lipglosslib.Color
	String   lipglosslib.Color
	Number   lipglosslib.Color
	Operator lipglosslib.Color
	Builtin  lipglosslib.Color
	Function lipglosslib.Color
	Name     lipglosslib.Color
}

// Theme is the complete color scheme for the UI. It stores colors, not
// styles; the model derives renderer-bound styles from these so output
// respects the active color profile.
type Theme struct {
	ContextFg lipglosslib.Color

	AddedFg       lipglosslib.Color
	AddedBg       lipglosslib.Color
	AddedGutterBg lipglosslib.Color

	DeletedFg       lipglosslib.Color
	DeletedBg       lipglosslib.Color
	DeletedGutterBg lipglosslib.Color

	// Highlight backgrounds mark the changed spans inside a replace pair,
	// at gutter intensity so they read against the dimmed line background.
	AddedHighlightBg   lipglosslib.Color
	DeletedHighlightBg lipglosslib.Color

	GutterFg lipglosslib.Color
	GutterBg lipglosslib.Color

	FileHeaderFg lipglosslib.Color
	HunkHeaderFg lipglosslib.Color

	UIForeground lipglosslib.Color
	UIBackground lipglosslib.Color

	CursorBg lipglosslib.Color
	SelectBg lipglosslib.Color

	palette Palette
}

// Palette returns the syntax highlighting colors of the theme.
func (t Theme) Palette() Palette {
	return t.palette
}

// DefaultTheme returns the standard scheme, based on One Dark. Diff line
// and gutter backgrounds are the accent colors blended into the editor
// background, stronger in the gutter than on the line.
func DefaultTheme() Theme {
	const (
		bg     = "#282c34"
		fg     = "#abb2bf"
		red    = "#e06c75"
		green  = "#98c379"
		yellow = "#e5c07b"
		blue   = "#61afef"
		purple = "#c678dd"
		cyan   = "#56b6c2"
		gray   = "#5c6370"
		orange = "#d19a66"
	)
	return Theme{
		ContextFg:       fg,
		AddedFg:         fg,
		AddedBg:         lipglosslib.Color(Blend(bg, green, 0.15)),
		AddedGutterBg:   lipglosslib.Color(Blend(bg, green, 0.35)),
		DeletedFg:       fg,
		DeletedBg:       lipglosslib.Color(Blend(bg, red, 0.15)),
		DeletedGutterBg: lipglosslib.Color(Blend(bg, red, 0.35)),

		AddedHighlightBg:   lipglosslib.Color(Blend(bg, green, 0.35)),
		DeletedHighlightBg: lipglosslib.Color(Blend(bg, red, 0.35)),

		GutterFg:     gray,
		GutterBg:     lipglosslib.Color(Blend(bg, fg, 0.04)),
		FileHeaderFg: blue,
		HunkHeaderFg: cyan,
		UIForeground: fg,
		UIBackground: "#3e4451",
		CursorBg:     lipglosslib.Color(Blend(bg, fg, 0.12)),
		SelectBg:     "#3e4451",
		palette: Palette{
			Keyword:  purple,
			Comment:  gray,
			String:   green,
			Number:   orange,
			Operator: cyan,
			Builtin:  yellow,
			Function: blue,
			Name:     red,
		},
	}
}

// TestTheme returns a scheme with predictable colors for assertions: pure
// primaries blended toward black, so expected RGB values can be computed by
// hand. Added backgrounds blend #00ff00 into black at 15% (line) and 35%
// (gutter), giving RGB(0,38,0) and RGB(0,89,0); deleted backgrounds do the
// same with #ff0000. The status bar background is #333333.
func TestTheme() Theme {
	const black = "#000000"
	return Theme{
		ContextFg:       "#ffffff",
		AddedFg:         "#ffffff",
		AddedBg:         lipglosslib.Color(Blend(black, "#00ff00", 0.15)),
		AddedGutterBg:   lipglosslib.Color(Blend(black, "#00ff00", 0.35)),
		DeletedFg:       "#ffffff",
		DeletedBg:       lipglosslib.Color(Blend(black, "#ff0000", 0.15)),
		DeletedGutterBg: lipglosslib.Color(Blend(black, "#ff0000", 0.35)),

		AddedHighlightBg:   lipglosslib.Color(Blend(black, "#00ff00", 0.35)),
		DeletedHighlightBg: lipglosslib.Color(Blend(black, "#ff0000", 0.35)),

		GutterFg:     "#aaaaaa",
		GutterBg:     "#111111",
		FileHeaderFg: "#00aaff",
		HunkHeaderFg: "#ffaa00",
		UIForeground: "#ffffff",
		UIBackground: "#333333",
		CursorBg:     "#000080",
		SelectBg:     "#808000",
		palette: Palette{
			Keyword:  "#ff00ff",
			Comment:  "#00ffff",
			String:   "#ffff00",
			Number:   "#ff8800",
			Operator: "#00ff88",
			Builtin:  "#88ff00",
			Function: "#0000ff",
			Name:     "#ff0088",
		},
	}
}

// Blend linearly interpolates between two "#rrggbb" colors. t is the
// fraction of "to" mixed into "from": 0 returns from, 1 returns to.
// Channel values truncate toward zero, so Blend("#000000", "#00ff00", 0.35)
// is "#005900". Malformed input returns from unchanged.
func Blend(from, to string, t float64) string {
	fr, fg, fb, ok := parseHex(from)
	if !ok {
		return from
	}
	tr, tg, tb, ok := parseHex(to)
	if !ok {
		return from
	}
	mix := func(a, b int) int {
		return a + int(float64(b-a)*t)
	}
	return fmt.Sprintf("#%02x%02x%02x", mix(fr, tr), mix(fg, tg), mix(fb, tb))
}

func parseHex(s string) (r, g, b int, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(n >> 16), int(n >> 8 & 0xff), int(n & 0xff), true
}
