package stagehand

// Style describes how a run of text is rendered.
type Style struct {
	Foreground string // hex color such as "#ff00ff"; empty means default
	Bold       bool
}

// Token is a styled run of text within one source line.
type Token struct {
	Text  string
	Style Style
}

// Tokenizer splits multi-line source text into styled tokens, one slice per
// input line. Implementations return nil when the language is unknown.
type Tokenizer interface {
	TokenizeLines(language, source string) [][]Token
}

// LanguageDetector guesses a highlighting language from a file path. It
// returns "" when the path is not recognized.
type LanguageDetector interface {
	DetectFromPath(path string) string
}
