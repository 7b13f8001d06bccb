// Package chroma provides syntax highlighting using the chroma library.
package chroma

import (
	"fmt"
	"path/filepath"
	"strings"

	chromalib "github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/fwojciec/stagehand"
	"github.com/fwojciec/stagehand/lipgloss"
)

var _ stagehand.Tokenizer = (*Tokenizer)(nil)

// Tokenizer extracts syntax tokens using chroma, styled through an
// injected token-type to style mapping.
type Tokenizer struct {
	style func(chromalib.TokenType) stagehand.Style
}

// NewTokenizer creates a tokenizer that styles tokens with styleFunc,
// typically StyleFromPalette of the active theme.
func NewTokenizer(styleFunc func(chromalib.TokenType) stagehand.Style) (*Tokenizer, error) {
	if styleFunc == nil {
		return nil, fmt.Errorf("chroma: styleFunc is required")
	}
	return &Tokenizer{style: styleFunc}, nil
}

// Tokenize splits source code into styled tokens for the given language.
// It returns nil when the language is not supported and an empty slice for
// empty source.
func (t *Tokenizer) Tokenize(language, source string) []stagehand.Token {
	if source == "" {
		return []stagehand.Token{}
	}
	iterator := tokenise(language, source)
	if iterator == nil {
		return nil
	}

	var tokens []stagehand.Token
	for token := iterator(); token != chromalib.EOF; token = iterator() {
		tokens = append(tokens, stagehand.Token{
			Text:  token.Value,
			Style: t.style(token.Type),
		})
	}

	// Some lexers normalize a missing trailing newline; drop it so the
	// token text concatenates back to the input.
	if !strings.HasSuffix(source, "\n") && len(tokens) > 0 {
		last := &tokens[len(tokens)-1]
		if strings.HasSuffix(last.Text, "\n") {
			last.Text = strings.TrimSuffix(last.Text, "\n")
			if last.Text == "" {
				tokens = tokens[:len(tokens)-1]
			}
		}
	}
	return tokens
}

// TokenizeLines tokenizes source as one unit and splits the token stream at
// line breaks, one slice per input line. Tokenizing whole blocks keeps
// multi-line constructs such as block comments styled on every line.
func (t *Tokenizer) TokenizeLines(language, source string) [][]stagehand.Token {
	if source == "" {
		return [][]stagehand.Token{}
	}
	iterator := tokenise(language, source)
	if iterator == nil {
		return nil
	}

	lines := [][]stagehand.Token{nil}
	for token := iterator(); token != chromalib.EOF; token = iterator() {
		style := t.style(token.Type)
		for i, part := range strings.Split(token.Value, "\n") {
			if i > 0 {
				lines = append(lines, nil)
			}
			if part == "" {
				continue
			}
			cur := len(lines) - 1
			lines[cur] = append(lines[cur], stagehand.Token{Text: part, Style: style})
		}
	}

	// A lexer-added trailing newline would leave one line too many.
	if want := strings.Count(source, "\n") + 1; len(lines) > want {
		lines = lines[:want]
	}
	return lines
}

func tokenise(language, source string) func() chromalib.Token {
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil
	}
	lexer = chromalib.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return nil
	}
	return iterator
}

// StyleFromPalette maps chroma token categories to the palette's colors.
// Token types outside the mapped categories render unstyled.
func StyleFromPalette(p lipgloss.Palette) func(chromalib.TokenType) stagehand.Style {
	return func(tt chromalib.TokenType) stagehand.Style {
		switch tt {
		case chromalib.Keyword, chromalib.KeywordConstant, chromalib.KeywordDeclaration,
			chromalib.KeywordNamespace, chromalib.KeywordPseudo, chromalib.KeywordReserved,
			chromalib.KeywordType:
			return stagehand.Style{Foreground: string(p.Keyword), Bold: true}

		case chromalib.Comment, chromalib.CommentHashbang, chromalib.CommentMultiline,
			chromalib.CommentPreproc, chromalib.CommentPreprocFile, chromalib.CommentSingle,
			chromalib.CommentSpecial:
			return stagehand.Style{Foreground: string(p.Comment)}

		// String* and LiteralString* are aliases, so only one set appears.
		case chromalib.String, chromalib.StringAffix, chromalib.StringBacktick, chromalib.StringChar,
			chromalib.StringDelimiter, chromalib.StringDoc, chromalib.StringDouble,
			chromalib.StringEscape, chromalib.StringHeredoc, chromalib.StringInterpol,
			chromalib.StringOther, chromalib.StringRegex, chromalib.StringSingle,
			chromalib.StringSymbol:
			return stagehand.Style{Foreground: string(p.String)}

		case chromalib.Number, chromalib.NumberBin, chromalib.NumberFloat, chromalib.NumberHex,
			chromalib.NumberInteger, chromalib.NumberIntegerLong, chromalib.NumberOct:
			return stagehand.Style{Foreground: string(p.Number)}

		case chromalib.Operator, chromalib.OperatorWord:
			return stagehand.Style{Foreground: string(p.Operator)}

		case chromalib.NameBuiltin, chromalib.NameBuiltinPseudo:
			return stagehand.Style{Foreground: string(p.Builtin)}

		case chromalib.NameFunction, chromalib.NameFunctionMagic:
			return stagehand.Style{Foreground: string(p.Function)}

		case chromalib.Name, chromalib.NameAttribute, chromalib.NameClass, chromalib.NameConstant,
			chromalib.NameDecorator, chromalib.NameEntity, chromalib.NameException,
			chromalib.NameLabel, chromalib.NameNamespace, chromalib.NameOther,
			chromalib.NameProperty, chromalib.NameTag, chromalib.NameVariable,
			chromalib.NameVariableAnonymous, chromalib.NameVariableClass,
			chromalib.NameVariableGlobal, chromalib.NameVariableInstance,
			chromalib.NameVariableMagic:
			return stagehand.Style{Foreground: string(p.Name)}

		default:
			return stagehand.Style{}
		}
	}
}

var _ stagehand.LanguageDetector = (*LanguageDetector)(nil)

// LanguageDetector guesses the highlighting language from a file name.
type LanguageDetector struct{}

// NewLanguageDetector creates a file-name based language detector.
func NewLanguageDetector() *LanguageDetector {
	return &LanguageDetector{}
}

// DetectFromPath returns the chroma lexer name for path, or "" when no
// lexer matches.
func (d *LanguageDetector) DetectFromPath(path string) string {
	lexer := lexers.Match(filepath.Base(path))
	if lexer == nil {
		return ""
	}
	return lexer.Config().Name
}
