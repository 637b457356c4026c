package utils

import (
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// SourceLanguage is the chroma lexer for report output; member descriptors
// are fragments of the indexed language.
const SourceLanguage = "csharp"

// PrintHighlighted writes content to w colored for a 256 color terminal.
// With plain set, the content is written unchanged.
func PrintHighlighted(w io.Writer, content string, language string, theme string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, content)
		return err
	}
	return quick.Highlight(w, content, language, "terminal256", theme)
}
