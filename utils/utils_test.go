package utils

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatcher_DefaultFolders(t *testing.T) {
	m, err := NewIgnoreMatcher(nil)
	require.NoError(t, err)

	assert.True(t, m.Matches(".git", true))
	assert.True(t, m.Matches("Player/.vscode/settings.cs", false))
	assert.True(t, m.Matches(".svn/entries", false))
	assert.False(t, m.Matches("Player/Move.cs", false))
	// build folder names are ordinary folders unless a pattern says otherwise
	assert.False(t, m.Matches("Obj", true))
	assert.False(t, m.Matches("Player/Bin/Build.cs", false))

	var nilMatcher *IgnoreMatcher
	assert.True(t, nilMatcher.Matches(".git/Temp.cs", false))
	assert.False(t, nilMatcher.Matches("Move.cs", false))
	assert.Nil(t, nilMatcher.Patterns())
}

func TestIgnoreMatcher_Globs(t *testing.T) {
	m, err := NewIgnoreMatcher([]string{"Generated/**", "**/*.g.cs", "Editor"})
	require.NoError(t, err)

	assert.True(t, m.Matches("Generated", true))
	assert.True(t, m.Matches("Generated/Proto/Messages.cs", false))
	assert.True(t, m.Matches("UI/Panel.g.cs", false))
	assert.True(t, m.Matches("Editor", true))
	assert.False(t, m.Matches("UI/Panel.cs", false))
	assert.False(t, m.Matches("Editor/Tool.cs", false))
	assert.Equal(t, []string{"Generated/**", "**/*.g.cs", "Editor"}, m.Patterns())

	_, err = NewIgnoreMatcher([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestGetIgnorePatterns(t *testing.T) {
	ClearIgnoreCache()
	cwd := t.TempDir()

	patterns, err := GetIgnorePatterns(cwd)
	require.NoError(t, err)
	assert.Empty(t, patterns)

	content := "# generated code\nGenerated/**\n\n  **/*.g.cs  \n"
	require.NoError(t, os.WriteFile(filepath.Join(cwd, IgnoreFileName), []byte(content), 0644))

	patterns, err = GetIgnorePatterns(cwd)
	require.NoError(t, err)
	assert.Equal(t, []string{"Generated/**", "**/*.g.cs"}, patterns)

	// served from the cache while the file is unchanged
	again, err := GetIgnorePatterns(cwd)
	require.NoError(t, err)
	assert.Equal(t, patterns, again)
}

func TestConfirmPrompt(t *testing.T) {
	for input, expected := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		ok, err := ConfirmPrompt("Clear?", bufio.NewReader(strings.NewReader(input)))
		require.NoError(t, err)
		assert.Equal(t, expected, ok, "input %q", input)
	}
}

func TestPrintHighlighted(t *testing.T) {
	var plain bytes.Buffer
	require.NoError(t, PrintHighlighted(&plain, "class Foo {}", SourceLanguage, "dracula", true))
	assert.Equal(t, "class Foo {}", plain.String())

	var colored bytes.Buffer
	require.NoError(t, PrintHighlighted(&colored, "class Foo {}", SourceLanguage, "dracula", false))
	assert.Contains(t, colored.String(), "Foo")
	assert.Contains(t, colored.String(), "\x1b[")
}
