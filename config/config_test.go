package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T) *cobra.Command {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cmd := &cobra.Command{Use: "scriptindex"}
	InitFlags(cmd)
	return cmd
}

func TestLoadConfigs_Defaults(t *testing.T) {
	cmd := newTestCommand(t)
	cwd := t.TempDir()

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "Assets", "Scripts"), cfg.RootDir)
	assert.Equal(t, "Assets/Scripts", cfg.PathPrefix)
	assert.Equal(t, ".cs", cfg.SourceExtension)
	assert.Equal(t, []string{"class"}, cfg.TypeKeywords)
	assert.Equal(t, "scoped", cfg.FlatAttribution)
	assert.Equal(t, "pattern", cfg.Extractor)
	assert.Equal(t, int64(1<<20), cfg.MaxFileSize)
	assert.Equal(t, cwd, cfg.OutputDir)
	assert.Equal(t, filepath.Join(cwd, ".cache"), cfg.CacheDir)
	assert.True(t, cfg.EnableCache)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadConfigs_ReadsConfigFileFromCwd(t *testing.T) {
	cmd := newTestCommand(t)
	cwd := t.TempDir()
	content := `root_dir: Game/Code
path_prefix: Game/Code
type_keywords:
  - class
  - struct
extractor: treesitter
flat_attribution: lax
workers: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ConfigFileName+".yaml"), []byte(content), 0644))

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "Game", "Code"), cfg.RootDir)
	assert.Equal(t, "Game/Code", cfg.PathPrefix)
	assert.Equal(t, []string{"class", "struct"}, cfg.TypeKeywords)
	assert.Equal(t, "treesitter", cfg.Extractor)
	assert.Equal(t, "lax", cfg.FlatAttribution)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, filepath.Join(cwd, ConfigFileName+".yaml"), cfg.ConfigFile)
}

func TestLoadConfigs_FlagsOverrideFile(t *testing.T) {
	cmd := newTestCommand(t)
	cwd := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ConfigFileName+".json"), []byte(`{"workers": 2, "theme": "monokai"}`), 0644))
	require.NoError(t, cmd.PersistentFlags().Set("workers", "6"))
	require.NoError(t, cmd.PersistentFlags().Set("root_dir", "/abs/Scripts"))

	cfg, err := LoadConfigs(cmd, cwd)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "monokai", cfg.Theme)
	assert.Equal(t, "/abs/Scripts", cfg.RootDir)
}

func TestLoadConfigs_ExplicitFileMustExist(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))
	t.Cleanup(func() { cfgFile = "" })

	_, err := LoadConfigs(cmd, t.TempDir())
	assert.Error(t, err)
}

func TestLoadConfigs_InvalidValues(t *testing.T) {
	cmd := newTestCommand(t)
	require.NoError(t, cmd.PersistentFlags().Set("extractor", "roslyn"))

	_, err := LoadConfigs(cmd, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor")
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig
	cfg.RootDir = " "
	cfg.TypeKeywords = []string{"class", "not a word"}
	cfg.FlatAttribution = "loose"
	cfg.Workers = -1
	cfg.MaxFileSize = -5
	cfg.ContextBudget = -1
	cfg.LogLevel = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"root_dir", "type_keywords", "flat_attribution", "workers", "max_file_size", "context_budget", "log_level"} {
		assert.Contains(t, err.Error(), part)
	}

	assert.NoError(t, DefaultConfig.Validate())
}
