package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/meysamhadeli/scriptindex/code_analyzer"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigFileName is the base name of the optional config file (JSON or YAML).
const ConfigFileName = "scriptindex-config"

// Config represents the structure of the configuration file
type Config struct {
	Version         string   `mapstructure:"version"`
	RootDir         string   `mapstructure:"root_dir"`
	PathPrefix      string   `mapstructure:"path_prefix"`
	SourceExtension string   `mapstructure:"source_extension"`
	TypeKeywords    []string `mapstructure:"type_keywords"`
	FlatAttribution string   `mapstructure:"flat_attribution"`
	Extractor       string   `mapstructure:"extractor"`
	Workers         int      `mapstructure:"workers"`
	MaxFileSize     int64    `mapstructure:"max_file_size"`
	IgnorePatterns  []string `mapstructure:"ignore_patterns"`
	OutputDir       string   `mapstructure:"output_dir"`
	EnableCache     bool     `mapstructure:"enable_cache"`
	CacheDir        string   `mapstructure:"cache_dir"`
	Theme           string   `mapstructure:"theme"`
	LogLevel        string   `mapstructure:"log_level"`
	ContextBudget   int      `mapstructure:"context_budget"`

	// ConfigFile is the file the values were read from, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:         "1.0.0",
	RootDir:         "Assets/Scripts",
	PathPrefix:      "Assets/Scripts",
	SourceExtension: ".cs",
	TypeKeywords:    []string{"class"},
	FlatAttribution: string(code_analyzer.ScopedAttribution),
	Extractor:       "pattern",
	Workers:         0,
	MaxFileSize:     1 << 20,
	IgnorePatterns:  []string{},
	OutputDir:       ".",
	EnableCache:     true,
	CacheDir:        ".cache",
	Theme:           "dracula",
	LogLevel:        "warn",
	ContextBudget:   0,
}

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

var keywordPattern = regexp.MustCompile(`^\w+$`)

// LoadConfigs initializes the configuration from defaults, the config file,
// environment variables and flags (in increasing precedence), resolves
// relative paths against cwd and validates the result.
func LoadConfigs(rootCmd *cobra.Command, cwd string) (*Config, error) {
	var config *Config

	setDefaults()
	bindEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		viper.SetConfigName(ConfigFileName)
		viper.AddConfigPath(cwd)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	bindFlags(rootCmd)

	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}
	config.ConfigFile = viper.ConfigFileUsed()
	config.resolvePaths(cwd)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("version", DefaultConfig.Version)
	viper.SetDefault("root_dir", DefaultConfig.RootDir)
	viper.SetDefault("path_prefix", DefaultConfig.PathPrefix)
	viper.SetDefault("source_extension", DefaultConfig.SourceExtension)
	viper.SetDefault("type_keywords", DefaultConfig.TypeKeywords)
	viper.SetDefault("flat_attribution", DefaultConfig.FlatAttribution)
	viper.SetDefault("extractor", DefaultConfig.Extractor)
	viper.SetDefault("workers", DefaultConfig.Workers)
	viper.SetDefault("max_file_size", DefaultConfig.MaxFileSize)
	viper.SetDefault("ignore_patterns", DefaultConfig.IgnorePatterns)
	viper.SetDefault("output_dir", DefaultConfig.OutputDir)
	viper.SetDefault("enable_cache", DefaultConfig.EnableCache)
	viper.SetDefault("cache_dir", DefaultConfig.CacheDir)
	viper.SetDefault("theme", DefaultConfig.Theme)
	viper.SetDefault("log_level", DefaultConfig.LogLevel)
	viper.SetDefault("context_budget", DefaultConfig.ContextBudget)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv() {
	_ = viper.BindEnv("root_dir", "SCRIPTINDEX_ROOT_DIR")
	_ = viper.BindEnv("path_prefix", "SCRIPTINDEX_PATH_PREFIX")
	_ = viper.BindEnv("source_extension", "SCRIPTINDEX_SOURCE_EXTENSION")
	_ = viper.BindEnv("type_keywords", "SCRIPTINDEX_TYPE_KEYWORDS")
	_ = viper.BindEnv("flat_attribution", "SCRIPTINDEX_FLAT_ATTRIBUTION")
	_ = viper.BindEnv("extractor", "SCRIPTINDEX_EXTRACTOR")
	_ = viper.BindEnv("workers", "SCRIPTINDEX_WORKERS")
	_ = viper.BindEnv("output_dir", "SCRIPTINDEX_OUTPUT_DIR")
	_ = viper.BindEnv("enable_cache", "SCRIPTINDEX_ENABLE_CACHE")
	_ = viper.BindEnv("cache_dir", "SCRIPTINDEX_CACHE_DIR")
	_ = viper.BindEnv("theme", "SCRIPTINDEX_THEME")
	_ = viper.BindEnv("log_level", "SCRIPTINDEX_LOG_LEVEL")
	_ = viper.BindEnv("context_budget", "SCRIPTINDEX_CONTEXT_BUDGET")
}

// bindFlags binds the CLI flags to configuration values.
func bindFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	_ = viper.BindPFlag("root_dir", flags.Lookup("root_dir"))
	_ = viper.BindPFlag("path_prefix", flags.Lookup("path_prefix"))
	_ = viper.BindPFlag("source_extension", flags.Lookup("source_extension"))
	_ = viper.BindPFlag("type_keywords", flags.Lookup("type_keywords"))
	_ = viper.BindPFlag("flat_attribution", flags.Lookup("flat_attribution"))
	_ = viper.BindPFlag("extractor", flags.Lookup("extractor"))
	_ = viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("max_file_size", flags.Lookup("max_file_size"))
	_ = viper.BindPFlag("ignore_patterns", flags.Lookup("ignore"))
	_ = viper.BindPFlag("output_dir", flags.Lookup("output_dir"))
	_ = viper.BindPFlag("enable_cache", flags.Lookup("enable_cache"))
	_ = viper.BindPFlag("cache_dir", flags.Lookup("cache_dir"))
	_ = viper.BindPFlag("theme", flags.Lookup("theme"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log_level"))
	_ = viper.BindPFlag("context_budget", flags.Lookup("context_budget"))
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("root_dir", DefaultConfig.RootDir, "The folder that is scanned for source files.")
	rootCmd.PersistentFlags().String("path_prefix", DefaultConfig.PathPrefix, "Prefix written before every scanned file path in the output.")
	rootCmd.PersistentFlags().String("source_extension", DefaultConfig.SourceExtension, "Extension of the source files to index (e.g., '.cs').")
	rootCmd.PersistentFlags().StringSlice("type_keywords", DefaultConfig.TypeKeywords, "Keywords that start a type declaration (e.g., 'class,struct,interface').")
	rootCmd.PersistentFlags().String("flat_attribution", DefaultConfig.FlatAttribution, "How the flat index assigns members to types: 'scoped' (inside the type's braces) or 'lax' (anywhere after the declaration).")
	rootCmd.PersistentFlags().String("extractor", DefaultConfig.Extractor, "Declaration extractor: 'pattern' or 'treesitter'.")
	rootCmd.PersistentFlags().Int("workers", DefaultConfig.Workers, "Number of files read and parsed in parallel (0 uses all CPUs).")
	rootCmd.PersistentFlags().Int64("max_file_size", DefaultConfig.MaxFileSize, "Files larger than this many bytes are skipped (0 disables the limit).")
	rootCmd.PersistentFlags().StringSlice("ignore", DefaultConfig.IgnorePatterns, "Glob patterns of scan-root relative paths to skip.")
	rootCmd.PersistentFlags().String("output_dir", DefaultConfig.OutputDir, "Folder the saved reports are written to.")
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the extraction cache.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Folder of the extraction cache.")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for highlighted output. (e.g., 'dracula', 'light', 'dark')")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level written to stderr (e.g., 'debug', 'info', 'warn').")
	rootCmd.PersistentFlags().Int("context_budget", DefaultConfig.ContextBudget, "Token budget of the assembled context (0 disables truncation).")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

func (c *Config) resolvePaths(cwd string) {
	for _, p := range []*string{&c.RootDir, &c.OutputDir, &c.CacheDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(cwd, *p)
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.RootDir) == "" {
		errs = append(errs, errors.New("root_dir must not be empty"))
	}
	if len(c.TypeKeywords) == 0 {
		errs = append(errs, errors.New("type_keywords must list at least one keyword"))
	}
	for _, keyword := range c.TypeKeywords {
		if !keywordPattern.MatchString(keyword) {
			errs = append(errs, fmt.Errorf("type_keywords: %q is not a word", keyword))
		}
	}
	if _, err := code_analyzer.ParseFlatAttribution(c.FlatAttribution); err != nil {
		errs = append(errs, fmt.Errorf("flat_attribution: %w", err))
	}
	if _, err := code_analyzer.NewExtractor(c.Extractor, c.TypeKeywords); err != nil {
		errs = append(errs, fmt.Errorf("extractor: %w", err))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.MaxFileSize < 0 {
		errs = append(errs, fmt.Errorf("max_file_size must be >= 0, got %d", c.MaxFileSize))
	}
	if c.ContextBudget < 0 {
		errs = append(errs, fmt.Errorf("context_budget must be >= 0, got %d", c.ContextBudget))
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errors.Join(errs...)
}
