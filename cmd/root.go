package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/meysamhadeli/scriptindex/code_analyzer"
	"github.com/meysamhadeli/scriptindex/config"
	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/token_management"
	contracts_token "github.com/meysamhadeli/scriptindex/token_management/contracts"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootDependencies holds what every subcommand needs.
type RootDependencies struct {
	Cwd             string
	Config          *config.Config
	Logger          zerolog.Logger
	Analyzer        *code_analyzer.CodeAnalyzer
	TokenManagement contracts_token.ITokenManagement
}

var rootCmd = &cobra.Command{
	Use:   "scriptindex",
	Short: "Index the types, fields and methods of a script folder",
	Long: `scriptindex scans a folder of source files and extracts every class declaration
with its base type, interfaces, fields and method signatures. The result is available as a
flat line listing, a nested JSON hierarchy, a compact text report or a SQLite database,
ready to be handed to a language model as project context.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.BlueSky.Render(fmt.Sprintf("version: %s", config.DefaultConfig.Version)))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(err.Error()))
		os.Exit(1)
	}
}

func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel)
	if cfg.ConfigFile != "" {
		logger.Debug().Str("file", cfg.ConfigFile).Msg("using config file")
	} else {
		logger.Debug().Msg("no configuration file found, using defaults")
	}

	ignorePatterns, err := utils.GetIgnorePatterns(cwd)
	if err != nil {
		return nil, err
	}

	extractor, err := code_analyzer.NewExtractor(cfg.Extractor, cfg.TypeKeywords)
	if err != nil {
		return nil, err
	}
	flatAttribution, err := code_analyzer.ParseFlatAttribution(cfg.FlatAttribution)
	if err != nil {
		return nil, err
	}

	var cacheManager *code_analyzer.CacheManager
	if cfg.EnableCache {
		cacheManager, err = code_analyzer.NewCacheManager(cfg.CacheDir)
		if err != nil {
			logger.Warn().Err(err).Msg("extraction cache disabled")
			cacheManager = nil
		}
	}

	analyzer, err := code_analyzer.NewCodeAnalyzer(code_analyzer.Options{
		RootDir:         cfg.RootDir,
		PathPrefix:      cfg.PathPrefix,
		Extension:       cfg.SourceExtension,
		TypeKeywords:    cfg.TypeKeywords,
		FlatAttribution: flatAttribution,
		Extractor:       extractor,
		Workers:         cfg.Workers,
		MaxFileSize:     cfg.MaxFileSize,
		IgnorePatterns:  append(append([]string{}, cfg.IgnorePatterns...), ignorePatterns...),
		CacheManager:    cacheManager,
		Logger:          &logger,
	})
	if err != nil {
		return nil, err
	}

	return &RootDependencies{
		Cwd:             cwd,
		Config:          cfg,
		Logger:          logger,
		Analyzer:        analyzer,
		TokenManagement: token_management.NewTokenManager(),
	}, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func newSpinner(text string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true).
		WithWriter(os.Stderr).
		Start(text)
	return spinner
}
