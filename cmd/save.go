package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/report"
	"github.com/meysamhadeli/scriptindex/store"
	"github.com/spf13/cobra"
)

const (
	flatTarget    = "flat"
	jsonTarget    = "json"
	compactTarget = "compact"
	sqliteTarget  = "sqlite"
	allTarget     = "all"
)

var allTargets = []string{flatTarget, jsonTarget, compactTarget, sqliteTarget}

var saveCmd = &cobra.Command{
	Use:   "save <flat|json|compact|sqlite|all>...",
	Short: "Scan the script folder and write reports to the output folder",
	Long: `The 'save' command refreshes the index and writes the chosen reports into the
configured output folder:

  flat     ` + report.FlatFileName + `
  json     ` + report.JSONFileName + `
  compact  ` + report.CompactFileName + `
  sqlite   ` + report.SQLiteFileName + `
  all      every report above`,
	Args:      cobra.MatchAll(cobra.MinimumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{flatTarget, jsonTarget, compactTarget, sqliteTarget, allTarget},
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		snapshot, err := refreshWithSpinner(ctx, rootDependencies)
		if err != nil {
			return err
		}
		return saveReports(ctx, rootDependencies, snapshot, expandTargets(args))
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}

func expandTargets(args []string) []string {
	seen := make(map[string]bool)
	var targets []string
	for _, arg := range args {
		names := []string{arg}
		if arg == allTarget {
			names = allTargets
		}
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				targets = append(targets, name)
			}
		}
	}
	return targets
}

// saveReports writes each target. A failed write is reported and the
// remaining targets are still written.
func saveReports(ctx context.Context, rootDependencies *RootDependencies, snapshot *models.Snapshot, targets []string) error {
	outputDir := rootDependencies.Config.OutputDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	var failed int
	for _, target := range targets {
		path, err := saveReport(ctx, outputDir, target, snapshot)
		if err != nil {
			failed++
			rootDependencies.Logger.Error().Err(err).Str("target", target).Msg("failed to save report")
			fmt.Println(lipgloss.Red.Render(fmt.Sprintf("Error saving %s: %v", target, err)))
			continue
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Saved %s", path)))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d reports could not be saved", failed, len(targets))
	}
	return nil
}

func saveReport(ctx context.Context, outputDir string, target string, snapshot *models.Snapshot) (string, error) {
	switch target {
	case flatTarget:
		path := filepath.Join(outputDir, report.FlatFileName)
		return path, report.SaveFlat(path, snapshot.Flat)
	case jsonTarget:
		path := filepath.Join(outputDir, report.JSONFileName)
		return path, report.SaveJSON(path, snapshot.Root)
	case compactTarget:
		path := filepath.Join(outputDir, report.CompactFileName)
		return path, report.SaveCompact(path, snapshot.Root)
	case sqliteTarget:
		path := filepath.Join(outputDir, report.SQLiteFileName)
		db, err := store.Open(path)
		if err != nil {
			return path, err
		}
		defer db.Close()
		return path, db.Save(ctx, snapshot)
	default:
		return "", fmt.Errorf("unknown report %q", target)
	}
}
