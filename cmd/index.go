package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/report"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Scan the script folder and print the project index",
	Long: `The 'index' command scans the configured root folder and prints a summary of the
indexed files and types. Use --flat, --compact or --json to print one of the renderings
instead, and --save to also write every report into the output folder.

Examples:
  # Summary of the default Assets/Scripts folder
  scriptindex index

  # Compact hierarchy of another folder
  scriptindex index --compact --root_dir ./Game/Scripts

  # Nested hierarchy as JSON
  scriptindex index --json > hierarchy.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		flat, _ := cmd.Flags().GetBool("flat")
		compact, _ := cmd.Flags().GetBool("compact")
		asJSON, _ := cmd.Flags().GetBool("json")
		save, _ := cmd.Flags().GetBool("save")
		plain, _ := cmd.Flags().GetBool("plain")
		return handleIndexCommand(rootDependencies, flat, compact, asJSON, save, plain)
	},
}

func init() {
	indexCmd.Flags().Bool("flat", false, "Print the flat index")
	indexCmd.Flags().Bool("compact", false, "Print the compact hierarchy report")
	indexCmd.Flags().Bool("json", false, "Print the hierarchy as JSON")
	indexCmd.Flags().Bool("save", false, "Also write all reports into the output folder")
	indexCmd.Flags().Bool("plain", false, "Disable syntax highlighting")
	indexCmd.MarkFlagsMutuallyExclusive("flat", "compact", "json")

	rootCmd.AddCommand(indexCmd)
}

func handleIndexCommand(rootDependencies *RootDependencies, flat, compact, asJSON, save, plain bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snapshot, err := refreshWithSpinner(ctx, rootDependencies)
	if err != nil {
		return err
	}

	switch {
	case flat:
		err = utils.PrintHighlighted(os.Stdout, report.RenderFlat(snapshot.Flat)+"\n", utils.SourceLanguage, rootDependencies.Config.Theme, plain)
	case compact:
		err = utils.PrintHighlighted(os.Stdout, report.RenderCompact(snapshot.Root), utils.SourceLanguage, rootDependencies.Config.Theme, plain)
	case asJSON:
		err = report.WriteJSON(os.Stdout, snapshot.Root)
	default:
		printSummary(snapshot)
	}
	if err != nil {
		return err
	}

	if save {
		return saveReports(ctx, rootDependencies, snapshot, allTargets)
	}
	return nil
}

func refreshWithSpinner(ctx context.Context, rootDependencies *RootDependencies) (*models.Snapshot, error) {
	spinner := newSpinner("Indexing scripts...")
	snapshot, err := rootDependencies.Analyzer.Refresh(ctx)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return nil, err
	}
	printDiagnostics(snapshot)
	return snapshot, nil
}

func printSummary(snapshot *models.Snapshot) {
	summary := fmt.Sprintf("Files: %d - Types: %d - Flat Entries: %d - Diagnostics: %d",
		snapshot.FileCount, snapshot.TypeCount, len(snapshot.Flat), len(snapshot.Diagnostics))
	fmt.Println(lipgloss.BoxStyle.Render(summary))
}

func printDiagnostics(snapshot *models.Snapshot) {
	for _, diagnostic := range snapshot.Diagnostics {
		style := lipgloss.Yellow
		if diagnostic.Kind == models.FileReadFailure {
			style = lipgloss.Red
		}
		fmt.Fprintln(os.Stderr, style.Render(fmt.Sprintf("⚠ %s", diagnostic.Message)))
	}
}
