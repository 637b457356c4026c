package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meysamhadeli/scriptindex/code_analyzer"
	"github.com/meysamhadeli/scriptindex/code_analyzer/models"
	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/report"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-index whenever a script changes and print what changed",
	Long: `The 'watch' command indexes the root folder once and then watches it. After every
burst of changes to source files the whole folder is indexed again and the difference of
the compact report is printed. Use --save to rewrite all reports after each change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")
		plain, _ := cmd.Flags().GetBool("plain")
		debounce, _ := cmd.Flags().GetDuration("debounce")
		return handleWatchCommand(rootDependencies, save, plain, debounce)
	},
}

func init() {
	watchCmd.Flags().Bool("save", false, "Write all reports after every refresh")
	watchCmd.Flags().Bool("plain", false, "Disable syntax highlighting")
	watchCmd.Flags().Duration("debounce", code_analyzer.DefaultDebounce, "Quiet period after the last change before re-indexing")

	rootCmd.AddCommand(watchCmd)
}

func handleWatchCommand(rootDependencies *RootDependencies, save bool, plain bool, debounce time.Duration) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snapshot, err := refreshWithSpinner(ctx, rootDependencies)
	if err != nil {
		return err
	}
	printSummary(snapshot)
	if len(snapshot.Warnings(models.MissingRoot)) > 0 {
		return fmt.Errorf("cannot watch %s: folder not found", rootDependencies.Analyzer.RootDir())
	}
	if save {
		if err := saveReports(ctx, rootDependencies, snapshot, allTargets); err != nil {
			rootDependencies.Logger.Warn().Err(err).Msg("initial save failed")
		}
	}

	onRefresh := func(previous *models.Snapshot, current *models.Snapshot) {
		printDiagnostics(current)
		diff := report.DiffSnapshots(previous, current)
		if diff == "" {
			fmt.Println(lipgloss.Gray.Render("No structural changes."))
			return
		}
		if err := utils.PrintHighlighted(os.Stdout, diff, "diff", rootDependencies.Config.Theme, plain); err != nil {
			rootDependencies.Logger.Warn().Err(err).Msg("failed to print diff")
		}
		printSummary(current)
		if save {
			if err := saveReports(ctx, rootDependencies, current, allTargets); err != nil {
				rootDependencies.Logger.Warn().Err(err).Msg("save after refresh failed")
			}
		}
	}

	watcher, err := code_analyzer.NewWatcher(rootDependencies.Analyzer, debounce, onRefresh)
	if err != nil {
		return err
	}

	fmt.Println(lipgloss.Info.Render(fmt.Sprintf("Watching %s (Ctrl+C to stop)", rootDependencies.Analyzer.RootDir())))
	if err := watcher.Run(ctx); err != nil {
		return err
	}
	fmt.Println(lipgloss.Yellow.Render("\n🔄 Exiting..."))
	return nil
}
