package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/report"
	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the flat index as model context",
	Long: `The 'context' command assembles the text handed to a language model as project
awareness: the flat index entries joined by newlines. Use --select to keep only the files
whose path matches a glob, and --budget to cut the text down to an estimated token count.

Examples:
  scriptindex context --select "Assets/Scripts/Player/**"
  scriptindex context --budget 2000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		selectors, _ := cmd.Flags().GetStringArray("select")
		budget := rootDependencies.Config.ContextBudget
		if cmd.Flags().Changed("budget") {
			budget, _ = cmd.Flags().GetInt("budget")
		}
		return handleContextCommand(rootDependencies, selectors, budget)
	},
}

func init() {
	contextCmd.Flags().StringArray("select", nil, "Glob of logical file paths to include (repeatable)")
	contextCmd.Flags().Int("budget", 0, "Token budget of the context (overrides context_budget)")

	rootCmd.AddCommand(contextCmd)
}

func handleContextCommand(rootDependencies *RootDependencies, selectors []string, budget int) error {
	if budget < 0 {
		return fmt.Errorf("budget must be >= 0, got %d", budget)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snapshot, err := refreshWithSpinner(ctx, rootDependencies)
	if err != nil {
		return err
	}

	entries, err := report.SelectEntries(snapshot.Flat, selectors)
	if err != nil {
		return err
	}

	tokens := rootDependencies.TokenManagement
	entries, truncated := tokens.FitToBudget(entries, budget)
	text := report.BuildContext(entries)
	tokens.UsedTokens(tokens.EstimateTokens(text))

	fmt.Println(text)
	if truncated {
		fmt.Fprintln(os.Stderr, lipgloss.Yellow.Render(fmt.Sprintf("Context truncated to %d entries to fit a budget of %d tokens", len(entries), budget)))
	}
	tokens.DisplayTokens(fmt.Sprintf("Entries: %d", len(entries)))
	return nil
}
