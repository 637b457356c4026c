package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/meysamhadeli/scriptindex/constants/lipgloss"
	"github.com/meysamhadeli/scriptindex/utils"
	"github.com/spf13/cobra"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the extraction cache",
	Long: `The 'reset-cache' command removes the cached extraction results in the cache folder
('.cache' by default). Every refresh still reads every file; the cache only skips parsing
of files whose content did not change. Use --older-than to remove only stale entries.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleResetCacheCommand(rootDependencies, force, stats, olderThan)
	},
}

func init() {
	// Define command-specific flags
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Duration("older-than", 0, "Only remove entries older than this (e.g., '72h')")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(rootDependencies *RootDependencies, force bool, showStats bool, olderThan time.Duration) error {
	cacheStats, err := rootDependencies.Analyzer.GetCacheStats()
	if err != nil {
		return fmt.Errorf("could not read cache statistics: %w", err)
	}
	if enabled, ok := cacheStats["cache_enabled"].(bool); !ok || !enabled {
		fmt.Println(lipgloss.Yellow.Render("Cache is disabled. No cache to reset."))
		return nil
	}

	if showStats {
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		if dir, ok := cacheStats["cache_dir"].(string); ok {
			fmt.Printf("  Cache Directory: %s\n", dir)
		}
		if files, ok := cacheStats["cache_files"].(int); ok {
			fmt.Printf("  Cached Files: %d\n", files)
		}
		if size, ok := cacheStats["total_size"].(int64); ok {
			fmt.Printf("  Total Size: %.2f MB\n", float64(size)/(1024*1024))
		}
		return nil
	}

	if olderThan > 0 {
		removed, err := rootDependencies.Analyzer.CleanExpiredCache(olderThan)
		if err != nil {
			return fmt.Errorf("error cleaning cache: %w", err)
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d cache entries older than %s", removed, olderThan)))
		return nil
	}

	if !force {
		accepted, err := utils.ConfirmPrompt("Are you sure you want to reset the entire extraction cache?", bufio.NewReader(os.Stdin))
		if err != nil {
			return err
		}
		if !accepted {
			fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
			return nil
		}
	}

	spinner := newSpinner("Resetting extraction cache...")
	err = rootDependencies.Analyzer.ClearCache()
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return fmt.Errorf("error resetting cache: %w", err)
	}

	fmt.Println(lipgloss.Green.Render("✓ Extraction cache has been successfully reset!"))
	return nil
}
