package cli

import (
	"fmt"
	"os"

	"github.com/ppiankov/openplag/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-page cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached web page",
	Long: `Clear removes cached pages so the next check fetches every source again.
The corpus is not touched.

Example:
  openplag cache clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pages := cache.New(cfg.Cache)
		if pages == nil {
			fmt.Fprintln(os.Stderr, "Page cache is disabled, nothing to clear")
			return nil
		}
		if err := pages.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if cfg.Cache.Dir != "" {
			fmt.Fprintf(os.Stderr, "✓ Cleared page cache: %s\n", cfg.Cache.Dir)
		} else {
			fmt.Fprintln(os.Stderr, "✓ Cleared page cache")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
