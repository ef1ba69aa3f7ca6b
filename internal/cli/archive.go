package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var archiveName string

var archiveCmd = &cobra.Command{
	Use:   "archive <file>...",
	Short: "Add documents to the local corpus without checking them",
	Long: `Archive stores documents in the local corpus so later checks compare
against them. A document whose content is already archived is skipped.

Example:
  openplag archive essays/*.txt
  openplag archive essay.md --name "Jane Doe"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runArchive,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().StringVar(&archiveName, "name", "", "submitter name stored with each document")
	archiveCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall timeout")
}

func runArchive(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p, _, err := openPipeline(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	failed := 0
	for _, path := range args {
		data, filename, err := readInput(path)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			continue
		}
		res, err := p.ArchiveFile(ctx, data, filename, archiveName)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			continue
		}
		if res.AlreadyExists {
			fmt.Fprintf(os.Stderr, "• %s already exists in the corpus (%s)\n", path, res.ID)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s archived as %s (%d segments)\n", path, res.ID, res.Segments)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents could not be archived", failed, len(args))
	}
	return nil
}
