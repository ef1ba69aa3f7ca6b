package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
	"github.com/ppiankov/openplag/internal/report"
	"github.com/spf13/cobra"
)

var (
	outJSON   string
	outMD     string
	outXLSX   string
	archive   bool
	noWeb     bool
	noCache   bool
	noFooter  bool
	summarize bool
	threshold float64
	name      string
	timeout   time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Check a document for plagiarism",
	Long: `Check compares a document against:
- Prior submissions archived in the local corpus
- Pages found by searching the web for its most distinctive sentences

It prints a summary and optionally writes JSON, Markdown and XLSX reports.
Plain text, Markdown and HTML files are supported; use "-" to read stdin.

Example:
  openplag check essay.txt
  openplag check essay.txt --json report.json --md report.md
  openplag check essay.txt --archive --name "Jane Doe"
  openplag check essay.txt --no-web --threshold 0.8
  OPENPLAG_SUMMARY_PROVIDER=openai openplag check essay.txt --summary`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	checkCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	checkCmd.Flags().StringVar(&outXLSX, "xlsx", "", "output XLSX path (optional)")
	checkCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Check flags
	checkCmd.Flags().BoolVar(&archive, "archive", false, "archive the document into the corpus after checking")
	checkCmd.Flags().StringVar(&name, "name", "", "submitter name stored with the document")
	checkCmd.Flags().BoolVar(&noWeb, "no-web", false, "compare against the local corpus only")
	checkCmd.Flags().BoolVar(&summarize, "summary", false, "add a reviewer summary (requires summary.provider)")
	checkCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache (force fresh fetch)")
	checkCmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold in (0,1] (default from config, 0.75)")
	checkCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	data, filename, err := readInput(path)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking: %s\n", filename)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
	}

	p, _, err := openPipeline(ctx, applyCheckFlags(cmd))
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if summarize && !p.CanSummarize() {
		return fmt.Errorf("--summary needs a summary provider (set summary.provider or OPENPLAG_SUMMARY_PROVIDER)")
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Checking document...\n")
	}

	result, err := p.CheckFile(ctx, data, filename, pipeline.CheckRequest{
		Name:      name,
		Archive:   archive,
		NoWeb:     noWeb,
		Summarize: summarize,
	})
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Compared %d segments\n", result.Verdict.SegmentCount)
		if result.Web != nil {
			fmt.Fprintf(os.Stderr, "✓ Searched %d queries, fetched %d/%d pages\n",
				len(result.Web.Queries), len(result.Web.Sources), len(result.Web.URLs))
		}
		fmt.Fprintln(os.Stderr)
	}

	switch {
	case result.Archived:
		fmt.Fprintf(os.Stderr, "✓ Archived as %s\n", result.DocumentID)
	case result.AlreadyArchived:
		fmt.Fprintf(os.Stderr, "Document already exists in the corpus (%s)\n", result.DocumentID)
	}

	return renderReport(&result.Report, outJSON, outMD, outXLSX, !noFooter)
}

// applyCheckFlags folds check flags into the loaded configuration
func applyCheckFlags(cmd *cobra.Command) func(*model.Config) {
	return func(cfg *model.Config) {
		if cmd.Flags().Changed("threshold") {
			cfg.Match.Threshold = threshold
		}
		if noCache {
			cfg.Cache.Enabled = false
		}
		if noWeb {
			cfg.Web.Enabled = false
		}
	}
}

// readInput reads a file, or stdin for "-"
func readInput(path string) ([]byte, string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "stdin.txt", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	return data, filepath.Base(path), nil
}

// renderReport writes the requested outputs and prints the summary
func renderReport(r *model.Report, jsonPath, mdPath, xlsxPath string, footer bool) error {
	renderer := report.NewRenderer(footer)

	if jsonPath != "" {
		if err := renderer.RenderJSON(r, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(r, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
	}
	if xlsxPath != "" {
		if err := renderer.RenderXLSX(r, xlsxPath); err != nil {
			return fmt.Errorf("render xlsx: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote XLSX: %s\n", xlsxPath)
	}

	renderer.RenderSummary(os.Stdout, r)
	return nil
}
