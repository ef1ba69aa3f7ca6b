package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
	"github.com/spf13/cobra"
)

var clearConfirmed bool

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Inspect or reset the local corpus",
}

var corpusListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived documents in submission order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx, disableWeb)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFILE\tSEGMENTS\tARCHIVED")
		for doc, err := range p.Store().QueryAll(ctx) {
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				doc.ID, doc.Name, doc.Filename, len(doc.Segments),
				doc.CreatedAt.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var corpusCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of archived documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx, disableWeb)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		n, err := p.Store().Count(ctx)
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

var corpusClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every archived document",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirmed {
			return fmt.Errorf("refusing to clear the corpus without --yes")
		}
		ctx := context.Background()
		p, cfg, err := openPipeline(ctx, disableWeb)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		if err := p.ClearCorpus(ctx); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Cleared corpus: %s\n", cfg.Corpus.Path)
		return nil
	},
}

var corpusCheckCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "Re-check an archived document against the rest of the corpus",
	Long: `Check scores an archived document against every other document in the
corpus, and the web unless --no-web is set. The document never matches
itself and is not archived again.

Example:
  openplag corpus list
  openplag corpus check 4f1c2a9e-... --no-web --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		p, _, err := openPipeline(ctx, applyCheckFlags(cmd))
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()

		result, err := p.Recheck(ctx, args[0], pipeline.CheckRequest{NoWeb: noWeb})
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}
		return renderReport(&result.Report, outJSON, outMD, outXLSX, !noFooter)
	},
}

func disableWeb(cfg *model.Config) { cfg.Web.Enabled = false }

func init() {
	rootCmd.AddCommand(corpusCmd)
	corpusCmd.AddCommand(corpusListCmd)
	corpusCmd.AddCommand(corpusCountCmd)
	corpusCmd.AddCommand(corpusClearCmd)
	corpusCmd.AddCommand(corpusCheckCmd)
	corpusClearCmd.Flags().BoolVar(&clearConfirmed, "yes", false, "confirm deletion")

	corpusCheckCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	corpusCheckCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	corpusCheckCmd.Flags().StringVar(&outXLSX, "xlsx", "", "output XLSX path (optional)")
	corpusCheckCmd.Flags().BoolVar(&noWeb, "no-web", false, "compare against the local corpus only")
	corpusCheckCmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "overall check timeout")
}
