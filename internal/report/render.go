package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/openplag/internal/model"
)

// SummarySources is how many sources the terminal summary lists
const SummarySources = 5

// Renderer writes reports to files and terminals
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer. The footer is a short disclaimer under
// Markdown reports.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// WriteJSON encodes the report as indented JSON
func (r *Renderer) WriteJSON(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// RenderJSON writes the report as JSON to path
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error { return r.WriteJSON(w, report) })
}

// RenderMarkdown writes the report as Markdown to path
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, r.Markdown(report))
		return err
	})
}

// Markdown formats the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder

	title := report.Name
	if title == "" {
		title = report.DocumentID
	}
	fmt.Fprintf(&b, "# Plagiarism report: %s\n\n", title)
	fmt.Fprintf(&b, "- **Document ID:** `%s`\n", report.DocumentID)
	fmt.Fprintf(&b, "- **Overall similarity:** %s (%s)\n", percent(report.OverallScore), report.Severity)
	fmt.Fprintf(&b, "- **Segments:** %d checked, %d flagged\n\n", report.SegmentCount, len(report.FlaggedSegments))

	if len(report.Annotations) > 0 {
		b.WriteString("## Notes\n\n")
		for _, a := range report.Annotations {
			fmt.Fprintf(&b, "- `%s`: %s\n", a.Code, a.Message)
		}
		b.WriteString("\n")
	}

	if report.Summary != nil {
		fmt.Fprintf(&b, "## Reviewer summary\n\n%s\n\n", report.Summary.Text)
		fmt.Fprintf(&b, "_Generated by %s/%s._\n\n", report.Summary.Provider, report.Summary.Model)
	}

	b.WriteString("## Sources\n\n")
	if len(report.Sources) == 0 {
		b.WriteString("No matching sources found.\n\n")
	} else {
		b.WriteString("| # | Source | Type | Similarity | Segments |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for _, s := range report.Sources {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %d |\n", s.Rank, mdEscape(sourceName(s)), s.Label, percent(s.Score), s.MatchedSegments)
		}
		b.WriteString("\n")

		for _, s := range report.Sources {
			if len(s.Excerpts) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %d. %s\n\n", s.Rank, sourceName(s))
			for _, e := range s.Excerpts {
				fmt.Fprintf(&b, "> %s\n\n", e.TargetText)
				fmt.Fprintf(&b, "matches (%s):\n\n", percent(e.Score))
				fmt.Fprintf(&b, "> %s\n\n", e.SourceText)
			}
		}
	}

	if len(report.FlaggedSegments) > 0 {
		b.WriteString("## Flagged segments\n\n")
		b.WriteString("| Position | Similarity | Source |\n")
		b.WriteString("|---|---|---|\n")
		for _, f := range report.FlaggedSegments {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", f.Position, percent(f.Score), mdEscape(f.SourceID))
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Similarity is semantic and approximate. A high score marks passages for review; it is not proof of plagiarism._\n")
	}

	return b.String()
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	_, _ = fmt.Fprintf(w, "Overall similarity: %s (%s)\n", percent(report.OverallScore), report.Severity)
	_, _ = fmt.Fprintf(w, "Flagged segments: %d/%d\n", len(report.FlaggedSegments), report.SegmentCount)

	if len(report.Sources) > 0 {
		_, _ = fmt.Fprintln(w, "Top sources:")
		for i, s := range report.Sources {
			if i == SummarySources {
				_, _ = fmt.Fprintf(w, "  ... and %d more\n", len(report.Sources)-SummarySources)
				break
			}
			_, _ = fmt.Fprintf(w, "  %d. [%s] %s %s\n", s.Rank, s.Label, sourceName(s), percent(s.Score))
		}
	}

	for _, a := range report.Annotations {
		_, _ = fmt.Fprintf(w, "⚠ %s\n", a.Message)
	}

	if report.Summary != nil {
		_, _ = fmt.Fprintf(w, "\nReviewer summary (%s):\n%s\n", report.Summary.Provider, report.Summary.Text)
	}
}

func sourceName(s model.SourceSummary) string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Title != "":
		return s.Title
	}
	return s.ID
}

func percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
