package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ppiankov/openplag/internal/corpus"
	"github.com/ppiankov/openplag/internal/embed"
	"github.com/ppiankov/openplag/internal/extract"
	"github.com/ppiankov/openplag/internal/llm"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/normalize"
	"github.com/ppiankov/openplag/internal/report"
	"github.com/ppiankov/openplag/internal/similarity"
	"github.com/ppiankov/openplag/internal/web"
	"golang.org/x/sync/errgroup"
)

// Gatherer finds candidate sources for a document on the web
type Gatherer interface {
	Gather(ctx context.Context, doc *model.Document) (*web.GatherResult, error)
}

// Pipeline orchestrates the complete check process
type Pipeline struct {
	normalizer *normalize.Normalizer
	embedder   *embed.Batcher
	matcher    *corpus.Matcher
	gatherer   Gatherer // nil when web evidence is disabled
	aggregator *similarity.Aggregator
	summarizer *llm.Summarizer // nil or disabled when summaries are off
	config     *model.Config
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a pipeline over an explicit store and embedding provider.
// gatherer may be nil. Call Load before the first check against a
// non-empty store.
func New(cfg *model.Config, store corpus.Store, provider embed.Provider, gatherer Gatherer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	aggregator := similarity.NewAggregator(cfg.Match.Threshold)
	return &Pipeline{
		normalizer: normalize.New(cfg.Normalize.MinSegmentChars, cfg.Normalize.MaxSegmentChars),
		embedder:   embed.NewBatcher(provider, cfg.Embedding.BatchSize, cfg.Embedding.Concurrency, logger),
		// Index hits below the match threshold can never become matches
		matcher:    corpus.NewMatcher(store, nil, cfg.Corpus.TopK, aggregator.Threshold()),
		gatherer:   gatherer,
		aggregator: aggregator,
		config:     cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// WithSummarizer enables reviewer summaries for requests that ask for one
func (p *Pipeline) WithSummarizer(s *llm.Summarizer) *Pipeline {
	p.summarizer = s
	return p
}

// CanSummarize reports whether a summary provider is configured
func (p *Pipeline) CanSummarize() bool { return p.summarizer.IsEnabled() }

// Load indexes the stored corpus
func (p *Pipeline) Load(ctx context.Context) error {
	if err := p.matcher.Load(ctx); err != nil {
		return err
	}
	p.logger.Debug("corpus index loaded", "segments", p.matcher.Indexed())
	return nil
}

// Store returns the corpus store
func (p *Pipeline) Store() corpus.Store { return p.matcher.Store() }

// Close releases the corpus store
func (p *Pipeline) Close() error { return p.matcher.Store().Close() }

// CheckRequest is one submission to check
type CheckRequest struct {
	Text      string
	Name      string // Submitter
	Filename  string
	Archive   bool // Store the submission after checking
	NoWeb     bool // Skip web evidence for this check
	Summarize bool // Attach a reviewer summary when a provider is configured
}

// Result contains the complete check result
type Result struct {
	Verdict model.Verdict
	Report  model.Report
	// DocumentID identifies the checked submission, or its stored copy
	// once archived
	DocumentID      string
	Archived        bool
	AlreadyArchived bool
	Web             *web.GatherResult // nil when web evidence was not gathered
}

// Check scores a submission against the local corpus and the web. Each
// submission is a new document: text identical to an archived paper is
// reported as a full match against it. Degraded phases become report
// annotations; errors are reserved for unusable input, cancellation and
// storage failures.
func (p *Pipeline) Check(ctx context.Context, req CheckRequest) (*Result, error) {
	// 1. Normalize
	doc, err := p.document(req.Text, req.Name, req.Filename)
	if err != nil {
		return nil, err
	}
	return p.check(ctx, req, doc, false)
}

// Recheck scores a stored document against the rest of the corpus and the
// web, reusing its stored embeddings. The document is excluded from its
// own candidates. req.Archive is ignored.
func (p *Pipeline) Recheck(ctx context.Context, id string, req CheckRequest) (*Result, error) {
	doc, err := p.matcher.Store().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req.Archive = false
	return p.check(ctx, req, doc, true)
}

// check runs phases 2-5 for doc. stored marks a document that is itself
// part of the corpus.
func (p *Pipeline) check(ctx context.Context, req CheckRequest, doc *model.Document, stored bool) (*Result, error) {
	var notes []model.Annotation
	result := &Result{DocumentID: doc.ID}

	if len(doc.Segments) == 0 {
		notes = append(notes, model.Annotation{
			Code:    model.NoteEmptyDocument,
			Message: "no segments survived normalization",
		})
		return p.finish(ctx, req, doc, nil, notes, result)
	}

	// 2. Embed
	stats, err := p.embedMissing(ctx, doc.Segments)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	if stats.Failed > 0 {
		notes = append(notes, model.Annotation{
			Code:    model.NoteUnembeddableSegments,
			Message: fmt.Sprintf("%d of %d segments could not be embedded and were not compared", stats.Failed, len(doc.Segments)),
		})
	}

	count, err := p.matcher.Store().Count(ctx)
	if stored {
		count--
	}
	if err != nil {
		p.logger.Warn("corpus count failed", "error", err)
	} else if count <= 0 {
		notes = append(notes, model.Annotation{
			Code:    model.NoteEmptyCorpus,
			Message: "the local corpus holds no prior submissions",
		})
	}

	// 3. Local matching and web gathering run concurrently
	var (
		local    []model.CandidateSource
		localErr error
		gathered *web.GatherResult
	)
	useWeb := p.gatherer != nil && !req.NoWeb

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		local, localErr = p.matcher.MatchLocal(gctx, doc)
		return ctx.Err()
	})
	if useWeb {
		g.Go(func() error {
			res, err := p.gatherer.Gather(gctx, doc)
			if err != nil {
				return err
			}
			if err := p.embedSources(gctx, res.Sources); err != nil {
				return err
			}
			gathered = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var candidates []model.CandidateSource
	if localErr != nil {
		p.logger.Warn("local matching failed", "error", localErr)
		notes = append(notes, model.Annotation{
			Code:    model.NoteLocalMatchFailed,
			Message: "local corpus could not be searched: " + localErr.Error(),
		})
	}
	candidates = append(candidates, local...)

	if useWeb {
		result.Web = gathered
		candidates = append(candidates, gathered.Sources...)
		notes = append(notes, webNotes(gathered)...)
	} else {
		notes = append(notes, model.Annotation{
			Code:    model.NoteWebDisabled,
			Message: "web evidence was not gathered",
		})
	}

	return p.finish(ctx, req, doc, candidates, notes, result)
}

// finish aggregates, builds the report and archives when requested
func (p *Pipeline) finish(ctx context.Context, req CheckRequest, doc *model.Document, candidates []model.CandidateSource, notes []model.Annotation, result *Result) (*Result, error) {
	// 4. Aggregate
	verdict := p.aggregator.Aggregate(doc, candidates)
	verdict.Notes = notes

	// 5. Report
	result.Verdict = verdict
	result.Report = report.Build(verdict, p.config.Match.Excerpts)

	if req.Summarize && p.summarizer.IsEnabled() {
		if err := p.summarize(ctx, result); err != nil {
			return nil, err
		}
	}

	if req.Archive && len(doc.Segments) > 0 {
		id, err := p.matcher.Archive(ctx, doc)
		if id != "" {
			result.DocumentID = id
		}
		switch {
		case errors.Is(err, model.ErrAlreadyArchived):
			result.AlreadyArchived = true
			p.logger.Info("document already exists in the corpus", "id", id)
		case err != nil:
			return nil, fmt.Errorf("archive: %w", err)
		default:
			result.Archived = true
		}
	}

	p.logger.Debug("check complete",
		"document", doc.ID,
		"segments", len(doc.Segments),
		"candidates", len(candidates),
		"sources", len(verdict.Sources),
		"score", verdict.OverallScore)

	return result, nil
}

// summarize attaches a reviewer summary. Provider failures degrade to a
// report annotation, leaving the verdict as aggregated; only cancellation
// is returned.
func (p *Pipeline) summarize(ctx context.Context, result *Result) error {
	summary, err := p.summarizer.Summarize(ctx, &result.Report)
	if err == nil {
		result.Report.Summary = summary
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.logger.Warn("reviewer summary failed", "provider", p.summarizer.ProviderName(), "error", err)
	note := model.Annotation{
		Code:    model.NoteSummaryFailed,
		Message: "reviewer summary unavailable: " + err.Error(),
	}
	result.Report.Annotations = append(result.Report.Annotations, note)
	return nil
}

// webNotes turns degraded web phases into annotations
func webNotes(res *web.GatherResult) []model.Annotation {
	var notes []model.Annotation

	switch {
	case res.SearchFailed():
		notes = append(notes, model.Annotation{
			Code:    model.NoteWebSearchFailed,
			Message: fmt.Sprintf("web search failed for all %d queries", len(res.Queries)),
		})
	case len(res.Sources) == 0 && !res.Partial:
		notes = append(notes, model.Annotation{
			Code:    model.NoteWebEvidenceUnavailable,
			Message: "no web pages could be retrieved for comparison",
		})
	}

	if len(res.FetchErrors) > 0 {
		notes = append(notes, model.Annotation{
			Code:    model.NoteFetchFailures,
			Message: fmt.Sprintf("%d of %d pages could not be fetched", len(res.FetchErrors), len(res.URLs)),
		})
	}

	if res.Partial {
		notes = append(notes, model.Annotation{
			Code:    model.NotePartialWebEvidence,
			Message: fmt.Sprintf("%v: %d of %d pages compared", model.ErrBudgetExceeded, len(res.Sources), len(res.URLs)),
		})
	}

	return notes
}

// embedMissing embeds the segments that carry no vector yet, in place
func (p *Pipeline) embedMissing(ctx context.Context, segments []model.Segment) (embed.Stats, error) {
	var idx []int
	for i := range segments {
		if !segments[i].Embedded() {
			idx = append(idx, i)
		}
	}
	if len(idx) == len(segments) {
		return p.embedder.EmbedSegments(ctx, segments)
	}

	pending := make([]model.Segment, len(idx))
	for j, i := range idx {
		pending[j] = segments[i]
	}
	stats, err := p.embedder.EmbedSegments(ctx, pending)
	if err != nil {
		return stats, err
	}
	for j, i := range idx {
		segments[i].Embedding = pending[j].Embedding
	}
	stats.Embedded += len(segments) - len(idx)
	return stats, nil
}

// embedSources embeds every web segment in one batched pass
func (p *Pipeline) embedSources(ctx context.Context, sources []model.CandidateSource) error {
	var all []model.Segment
	for _, s := range sources {
		all = append(all, s.Segments...)
	}
	if len(all) == 0 {
		return nil
	}

	stats, err := p.embedder.EmbedSegments(ctx, all)
	if err != nil {
		return fmt.Errorf("embed web sources: %w", err)
	}
	if stats.Failed > 0 {
		p.logger.Debug("web segments not embedded", "failed", stats.Failed, "total", len(all))
	}

	i := 0
	for s := range sources {
		for j := range sources[s].Segments {
			sources[s].Segments[j].Embedding = all[i].Embedding
			i++
		}
	}
	return nil
}

// document validates and segments raw submission text
func (p *Pipeline) document(text, name, filename string) (*model.Document, error) {
	trimmed := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(trimmed); n < p.config.Normalize.MinTextChars {
		return nil, fmt.Errorf("%w: %d characters, need at least %d", model.ErrTextTooShort, n, p.config.Normalize.MinTextChars)
	}

	doc := model.NewDocument(name, trimmed, p.normalizer.Normalize(trimmed), p.now().UTC())
	doc.Filename = filename
	return doc, nil
}

// CheckFile extracts text from an uploaded file and checks it
func (p *Pipeline) CheckFile(ctx context.Context, data []byte, filename string, req CheckRequest) (*Result, error) {
	text, err := extract.Text(data, extract.FormatFromFilename(filename))
	if err != nil {
		return nil, err
	}
	req.Text = text
	req.Filename = filename
	return p.Check(ctx, req)
}

// ArchiveRequest is a submission to store without checking
type ArchiveRequest struct {
	Text     string
	Name     string
	Filename string
}

// ArchiveResult reports the stored document
type ArchiveResult struct {
	ID            string
	Segments      int
	AlreadyExists bool
}

// Archive embeds and stores a submission so later checks compare against it
func (p *Pipeline) Archive(ctx context.Context, req ArchiveRequest) (*ArchiveResult, error) {
	doc, err := p.document(req.Text, req.Name, req.Filename)
	if err != nil {
		return nil, err
	}
	if len(doc.Segments) == 0 {
		return nil, fmt.Errorf("%w: no segments survived normalization", model.ErrTextTooShort)
	}

	if _, err := p.embedder.EmbedSegments(ctx, doc.Segments); err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}

	id, err := p.matcher.Archive(ctx, doc)
	switch {
	case errors.Is(err, model.ErrAlreadyArchived):
		return &ArchiveResult{ID: id, Segments: len(doc.Segments), AlreadyExists: true}, nil
	case err != nil:
		return nil, fmt.Errorf("archive: %w", err)
	}
	return &ArchiveResult{ID: id, Segments: len(doc.Segments)}, nil
}

// ArchiveFile extracts text from a file and archives it
func (p *Pipeline) ArchiveFile(ctx context.Context, data []byte, filename, name string) (*ArchiveResult, error) {
	text, err := extract.Text(data, extract.FormatFromFilename(filename))
	if err != nil {
		return nil, err
	}
	return p.Archive(ctx, ArchiveRequest{Text: text, Name: name, Filename: filename})
}

// ClearCorpus deletes every stored submission
func (p *Pipeline) ClearCorpus(ctx context.Context) error {
	return p.matcher.Clear(ctx)
}

// PathChecker checks files from disk for batch runs
type PathChecker struct {
	pipeline *Pipeline
	archive  bool
	noWeb    bool
}

// PathChecker returns a worker.Checker reading each path from disk
func (p *Pipeline) PathChecker(archive, noWeb bool) *PathChecker {
	return &PathChecker{pipeline: p, archive: archive, noWeb: noWeb}
}

// CheckPath reads and checks one file
func (c *PathChecker) CheckPath(ctx context.Context, path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	result, err := c.pipeline.CheckFile(ctx, data, filepath.Base(path), CheckRequest{
		Archive: c.archive,
		NoWeb:   c.noWeb,
	})
	if err != nil {
		return nil, err
	}
	return &result.Report, nil
}
