package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/openplag/internal/model"
)

// Checker checks one file on disk
type Checker interface {
	CheckPath(ctx context.Context, path string) (*model.Report, error)
}

// CheckJob checks a single file
type CheckJob struct {
	Index   int
	Path    string
	Checker Checker
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	report, err := j.Checker.CheckPath(ctx, j.Path)
	return &CheckResult{
		Index:  j.Index,
		Path:   j.Path,
		Report: report,
		Error:  err,
	}
}

// CheckResult is the outcome of one file check
type CheckResult struct {
	Index  int
	Path   string
	Report *model.Report
	Error  error
}

// GetError returns the check error
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many files concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessPaths checks every path and returns results in input order.
// Paths not reached before ctx ends are reported with ctx's error.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*CheckResult {
	if len(paths) == 0 {
		return []*CheckResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, path := range paths {
			if !pool.Submit(&CheckJob{Index: i, Path: path, Checker: b.checker}) {
				break
			}
		}
		pool.Close()
	}()

	out := make([]*CheckResult, len(paths))
	for result := range pool.Results() {
		r := result.(*CheckResult)
		out[r.Index] = r
	}

	for i := range out {
		if out[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &CheckResult{Index: i, Path: paths[i], Error: err}
		}
	}

	return out
}

// ProcessFile reads a path list and checks every entry
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*CheckResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads one path per line, skipping blanks and # comments.
// Relative entries resolve against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	base := filepath.Dir(listPath)

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		path := line
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		path = filepath.Clean(path)

		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
