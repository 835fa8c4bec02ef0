package comparator

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/harrison/reqcheck/internal/config"
	"github.com/harrison/reqcheck/internal/evaluator"
	"github.com/harrison/reqcheck/internal/locator"
	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/rules"
)

// DefaultDiffMaxLines bounds the audit diff attached to each row
const DefaultDiffMaxLines = 8

// Logger receives per-row events while a comparison runs.
type Logger interface {
	LogRow(row models.ComparisonRow)
	LogError(message string)
}

// ProgressFunc is called after each row completes with the number of finished rows.
type ProgressFunc func(done, total int)

// Comparator runs locate + evaluate for every requirement against one counterpart document.
type Comparator struct {
	workers      int
	logger       Logger
	progress     ProgressFunc
	diffMaxLines int
	matching     config.MatchingConfig
	rules        *rules.Compiled

	// evaluate is swapped in tests to exercise per-row isolation
	evaluate func(doc *locator.Document, ev *evaluator.Evaluator, req models.Requirement) models.ComparisonRow
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithWorkers bounds the number of requirements evaluated concurrently.
// Zero or negative selects runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Comparator) { c.workers = n }
}

// WithLogger attaches a logger; nil disables logging.
func WithLogger(l Logger) Option {
	return func(c *Comparator) { c.logger = l }
}

// WithProgress attaches a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Comparator) { c.progress = fn }
}

// WithDiffMaxLines sets the maximum number of diff lines per row.
func WithDiffMaxLines(n int) Option {
	return func(c *Comparator) { c.diffMaxLines = n }
}

// WithMatching overrides the locator tunables.
func WithMatching(cfg config.MatchingConfig) Option {
	return func(c *Comparator) { c.matching = cfg }
}

// WithRules selects the ruleset shared by locator and evaluator.
func WithRules(rs *rules.Compiled) Option {
	return func(c *Comparator) { c.rules = rs }
}

// New constructs a Comparator with default tunables and the built-in ruleset.
func New(opts ...Option) *Comparator {
	c := &Comparator{
		diffMaxLines: DefaultDiffMaxLines,
		matching:     config.DefaultMatchingConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rules == nil {
		c.rules = rules.DefaultCompiled()
	}
	if c.diffMaxLines <= 0 {
		c.diffMaxLines = DefaultDiffMaxLines
	}
	c.evaluate = c.compareOne
	return c
}

// NewFromConfig builds a Comparator from the application configuration.
func NewFromConfig(cfg *config.Config, rs *rules.Compiled, opts ...Option) *Comparator {
	base := []Option{
		WithWorkers(cfg.Workers),
		WithDiffMaxLines(cfg.DiffMaxLines),
		WithMatching(cfg.Matching),
		WithRules(rs),
	}
	return New(append(base, opts...)...)
}

// Compare returns one row per requirement in input order. A failure while
// evaluating one requirement yields a NOT_FOUND row with Error set and does
// not affect the others.
func (c *Comparator) Compare(reqs []models.Requirement, counterpart string) []models.ComparisonRow {
	rows := make([]models.ComparisonRow, len(reqs))
	if len(reqs) == 0 {
		return rows
	}

	doc := locator.New(c.matching, c.rules).Prepare(counterpart)
	ev := evaluator.New(c.rules)

	maxConcurrency := c.workers
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}
	if maxConcurrency > len(reqs) {
		maxConcurrency = len(reqs)
	}

	semaphore := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	var done int
	var progressMu sync.Mutex

	for i := range reqs {
		semaphore <- struct{}{}
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			rows[i] = c.safeCompare(doc, ev, reqs[i])

			if c.logger != nil {
				c.logger.LogRow(rows[i])
			}
			progressMu.Lock()
			done++
			if c.progress != nil {
				c.progress(done, len(reqs))
			}
			progressMu.Unlock()
		}(i)
	}

	wg.Wait()
	return rows
}

func (c *Comparator) safeCompare(doc *locator.Document, ev *evaluator.Evaluator, req models.Requirement) (row models.ComparisonRow) {
	defer func() {
		if r := recover(); r != nil {
			row = models.ComparisonRow{
				ReqID:   req.ID,
				Section: req.Section,
				ReqText: req.Text,
				Status:  models.StatusNotFound,
				Error:   fmt.Sprintf("%v", r),
			}
			if c.logger != nil {
				c.logger.LogError(fmt.Sprintf("requirement %s: %v", req.ID, r))
			}
		}
	}()
	return c.evaluate(doc, ev, req)
}

func (c *Comparator) compareOne(doc *locator.Document, ev *evaluator.Evaluator, req models.Requirement) models.ComparisonRow {
	row := models.ComparisonRow{
		ReqID:   req.ID,
		Section: req.Section,
		ReqText: req.Text,
		Status:  models.StatusNotFound,
	}

	match := doc.Locate(req.Number, req.Text, req.Mentions)
	if !match.Found() {
		return row
	}

	satisfied, total, note := ev.Evaluate(req.Constraints, match.Evidence)
	switch {
	case total == 0:
		row.Status = models.StatusFound
	case satisfied == total:
		row.Status = models.StatusOK
	default:
		row.Status = models.StatusPartial
	}

	row.MatchType = string(match.MatchType)
	if note != "" {
		row.MatchType += "; " + note
	}
	row.Evidence = match.Evidence
	row.Coverage = models.FormatCoverage(satisfied, total)
	row.Diff = Diff(req.Text, match.Evidence, c.diffMaxLines)
	return row
}

// Diff returns a short unified diff between the requirement and its evidence,
// keeping only header, hunk and changed lines.
func Diff(a, b string, maxLines int) string {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimSpace(a)),
		B:        difflib.SplitLines(strings.TrimSpace(b)),
		FromFile: "requirement",
		ToFile:   "evidence",
		Context:  0,
	}
	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		if maxLines > 0 && len(out) >= maxLines {
			break
		}
		if strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "@@") {
			out = append(out, line)
		}
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
