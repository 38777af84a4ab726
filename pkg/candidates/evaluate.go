package candidates

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/apperrors"
	"github.com/sqlmend/sqlmend/pkg/logging"
	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
	"github.com/sqlmend/sqlmend/pkg/workpool"
)

// CheckOutcome is the result of one candidate's read-only safety check.
type CheckOutcome string

const (
	// CheckPassed: EXPLAIN accepted the statement.
	CheckPassed CheckOutcome = "passed"
	// CheckFailed: the database rejected the statement.
	CheckFailed CheckOutcome = "failed"
	// CheckSkipped: never run — the candidate was rejected earlier, the cap
	// cut it, or the batch budget expired first. No bonus, no penalty.
	CheckSkipped CheckOutcome = "skipped"
)

// SafetyChecker is the read-only EXPLAIN boundary the evaluator fans out
// against. Satisfied by datasource.QueryExecutor.
type SafetyChecker interface {
	ValidateQuery(ctx context.Context, sqlQuery string) error
}

// Candidate is one generated SQL option with everything learned about it.
type Candidate struct {
	Text       string
	Index      int
	Validation sqlpkg.Result
	LintIssues []sqlpkg.LintIssue
	Check      CheckOutcome
	CheckErr   error
	Score      float64
	Breakdown  ScoreBreakdown
	Rejected   bool
	Reason     string
}

// Evaluation is the outcome of one batch.
type Evaluation struct {
	// Candidates ranked: rejected last, then by descending score.
	Candidates []Candidate
	// Selected indexes into Candidates; -1 when everything was rejected.
	Selected int
}

// Best returns the selected candidate, or nil.
func (e *Evaluation) Best() *Candidate {
	if e.Selected < 0 || e.Selected >= len(e.Candidates) {
		return nil
	}
	return &e.Candidates[e.Selected]
}

// Config tunes one evaluator.
type Config struct {
	// Delimiter separates candidates in the raw block.
	Delimiter string `yaml:"delimiter" env:"CAND_DELIMITER" env-default:"---"`
	// MaxCandidates caps how many candidates are parsed (K).
	MaxCandidates int `yaml:"max_candidates" env:"CAND_MAX" env-default:"3"`
	// MaxChecked caps how many surviving candidates get a safety check.
	MaxChecked int `yaml:"max_checked" env:"CAND_MAX_CHECKED" env-default:"3"`
	// MaxConcurrentChecks bounds the check fan-out.
	MaxConcurrentChecks int `yaml:"max_concurrent_checks" env:"CAND_MAX_CONCURRENT" env-default:"3"`
	// BatchBudget is the soft wall-clock deadline for the whole check
	// batch. Checks still outstanding when it expires score as skipped.
	BatchBudget time.Duration `yaml:"batch_budget" env:"CAND_BATCH_BUDGET" env-default:"5s"`
	// Scoring weights.
	Scoring ScoreConfig `yaml:"scoring"`
}

// DefaultConfig returns the stock evaluator settings.
func DefaultConfig() Config {
	return Config{
		Delimiter:           DefaultDelimiter,
		MaxCandidates:       3,
		MaxChecked:          3,
		MaxConcurrentChecks: 3,
		BatchBudget:         5 * time.Second,
		Scoring:             DefaultScoreConfig(),
	}
}

// Evaluator runs the parse/validate/check/score/select pipeline for one
// batch of raw candidates.
type Evaluator struct {
	checker SafetyChecker
	cfg     Config
	pool    *workpool.Pool
	logger  *zap.Logger
}

// NewEvaluator creates an evaluator. checker may be nil, in which case every
// safety check is skipped (offline mode).
func NewEvaluator(checker SafetyChecker, cfg Config, logger *zap.Logger) *Evaluator {
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = 3
	}
	if cfg.MaxChecked <= 0 {
		cfg.MaxChecked = 3
	}
	if cfg.BatchBudget <= 0 {
		cfg.BatchBudget = 5 * time.Second
	}
	return &Evaluator{
		checker: checker,
		cfg:     cfg,
		pool:    workpool.New(cfg.MaxConcurrentChecks, logger),
		logger:  logger.Named("candidates"),
	}
}

// Evaluate parses the raw block and returns ranked candidates with one
// selected. validateOpts is the structural-validation configuration of the
// calling pipeline (allow-list, limits).
func (ev *Evaluator) Evaluate(ctx context.Context, raw, question string, validateOpts sqlpkg.Options) (*Evaluation, error) {
	texts := Split(raw, ev.cfg.Delimiter, ev.cfg.MaxCandidates)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty generation output", apperrors.ErrNoCandidates)
	}

	cands := make([]Candidate, len(texts))
	for i, text := range texts {
		cands[i] = ev.screen(text, i, validateOpts)
	}

	ev.runChecks(ctx, cands)

	for i := range cands {
		lintErrors, lintWarns := countLint(cands[i].LintIssues)
		cands[i].Score, cands[i].Breakdown = Score(
			ev.cfg.Scoring, lintErrors, lintWarns, cands[i].Check, cands[i].Text, question)
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Rejected != cands[j].Rejected {
			return !cands[i].Rejected
		}
		return cands[i].Score > cands[j].Score
	})

	eval := &Evaluation{Candidates: cands, Selected: -1}
	for i, c := range cands {
		if !c.Rejected && c.Check == CheckPassed {
			eval.Selected = i
			break
		}
	}
	if eval.Selected == -1 {
		// No candidate passed the check; hand the orchestrator the best
		// survivor to repair.
		for i, c := range cands {
			if !c.Rejected {
				eval.Selected = i
				break
			}
		}
	}

	if best := eval.Best(); best != nil {
		ev.logger.Debug("candidate selected",
			zap.Int("parsed", len(cands)),
			zap.Float64("score", best.Score),
			zap.String("check", string(best.Check)),
			zap.String("sql", logging.SanitizeQuery(best.Text)))
	}
	return eval, nil
}

// screen runs structural validation and lint over one candidate.
func (ev *Evaluator) screen(text string, index int, opts sqlpkg.Options) Candidate {
	c := Candidate{Text: text, Index: index, Check: CheckSkipped}

	c.Validation = sqlpkg.Validate(text, opts)
	c.Text = c.Validation.SQL // keep any auto-fix (injected LIMIT)
	if c.Validation.FailFast() {
		c.Rejected = true
		c.Reason = firstIssueMessage(c.Validation.Issues)
		return c
	}

	c.LintIssues = sqlpkg.Lint(c.Text)
	if sqlpkg.HasLintErrors(c.LintIssues) {
		c.Rejected = true
		c.Reason = firstLintError(c.LintIssues)
	}
	return c
}

// runChecks fans out safety checks for the surviving candidates under the
// batch budget. Candidates whose check never finished stay CheckSkipped;
// their connections are released by the executor when the underlying call
// eventually returns.
func (ev *Evaluator) runChecks(ctx context.Context, cands []Candidate) {
	if ev.checker == nil {
		return
	}

	var tasks []workpool.Task[error]
	checked := 0
	for i := range cands {
		if cands[i].Rejected || checked >= ev.cfg.MaxChecked {
			continue
		}
		checked++
		idx := i
		sqlText := cands[i].Text
		tasks = append(tasks, workpool.Task[error]{
			ID: fmt.Sprintf("%d", idx),
			Run: func(ctx context.Context) (error, error) {
				return ev.checker.ValidateQuery(ctx, sqlText), nil
			},
		})
	}
	if len(tasks) == 0 {
		return
	}

	results := workpool.Run(ctx, ev.pool, tasks)
	deadline := time.NewTimer(ev.cfg.BatchBudget)
	defer deadline.Stop()

	received := 0
	for received < len(tasks) {
		select {
		case res, ok := <-results:
			if !ok {
				return
			}
			received++
			idx := atoi(res.ID)
			if res.Value == nil {
				cands[idx].Check = CheckPassed
			} else {
				cands[idx].Check = CheckFailed
				cands[idx].CheckErr = res.Value
			}
		case <-deadline.C:
			ev.logger.Debug("check batch budget expired",
				zap.Int("finished", received),
				zap.Int("outstanding", len(tasks)-received))
			return
		case <-ctx.Done():
			return
		}
	}
}

func countLint(issues []sqlpkg.LintIssue) (errors, warns int) {
	for _, issue := range issues {
		if issue.Severity == sqlpkg.LintError {
			errors++
		} else {
			warns++
		}
	}
	return errors, warns
}

func firstIssueMessage(issues []sqlpkg.Issue) string {
	for _, issue := range issues {
		if issue.Action == sqlpkg.ActionFailFast {
			return issue.Message
		}
	}
	if len(issues) > 0 {
		return issues[0].Message
	}
	return "validation failed"
}

func firstLintError(issues []sqlpkg.LintIssue) string {
	for _, issue := range issues {
		if issue.Severity == sqlpkg.LintError {
			return issue.Message
		}
	}
	return "lint failed"
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}
