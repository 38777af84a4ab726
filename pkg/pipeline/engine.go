// Package pipeline is the repair-loop orchestrator: generate, validate, lint,
// safety-check, execute, and loop back with accumulated failure context until
// the query succeeds or the attempt budget runs out.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/adapters/datasource"
	"github.com/sqlmend/sqlmend/pkg/apperrors"
	"github.com/sqlmend/sqlmend/pkg/candidates"
	"github.com/sqlmend/sqlmend/pkg/dberr"
	"github.com/sqlmend/sqlmend/pkg/joinplan"
	"github.com/sqlmend/sqlmend/pkg/llm"
	"github.com/sqlmend/sqlmend/pkg/logging"
	"github.com/sqlmend/sqlmend/pkg/prompts"
	"github.com/sqlmend/sqlmend/pkg/repair"
	"github.com/sqlmend/sqlmend/pkg/schema"
	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// Engine drives one schema context's question-to-rows loop. Safe for
// concurrent use; all mutable per-question state lives on the stack.
type Engine struct {
	generator llm.Client
	executor  datasource.QueryExecutor
	evaluator *candidates.Evaluator
	sc        *schema.Context
	graphs    *joinplan.Cache
	blacklist *repair.Blacklist
	cfg       Config
	logger    *zap.Logger
}

// NewEngine wires the orchestrator. executor may be nil: safety checks are
// then skipped and Answer returns SQL without rows (offline mode).
func NewEngine(generator llm.Client, executor datasource.QueryExecutor, sc *schema.Context, cfg Config, logger *zap.Logger) *Engine {
	cfg = cfg.withDefaults()

	var checker candidates.SafetyChecker
	if executor != nil {
		checker = executor
	}
	return &Engine{
		generator: generator,
		executor:  executor,
		evaluator: candidates.NewEvaluator(checker, cfg.Candidates, logger),
		sc:        sc,
		graphs:    joinplan.NewCache(logger),
		blacklist: repair.DefaultBlacklist(),
		cfg:       cfg,
		logger:    logger.Named("pipeline"),
	}
}

// SetBlacklist replaces the default risk blacklist.
func (e *Engine) SetBlacklist(b *repair.Blacklist) {
	if b != nil {
		e.blacklist = b
	}
}

// attemptState accumulates the failure context carried into repair prompts.
type attemptState struct {
	baseConfidence float64
	prevSQL        string
	issues         []string
	dbErrText      string
	hint           string
	whitelist      string
}

func (st *attemptState) retryWith(sqlText string, issues []string, dbErrText, hint, whitelist string) {
	st.prevSQL = sqlText
	st.issues = issues
	st.dbErrText = dbErrText
	st.hint = hint
	st.whitelist = whitelist
}

// Answer runs the full loop for one question. On success the response carries
// rows (when an executor is wired), the final SQL, and the per-attempt trace.
// Terminal failures return a *Failure.
func (e *Engine) Answer(ctx context.Context, question string) (*QueryResponse, error) {
	start := time.Now()
	resp := &QueryResponse{QueryID: uuid.NewString(), Question: question}
	st := &attemptState{baseConfidence: e.cfg.DefaultConfidence}
	joinHint := e.joinHint()

	log := e.logger.With(zap.String("query_id", resp.QueryID))
	log.Info("answering question", zap.String("question", question))

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, e.failure(resp, dberr.ClassInfra, st, err)
		}

		raw, err := e.generate(ctx, question, joinHint, st, attempt)
		if err != nil {
			return nil, e.failure(resp, dberr.ClassInfra, st,
				fmt.Errorf("generation failed: %w", err))
		}

		parsed := llm.ParseSQLResponse(raw)
		if parsed.Error != "" {
			return nil, e.failure(resp, dberr.ClassUnknown, st,
				fmt.Errorf("%w: generator declined: %s", apperrors.ErrGeneratorEmpty, parsed.Error))
		}
		block := parsed.Candidates
		if block == "" {
			block = parsed.SQL
		}
		if strings.TrimSpace(block) == "" {
			return nil, e.failure(resp, dberr.ClassUnknown, st, apperrors.ErrGeneratorEmpty)
		}
		if parsed.Confidence > 0 {
			st.baseConfidence = parsed.Confidence
		}
		confidence := e.attemptConfidence(st.baseConfidence, attempt)

		eval, err := e.evaluator.Evaluate(ctx, block, question, e.validateOpts())
		if err != nil {
			lastErr = err
			reasons := []string{"generator output contained no usable SQL"}
			resp.Attempts = append(resp.Attempts, AttemptRecord{
				Attempt: attempt, Source: sourceOf(attempt), Issues: reasons,
				Check: candidates.CheckSkipped, Confidence: confidence, SpentBudget: true,
			})
			st.retryWith(st.prevSQL, reasons, "", "", "")
			continue
		}

		best := eval.Best()
		if best == nil {
			reasons := rejectionReasons(eval)
			rec := AttemptRecord{
				Attempt: attempt, Source: sourceOf(attempt), SQL: firstText(eval),
				Issues: reasons, Check: candidates.CheckSkipped,
				Confidence: confidence, SpentBudget: true,
			}
			resp.Attempts = append(resp.Attempts, rec)
			if allFailFast(eval) {
				// Nothing here may ever execute; repair would only launder a
				// forbidden statement.
				st.issues = reasons
				return nil, e.failure(resp, dberr.ClassValidationBlock, st, apperrors.ErrUnsafeSQL)
			}
			lastErr = fmt.Errorf("all candidates rejected: %s", strings.Join(reasons, "; "))
			st.retryWith(firstText(eval), reasons, "", "", "")
			continue
		}

		sqlText := best.Text
		rec := AttemptRecord{
			Attempt: attempt, Source: sourceOf(attempt), SQL: sqlText,
			Issues: issueMessages(best), Check: best.Check,
			Confidence: confidence, SpentBudget: true,
		}

		if best.Check == candidates.CheckFailed {
			dbe := dberr.Classify(best.CheckErr)
			rec.DBError, rec.SQLState, rec.Class = dbe.Message, dbe.SQLState, dbe.Class

			if !dbe.Class.Retryable() {
				rec.SpentBudget = dbe.Class.SpendsBudget()
				resp.Attempts = append(resp.Attempts, rec)
				st.prevSQL = sqlText
				return nil, e.failure(resp, dbe.Class, st, dbe)
			}

			fixed, whitelist, ok := e.tryDeterministicFix(ctx, sqlText, dbe)
			if !ok {
				resp.Attempts = append(resp.Attempts, rec)
				lastErr = dbe
				st.retryWith(sqlText, issueMessages(best), dbe.Error(), dbe.RepairHint(), whitelist)
				continue
			}
			sqlText = fixed
			rec.SQL, rec.Check, rec.Corrected = fixed, candidates.CheckPassed, true
		}

		if e.executor == nil {
			resp.Attempts = append(resp.Attempts, rec)
			e.finalize(resp, sqlText, confidence, start)
			return resp, nil
		}

		result, err := e.executor.ExecuteQuery(ctx, sqlText)
		if err != nil {
			dbe := dberr.Classify(err)
			rec.DBError, rec.SQLState, rec.Class = dbe.Message, dbe.SQLState, dbe.Class
			rec.SpentBudget = dbe.Class.SpendsBudget()
			resp.Attempts = append(resp.Attempts, rec)

			if !dbe.Class.Retryable() {
				st.prevSQL = sqlText
				return nil, e.failure(resp, dbe.Class, st, dbe)
			}
			lastErr = dbe
			st.retryWith(sqlText, nil, dbe.Error(), dbe.RepairHint(), "")
			continue
		}

		resp.Attempts = append(resp.Attempts, rec)
		resp.Result = result
		e.finalize(resp, sqlText, confidence, start)
		log.Info("question answered",
			zap.Int("attempts", len(resp.Attempts)),
			zap.Int("rows", result.RowCount),
			zap.String("sql", logging.SanitizeQuery(sqlText)))
		return resp, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no attempt produced executable SQL")
	}
	return nil, e.failure(resp, classOf(lastErr), st,
		fmt.Errorf("%w: %v", apperrors.ErrAttemptsExhausted, lastErr))
}

// generate builds the attempt's prompt and calls the generator. Attempt 1 is
// a fresh generation; later attempts carry the accumulated repair context.
func (e *Engine) generate(ctx context.Context, question, joinHint string, st *attemptState, attempt int) (string, error) {
	var prompt string
	if attempt == 1 {
		prompt = prompts.BuildGenerate(prompts.GenerateInput{
			Question:      question,
			DatabaseID:    e.sc.DatabaseID,
			Schema:        e.sc,
			JoinHint:      joinHint,
			MaxColumns:    e.cfg.MaxSchemaColumns,
			NumCandidates: e.cfg.NumCandidates,
		})
	} else {
		prompt = prompts.BuildRepair(prompts.RepairInput{
			Question:    question,
			DatabaseID:  e.sc.DatabaseID,
			Schema:      e.sc,
			MaxColumns:  e.cfg.MaxSchemaColumns,
			PreviousSQL: st.prevSQL,
			Issues:      st.issues,
			DBErrorText: st.dbErrText,
			Hint:        st.hint,
			Whitelist:   st.whitelist,
			Attempt:     attempt - 1,
		})
	}
	return e.generator.GenerateResponse(ctx, prompt, prompts.SystemMessage, e.cfg.Temperature)
}

// joinHint plans a join skeleton over the packet's tables and renders it for
// the generation prompt. Empty when the packet has no FK edges to plan over.
func (e *Engine) joinHint() string {
	if len(e.sc.ForeignKeys) == 0 || len(e.sc.Tables) < 2 {
		return ""
	}

	names := e.sc.TableNames()
	graph := e.graphs.GetOrBuild(e.sc.Hash(), func() *joinplan.Graph {
		return joinplan.BuildGraph(e.sc.ForeignKeys, joinplan.GraphOptions{
			HubDegreeLimit: e.cfg.Planner.HubDegreeLimit,
			HubMaxEdges:    e.cfg.Planner.HubMaxEdges,
			RelevantTables: names,
		})
	})

	modules := make(map[string]string, len(e.sc.Tables))
	for _, t := range e.sc.Tables {
		if t.Module != "" {
			modules[t.Name] = t.Module
		}
	}
	planner := joinplan.NewPlanner(graph, joinplan.PlanOptions{
		ScoredPaths:   e.cfg.Planner.ScoredPaths,
		MaxAlternates: e.cfg.Planner.MaxAlternates,
		LinkedTables:  names,
		Modules:       modules,
	}, e.logger)

	plan := planner.Plan(names)
	if len(plan.Skeletons) == 0 {
		return ""
	}
	return plan.Skeletons[0].RenderJoin()
}

func (e *Engine) validateOpts() sqlpkg.Options {
	return sqlpkg.Options{
		AllowedTables:  e.sc.TableNames(),
		RequireLimit:   e.cfg.RequireLimit,
		DefaultLimit:   e.cfg.DefaultLimit,
		MaxJoins:       e.cfg.MaxJoins,
		ScreenLiterals: e.cfg.ScreenLiterals,
	}
}

func (e *Engine) attemptConfidence(base float64, attempt int) float64 {
	conf := base - e.cfg.ConfidenceDecay*float64(attempt-1)
	if conf < 0.05 {
		conf = 0.05
	}
	return conf
}

func (e *Engine) finalize(resp *QueryResponse, sqlText string, confidence float64, start time.Time) {
	resp.SQL = sqlText
	resp.Confidence = confidence
	resp.Tables = sqlpkg.ReferencedTables(sqlText)
	resp.Elapsed = time.Since(start)
}

func (e *Engine) failure(resp *QueryResponse, class dberr.Class, st *attemptState, cause error) error {
	f := &Failure{
		QueryID:  resp.QueryID,
		Class:    class,
		LastSQL:  st.prevSQL,
		Issues:   st.issues,
		Attempts: len(resp.Attempts),
		Err:      cause,
	}
	e.logger.Warn("question failed",
		zap.String("query_id", resp.QueryID),
		zap.String("class", string(class)),
		zap.Int("attempts", f.Attempts),
		zap.Error(cause))
	return f
}

func sourceOf(attempt int) string {
	if attempt == 1 {
		return "generation"
	}
	return "repair"
}

func classOf(err error) dberr.Class {
	if dbe := dberr.Classify(err); dbe != nil && dbe.SQLState != "" {
		return dbe.Class
	}
	return dberr.ClassUnknown
}

func rejectionReasons(eval *candidates.Evaluation) []string {
	var reasons []string
	for _, c := range eval.Candidates {
		if c.Rejected && c.Reason != "" {
			reasons = append(reasons, c.Reason)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "all candidates rejected")
	}
	return reasons
}

func allFailFast(eval *candidates.Evaluation) bool {
	for _, c := range eval.Candidates {
		if !c.Validation.FailFast() {
			return false
		}
	}
	return len(eval.Candidates) > 0
}

func firstText(eval *candidates.Evaluation) string {
	if len(eval.Candidates) == 0 {
		return ""
	}
	return eval.Candidates[0].Text
}

func issueMessages(c *candidates.Candidate) []string {
	var msgs []string
	for _, issue := range c.Validation.Issues {
		msgs = append(msgs, issue.Message)
	}
	for _, issue := range c.LintIssues {
		msgs = append(msgs, issue.Message)
	}
	return msgs
}
