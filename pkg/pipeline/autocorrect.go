package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/sqlmend/sqlmend/pkg/dberr"
	"github.com/sqlmend/sqlmend/pkg/logging"
	"github.com/sqlmend/sqlmend/pkg/repair"
	"github.com/sqlmend/sqlmend/pkg/schema"
	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// correctionOutcome is the result of one deterministic repair attempt.
type correctionOutcome struct {
	// CorrectedSQL is non-empty only when the active gate passed.
	CorrectedSQL string
	// Whitelist is the rendered column scope for the fallback repair prompt.
	Whitelist string
}

// deterministicRepair runs the column-rewrite engine over an undefined-column
// failure: parse the failing reference, resolve its table scope, score
// replacement candidates, and evaluate both gating tiers. The observe tier
// always runs and is logged; the active tier mutates SQL only in active mode.
// When no rewrite clears the gate, a surgical whitelist scopes the next
// model-driven repair.
func (e *Engine) deterministicRepair(sqlText string, dbe *dberr.Error) correctionOutcome {
	var out correctionOutcome

	ref, ok := repair.ParseFailingReference(dbe.Message, sqlText)
	if !ok {
		e.logger.Debug("failing reference not recognized",
			zap.String("message", dbe.Message))
		return out
	}

	policy := repair.AmbiguityFail
	if e.cfg.WidenAmbiguousAlias {
		policy = repair.AmbiguityWiden
	}
	resolution := repair.ResolveAlias(ref, sqlText, policy)

	var tables []schema.Table
	for _, name := range resolution.Tables {
		if t, ok := e.sc.Table(name); ok {
			tables = append(tables, *t)
		}
	}
	matches := repair.FindColumnMatches(ref.Column, tables)

	in := repair.GateInput{
		Reference:      ref,
		SQL:            sqlText,
		Matches:        matches,
		AliasAmbiguous: resolution.Ambiguous,
		// The reference comes off a database rejection of generated SQL, so
		// the plain generation pass has already failed for it.
		AutocorrectFailed: true,
	}

	observe := repair.EvaluateStrictGating(in, e.cfg.Gating)
	e.logger.Debug("observe gating evaluated",
		zap.String("reference", ref.Raw),
		zap.Bool("would_rewrite", observe.Passed),
		zap.Float64("best_score", observe.BestScore),
		zap.Strings("failures", observe.FailureReasons))

	if e.cfg.Autocorrect == AutocorrectActive {
		active := repair.EvaluateActiveGating(in, e.cfg.Gating, e.blacklist)
		if active.Passed {
			e.logger.Info("active column rewrite applied",
				zap.String("from", ref.Raw),
				zap.String("to", active.Best.Column),
				zap.Float64("score", active.BestScore))
			out.CorrectedSQL = active.CorrectedSQL
			return out
		}
		e.logger.Debug("active gating declined",
			zap.String("reference", ref.Raw),
			zap.Strings("failures", active.FailureReasons))
	}

	wl := repair.BuildWhitelist(resolution, e.sc, e.cfg.Whitelist)
	if len(wl.PrimaryTables)+len(wl.NeighborTables) > 0 {
		out.Whitelist = wl.Render()
	}
	return out
}

// tryDeterministicFix applies deterministicRepair and, on a rewrite,
// re-validates and re-checks the corrected SQL without a generator round
// trip. Returns the validated SQL on success; otherwise the whitelist
// fragment for the next repair prompt.
func (e *Engine) tryDeterministicFix(ctx context.Context, sqlText string, dbe *dberr.Error) (string, string, bool) {
	if !dbe.UndefinedColumn() {
		return "", "", false
	}

	out := e.deterministicRepair(sqlText, dbe)
	if out.CorrectedSQL == "" {
		return "", out.Whitelist, false
	}

	res := sqlpkg.Validate(out.CorrectedSQL, e.validateOpts())
	if res.FailFast() || sqlpkg.HasLintErrors(sqlpkg.Lint(res.SQL)) {
		e.logger.Debug("corrected SQL failed re-validation",
			zap.String("sql", logging.SanitizeQuery(res.SQL)))
		return "", out.Whitelist, false
	}
	if err := e.safetyCheck(ctx, res.SQL); err != nil {
		e.logger.Debug("corrected SQL still rejected by database",
			zap.Error(dberr.Classify(err)))
		return "", out.Whitelist, false
	}
	return res.SQL, "", true
}

func (e *Engine) safetyCheck(ctx context.Context, sqlText string) error {
	if e.executor == nil {
		return nil
	}
	return e.executor.ValidateQuery(ctx, sqlText)
}
