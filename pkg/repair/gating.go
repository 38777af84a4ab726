package repair

import (
	"fmt"
	"regexp"
	"strings"

	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// GatingConfig tunes both gating tiers. Zero values are replaced by
// DefaultGatingConfig floors.
type GatingConfig struct {
	// ObserveFloor is the minimum best-candidate score for an observe-tier
	// pass.
	ObserveFloor float64 `yaml:"observe_floor" env:"REPAIR_OBSERVE_FLOOR" env-default:"0.55"`
	// ActiveFloor is the minimum best-candidate score before a rewrite is
	// allowed to mutate SQL. Strictly above the observe floor.
	ActiveFloor float64 `yaml:"active_floor" env:"REPAIR_ACTIVE_FLOOR" env-default:"0.8"`
	// DominanceFloor is the minimum gap between the best and second-best
	// candidate scores.
	DominanceFloor float64 `yaml:"dominance_floor" env:"REPAIR_DOMINANCE_FLOOR" env-default:"0.15"`
	// MinDelta and MinRatio define score separation: a rewrite needs either
	// best-second >= MinDelta or best/second >= MinRatio. Blocks knife-edge
	// rewrites between two near-identical candidates.
	MinDelta float64 `yaml:"min_delta" env:"REPAIR_MIN_DELTA" env-default:"0.1"`
	MinRatio float64 `yaml:"min_ratio" env:"REPAIR_MIN_RATIO" env-default:"1.25"`
}

// DefaultGatingConfig returns the stock floors.
func DefaultGatingConfig() GatingConfig {
	return GatingConfig{
		ObserveFloor:   0.55,
		ActiveFloor:    0.8,
		DominanceFloor: 0.15,
		MinDelta:       0.1,
		MinRatio:       1.25,
	}
}

func (c GatingConfig) withDefaults() GatingConfig {
	d := DefaultGatingConfig()
	if c.ObserveFloor <= 0 {
		c.ObserveFloor = d.ObserveFloor
	}
	if c.ActiveFloor <= 0 {
		c.ActiveFloor = d.ActiveFloor
	}
	if c.DominanceFloor <= 0 {
		c.DominanceFloor = d.DominanceFloor
	}
	if c.MinDelta <= 0 {
		c.MinDelta = d.MinDelta
	}
	if c.MinRatio <= 0 {
		c.MinRatio = d.MinRatio
	}
	return c
}

// GateInput is everything the gating tiers need about one failing reference.
type GateInput struct {
	Reference         FailingReference
	SQL               string
	Matches           []ColumnMatch
	AliasAmbiguous    bool
	AutocorrectFailed bool
}

// GatingResult is the structured outcome of a gating evaluation. For the
// active tier, Passed is true exactly when CorrectedSQL is non-empty.
type GatingResult struct {
	Passed         bool
	FailureReasons []string
	Best           *ColumnMatch
	BestScore      float64
	SecondScore    float64
	Dominance      float64
	CorrectedSQL   string
}

func (r *GatingResult) fail(format string, args ...any) {
	r.Passed = false
	r.FailureReasons = append(r.FailureReasons, fmt.Sprintf(format, args...))
}

// EvaluateStrictGating is the observe tier: always computable, never mutates
// SQL. It exists to measure how often an active rewrite would have fired, so
// every gate is checked and every failure recorded in order.
func EvaluateStrictGating(in GateInput, cfg GatingConfig) *GatingResult {
	cfg = cfg.withDefaults()
	res := &GatingResult{Passed: true}

	if in.AliasAmbiguous {
		res.fail("alias %q does not resolve to a single table", in.Reference.Alias)
	}
	if !in.AutocorrectFailed {
		res.fail("autocorrect not yet attempted for this reference")
	}
	if sqlpkg.IsReservedReferenceWord(in.Reference.Column) {
		res.fail("reference %q is a SQL keyword", in.Reference.Column)
	}
	if len(in.Matches) == 0 {
		res.fail("no candidate columns")
		return res
	}

	best := in.Matches[0]
	res.Best = &best
	res.BestScore = best.Score
	if len(in.Matches) > 1 {
		res.SecondScore = in.Matches[1].Score
	}
	res.Dominance = res.BestScore - res.SecondScore

	if res.BestScore < cfg.ObserveFloor {
		res.fail("best score %.2f below observe floor %.2f", res.BestScore, cfg.ObserveFloor)
	}
	// Normalized equality is strong enough to stand without token
	// containment.
	if !best.HasContainment() && !best.NormalizedEqual() {
		res.fail("no token containment between %q and %q", in.Reference.Column, best.Column)
	}
	if len(in.Matches) > 1 && res.Dominance < cfg.DominanceFloor {
		res.fail("dominance %.2f below floor %.2f", res.Dominance, cfg.DominanceFloor)
	}

	return res
}

// EvaluateActiveGating is the sole decision-maker for mutating SQL. All nine
// gates must pass; on pass the corrected SQL is attached and the rewrite
// replaces only the failing reference, keeping its alias qualifier.
func EvaluateActiveGating(in GateInput, cfg GatingConfig, blacklist *Blacklist) *GatingResult {
	cfg = cfg.withDefaults()
	if blacklist == nil {
		blacklist = DefaultBlacklist()
	}
	res := &GatingResult{Passed: true}

	if sqlpkg.IsReservedReferenceWord(in.Reference.Column) {
		res.fail("reference %q is a SQL keyword", in.Reference.Column)
	}
	if in.AliasAmbiguous {
		res.fail("alias %q does not resolve to a single table", in.Reference.Alias)
	}
	if !in.AutocorrectFailed {
		res.fail("autocorrect not yet attempted for this reference")
	}
	if len(in.Matches) == 0 {
		res.fail("no candidate columns")
		return res
	}

	best := in.Matches[0]
	res.Best = &best
	res.BestScore = best.Score
	if len(in.Matches) > 1 {
		res.SecondScore = in.Matches[1].Score
	}
	res.Dominance = res.BestScore - res.SecondScore

	if res.BestScore < cfg.ActiveFloor {
		res.fail("best score %.2f below active floor %.2f", res.BestScore, cfg.ActiveFloor)
	}
	if len(in.Matches) > 1 {
		if res.Dominance < cfg.DominanceFloor {
			res.fail("dominance %.2f below floor %.2f", res.Dominance, cfg.DominanceFloor)
		}
		separated := res.Dominance >= cfg.MinDelta ||
			(res.SecondScore > 0 && res.BestScore/res.SecondScore >= cfg.MinRatio)
		if !separated {
			res.fail("scores %.2f and %.2f too close to rewrite safely", res.BestScore, res.SecondScore)
		}
	}
	if !best.HasContainment() && !best.NormalizedEqual() {
		res.fail("no token containment between %q and %q", in.Reference.Column, best.Column)
	}
	if decision := blacklist.Check(in.Reference.Column, best.Column); decision.Blocked {
		res.fail("rewrite %s -> %s matches risk pair %s/%s",
			in.Reference.Column, best.Column, decision.Pair.A, decision.Pair.B)
	}

	if res.Passed {
		res.CorrectedSQL = rewriteReference(in.SQL, in.Reference, best.Column)
		if res.CorrectedSQL == "" {
			res.fail("failing reference %q not found in SQL", in.Reference.Raw)
		}
	}
	return res
}

// rewriteReference replaces every occurrence of the failing reference in the
// SQL's code spans with the replacement column, preserving the alias
// qualifier. Strings and comments are left untouched. Returns "" when
// nothing was replaced.
func rewriteReference(sql string, ref FailingReference, replacement string) string {
	var pattern *regexp.Regexp
	var replaceWith string
	if ref.Qualified() {
		pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(ref.Alias) + `\.` + regexp.QuoteMeta(ref.Column) + `\b`)
		replaceWith = ref.Alias + "." + replacement
	} else {
		pattern = regexp.MustCompile(`\b` + regexp.QuoteMeta(ref.Column) + `\b`)
		replaceWith = replacement
	}

	tokens := sqlpkg.Tokenize(sql)
	var b strings.Builder
	b.Grow(len(sql))
	replaced := false
	for _, tok := range tokens {
		if tok.Kind != sqlpkg.TokenCode {
			b.WriteString(tok.Text)
			continue
		}
		out := pattern.ReplaceAllString(tok.Text, replaceWith)
		if out != tok.Text {
			replaced = true
		}
		b.WriteString(out)
	}
	if !replaced {
		return ""
	}
	return b.String()
}
