package candidates

import (
	"strings"

	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// ScoreConfig holds the deterministic scoring weights. There is no learned
// judge here: penalties for observed defects, small bonuses when the query
// shape matches cheap lexical cues in the question.
type ScoreConfig struct {
	Base               float64 `yaml:"base" env:"CAND_SCORE_BASE" env-default:"1.0"`
	LintErrorPenalty   float64 `yaml:"lint_error_penalty" env:"CAND_LINT_ERROR_PENALTY" env-default:"0.25"`
	LintWarnPenalty    float64 `yaml:"lint_warn_penalty" env:"CAND_LINT_WARN_PENALTY" env-default:"0.05"`
	CheckFailedPenalty float64 `yaml:"check_failed_penalty" env:"CAND_CHECK_FAILED_PENALTY" env-default:"0.4"`
	ShapeBonus         float64 `yaml:"shape_bonus" env:"CAND_SHAPE_BONUS" env-default:"0.1"`
}

// DefaultScoreConfig returns the stock weights.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Base:               1.0,
		LintErrorPenalty:   0.25,
		LintWarnPenalty:    0.05,
		CheckFailedPenalty: 0.4,
		ShapeBonus:         0.1,
	}
}

func (c ScoreConfig) withDefaults() ScoreConfig {
	d := DefaultScoreConfig()
	if c.Base <= 0 {
		c.Base = d.Base
	}
	if c.LintErrorPenalty <= 0 {
		c.LintErrorPenalty = d.LintErrorPenalty
	}
	if c.LintWarnPenalty <= 0 {
		c.LintWarnPenalty = d.LintWarnPenalty
	}
	if c.CheckFailedPenalty <= 0 {
		c.CheckFailedPenalty = d.CheckFailedPenalty
	}
	if c.ShapeBonus <= 0 {
		c.ShapeBonus = d.ShapeBonus
	}
	return c
}

// ScoreBreakdown records how one candidate's score was assembled.
type ScoreBreakdown struct {
	Base         float64
	LintPenalty  float64
	CheckPenalty float64
	ShapeBonus   float64
}

// Score computes the deterministic candidate score, floored at zero. A
// skipped check contributes neither bonus nor penalty.
func Score(cfg ScoreConfig, lintErrors, lintWarns int, check CheckOutcome, sqlText, question string) (float64, ScoreBreakdown) {
	cfg = cfg.withDefaults()
	bd := ScoreBreakdown{Base: cfg.Base}

	bd.LintPenalty = cfg.LintErrorPenalty*float64(lintErrors) + cfg.LintWarnPenalty*float64(lintWarns)
	if check == CheckFailed {
		bd.CheckPenalty = cfg.CheckFailedPenalty
	}
	bd.ShapeBonus = cfg.ShapeBonus * float64(shapeMatches(sqlText, question))

	score := bd.Base - bd.LintPenalty - bd.CheckPenalty + bd.ShapeBonus
	if score < 0 {
		score = 0
	}
	return score, bd
}

// shapeMatches counts the question-shape heuristics the SQL satisfies.
func shapeMatches(sqlText, question string) int {
	code := strings.ToLower(sqlpkg.CodeOnly(sqlText))
	q := " " + strings.ToLower(question) + " "

	matches := 0

	if strings.Contains(code, "group by") &&
		containsAnyWord(q, "by", "per", "each") {
		matches++
	}
	if strings.Contains(code, "order by") && strings.Contains(code, "limit") &&
		containsAnyWord(q, "top", "highest", "lowest", "largest", "smallest", "most", "least") {
		matches++
	}
	if strings.Contains(code, "distinct") &&
		containsAnyWord(q, "unique", "distinct", "different") {
		matches++
	}
	if strings.Contains(code, "join") && impliesRelationship(q) {
		matches++
	}
	return matches
}

// impliesRelationship is true when the question wording suggests data from
// more than one table: a possessive plus a connective.
func impliesRelationship(q string) bool {
	return containsAnyWord(q, "their", "its", "whose") &&
		containsAnyWord(q, "of", "with", "in", "for")
}

func containsAnyWord(padded string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}
