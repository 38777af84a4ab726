package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreExactArithmetic(t *testing.T) {
	cfg := DefaultScoreConfig()

	// One lint error, passing check, no shape bonuses: exactly base - error penalty.
	score, bd := Score(cfg, 1, 0, CheckPassed, "SELECT a FROM t", "show rows")
	assert.InDelta(t, cfg.Base-cfg.LintErrorPenalty, score, 1e-9)
	assert.Zero(t, bd.CheckPenalty)
	assert.Zero(t, bd.ShapeBonus)
}

func TestScorePassingCheckOutranksFailing(t *testing.T) {
	cfg := DefaultScoreConfig()
	sqlText := "SELECT a FROM t"
	question := "show rows"

	passing, _ := Score(cfg, 0, 0, CheckPassed, sqlText, question)
	failing, _ := Score(cfg, 0, 0, CheckFailed, sqlText, question)
	skipped, _ := Score(cfg, 0, 0, CheckSkipped, sqlText, question)

	assert.Greater(t, passing, failing)
	assert.Equal(t, passing, skipped, "a skipped check carries no penalty")
}

func TestScoreFloorsAtZero(t *testing.T) {
	score, _ := Score(DefaultScoreConfig(), 10, 10, CheckFailed, "SELECT 1", "q")
	assert.Zero(t, score)
}

func TestScoreShapeBonuses(t *testing.T) {
	cfg := DefaultScoreConfig()

	tests := []struct {
		name     string
		sql      string
		question string
		bonuses  int
	}{
		{
			"group by matches 'by'",
			"SELECT d, SUM(s) FROM t GROUP BY d",
			"total salary by department",
			1,
		},
		{
			"order by + limit matches 'top'",
			"SELECT * FROM t ORDER BY s DESC LIMIT 5",
			"top earners please",
			1,
		},
		{
			"distinct matches 'unique'",
			"SELECT DISTINCT city FROM t",
			"unique cities",
			1,
		},
		{
			"join matches possessive phrasing",
			"SELECT * FROM a JOIN b ON a.id = b.a_id",
			"customers and their orders in march",
			1,
		},
		{
			"no cues no bonus",
			"SELECT * FROM t",
			"show data",
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, bd := Score(cfg, 0, 0, CheckSkipped, tt.sql, tt.question)
			assert.InDelta(t, cfg.ShapeBonus*float64(tt.bonuses), bd.ShapeBonus, 1e-9)
			assert.InDelta(t, cfg.Base+bd.ShapeBonus, score, 1e-9)
		})
	}
}

func TestScoreIgnoresLiteralContent(t *testing.T) {
	// "GROUP BY" inside a string literal must not earn the shape bonus.
	_, bd := Score(DefaultScoreConfig(), 0, 0, CheckSkipped,
		"SELECT 'GROUP BY' FROM t", "totals by region")
	assert.Zero(t, bd.ShapeBonus)
}
