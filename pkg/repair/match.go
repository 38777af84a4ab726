package repair

import (
	"sort"
	"strings"

	"github.com/sqlmend/sqlmend/pkg/schema"
	sqlpkg "github.com/sqlmend/sqlmend/pkg/sql"
)

// MatchKind records which tier of the lexical hierarchy produced a match.
type MatchKind string

const (
	MatchExact           MatchKind = "exact"
	MatchCaseInsensitive MatchKind = "case_insensitive"
	MatchNormalized      MatchKind = "normalized"
	MatchAffix           MatchKind = "affix"
	MatchFuzzy           MatchKind = "fuzzy"
	MatchContainment     MatchKind = "containment"
	MatchNone            MatchKind = "none"
)

// Lexical hierarchy scores. Each tier strictly outranks the ones below it.
const (
	scoreExact           = 1.0
	scoreCaseInsensitive = 0.95
	scoreNormalized      = 0.85
	scoreAffixCap        = 0.7
	scoreFuzzyCap        = 0.6
	fuzzyFloor           = 0.5

	bonusRefInCandidate = 0.30
	bonusCandidateInRef = 0.20
	bonusTokenOverlap   = 0.15
)

// ColumnMatch is one scored candidate replacement for a failing reference.
type ColumnMatch struct {
	Column           string
	Table            string
	LexicalScore     float64
	ContainmentBonus float64
	Score            float64
	Kind             MatchKind
}

// FindColumnMatches scores every column of the resolved tables against the
// failing reference and returns the candidates best-first. References that
// are SQL keywords or function names ("year", "count") return nil: they fail
// for reasons a column swap cannot fix.
func FindColumnMatches(ref string, tables []schema.Table) []ColumnMatch {
	if sqlpkg.IsReservedReferenceWord(ref) {
		return nil
	}

	var matches []ColumnMatch
	for _, table := range tables {
		for _, col := range table.Columns {
			m := scoreColumn(ref, col.Name)
			if m.Score <= 0 {
				continue
			}
			m.Table = table.Name
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func scoreColumn(ref, candidate string) ColumnMatch {
	m := ColumnMatch{Column: candidate, Kind: MatchNone}

	refLower := strings.ToLower(ref)
	candLower := strings.ToLower(candidate)

	switch {
	case ref == candidate:
		m.LexicalScore = scoreExact
		m.Kind = MatchExact
	case refLower == candLower:
		m.LexicalScore = scoreCaseInsensitive
		m.Kind = MatchCaseInsensitive
	case normalizeName(refLower) == normalizeName(candLower):
		m.LexicalScore = scoreNormalized
		m.Kind = MatchNormalized
	case hasAffixOverlap(refLower, candLower):
		shorter, longer := len(refLower), len(candLower)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		m.LexicalScore = scoreAffixCap * float64(shorter) / float64(longer)
		m.Kind = MatchAffix
	default:
		if sim := levenshteinSimilarity(refLower, candLower); sim >= fuzzyFloor {
			m.LexicalScore = scoreFuzzyCap * sim
			m.Kind = MatchFuzzy
		}
	}

	refTokens := nameTokens(refLower)
	candTokens := nameTokens(candLower)
	switch {
	case tokenSubset(refTokens, candTokens):
		m.ContainmentBonus = bonusRefInCandidate
	case tokenSubset(candTokens, refTokens):
		m.ContainmentBonus = bonusCandidateInRef
	case m.LexicalScore == 0 && tokenOverlapRatio(refTokens, candTokens) >= 0.5:
		m.ContainmentBonus = bonusTokenOverlap
	}
	if m.Kind == MatchNone && m.ContainmentBonus > 0 {
		m.Kind = MatchContainment
	}

	m.Score = m.LexicalScore + m.ContainmentBonus
	if m.Score > 1.0 {
		m.Score = 1.0
	}
	return m
}

// HasContainment reports whether the match carries a token-containment bonus.
func (m ColumnMatch) HasContainment() bool {
	return m.ContainmentBonus > 0
}

// NormalizedEqual reports whether the match came from underscore-normalized
// equality or stronger.
func (m ColumnMatch) NormalizedEqual() bool {
	return m.LexicalScore >= scoreNormalized
}

func normalizeName(s string) string {
	return strings.ReplaceAll(s, "_", "")
}

func nameTokens(s string) []string {
	parts := strings.Split(s, "_")
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func tokenSubset(sub, super []string) bool {
	if len(sub) == 0 {
		return false
	}
	set := make(map[string]bool, len(super))
	for _, t := range super {
		set[t] = true
	}
	for _, t := range sub {
		if !set[t] {
			return false
		}
	}
	return true
}

func tokenOverlapRatio(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	shared := 0
	for _, t := range b {
		if set[t] {
			shared++
		}
	}
	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}
	return float64(shared) / float64(larger)
}

func hasAffixOverlap(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a) ||
		strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

func levenshteinSimilarity(a, b string) float64 {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 0
	}
	return 1 - float64(levenshteinDistance(a, b))/float64(longer)
}

// levenshteinDistance computes the edit distance between two strings using
// two rows of the DP table.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = minInt(
				curr[j-1]+1,    // insertion
				prev[j]+1,      // deletion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
