package repair

import "strings"

// BlacklistAction is what a matched risk pair does to a proposed rewrite.
type BlacklistAction string

const (
	// BlacklistBlock vetoes the rewrite outright.
	BlacklistBlock BlacklistAction = "block"
	// BlacklistPenalize subtracts a score penalty instead of blocking.
	BlacklistPenalize BlacklistAction = "penalize"
)

// RiskPair is a symmetric pair of name tokens that signals a semantically
// dangerous substitution when one appears only in the failing reference and
// the other only in the candidate.
type RiskPair struct {
	A       string
	B       string
	Action  BlacklistAction
	Penalty float64
}

// BlacklistDecision is the outcome of checking one rewrite against the
// blacklist.
type BlacklistDecision struct {
	Matched bool
	Blocked bool
	Penalty float64
	Pair    RiskPair
}

// Blacklist holds the configured risk pairs.
type Blacklist struct {
	pairs []RiskPair
}

// DefaultBlacklist returns the stock pair set. name/number, date/id and
// vendor/customer swaps read plausibly but change the meaning of the query,
// so they block; amount/total is merely suspicious and only penalized.
func DefaultBlacklist() *Blacklist {
	return NewBlacklist([]RiskPair{
		{A: "name", B: "number", Action: BlacklistBlock},
		{A: "date", B: "id", Action: BlacklistBlock},
		{A: "vendor", B: "customer", Action: BlacklistBlock},
		{A: "amount", B: "total", Action: BlacklistPenalize, Penalty: 0.2},
	})
}

// NewBlacklist builds a blacklist from explicit pairs.
func NewBlacklist(pairs []RiskPair) *Blacklist {
	normalized := make([]RiskPair, len(pairs))
	for i, p := range pairs {
		p.A = strings.ToLower(p.A)
		p.B = strings.ToLower(p.B)
		normalized[i] = p
	}
	return &Blacklist{pairs: normalized}
}

// Check computes the token-set difference between the failing reference and
// the candidate column and tests each one-sided pair of differing tokens
// against the configured risk pairs. Pairs match in either direction.
func (b *Blacklist) Check(ref, candidate string) BlacklistDecision {
	refOnly, candOnly := tokenDifference(ref, candidate)
	if len(refOnly) == 0 || len(candOnly) == 0 {
		return BlacklistDecision{}
	}

	var decision BlacklistDecision
	for _, p := range b.pairs {
		if !pairMatches(p, refOnly, candOnly) {
			continue
		}
		decision.Matched = true
		decision.Pair = p
		if p.Action == BlacklistBlock {
			decision.Blocked = true
			return decision
		}
		decision.Penalty += p.Penalty
	}
	return decision
}

func pairMatches(p RiskPair, refOnly, candOnly map[string]bool) bool {
	return (refOnly[p.A] && candOnly[p.B]) || (refOnly[p.B] && candOnly[p.A])
}

// tokenDifference splits both names on underscores and returns the tokens
// unique to each side.
func tokenDifference(ref, candidate string) (refOnly, candOnly map[string]bool) {
	refTokens := nameTokens(strings.ToLower(ref))
	candTokens := nameTokens(strings.ToLower(candidate))

	refSet := make(map[string]bool, len(refTokens))
	for _, t := range refTokens {
		refSet[t] = true
	}
	candSet := make(map[string]bool, len(candTokens))
	for _, t := range candTokens {
		candSet[t] = true
	}

	refOnly = make(map[string]bool)
	for t := range refSet {
		if !candSet[t] {
			refOnly[t] = true
		}
	}
	candOnly = make(map[string]bool)
	for t := range candSet {
		if !refSet[t] {
			candOnly[t] = true
		}
	}
	return refOnly, candOnly
}
