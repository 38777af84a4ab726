package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBlacklistPairs(t *testing.T) {
	bl := DefaultBlacklist()

	tests := []struct {
		name      string
		ref       string
		candidate string
		blocked   bool
		penalty   float64
	}{
		{"vendor_name to vendor_number blocked", "vendor_name", "vendor_number", true, 0},
		{"order_date to order_id blocked", "order_date", "order_id", true, 0},
		{"vendor to customer blocked", "vendor_id", "customer_id", true, 0},
		{"actual_amount to amount allowed", "actual_amount", "amount", false, 0},
		{"amount to total penalized", "gross_amount", "gross_total", false, 0.2},
		{"same name no match", "salary", "salary", false, 0},
		{"unrelated difference no match", "first_name", "family_name", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := bl.Check(tt.ref, tt.candidate)
			assert.Equal(t, tt.blocked, decision.Blocked)
			assert.InDelta(t, tt.penalty, decision.Penalty, 1e-9)
		})
	}
}

func TestBlacklistIsSymmetric(t *testing.T) {
	bl := DefaultBlacklist()
	assert.True(t, bl.Check("vendor_number", "vendor_name").Blocked)
	assert.True(t, bl.Check("order_id", "order_date").Blocked)
}

func TestBlacklistSubsetNeverMatches(t *testing.T) {
	// A one-sided difference is a refinement, not a swap.
	bl := DefaultBlacklist()
	decision := bl.Check("date", "date_id")
	assert.False(t, decision.Matched)
}

func TestCustomBlacklist(t *testing.T) {
	bl := NewBlacklist([]RiskPair{
		{A: "gross", B: "net", Action: BlacklistBlock},
	})
	assert.True(t, bl.Check("gross_salary", "net_salary").Blocked)
	assert.False(t, bl.Check("vendor_name", "vendor_number").Blocked)
}
