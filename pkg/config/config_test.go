package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmend/sqlmend/pkg/repair"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "postgres", cfg.Datasource.Driver)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Empty(t, cfg.RiskPairs)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("PIPELINE_MAX_ATTEMPTS", "5")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "v")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
}

func TestParseRiskPairs(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []repair.RiskPair
		wantErr bool
	}{
		{
			"block pair",
			"name:number:block",
			[]repair.RiskPair{{A: "name", B: "number", Action: repair.BlacklistBlock}},
			false,
		},
		{
			"penalize pair with penalty",
			"amount:total:penalize:0.2",
			[]repair.RiskPair{{A: "amount", B: "total", Action: repair.BlacklistPenalize, Penalty: 0.2}},
			false,
		},
		{
			"multiple entries",
			"name:number:block, date:id:block",
			[]repair.RiskPair{
				{A: "name", B: "number", Action: repair.BlacklistBlock},
				{A: "date", B: "id", Action: repair.BlacklistBlock},
			},
			false,
		},
		{"empty", "", nil, false},
		{"missing action", "name:number", nil, true},
		{"penalize without penalty", "a:b:penalize", nil, true},
		{"unknown action", "a:b:veto", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRiskPairs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlacklistFallsBackToDefaults(t *testing.T) {
	cfg := &Config{}
	bl := cfg.Blacklist()
	require.NotNil(t, bl)
	// The stock vendor/customer block must be active.
	assert.True(t, bl.Check("vendor_name", "customer_name").Blocked)
}
