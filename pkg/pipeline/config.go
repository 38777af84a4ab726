package pipeline

import (
	"github.com/sqlmend/sqlmend/pkg/candidates"
	"github.com/sqlmend/sqlmend/pkg/repair"
)

// AutocorrectMode selects whether the deterministic column rewrite may mutate
// SQL or only measure how often it would have.
type AutocorrectMode string

const (
	AutocorrectActive  AutocorrectMode = "active"
	AutocorrectObserve AutocorrectMode = "observe"
)

// PlannerConfig tunes join-graph construction and skeleton search.
type PlannerConfig struct {
	// HubDegreeLimit is the FK degree above which a table's adjacency is
	// capped. Zero disables capping.
	HubDegreeLimit int `yaml:"hub_degree_limit" env:"PLANNER_HUB_DEGREE_LIMIT" env-default:"12"`
	// HubMaxEdges is how many edges a capped hub keeps.
	HubMaxEdges int `yaml:"hub_max_edges" env:"PLANNER_HUB_MAX_EDGES" env-default:"6"`
	// ScoredPaths enables alternate skeleton generation and ranking.
	ScoredPaths bool `yaml:"scored_paths" env:"PLANNER_SCORED_PATHS" env-default:"true"`
	// MaxAlternates bounds the k-shortest-paths search.
	MaxAlternates int `yaml:"max_alternates" env:"PLANNER_MAX_ALTERNATES" env-default:"3"`
}

// Config tunes the repair loop.
type Config struct {
	// MaxAttempts bounds generation plus repair round trips.
	MaxAttempts int `yaml:"max_attempts" env:"PIPELINE_MAX_ATTEMPTS" env-default:"3"`
	// ConfidenceDecay is subtracted from the reported confidence per retry.
	ConfidenceDecay float64 `yaml:"confidence_decay" env:"PIPELINE_CONFIDENCE_DECAY" env-default:"0.15"`
	// DefaultConfidence is assumed when the generator reports none.
	DefaultConfidence float64 `yaml:"default_confidence" env:"PIPELINE_DEFAULT_CONFIDENCE" env-default:"0.5"`
	// Temperature for generation calls.
	Temperature float64 `yaml:"temperature" env:"PIPELINE_TEMPERATURE" env-default:"0"`
	// NumCandidates asks the generator for this many options on the first
	// attempt. 1 disables multi-candidate generation.
	NumCandidates int `yaml:"num_candidates" env:"PIPELINE_NUM_CANDIDATES" env-default:"3"`
	// MaxSchemaColumns caps per-table column lists in prompt rendering.
	MaxSchemaColumns int `yaml:"max_schema_columns" env:"PIPELINE_MAX_SCHEMA_COLUMNS" env-default:"20"`

	// RequireLimit appends DefaultLimit to unbounded SELECTs.
	RequireLimit bool `yaml:"require_limit" env:"PIPELINE_REQUIRE_LIMIT" env-default:"true"`
	DefaultLimit int  `yaml:"default_limit" env:"PIPELINE_DEFAULT_LIMIT" env-default:"1000"`
	// MaxJoins is the JOIN count above which the validator warns.
	MaxJoins int `yaml:"max_joins" env:"PIPELINE_MAX_JOINS" env-default:"8"`
	// ScreenLiterals runs the injection screen over string literals.
	ScreenLiterals bool `yaml:"screen_literals" env:"PIPELINE_SCREEN_LITERALS" env-default:"true"`

	// Autocorrect selects active rewriting or observe-only measurement.
	Autocorrect AutocorrectMode `yaml:"autocorrect" env:"PIPELINE_AUTOCORRECT" env-default:"active"`
	// WidenAmbiguousAlias falls back to every FROM/JOIN table when the
	// failing reference's alias does not resolve.
	WidenAmbiguousAlias bool `yaml:"widen_ambiguous_alias" env:"PIPELINE_WIDEN_AMBIGUOUS_ALIAS" env-default:"true"`

	Gating     repair.GatingConfig    `yaml:"gating"`
	Whitelist  repair.WhitelistConfig `yaml:"whitelist"`
	Candidates candidates.Config      `yaml:"candidates"`
	Planner    PlannerConfig          `yaml:"planner"`
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         3,
		ConfidenceDecay:     0.15,
		DefaultConfidence:   0.5,
		NumCandidates:       3,
		MaxSchemaColumns:    20,
		RequireLimit:        true,
		DefaultLimit:        1000,
		MaxJoins:            8,
		ScreenLiterals:      true,
		Autocorrect:         AutocorrectActive,
		WidenAmbiguousAlias: true,
		Gating:              repair.DefaultGatingConfig(),
		Whitelist:           repair.DefaultWhitelistConfig(),
		Candidates:          candidates.DefaultConfig(),
		Planner:             PlannerConfig{HubDegreeLimit: 12, HubMaxEdges: 6, ScoredPaths: true, MaxAlternates: 3},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.ConfidenceDecay <= 0 {
		c.ConfidenceDecay = d.ConfidenceDecay
	}
	if c.DefaultConfidence <= 0 {
		c.DefaultConfidence = d.DefaultConfidence
	}
	if c.NumCandidates <= 0 {
		c.NumCandidates = d.NumCandidates
	}
	if c.MaxSchemaColumns <= 0 {
		c.MaxSchemaColumns = d.MaxSchemaColumns
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = d.DefaultLimit
	}
	if c.Autocorrect == "" {
		c.Autocorrect = d.Autocorrect
	}
	return c
}
