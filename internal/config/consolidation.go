package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/engram/pkg/log"
)

// ConsolidationConfig tunes the background memory-maintenance job. The
// duplicate-suppression window is a policy knob, not a constant: the source
// behavior (30 days, substring match) may be either deduplication or a bug,
// so it stays configurable.
type ConsolidationConfig struct {
	// Idle window with no new messages before a consolidation run fires.
	DebounceWindow time.Duration `env:"CONSOLIDATION_DEBOUNCE" envDefault:"2m"`

	// Relationship-fact duplicate suppression.
	DuplicateWindow time.Duration `env:"DUPLICATE_WINDOW" envDefault:"720h"`

	// Decay: exponential salience decay after the grace period, dormancy
	// below the floor.
	DecayGrace    time.Duration `env:"DECAY_GRACE" envDefault:"168h"`
	DecayRate     float64       `env:"DECAY_RATE" envDefault:"0.02"`
	DormancyFloor float64       `env:"DORMANCY_FLOOR" envDefault:"1.0"`

	// Reinforcement bump for re-activated memories, capped at 10.
	ReinforceBoost float64 `env:"REINFORCE_BOOST" envDefault:"0.5"`

	// Edge maintenance.
	EdgeSimilarityThreshold float64 `env:"EDGE_SIMILARITY_THRESHOLD" envDefault:"0.78"`
	EdgeReinforceStep       float64 `env:"EDGE_REINFORCE_STEP" envDefault:"0.1"`
	EdgeWeightCap           float64 `env:"EDGE_WEIGHT_CAP" envDefault:"5.0"`
	EdgeWeightFloor         float64 `env:"EDGE_WEIGHT_FLOOR" envDefault:"0.2"`
	EdgeNeighborLimit       int     `env:"EDGE_NEIGHBOR_LIMIT" envDefault:"5"`
}

func NewConsolidationConfig(ctx context.Context) *ConsolidationConfig {
	c := &ConsolidationConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Consolidation config")
	}
	return c
}
