package consolidate

import (
	"context"
	"math"
	"time"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

// Salience fades exponentially once a memory has gone unreinforced past the
// grace period. The decay anchor advances with every applied write, so a run
// immediately following another finds nothing to change: elapsed time is
// near zero, the multiplier rounds to one, and no mutation happens.

const decayEpsilon = 0.01

func (c *Coordinator) decayPass(ctx context.Context, now time.Time, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	mems, err := c.memories.Active(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "decay: "+err.Error())
		return
	}

	for _, mem := range mems {
		anchor := lastActivity(mem)
		if now.Sub(anchor) < c.cfg.DecayGrace {
			continue
		}

		elapsed := now.Sub(decayAnchor(mem))
		days := elapsed.Hours() / 24
		decayed := round2(mem.Salience * math.Exp(-c.cfg.DecayRate*days))
		if mem.Salience-decayed < decayEpsilon {
			continue
		}

		if decayed < c.cfg.DormancyFloor {
			if err := c.memories.MarkDormant(ctx, mem.ID); err != nil {
				logger.Warn().Err(err).Int64("memory", mem.ID).Msg("dormancy mark failed")
				continue
			}
			logger.Info().Int64("memory", mem.ID).Float64("salience", decayed).Msg("memory went dormant")
			report.MemoriesDormant++
			continue
		}

		if err := c.memories.ApplyDecay(ctx, mem.ID, decayed); err != nil {
			logger.Warn().Err(err).Int64("memory", mem.ID).Msg("decay write failed")
			continue
		}
		report.MemoriesDecayed++
	}
}

// reinforcePass boosts memories re-activated since the previous run.
func (c *Coordinator) reinforcePass(ctx context.Context, now time.Time, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	since := now.Add(-c.cfg.DecayGrace)
	mems, err := c.memories.ReinforcedSince(ctx, since)
	if err != nil {
		report.Errors = append(report.Errors, "reinforce: "+err.Error())
		return
	}

	for _, mem := range mems {
		// Decay anchored after the reinforcement means the boost was
		// already folded in.
		if mem.DecayedAt != nil && mem.LastReinforcedAt != nil && mem.DecayedAt.After(*mem.LastReinforcedAt) {
			continue
		}
		boosted := math.Min(10, mem.Salience+c.cfg.ReinforceBoost)
		if boosted-mem.Salience < decayEpsilon {
			continue
		}
		if err := c.memories.ApplyDecay(ctx, mem.ID, boosted); err != nil {
			logger.Warn().Err(err).Int64("memory", mem.ID).Msg("reinforce write failed")
		}
	}
}

// lastActivity is the most recent of reinforcement and creation.
func lastActivity(mem core.Memory) time.Time {
	if mem.LastReinforcedAt != nil && mem.LastReinforcedAt.After(mem.CreatedAt) {
		return *mem.LastReinforcedAt
	}
	return mem.CreatedAt
}

// decayAnchor is the point the current salience was last written from.
func decayAnchor(mem core.Memory) time.Time {
	anchor := lastActivity(mem)
	if mem.DecayedAt != nil && mem.DecayedAt.After(anchor) {
		return *mem.DecayedAt
	}
	return anchor
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
