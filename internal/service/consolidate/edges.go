package consolidate

import (
	"context"
	"time"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

// Edge maintenance: link similar memory pairs, strengthen edges between
// co-activated pairs, drop edges that faded below the weight floor.

func (c *Coordinator) edgePass(ctx context.Context, now time.Time, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	mems, err := c.memories.Active(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "edges: "+err.Error())
		return
	}

	for _, mem := range mems {
		hits, err := c.memories.SimilarTo(ctx, mem.ID, c.cfg.EdgeNeighborLimit)
		if err != nil {
			logger.Warn().Err(err).Int64("memory", mem.ID).Msg("similarity search failed")
			continue
		}
		for _, hit := range hits {
			// Cosine distance: similarity is its complement.
			similarity := 1 - hit.Distance
			if similarity < c.cfg.EdgeSimilarityThreshold {
				continue
			}
			exists, err := c.edges.Exists(ctx, mem.ID, hit.MemoryID)
			if err != nil {
				logger.Warn().Err(err).Msg("edge lookup failed")
				continue
			}
			if exists {
				continue
			}
			if err := c.edges.Create(ctx, mem.ID, hit.MemoryID, 1.0, similarity); err != nil {
				logger.Warn().Err(err).Msg("edge create failed")
				continue
			}
			report.EdgesCreated++
		}
	}

	c.reinforceEdges(ctx, now, report)

	pruned, err := c.edges.Prune(ctx, c.cfg.EdgeWeightFloor)
	if err != nil {
		report.Errors = append(report.Errors, "edge prune: "+err.Error())
		return
	}
	report.EdgesPruned += int(pruned)
}

// reinforceEdges strengthens edges between memory pairs that were both
// re-activated since the previous pass. An edge already reinforced after the
// later of the two activations is left alone, which keeps repeated runs over
// unchanged data from inflating weights.
func (c *Coordinator) reinforceEdges(ctx context.Context, now time.Time, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	recent, err := c.memories.ReinforcedSince(ctx, now.Add(-c.cfg.DecayGrace))
	if err != nil {
		report.Errors = append(report.Errors, "edge reinforce: "+err.Error())
		return
	}
	if len(recent) < 2 {
		return
	}

	activated := make(map[int64]time.Time, len(recent))
	for _, mem := range recent {
		if mem.LastReinforcedAt != nil {
			activated[mem.ID] = *mem.LastReinforcedAt
		}
	}

	seen := map[int64]bool{}
	for _, mem := range recent {
		edges, err := c.edges.ForMemory(ctx, mem.ID)
		if err != nil {
			logger.Warn().Err(err).Int64("memory", mem.ID).Msg("edge listing failed")
			continue
		}
		for _, e := range edges {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true

			aAt, aOK := activated[e.MemoryA]
			bAt, bOK := activated[e.MemoryB]
			if !aOK || !bOK {
				continue
			}
			latest := aAt
			if bAt.After(latest) {
				latest = bAt
			}
			if e.LastReinforcedAt != nil && e.LastReinforcedAt.After(latest) {
				continue
			}
			if err := c.edges.Reinforce(ctx, e.MemoryA, e.MemoryB, c.cfg.EdgeReinforceStep, c.cfg.EdgeWeightCap); err != nil {
				logger.Warn().Err(err).Int64("edge", e.ID).Msg("edge reinforce failed")
				continue
			}
			report.EdgesReinforced++
		}
	}
}
