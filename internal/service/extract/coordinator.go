package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/internal/service/dispatch"
	"github.com/sandevgo/engram/pkg/log"
)

// Stats summarizes one batch extraction run.
type Stats struct {
	Conversations      int
	MemoriesCreated    int
	CommitmentsCreated int
	RemindersCreated   int
	BeliefsCreated     int
	BeliefsReinforced  int
	MessagesExtracted  int
	MessagesSkipped    int
	Errors             []string
}

type Coordinator struct {
	ai          core.AIProvider
	embedder    core.Embedder
	messages    core.MessagesRepository
	memories    core.MemoriesRepository
	categories  core.CategoryService
	beliefs     core.BeliefDeriver
	commitments core.CommitmentsRepository
	reminders   core.RemindersRepository
	identity    core.IdentityRepository
	transcripts transcriptSource
	now         func() time.Time
}

type transcriptSource interface {
	build(msgs []core.StoredMessage) string
}

func NewCoordinator(
	ai core.AIProvider,
	embedder core.Embedder,
	messages core.MessagesRepository,
	memories core.MemoriesRepository,
	categories core.CategoryService,
	beliefs core.BeliefDeriver,
	commitments core.CommitmentsRepository,
	reminders core.RemindersRepository,
	identity core.IdentityRepository,
	tokenBudget int,
) (*Coordinator, error) {
	transcripts, err := newTranscriptBuilder(tokenBudget)
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		ai:          ai,
		embedder:    embedder,
		messages:    messages,
		memories:    memories,
		categories:  categories,
		beliefs:     beliefs,
		commitments: commitments,
		reminders:   reminders,
		identity:    identity,
		transcripts: transcripts,
		now:         time.Now,
	}, nil
}

// Run processes every conversation with pending user messages, sequentially.
// A transcript-level failure aborts that conversation only; per-memory
// failures are logged and skipped.
func (c *Coordinator) Run(ctx context.Context) Stats {
	logger := log.FromCtx(ctx)
	var stats Stats

	conversations, err := c.messages.ConversationsWithPending(ctx)
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Sprintf("list pending conversations: %v", err))
		return stats
	}

	for _, convID := range conversations {
		if ctx.Err() != nil {
			stats.Errors = append(stats.Errors, "run cancelled")
			return stats
		}
		if err := c.processConversation(ctx, convID, &stats); err != nil {
			logger.Error().Err(err).Str("conversation", convID).Msg("conversation batch failed")
			stats.Errors = append(stats.Errors, fmt.Sprintf("conversation %s: %v", convID, err))
			continue
		}
		stats.Conversations++
	}
	return stats
}

func (c *Coordinator) processConversation(ctx context.Context, convID string, stats *Stats) error {
	logger := log.FromCtx(ctx)

	msgs, err := c.messages.PendingUserMessages(ctx, convID)
	if err != nil {
		return fmt.Errorf("load pending messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}

	transcript := c.transcripts.build(msgs)
	candidates, err := extractCandidates(ctx, c.ai, transcript)
	if err != nil {
		return err
	}

	// Auxiliary reminder check: messages the real-time path never saw can
	// still carry a "remind me" that must not be dropped with the batch.
	reminders := 0
	for _, m := range msgs {
		rem, ok := dispatch.DetectReminder(ctx, c.ai, c.now(), m.Content)
		if !ok {
			continue
		}
		if _, err := c.reminders.Create(ctx, rem); err != nil {
			logger.Warn().Err(err).Str("title", rem.Title).Msg("auxiliary reminder create failed")
			continue
		}
		stats.RemindersCreated++
		reminders++
	}

	if len(candidates) == 0 {
		// A conversation that produced reminders was processed, not skipped.
		if reminders > 0 {
			if err := c.messages.MarkExtracted(ctx, ids); err != nil {
				return fmt.Errorf("mark extracted: %w", err)
			}
			stats.MessagesExtracted += len(ids)
			return nil
		}
		if err := c.messages.MarkSkipped(ctx, ids); err != nil {
			return fmt.Errorf("mark skipped: %w", err)
		}
		stats.MessagesSkipped += len(ids)
		logger.Info().Str("conversation", convID).Int("messages", len(ids)).Msg("nothing to extract")
		return nil
	}

	userName := ""
	if ident, err := c.identity.Get(ctx); err == nil {
		userName = ident.Name
	}

	for _, cand := range candidates {
		if err := c.processCandidate(ctx, convID, cand, userName, stats); err != nil {
			// Partial success: one bad candidate never sinks the batch.
			logger.Warn().Err(err).Str("content", cand.Content).Msg("memory candidate failed")
		}
	}

	if err := c.messages.MarkExtracted(ctx, ids); err != nil {
		return fmt.Errorf("mark extracted: %w", err)
	}
	stats.MessagesExtracted += len(ids)
	return nil
}

func (c *Coordinator) processCandidate(ctx context.Context, convID string, cand candidate, userName string, stats *Stats) error {
	logger := log.FromCtx(ctx)

	mem := core.Memory{
		Content:        cand.Content,
		Source:         "chat",
		ConversationID: convID,
		ExtractionType: cand.Type,
		Salience:       cand.SalienceHint,
	}
	memID, err := c.memories.Create(ctx, mem)
	if err != nil {
		return fmt.Errorf("create memory: %w", err)
	}
	mem.ID = memID
	stats.MemoriesCreated++

	scores, err := c.categories.Classify(ctx, cand.Content)
	if err != nil {
		logger.Warn().Err(err).Int64("memory", memID).Msg("category classification failed")
	} else if err := c.categories.LinkMemory(ctx, memID, scores); err != nil {
		logger.Warn().Err(err).Int64("memory", memID).Msg("category link failed")
	}

	if calibrated, rule := CalibrateSalience(mem, scores, userName); calibrated > mem.Salience {
		if err := c.memories.UpdateSalience(ctx, memID, calibrated); err != nil {
			logger.Warn().Err(err).Int64("memory", memID).Msg("salience update failed")
		} else {
			logger.Info().
				Int64("memory", memID).
				Str("rule", rule).
				Float64("from", mem.Salience).
				Float64("to", calibrated).
				Msg("salience calibrated")
			mem.Salience = calibrated
		}
	}

	if cand.Type == core.MemoryEvent {
		if date, ok := ExtractEventDate(cand.Content, c.now()); ok {
			if err := c.memories.SetEventDate(ctx, memID, date); err != nil {
				logger.Warn().Err(err).Int64("memory", memID).Msg("event date update failed")
			}
		}
	}

	switch cand.Type {
	case core.MemoryDecision, core.MemoryPreference, core.MemoryGoal:
		outcome, err := c.beliefs.DeriveFrom(ctx, mem)
		if err != nil {
			logger.Warn().Err(err).Int64("memory", memID).Msg("belief derivation failed")
		} else {
			stats.BeliefsCreated += outcome.Created
			stats.BeliefsReinforced += outcome.Reinforced
			for _, conflict := range outcome.Conflicts {
				logger.Info().Int64("memory", memID).Str("belief", conflict).Msg("belief conflict surfaced")
			}
		}
	}

	switch cand.Type {
	case core.MemoryGoal, core.MemoryDecision:
		if commitment, ok := dispatch.DetectCommitment(ctx, c.ai, c.now(), cand.Content); ok {
			commitment.SourceMemoryID = memID
			if _, err := c.commitments.Create(ctx, commitment); err != nil {
				logger.Warn().Err(err).Int64("memory", memID).Msg("commitment create failed")
			} else {
				stats.CommitmentsCreated++
			}
		}
	}

	if embedding, err := c.embedder.Embed(ctx, cand.Content); err != nil {
		logger.Warn().Err(err).Int64("memory", memID).Msg("embedding failed")
	} else if err := c.memories.SaveEmbedding(ctx, memID, embedding); err != nil {
		logger.Warn().Err(err).Int64("memory", memID).Msg("embedding save failed")
	}

	return nil
}
