package consolidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

const beliefPrompt = `You derive durable beliefs about the user from one memory.

A belief is a higher-order statement implied by the memory: a value, habit, trait, or standing preference. Derive at most two. Skip memories that imply nothing beyond themselves.

Also list contradictions: existing beliefs (provided below) that this memory contradicts, by their exact content.

Existing beliefs:
%s

Respond with only a JSON object:
{"beliefs": [{"content": "User values ...", "type": "value|habit|trait|preference", "confidence": 0.0-1.0}], "contradicts": ["exact existing belief content"]}`

type beliefDerivation struct {
	Beliefs []struct {
		Content    string  `json:"content"`
		Type       string  `json:"type"`
		Confidence float64 `json:"confidence"`
	} `json:"beliefs"`
	Contradicts []string `json:"contradicts"`
}

// Deriver folds memories into the belief set. New statements are created,
// restatements reinforce the existing belief, and contradictions mark both
// sides conflicted rather than overwriting either.
type Deriver struct {
	ai      core.AIProvider
	beliefs core.BeliefsRepository
}

func NewDeriver(ai core.AIProvider, beliefs core.BeliefsRepository) *Deriver {
	return &Deriver{ai: ai, beliefs: beliefs}
}

var _ core.BeliefDeriver = (*Deriver)(nil)

func (d *Deriver) DeriveFrom(ctx context.Context, mem core.Memory) (core.BeliefOutcome, error) {
	logger := log.FromCtx(ctx)
	var outcome core.BeliefOutcome

	existing, err := d.beliefs.Active(ctx)
	if err != nil {
		return outcome, fmt.Errorf("load beliefs: %w", err)
	}
	var lines []string
	for _, b := range existing {
		lines = append(lines, "- "+b.Content)
	}
	catalog := strings.Join(lines, "\n")
	if catalog == "" {
		catalog = "(none yet)"
	}

	resp, err := d.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: fmt.Sprintf(beliefPrompt, catalog)},
		{Role: core.RoleUser, Content: mem.Content},
	}, core.ChatOptions{Temperature: 0.2, MaxTokens: 600})
	if err != nil {
		return outcome, fmt.Errorf("belief derivation: %w", err)
	}

	var derived beliefDerivation
	if !jsonrepair.DecodeObject(resp.Content, &derived) {
		logger.Debug().Int64("memory", mem.ID).Msg("belief derivation returned no parseable object")
		return outcome, nil
	}

	for _, b := range derived.Beliefs {
		content := strings.TrimSpace(b.Content)
		if content == "" || b.Confidence <= 0 || b.Confidence > 1 {
			continue
		}
		found, ok, err := d.beliefs.FindByContent(ctx, content)
		if err != nil {
			logger.Warn().Err(err).Msg("belief lookup failed")
			continue
		}
		if ok {
			if err := d.beliefs.Reinforce(ctx, found.ID, b.Confidence); err != nil {
				logger.Warn().Err(err).Int64("belief", found.ID).Msg("belief reinforce failed")
				continue
			}
			if err := d.beliefs.AddEvidence(ctx, found.ID, mem.ID); err != nil {
				logger.Warn().Err(err).Int64("belief", found.ID).Msg("belief evidence link failed")
			}
			outcome.Reinforced++
			continue
		}

		id, err := d.beliefs.Create(ctx, core.Belief{
			Content:    content,
			Type:       b.Type,
			Confidence: b.Confidence,
			Status:     core.BeliefActive,
			Evidence:   []int64{mem.ID},
		})
		if err != nil {
			logger.Warn().Err(err).Msg("belief create failed")
			continue
		}
		logger.Info().Int64("belief", id).Str("content", content).Msg("belief created")
		outcome.Created++
	}

	var conflictIDs []int64
	for _, contradicted := range derived.Contradicts {
		found, ok, err := d.beliefs.FindByContent(ctx, contradicted)
		if err != nil || !ok {
			continue
		}
		conflictIDs = append(conflictIDs, found.ID)
		outcome.Conflicts = append(outcome.Conflicts, found.Content)
	}
	if len(conflictIDs) > 0 {
		if err := d.beliefs.MarkConflicted(ctx, conflictIDs); err != nil {
			logger.Warn().Err(err).Msg("belief conflict mark failed")
		}
	}

	return outcome, nil
}
