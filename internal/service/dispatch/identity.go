package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

// identityPrefilter catches first-person naming phrases. It deliberately
// over-matches ("I'm confident" passes); the model call makes the semantic
// distinction.
var identityPrefilter = regexp.MustCompile(`(?i)\b(my name('s| is)|i am|i'?m|call me|this is)\b`)

const identityPrompt = `You detect whether the user is introducing THEMSELVES by name.

A self-introduction states the user's own name: "I'm Brian", "my name is Ada", "call me Sam".
NOT a self-introduction: first-person statements without a name ("I'm confident", "I'm 56", "I'm tired"), or naming someone else ("my wife is Robin", "this is about Tom").

Respond with only a JSON object:
{"is_self_introduction": bool, "name": "the stated name or empty", "confidence": 0.0-1.0, "reasoning": "one short sentence"}`

type identityResult struct {
	IsSelfIntroduction bool    `json:"is_self_introduction"`
	Name               string  `json:"name"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
}

// tryIdentity runs only while the identity record is unlocked. The lock write
// is a single conditional update against the store, so a race between two
// messages in flight produces exactly one winner.
func (d *Dispatcher) tryIdentity(ctx context.Context, msg core.StoredMessage) *core.DispatchResult {
	logger := log.FromCtx(ctx)

	ident, err := d.identity.Get(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("identity lookup failed")
		return nil
	}
	if ident.Locked || !identityPrefilter.MatchString(msg.Content) {
		return nil
	}

	var res identityResult
	if !d.classify(ctx, identityPrompt, msg.Content, &res) {
		return nil
	}
	name := strings.TrimSpace(res.Name)
	if !res.IsSelfIntroduction || name == "" || res.Confidence < confidenceThreshold {
		logger.Debug().Str("reasoning", res.Reasoning).Float64("confidence", res.Confidence).Msg("identity classifier declined")
		return nil
	}

	locked, err := d.identity.LockName(ctx, name, "self_introduction")
	if err != nil {
		logger.Warn().Err(err).Msg("identity lock failed")
		return nil
	}
	if !locked {
		// Lost the race to an earlier message. Not an error.
		logger.Info().Str("name", name).Msg("identity already locked")
		return nil
	}

	created := 0
	mem := core.Memory{
		Content:        "User's name is " + name,
		Source:         "identity",
		ConversationID: msg.ConversationID,
		ExtractionType: core.MemoryFact,
		Salience:       10,
	}
	memID, err := d.memories.Create(ctx, mem)
	if err != nil {
		logger.Warn().Err(err).Msg("identity memory create failed")
	} else {
		created++
		scores := []core.CategoryScore{{Category: "personality", Relevance: 1.0, Reason: "self introduction"}}
		if err := d.categories.LinkMemory(ctx, memID, scores); err != nil {
			logger.Warn().Err(err).Msg("identity category link failed")
		}
	}

	d.refreshPersonalitySummary(ctx, name)

	logger.Info().Str("name", name).Msg("identity locked")
	return &core.DispatchResult{
		Action:          core.ActionIdentityLocked,
		Title:           name,
		MemoriesCreated: created,
	}
}

// refreshPersonalitySummary appends the name to the live personality summary
// unless it is already mentioned.
func (d *Dispatcher) refreshPersonalitySummary(ctx context.Context, name string) {
	logger := log.FromCtx(ctx)

	summary, err := d.categories.GetSummary(ctx, "personality")
	if err != nil {
		logger.Warn().Err(err).Msg("personality summary read failed")
		return
	}
	if strings.Contains(strings.ToLower(summary), strings.ToLower(name)) {
		return
	}

	line := "The user's name is " + name + "."
	if summary != "" {
		summary = strings.TrimRight(summary, " \n") + "\n" + line
	} else {
		summary = line
	}
	if err := d.categories.UpdateSummary(ctx, "personality", summary); err != nil {
		logger.Warn().Err(err).Msg("personality summary update failed")
	}
}
