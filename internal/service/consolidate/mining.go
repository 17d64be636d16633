package consolidate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

// Second-order mining over the memory graph. Heuristic miners are cheap and
// deterministic; content dedup alone makes them idempotent. The insight
// miner is the single model call of the pass, and a sampled model can
// phrase a new insight on every call, so it only runs when the pass
// actually brought in new memories.

const (
	patternMinCount = 5
	gapMaxCount     = 1
)

const insightPrompt = `You study a digest of what is known about a person and surface non-obvious insights.

An insight connects facts across topics or time ("User's running goal lines up with their health scare in March"). Obvious restatements of single facts are not insights. Derive at most three.

Respond with only a JSON array, empty if nothing qualifies:
[{"content": "...", "confidence": 0.0-1.0}]`

func (c *Coordinator) miningPass(ctx context.Context, fresh bool, report *core.ConsolidationReport) {
	c.minePatterns(ctx, report)
	c.mineGaps(ctx, report)
	c.mineQuestions(ctx, report)
	if fresh {
		c.mineInsights(ctx, report)
	}
}

// minePatterns flags categories the user keeps returning to.
func (c *Coordinator) minePatterns(ctx context.Context, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	counts, err := c.categories.Counts(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "pattern mining: "+err.Error())
		return
	}

	for category, n := range counts {
		if n < patternMinCount {
			continue
		}
		content := fmt.Sprintf("Recurring focus on %s (%d memories)", category, n)
		if c.createInsight(ctx, core.Insight{
			Kind:       core.InsightPattern,
			Content:    content,
			Confidence: 0.7,
		}) {
			logger.Info().Str("category", category).Msg("pattern mined")
			report.PatternsCreated++
		}
	}
}

// mineGaps flags categories with little to no coverage: topics worth asking
// about.
func (c *Coordinator) mineGaps(ctx context.Context, report *core.ConsolidationReport) {
	counts, err := c.categories.Counts(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "gap mining: "+err.Error())
		return
	}

	for _, category := range c.categoryNames {
		if counts[category] > gapMaxCount {
			continue
		}
		content := fmt.Sprintf("Little is known about the user's %s", category)
		if c.createInsight(ctx, core.Insight{
			Kind:       core.InsightGap,
			Content:    content,
			Confidence: 0.6,
		}) {
			report.InsightsCreated++
		}
	}
}

// mineQuestions turns conflicted beliefs into open questions for the user.
func (c *Coordinator) mineQuestions(ctx context.Context, report *core.ConsolidationReport) {
	conflicted, err := c.beliefs.Conflicted(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "question mining: "+err.Error())
		return
	}

	for _, b := range conflicted {
		content := fmt.Sprintf("Does this still hold: %q?", b.Content)
		if c.createInsight(ctx, core.Insight{
			Kind:       core.InsightQuestion,
			Content:    content,
			Confidence: b.Confidence,
		}) {
			report.InsightsCreated++
		}
	}
}

// mineInsights runs one model call over a digest of the highest-salience
// memories and active beliefs.
func (c *Coordinator) mineInsights(ctx context.Context, report *core.ConsolidationReport) {
	logger := log.FromCtx(ctx)

	digest, err := c.buildDigest(ctx)
	if err != nil {
		report.Errors = append(report.Errors, "insight mining: "+err.Error())
		return
	}
	if digest == "" {
		return
	}

	resp, err := c.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: insightPrompt},
		{Role: core.RoleUser, Content: digest},
	}, core.ChatOptions{Temperature: 0.4, MaxTokens: 800})
	if err != nil {
		report.Errors = append(report.Errors, "insight mining: "+err.Error())
		return
	}

	var mined []struct {
		Content    string  `json:"content"`
		Confidence float64 `json:"confidence"`
	}
	if !jsonrepair.DecodeArray(resp.Content, &mined) {
		logger.Debug().Msg("insight miner returned no parseable array")
		return
	}

	for _, in := range mined {
		content := strings.TrimSpace(in.Content)
		if content == "" || in.Confidence <= 0 || in.Confidence > 1 {
			continue
		}
		if c.createInsight(ctx, core.Insight{
			Kind:       core.InsightInsight,
			Content:    content,
			Confidence: in.Confidence,
		}) {
			report.InsightsCreated++
		}
	}
}

func (c *Coordinator) buildDigest(ctx context.Context) (string, error) {
	mems, err := c.memories.Active(ctx)
	if err != nil {
		return "", err
	}
	if len(mems) == 0 {
		return "", nil
	}
	sort.Slice(mems, func(i, j int) bool { return mems[i].Salience > mems[j].Salience })
	if len(mems) > 40 {
		mems = mems[:40]
	}

	var b strings.Builder
	b.WriteString("Memories:\n")
	for _, m := range mems {
		fmt.Fprintf(&b, "- [%s] %s\n", m.ExtractionType, m.Content)
	}

	beliefs, err := c.beliefs.Active(ctx)
	if err != nil {
		return "", err
	}
	if len(beliefs) > 0 {
		b.WriteString("Beliefs:\n")
		for _, bl := range beliefs {
			b.WriteString("- " + bl.Content + "\n")
		}
	}
	return b.String(), nil
}

// createInsight inserts unless an identical artifact of the same kind
// already exists. Reports whether a row was created.
func (c *Coordinator) createInsight(ctx context.Context, in core.Insight) bool {
	logger := log.FromCtx(ctx)

	exists, err := c.insights.ExistsContent(ctx, in.Kind, in.Content)
	if err != nil {
		logger.Warn().Err(err).Str("kind", in.Kind).Msg("insight dedup probe failed")
		return false
	}
	if exists {
		return false
	}
	if _, err := c.insights.Create(ctx, in); err != nil {
		logger.Warn().Err(err).Str("kind", in.Kind).Msg("insight create failed")
		return false
	}
	return true
}
