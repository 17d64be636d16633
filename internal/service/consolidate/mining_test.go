package consolidate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/engram/internal/core"
)

type fakeCategories struct {
	core.CategoriesRepository
	counts map[string]int64
}

func (f *fakeCategories) Counts(context.Context) (map[string]int64, error) { return f.counts, nil }

type fakeInsights struct {
	created []core.Insight
}

func (f *fakeInsights) Create(_ context.Context, in core.Insight) (int64, error) {
	f.created = append(f.created, in)
	return int64(len(f.created)), nil
}

func (f *fakeInsights) ExistsContent(_ context.Context, kind, content string) (bool, error) {
	for _, in := range f.created {
		if in.Kind == kind && in.Content == content {
			return true, nil
		}
	}
	return false, nil
}

func TestMinePatternsThreshold(t *testing.T) {
	cats := &fakeCategories{counts: map[string]int64{"work": 7, "health": 2}}
	insights := &fakeInsights{}
	c := &Coordinator{categories: cats, insights: insights, cfg: testConfig()}

	var report core.ConsolidationReport
	c.minePatterns(context.Background(), &report)
	if report.PatternsCreated != 1 {
		t.Fatalf("patterns = %d, want 1", report.PatternsCreated)
	}
	if insights.created[0].Kind != core.InsightPattern || !strings.Contains(insights.created[0].Content, "work") {
		t.Fatalf("insight = %+v", insights.created[0])
	}
}

func TestMinePatternsDeduplicates(t *testing.T) {
	cats := &fakeCategories{counts: map[string]int64{"work": 7}}
	insights := &fakeInsights{}
	c := &Coordinator{categories: cats, insights: insights, cfg: testConfig()}

	var first, second core.ConsolidationReport
	c.minePatterns(context.Background(), &first)
	c.minePatterns(context.Background(), &second)
	if first.PatternsCreated != 1 || second.PatternsCreated != 0 {
		t.Fatalf("patterns = %d then %d, want 1 then 0", first.PatternsCreated, second.PatternsCreated)
	}
}

func TestMineGapsFlagsThinCategories(t *testing.T) {
	cats := &fakeCategories{counts: map[string]int64{"work": 7, "health": 1}}
	insights := &fakeInsights{}
	c := &Coordinator{
		categories:    cats,
		insights:      insights,
		categoryNames: []string{"work", "health", "finance"},
		cfg:           testConfig(),
	}

	var report core.ConsolidationReport
	c.mineGaps(context.Background(), &report)
	// health has one memory, finance none; work is covered.
	if report.InsightsCreated != 2 {
		t.Fatalf("gaps = %d, want 2", report.InsightsCreated)
	}
	for _, in := range insights.created {
		if in.Kind != core.InsightGap {
			t.Fatalf("kind = %q", in.Kind)
		}
		if strings.Contains(in.Content, "work") {
			t.Fatalf("covered category flagged: %q", in.Content)
		}
	}
}

func TestMineQuestionsFromConflictedBeliefs(t *testing.T) {
	beliefs := &fakeBeliefs{beliefs: []core.Belief{
		{ID: 1, Content: "User prefers the office", Status: core.BeliefConflicted, Confidence: 0.8},
	}, conflicted: []int64{1}}
	insights := &fakeInsights{}
	c := &Coordinator{beliefs: beliefs, insights: insights, cfg: testConfig()}

	var report core.ConsolidationReport
	c.mineQuestions(context.Background(), &report)
	if report.InsightsCreated != 1 {
		t.Fatalf("questions = %d, want 1", report.InsightsCreated)
	}
	in := insights.created[0]
	if in.Kind != core.InsightQuestion || !strings.Contains(in.Content, "User prefers the office") {
		t.Fatalf("insight = %+v", in)
	}
}

func TestMineInsightsOverDigest(t *testing.T) {
	ai := &fakeAI{reply: `[{"content": "User's fitness goal follows their health scare", "confidence": 0.7}]`}
	mems := &fakeMemories{active: []core.Memory{memory(1, 8, time.Hour)}}
	beliefs := &fakeBeliefs{}
	insights := &fakeInsights{}
	c := &Coordinator{ai: ai, memories: mems, beliefs: beliefs, insights: insights, cfg: testConfig()}

	var report core.ConsolidationReport
	c.mineInsights(context.Background(), &report)
	if report.InsightsCreated != 1 {
		t.Fatalf("insights = %d, want 1", report.InsightsCreated)
	}
	if insights.created[0].Kind != core.InsightInsight {
		t.Fatalf("kind = %q", insights.created[0].Kind)
	}
}

func TestMineInsightsSkipsEmptyGraph(t *testing.T) {
	ai := &fakeAI{}
	c := &Coordinator{ai: ai, memories: &fakeMemories{}, beliefs: &fakeBeliefs{}, insights: &fakeInsights{}, cfg: testConfig()}

	var report core.ConsolidationReport
	c.mineInsights(context.Background(), &report)
	if ai.calls != 0 {
		t.Fatalf("model called %d times on an empty graph", ai.calls)
	}
}

func TestMiningPassHoldsInsightModelWithoutNewMemories(t *testing.T) {
	// A sampled model can phrase a fresh insight on every call, so content
	// dedup alone does not make repeated passes idempotent.
	ai := &fakeAI{replies: []string{
		`[{"content": "User's fitness goal follows their health scare", "confidence": 0.7}]`,
		`[{"content": "User's reading habit tracks their commute change", "confidence": 0.6}]`,
	}}
	mems := &fakeMemories{active: []core.Memory{memory(1, 8, time.Hour)}}
	cats := &fakeCategories{counts: map[string]int64{}}
	insights := &fakeInsights{}
	c := &Coordinator{ai: ai, memories: mems, categories: cats, beliefs: &fakeBeliefs{}, insights: insights, cfg: testConfig()}

	var first core.ConsolidationReport
	c.miningPass(context.Background(), true, &first)
	if ai.calls != 1 || first.InsightsCreated != 1 {
		t.Fatalf("fresh pass: calls = %d insights = %d, want 1 and 1", ai.calls, first.InsightsCreated)
	}

	var second core.ConsolidationReport
	c.miningPass(context.Background(), false, &second)
	if ai.calls != 1 {
		t.Fatalf("insight model consulted on a pass with no new memories")
	}
	if second.InsightsCreated != 0 || len(insights.created) != 1 {
		t.Fatalf("idle pass mutated insights: report = %d stored = %d", second.InsightsCreated, len(insights.created))
	}
}
