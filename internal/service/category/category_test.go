package category

import (
	"context"
	"testing"

	"github.com/sandevgo/engram/internal/core"
)

type fakeAI struct{ reply string }

func (f *fakeAI) Chat(context.Context, []core.Message, core.ChatOptions) (core.Message, error) {
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

type fakeRepo struct {
	core.CategoriesRepository
	linked map[int64][]core.CategoryScore
}

func (f *fakeRepo) Link(_ context.Context, memoryID int64, scores []core.CategoryScore) error {
	if f.linked == nil {
		f.linked = map[int64][]core.CategoryScore{}
	}
	f.linked[memoryID] = scores
	return nil
}

func TestClassifyFiltersUnknownCategories(t *testing.T) {
	ai := &fakeAI{reply: `[
		{"category": "Work", "relevance": 0.9, "reason": "job"},
		{"category": "astrology", "relevance": 0.8, "reason": "made up"},
		{"category": "health", "relevance": 1.5, "reason": "out of range"},
		{"category": "personality", "relevance": 0.4, "reason": "ok"}
	]`}
	s := NewService(ai, &fakeRepo{})

	scores, err := s.Classify(context.Background(), "I started a new job")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores = %+v, want work and personality only", scores)
	}
	if scores[0].Category != "work" || scores[1].Category != "personality" {
		t.Fatalf("scores = %+v", scores)
	}
}

func TestClassifyUnparseableOutputIsEmpty(t *testing.T) {
	s := NewService(&fakeAI{reply: "no json here"}, &fakeRepo{})
	scores, err := s.Classify(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if scores != nil {
		t.Fatalf("scores = %+v, want nil", scores)
	}
}

func TestLinkMemorySkipsEmpty(t *testing.T) {
	repo := &fakeRepo{}
	s := NewService(&fakeAI{}, repo)
	if err := s.LinkMemory(context.Background(), 7, nil); err != nil {
		t.Fatal(err)
	}
	if len(repo.linked) != 0 {
		t.Fatalf("linked = %+v, want none", repo.linked)
	}
}
