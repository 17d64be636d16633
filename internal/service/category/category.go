package category

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

// Categories form a fixed vocabulary. Classification output naming anything
// else is discarded, which keeps the summary table bounded.
var Categories = []string{
	"personality",
	"relationships",
	"work",
	"health",
	"interests",
	"finance",
	"home",
}

const classifyPrompt = `You assign memory content to life categories.

Allowed categories: %s

Rate each relevant category from 0.0 to 1.0. Include only categories with relevance 0.3 or higher. Respond with only a JSON array:
[{"category": "...", "relevance": 0.0-1.0, "reason": "a few words"}]`

type Service struct {
	ai   core.AIProvider
	repo core.CategoriesRepository
}

func NewService(ai core.AIProvider, repo core.CategoriesRepository) *Service {
	return &Service{ai: ai, repo: repo}
}

var _ core.CategoryService = (*Service)(nil)

// Classify asks the model to score the text against the fixed category set.
// Unknown categories and out-of-range scores are dropped silently.
func (s *Service) Classify(ctx context.Context, text string) ([]core.CategoryScore, error) {
	resp, err := s.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: fmt.Sprintf(classifyPrompt, strings.Join(Categories, ", "))},
		{Role: core.RoleUser, Content: text},
	}, core.ChatOptions{Temperature: 0.1, MaxTokens: 400})
	if err != nil {
		return nil, fmt.Errorf("category classification: %w", err)
	}

	var raw []core.CategoryScore
	if !jsonrepair.DecodeArray(resp.Content, &raw) {
		log.FromCtx(ctx).Debug().Msg("category classifier returned no parseable array")
		return nil, nil
	}

	scores := make([]core.CategoryScore, 0, len(raw))
	for _, sc := range raw {
		sc.Category = strings.ToLower(strings.TrimSpace(sc.Category))
		if !known(sc.Category) || sc.Relevance <= 0 || sc.Relevance > 1 {
			continue
		}
		scores = append(scores, sc)
	}
	return scores, nil
}

func (s *Service) LinkMemory(ctx context.Context, memoryID int64, scores []core.CategoryScore) error {
	if len(scores) == 0 {
		return nil
	}
	return s.repo.Link(ctx, memoryID, scores)
}

func (s *Service) GetSummary(ctx context.Context, category string) (string, error) {
	return s.repo.GetSummary(ctx, category)
}

func (s *Service) UpdateSummary(ctx context.Context, category, summary string) error {
	return s.repo.UpdateSummary(ctx, category, summary)
}

func known(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
