package core

import "context"

type AIProvider interface {
	Chat(ctx context.Context, history []Message, opts ChatOptions) (Message, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EntityResolver does a best-effort fuzzy lookup of a named entity. A miss is
// not an error.
type EntityResolver interface {
	Search(ctx context.Context, name string) (string, bool, error)
}

// CategoryService classifies text into summary categories and maintains the
// living per-category summaries.
type CategoryService interface {
	Classify(ctx context.Context, text string) ([]CategoryScore, error)
	LinkMemory(ctx context.Context, memoryID int64, scores []CategoryScore) error
	GetSummary(ctx context.Context, category string) (string, error)
	UpdateSummary(ctx context.Context, category, summary string) error
}

// BeliefDeriver folds a memory into the belief set.
type BeliefDeriver interface {
	DeriveFrom(ctx context.Context, mem Memory) (BeliefOutcome, error)
}

type BeliefOutcome struct {
	Created    int
	Reinforced int
	Conflicts  []string
}
