package core

import (
	"context"
	"time"
)

// ExtractionStatus tracks whether a message has been folded into long-term
// memory. The only legal transitions are pending -> extracted and
// pending -> skipped, enforced by the repository.
type ExtractionStatus string

const (
	StatusPending   ExtractionStatus = "pending"
	StatusExtracted ExtractionStatus = "extracted"
	StatusSkipped   ExtractionStatus = "skipped"
)

// Memory extraction types produced by the bulk extractor.
const (
	MemoryFact       = "fact"
	MemoryDecision   = "decision"
	MemoryGoal       = "goal"
	MemoryEvent      = "event"
	MemoryPreference = "preference"
)

type StoredMessage struct {
	ID             int64            `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           string           `json:"role"`
	Content        string           `json:"content"`
	Seq            int64            `json:"seq"`
	Status         ExtractionStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
}

type Memory struct {
	ID               int64      `json:"id"`
	Content          string     `json:"content"`
	Source           string     `json:"source"`
	ConversationID   string     `json:"conversation_id,omitempty"`
	ExtractionType   string     `json:"extraction_type,omitempty"`
	Salience         float64    `json:"salience"`
	EventDate        *time.Time `json:"event_date,omitempty"`
	Dormant          bool       `json:"dormant"`
	ReinforceCount   int64      `json:"reinforce_count"`
	LastReinforcedAt *time.Time `json:"last_reinforced_at,omitempty"`
	DecayedAt        *time.Time `json:"decayed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Edge is a weighted similar-to relation between two memories. Endpoints are
// stored normalized (MemoryA < MemoryB).
type Edge struct {
	ID               int64      `json:"id"`
	MemoryA          int64      `json:"memory_a"`
	MemoryB          int64      `json:"memory_b"`
	Weight           float64    `json:"weight"`
	Similarity       float64    `json:"similarity"`
	LastReinforcedAt *time.Time `json:"last_reinforced_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type CategoryScore struct {
	Category  string  `json:"category"`
	Relevance float64 `json:"relevance"`
	Reason    string  `json:"reason"`
}

const (
	BeliefActive     = "active"
	BeliefConflicted = "conflicted"
	BeliefResolved   = "resolved"
)

type Belief struct {
	ID             int64     `json:"id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	Confidence     float64   `json:"confidence"`
	Status         string    `json:"status"`
	ReinforceCount int64     `json:"reinforce_count"`
	Evidence       []int64   `json:"evidence,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	CommitmentCandidate = "candidate"
	CommitmentConfirmed = "confirmed"
	CommitmentResolved  = "resolved"
	CommitmentDismissed = "dismissed"
)

type Commitment struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	AllDay         bool       `json:"all_day"`
	SourceMemoryID int64      `json:"source_memory_id,omitempty"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Reminder carries exactly one of DelayMinutes or ScheduledAt, never both.
type Reminder struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	DelayMinutes *int64     `json:"delay_minutes,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Note struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category,omitempty"`
	EntityName string    `json:"entity_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type List struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	ListType   string    `json:"list_type,omitempty"`
	EntityName string    `json:"entity_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListItem struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	Content   string    `json:"content"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the singleton record for the detected user name. Once Locked,
// Name is immutable for every automatic path.
type Identity struct {
	Name   string `json:"name"`
	Locked bool   `json:"locked"`
	Source string `json:"source,omitempty"`
}

// Insight kinds mined by the consolidation coordinator.
const (
	InsightPattern  = "pattern"
	InsightInsight  = "insight"
	InsightGap      = "gap"
	InsightQuestion = "question"
)

type Insight struct {
	ID         int64     `json:"id"`
	Kind       string    `json:"kind"`
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Status     string    `json:"status"`
	Evidence   []int64   `json:"evidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SimilarMemory is a vector-search hit against the memory store.
type SimilarMemory struct {
	MemoryID int64
	Distance float64
}

type MessagesRepository interface {
	AddMessage(ctx context.Context, conversationID, role, content string) (StoredMessage, error)
	ConversationsWithPending(ctx context.Context) ([]string, error)
	PendingUserMessages(ctx context.Context, conversationID string) ([]StoredMessage, error)
	// MarkExtracted and MarkSkipped only touch rows still in pending state.
	MarkExtracted(ctx context.Context, messageIDs []int64) error
	MarkSkipped(ctx context.Context, messageIDs []int64) error
}

type MemoriesRepository interface {
	Create(ctx context.Context, mem Memory) (int64, error)
	Get(ctx context.Context, id int64) (Memory, error)
	Active(ctx context.Context) ([]Memory, error)
	UpdateSalience(ctx context.Context, id int64, salience float64) error
	// ApplyDecay writes a decayed score and advances the decay anchor.
	ApplyDecay(ctx context.Context, id int64, salience float64) error
	SetEventDate(ctx context.Context, id int64, date time.Time) error
	Reinforce(ctx context.Context, id int64) error
	MarkDormant(ctx context.Context, id int64) error
	// HasRecentContent reports whether an active memory whose normalized
	// content contains needle was created within the window.
	HasRecentContent(ctx context.Context, needle string, window time.Duration) (bool, error)
	SaveEmbedding(ctx context.Context, id int64, embedding []float32) error
	SimilarTo(ctx context.Context, id int64, limit int) ([]SimilarMemory, error)
	ReinforcedSince(ctx context.Context, since time.Time) ([]Memory, error)
}

type EdgesRepository interface {
	Create(ctx context.Context, a, b int64, weight, similarity float64) error
	Exists(ctx context.Context, a, b int64) (bool, error)
	Reinforce(ctx context.Context, a, b int64, delta, maxWeight float64) error
	Prune(ctx context.Context, floor float64) (int64, error)
	ForMemory(ctx context.Context, memoryID int64) ([]Edge, error)
}

type BeliefsRepository interface {
	Create(ctx context.Context, b Belief) (int64, error)
	FindByContent(ctx context.Context, content string) (Belief, bool, error)
	Reinforce(ctx context.Context, id int64, confidence float64) error
	MarkConflicted(ctx context.Context, ids []int64) error
	Active(ctx context.Context) ([]Belief, error)
	Conflicted(ctx context.Context) ([]Belief, error)
	AddEvidence(ctx context.Context, beliefID, memoryID int64) error
}

type CommitmentsRepository interface {
	Create(ctx context.Context, c Commitment) (Commitment, error)
}

type RemindersRepository interface {
	Create(ctx context.Context, r Reminder) (Reminder, error)
}

type NotesRepository interface {
	Create(ctx context.Context, n Note) (Note, error)
}

type ListsRepository interface {
	Create(ctx context.Context, l List) (List, error)
	FindByName(ctx context.Context, name string) (List, bool, error)
	AddItem(ctx context.Context, listID int64, content string) (ListItem, error)
}

type IdentityRepository interface {
	Get(ctx context.Context) (Identity, error)
	// LockName is an atomic check-and-set: it succeeds only when the record
	// is still unlocked and reports whether this call won the lock.
	LockName(ctx context.Context, name, source string) (bool, error)
}

type CategoriesRepository interface {
	Link(ctx context.Context, memoryID int64, scores []CategoryScore) error
	ForMemory(ctx context.Context, memoryID int64) ([]CategoryScore, error)
	Counts(ctx context.Context) (map[string]int64, error)
	GetSummary(ctx context.Context, category string) (string, error)
	UpdateSummary(ctx context.Context, category, summary string) error
}

type InsightsRepository interface {
	Create(ctx context.Context, in Insight) (int64, error)
	ExistsContent(ctx context.Context, kind, content string) (bool, error)
}
