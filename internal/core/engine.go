package core

import "context"

// Dispatch actions reported back to the transport layer.
const (
	ActionNone           = "none"
	ActionIdentityLocked = "identity_locked"
	ActionMemoryCreated  = "memory_created"
	ActionReminder       = "reminder_created"
	ActionNote           = "note_created"
	ActionListCreated    = "list_created"
	ActionListItemAdded  = "list_item_added"
	ActionCommitment     = "commitment_created"
)

// DispatchResult names the artifact (if any) the real-time path created so
// the reply path can relay it to the user.
type DispatchResult struct {
	Action string `json:"action"`
	Title  string `json:"title,omitempty"`
	Detail string `json:"detail,omitempty"`
	// MemoriesCreated counts relationship memories, which may fire alongside
	// the winning action.
	MemoriesCreated int `json:"memories_created,omitempty"`
}

type ConsolidationReport struct {
	MemoriesCreated    int      `json:"memories_created"`
	CommitmentsCreated int      `json:"commitments_created"`
	RemindersCreated   int      `json:"reminders_created"`
	BeliefsCreated     int      `json:"beliefs_created"`
	BeliefsReinforced  int      `json:"beliefs_reinforced"`
	EdgesCreated       int      `json:"edges_created"`
	EdgesReinforced    int      `json:"edges_reinforced"`
	EdgesPruned        int      `json:"edges_pruned"`
	PatternsCreated    int      `json:"patterns_created"`
	InsightsCreated    int      `json:"insights_created"`
	MemoriesDecayed    int      `json:"memories_decayed"`
	MemoriesDormant    int      `json:"memories_dormant"`
	DurationMs         int64    `json:"duration_ms"`
	Errors             []string `json:"errors,omitempty"`
}

// Dispatcher is the engine surface exposed to the transport layer.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg StoredMessage) (DispatchResult, error)
}

// Consolidator is the engine surface exposed to the scheduler.
type Consolidator interface {
	Run(ctx context.Context) (ConsolidationReport, error)
}
