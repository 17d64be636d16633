package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/engram/internal/core"
)

type fakeAI struct {
	// replies are served in call order.
	replies []string
	err     error
	calls   int
}

func (f *fakeAI) Chat(context.Context, []core.Message, core.ChatOptions) (core.Message, error) {
	f.calls++
	if f.err != nil {
		return core.Message{}, f.err
	}
	reply := "[]"
	if len(f.replies) > 0 {
		reply = f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
	}
	return core.Message{Role: core.RoleAssistant, Content: reply}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type fakeMessages struct {
	pending   map[string][]core.StoredMessage
	extracted []int64
	skipped   []int64
	markErr   error
}

func (f *fakeMessages) AddMessage(context.Context, string, string, string) (core.StoredMessage, error) {
	return core.StoredMessage{}, errors.New("not used")
}

func (f *fakeMessages) ConversationsWithPending(context.Context) ([]string, error) {
	var out []string
	for id := range f.pending {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeMessages) PendingUserMessages(_ context.Context, convID string) ([]core.StoredMessage, error) {
	return f.pending[convID], nil
}

func (f *fakeMessages) MarkExtracted(_ context.Context, ids []int64) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.extracted = append(f.extracted, ids...)
	return nil
}

func (f *fakeMessages) MarkSkipped(_ context.Context, ids []int64) error {
	f.skipped = append(f.skipped, ids...)
	return nil
}

type fakeMemories struct {
	core.MemoriesRepository
	created    []core.Memory
	saliences  map[int64]float64
	eventDates map[int64]time.Time
	embeddings map[int64][]float32
	createErr  error
}

func (f *fakeMemories) Create(_ context.Context, mem core.Memory) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, mem)
	return int64(len(f.created)), nil
}

func (f *fakeMemories) UpdateSalience(_ context.Context, id int64, salience float64) error {
	if f.saliences == nil {
		f.saliences = map[int64]float64{}
	}
	f.saliences[id] = salience
	return nil
}

func (f *fakeMemories) SetEventDate(_ context.Context, id int64, date time.Time) error {
	if f.eventDates == nil {
		f.eventDates = map[int64]time.Time{}
	}
	f.eventDates[id] = date
	return nil
}

func (f *fakeMemories) SaveEmbedding(_ context.Context, id int64, embedding []float32) error {
	if f.embeddings == nil {
		f.embeddings = map[int64][]float32{}
	}
	f.embeddings[id] = embedding
	return nil
}

type fakeCategoryService struct{ scores []core.CategoryScore }

func (f *fakeCategoryService) Classify(context.Context, string) ([]core.CategoryScore, error) {
	return f.scores, nil
}
func (f *fakeCategoryService) LinkMemory(context.Context, int64, []core.CategoryScore) error {
	return nil
}
func (f *fakeCategoryService) GetSummary(context.Context, string) (string, error) { return "", nil }
func (f *fakeCategoryService) UpdateSummary(context.Context, string, string) error {
	return nil
}

type fakeBeliefs struct {
	outcome core.BeliefOutcome
	calls   int
}

func (f *fakeBeliefs) DeriveFrom(context.Context, core.Memory) (core.BeliefOutcome, error) {
	f.calls++
	return f.outcome, nil
}

type fakeCommitments struct{ created []core.Commitment }

func (f *fakeCommitments) Create(_ context.Context, c core.Commitment) (core.Commitment, error) {
	c.ID = int64(len(f.created) + 1)
	f.created = append(f.created, c)
	return c, nil
}

type fakeReminders struct{ created []core.Reminder }

func (f *fakeReminders) Create(_ context.Context, r core.Reminder) (core.Reminder, error) {
	r.ID = int64(len(f.created) + 1)
	f.created = append(f.created, r)
	return r, nil
}

type fakeIdentity struct{ record core.Identity }

func (f *fakeIdentity) Get(context.Context) (core.Identity, error) { return f.record, nil }
func (f *fakeIdentity) LockName(context.Context, string, string) (bool, error) {
	return false, errors.New("not used")
}

type joinTranscripts struct{}

func (joinTranscripts) build(msgs []core.StoredMessage) string {
	var lines []string
	for _, m := range msgs {
		lines = append(lines, m.Content)
	}
	return strings.Join(lines, "\n")
}

type fixture struct {
	c           *Coordinator
	ai          *fakeAI
	messages    *fakeMessages
	memories    *fakeMemories
	beliefs     *fakeBeliefs
	commitments *fakeCommitments
	reminders   *fakeReminders
}

func newFixture(ai *fakeAI) *fixture {
	f := &fixture{
		ai: ai,
		messages: &fakeMessages{pending: map[string][]core.StoredMessage{
			"conv-1": {
				{ID: 1, ConversationID: "conv-1", Role: core.RoleUser, Content: "hello", Status: core.StatusPending},
				{ID: 2, ConversationID: "conv-1", Role: core.RoleUser, Content: "I grew up in Kansas", Status: core.StatusPending},
			},
		}},
		memories:    &fakeMemories{},
		beliefs:     &fakeBeliefs{},
		commitments: &fakeCommitments{},
		reminders:   &fakeReminders{},
	}
	f.c = &Coordinator{
		ai:          ai,
		embedder:    fakeEmbedder{},
		messages:    f.messages,
		memories:    f.memories,
		categories:  &fakeCategoryService{},
		beliefs:     f.beliefs,
		commitments: f.commitments,
		reminders:   f.reminders,
		identity:    &fakeIdentity{},
		transcripts: joinTranscripts{},
		now: func() time.Time {
			return time.Date(2026, 3, 2, 10, 0, 0, 0, time.Local)
		},
	}
	return f
}

func TestRunExtractsAndMarksMessages(t *testing.T) {
	ai := &fakeAI{replies: []string{
		`[{"content": "User grew up in Kansas", "type": "fact", "salience_hint": 4}]`,
	}}
	f := newFixture(ai)

	stats := f.c.Run(context.Background())
	if len(stats.Errors) != 0 {
		t.Fatalf("errors = %v", stats.Errors)
	}
	if stats.MemoriesCreated != 1 {
		t.Fatalf("memories created = %d", stats.MemoriesCreated)
	}
	if len(f.messages.extracted) != 2 || len(f.messages.skipped) != 0 {
		t.Fatalf("extracted = %v skipped = %v", f.messages.extracted, f.messages.skipped)
	}
	// Origin-story content gets its salience floor applied and an embedding.
	if f.memories.saliences[1] != 9 {
		t.Fatalf("salience = %v, want calibrated 9", f.memories.saliences[1])
	}
	if len(f.memories.embeddings[1]) == 0 {
		t.Fatal("no embedding persisted")
	}
}

func TestRunSkipsWhenNothingExtracted(t *testing.T) {
	ai := &fakeAI{replies: []string{`[]`}}
	f := newFixture(ai)

	stats := f.c.Run(context.Background())
	if stats.MemoriesCreated != 0 {
		t.Fatalf("memories created = %d", stats.MemoriesCreated)
	}
	if len(f.messages.skipped) != 2 || len(f.messages.extracted) != 0 {
		t.Fatalf("skipped = %v extracted = %v", f.messages.skipped, f.messages.extracted)
	}
	if stats.MessagesSkipped != 2 {
		t.Fatalf("stats.MessagesSkipped = %d", stats.MessagesSkipped)
	}
}

func TestRunTranscriptFailureAbortsConversationOnly(t *testing.T) {
	ai := &fakeAI{err: errors.New("provider down")}
	f := newFixture(ai)

	stats := f.c.Run(context.Background())
	if len(stats.Errors) != 1 {
		t.Fatalf("errors = %v, want one", stats.Errors)
	}
	if len(f.messages.extracted) != 0 || len(f.messages.skipped) != 0 {
		t.Fatal("message status mutated despite transcript failure")
	}
}

func TestRunPartialCandidateFailure(t *testing.T) {
	ai := &fakeAI{replies: []string{
		`[
			{"content": "User grew up in Kansas", "type": "fact", "salience_hint": 4},
			{"content": "User decided to switch careers", "type": "decision", "salience_hint": 6}
		]`,
	}}
	f := newFixture(ai)
	f.memories.createErr = errors.New("disk full")

	stats := f.c.Run(context.Background())
	// Candidate failures are logged, the batch still completes.
	if len(stats.Errors) != 0 {
		t.Fatalf("errors = %v", stats.Errors)
	}
	if stats.MemoriesCreated != 0 {
		t.Fatalf("memories created = %d", stats.MemoriesCreated)
	}
	if len(f.messages.extracted) != 2 {
		t.Fatalf("extracted = %v, want batch marked", f.messages.extracted)
	}
}

func TestRunDerivesBeliefsAndCommitments(t *testing.T) {
	ai := &fakeAI{replies: []string{
		`[{"content": "User decided to train for a marathon by June", "type": "decision", "salience_hint": 6}]`,
		`{"is_commitment": true, "title": "train for a marathon", "description": "", "due_at": "2026-06-01", "all_day": true, "confidence": 0.9}`,
	}}
	f := newFixture(ai)
	f.beliefs.outcome = core.BeliefOutcome{Created: 1}

	stats := f.c.Run(context.Background())
	if f.beliefs.calls != 1 {
		t.Fatalf("belief derivation calls = %d", f.beliefs.calls)
	}
	if stats.BeliefsCreated != 1 {
		t.Fatalf("beliefs created = %d", stats.BeliefsCreated)
	}
	if stats.CommitmentsCreated != 1 || len(f.commitments.created) != 1 {
		t.Fatalf("commitments = %+v", f.commitments.created)
	}
	if f.commitments.created[0].SourceMemoryID != 1 {
		t.Fatalf("commitment not linked to source memory: %+v", f.commitments.created[0])
	}
}

func TestRunMarkFailureReportsError(t *testing.T) {
	ai := &fakeAI{replies: []string{
		`[{"content": "User grew up in Kansas", "type": "fact", "salience_hint": 4}]`,
	}}
	f := newFixture(ai)
	f.messages.markErr = errors.New("lock timeout")

	stats := f.c.Run(context.Background())
	if len(stats.Errors) != 1 {
		t.Fatalf("errors = %v, want one", stats.Errors)
	}
	if stats.MessagesExtracted != 0 {
		t.Fatalf("stats.MessagesExtracted = %d", stats.MessagesExtracted)
	}
}

func TestRunAuxiliaryReminderCountsAsProcessed(t *testing.T) {
	// Extraction finds nothing, but the message carries a reminder the
	// real-time path never handled.
	ai := &fakeAI{replies: []string{
		`[]`,
		`{"is_reminder": true, "title": "stretch", "delay_minutes": 20, "scheduled_at": "", "confidence": 0.9}`,
	}}
	f := newFixture(ai)
	f.messages.pending = map[string][]core.StoredMessage{
		"conv-1": {
			{ID: 1, ConversationID: "conv-1", Role: core.RoleUser, Content: "remind me to stretch in 20 minutes", Status: core.StatusPending},
		},
	}

	stats := f.c.Run(context.Background())
	if stats.RemindersCreated != 1 || len(f.reminders.created) != 1 {
		t.Fatalf("reminders = %d (%+v), want 1", stats.RemindersCreated, f.reminders.created)
	}
	rem := f.reminders.created[0]
	if rem.Title != "stretch" || rem.DelayMinutes == nil || *rem.DelayMinutes != 20 {
		t.Fatalf("reminder = %+v", rem)
	}
	if len(f.messages.extracted) != 1 || len(f.messages.skipped) != 0 {
		t.Fatalf("extracted = %v skipped = %v, want processed not skipped", f.messages.extracted, f.messages.skipped)
	}
}

func TestRunAuxiliaryReminderSkipsPlainText(t *testing.T) {
	ai := &fakeAI{replies: []string{`[]`}}
	f := newFixture(ai)

	stats := f.c.Run(context.Background())
	if stats.RemindersCreated != 0 || len(f.reminders.created) != 0 {
		t.Fatalf("reminders = %d, want none for plain text", stats.RemindersCreated)
	}
	// One extraction call only; the prefilter keeps the classifier off
	// messages without reminder phrasing.
	if ai.calls != 1 {
		t.Fatalf("ai calls = %d, want 1", ai.calls)
	}
	if len(f.messages.skipped) != 2 {
		t.Fatalf("skipped = %v, want the empty batch skipped", f.messages.skipped)
	}
}
