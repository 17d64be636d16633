package consolidate

import (
	"context"
	"strings"
	"testing"

	"github.com/sandevgo/engram/internal/core"
)

type fakeAI struct {
	reply   string
	replies []string
	calls   int
}

func (f *fakeAI) Chat(context.Context, []core.Message, core.ChatOptions) (core.Message, error) {
	f.calls++
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		return core.Message{Role: core.RoleAssistant, Content: reply}, nil
	}
	return core.Message{Role: core.RoleAssistant, Content: f.reply}, nil
}

type fakeBeliefs struct {
	core.BeliefsRepository
	beliefs    []core.Belief
	conflicted []int64
	evidence   map[int64][]int64
}

func (f *fakeBeliefs) Create(_ context.Context, b core.Belief) (int64, error) {
	b.ID = int64(len(f.beliefs) + 1)
	if b.Status == "" {
		b.Status = core.BeliefActive
	}
	f.beliefs = append(f.beliefs, b)
	return b.ID, nil
}

func (f *fakeBeliefs) FindByContent(_ context.Context, content string) (core.Belief, bool, error) {
	needle := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	for _, b := range f.beliefs {
		if strings.Join(strings.Fields(strings.ToLower(b.Content)), " ") == needle {
			return b, true, nil
		}
	}
	return core.Belief{}, false, nil
}

func (f *fakeBeliefs) Reinforce(_ context.Context, id int64, confidence float64) error {
	for i := range f.beliefs {
		if f.beliefs[i].ID == id {
			f.beliefs[i].ReinforceCount++
			if confidence > f.beliefs[i].Confidence {
				f.beliefs[i].Confidence = confidence
			}
		}
	}
	return nil
}

func (f *fakeBeliefs) MarkConflicted(_ context.Context, ids []int64) error {
	f.conflicted = append(f.conflicted, ids...)
	return nil
}

func (f *fakeBeliefs) Active(context.Context) ([]core.Belief, error) {
	var out []core.Belief
	for _, b := range f.beliefs {
		if b.Status == core.BeliefActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBeliefs) Conflicted(context.Context) ([]core.Belief, error) {
	var out []core.Belief
	for _, id := range f.conflicted {
		for _, b := range f.beliefs {
			if b.ID == id {
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (f *fakeBeliefs) AddEvidence(_ context.Context, beliefID, memoryID int64) error {
	if f.evidence == nil {
		f.evidence = map[int64][]int64{}
	}
	f.evidence[beliefID] = append(f.evidence[beliefID], memoryID)
	return nil
}

func TestDeriveFromCreatesBelief(t *testing.T) {
	ai := &fakeAI{reply: `{"beliefs": [{"content": "User values physical fitness", "type": "value", "confidence": 0.8}], "contradicts": []}`}
	repo := &fakeBeliefs{}
	d := NewDeriver(ai, repo)

	outcome, err := d.DeriveFrom(context.Background(), core.Memory{ID: 42, Content: "User decided to train for a marathon"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Created != 1 || outcome.Reinforced != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(repo.beliefs) != 1 || repo.beliefs[0].Content != "User values physical fitness" {
		t.Fatalf("beliefs = %+v", repo.beliefs)
	}
}

func TestDeriveFromReinforcesRestatement(t *testing.T) {
	ai := &fakeAI{reply: `{"beliefs": [{"content": "User values physical fitness", "type": "value", "confidence": 0.9}], "contradicts": []}`}
	repo := &fakeBeliefs{beliefs: []core.Belief{
		{ID: 1, Content: "User values PHYSICAL fitness", Status: core.BeliefActive, Confidence: 0.7},
	}}
	d := NewDeriver(ai, repo)

	outcome, err := d.DeriveFrom(context.Background(), core.Memory{ID: 42, Content: "User ran again today"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Created != 0 || outcome.Reinforced != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if repo.beliefs[0].ReinforceCount != 1 || repo.beliefs[0].Confidence != 0.9 {
		t.Fatalf("belief = %+v", repo.beliefs[0])
	}
	if len(repo.evidence[1]) != 1 || repo.evidence[1][0] != 42 {
		t.Fatalf("evidence = %+v", repo.evidence)
	}
}

func TestDeriveFromRecordsConflicts(t *testing.T) {
	ai := &fakeAI{reply: `{"beliefs": [{"content": "User prefers working from home", "type": "preference", "confidence": 0.8}], "contradicts": ["User prefers the office"]}`}
	repo := &fakeBeliefs{beliefs: []core.Belief{
		{ID: 1, Content: "User prefers the office", Status: core.BeliefActive, Confidence: 0.8},
	}}
	d := NewDeriver(ai, repo)

	outcome, err := d.DeriveFrom(context.Background(), core.Memory{ID: 7, Content: "User decided to go fully remote"})
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Conflicts) != 1 || outcome.Conflicts[0] != "User prefers the office" {
		t.Fatalf("conflicts = %+v", outcome.Conflicts)
	}
	if len(repo.conflicted) != 1 || repo.conflicted[0] != 1 {
		t.Fatalf("conflicted ids = %v", repo.conflicted)
	}
	// The contradicted belief is marked, never deleted or rewritten.
	if repo.beliefs[0].Content != "User prefers the office" {
		t.Fatalf("belief mutated: %+v", repo.beliefs[0])
	}
}

func TestDeriveFromUnparseableOutput(t *testing.T) {
	d := NewDeriver(&fakeAI{reply: "nothing structured"}, &fakeBeliefs{})
	outcome, err := d.DeriveFrom(context.Background(), core.Memory{ID: 1, Content: "anything"})
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Created != 0 || outcome.Reinforced != 0 {
		t.Fatalf("outcome = %+v", outcome)
	}
}
