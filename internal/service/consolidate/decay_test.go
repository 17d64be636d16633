package consolidate

import (
	"context"
	"testing"
	"time"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/core"
)

type fakeMemories struct {
	core.MemoriesRepository
	active     []core.Memory
	reinforced []core.Memory
	decays     map[int64]float64
	dormant    []int64
	similar    map[int64][]core.SimilarMemory
}

func (f *fakeMemories) Active(context.Context) ([]core.Memory, error) { return f.active, nil }

func (f *fakeMemories) ReinforcedSince(context.Context, time.Time) ([]core.Memory, error) {
	return f.reinforced, nil
}

func (f *fakeMemories) ApplyDecay(_ context.Context, id int64, salience float64) error {
	if f.decays == nil {
		f.decays = map[int64]float64{}
	}
	f.decays[id] = salience
	for i := range f.active {
		if f.active[i].ID == id {
			f.active[i].Salience = salience
			now := time.Now()
			f.active[i].DecayedAt = &now
		}
	}
	return nil
}

func (f *fakeMemories) MarkDormant(_ context.Context, id int64) error {
	f.dormant = append(f.dormant, id)
	for i := len(f.active) - 1; i >= 0; i-- {
		if f.active[i].ID == id {
			f.active = append(f.active[:i], f.active[i+1:]...)
		}
	}
	return nil
}

func (f *fakeMemories) SimilarTo(_ context.Context, id int64, _ int) ([]core.SimilarMemory, error) {
	return f.similar[id], nil
}

func testConfig() *config.ConsolidationConfig {
	return &config.ConsolidationConfig{
		DebounceWindow:          10 * time.Millisecond,
		DecayGrace:              7 * 24 * time.Hour,
		DecayRate:               0.02,
		DormancyFloor:           1.0,
		ReinforceBoost:          0.5,
		EdgeSimilarityThreshold: 0.78,
		EdgeReinforceStep:       0.1,
		EdgeWeightCap:           5.0,
		EdgeWeightFloor:         0.2,
		EdgeNeighborLimit:       5,
	}
}

func memory(id int64, salience float64, age time.Duration) core.Memory {
	return core.Memory{
		ID:        id,
		Content:   "memory",
		Salience:  salience,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestDecayPassSkipsWithinGrace(t *testing.T) {
	mems := &fakeMemories{active: []core.Memory{memory(1, 5, 24 * time.Hour)}}
	c := &Coordinator{memories: mems, cfg: testConfig()}

	var report core.ConsolidationReport
	c.decayPass(context.Background(), time.Now(), &report)
	if report.MemoriesDecayed != 0 || len(mems.decays) != 0 {
		t.Fatalf("memory inside grace decayed: %+v", mems.decays)
	}
}

func TestDecayPassAppliesExponentialDecay(t *testing.T) {
	// 30 days idle at rate 0.02: multiplier exp(-0.6) ~ 0.5488.
	mems := &fakeMemories{active: []core.Memory{memory(1, 5, 30 * 24 * time.Hour)}}
	c := &Coordinator{memories: mems, cfg: testConfig()}

	var report core.ConsolidationReport
	c.decayPass(context.Background(), time.Now(), &report)
	if report.MemoriesDecayed != 1 {
		t.Fatalf("decayed = %d, want 1", report.MemoriesDecayed)
	}
	got := mems.decays[1]
	if got < 2.70 || got > 2.80 {
		t.Fatalf("salience = %v, want about 2.74", got)
	}
}

func TestDecayPassIsIdempotent(t *testing.T) {
	mems := &fakeMemories{active: []core.Memory{memory(1, 5, 30 * 24 * time.Hour)}}
	c := &Coordinator{memories: mems, cfg: testConfig()}

	var first core.ConsolidationReport
	c.decayPass(context.Background(), time.Now(), &first)
	if first.MemoriesDecayed != 1 {
		t.Fatalf("first pass decayed = %d", first.MemoriesDecayed)
	}

	// Back to back: the anchor just advanced, elapsed is near zero.
	var second core.ConsolidationReport
	c.decayPass(context.Background(), time.Now(), &second)
	if second.MemoriesDecayed != 0 || second.MemoriesDormant != 0 {
		t.Fatalf("second pass mutated: %+v", second)
	}
}

func TestDecayPassMarksDormantBelowFloor(t *testing.T) {
	// Two years idle drives a low-salience memory under the floor.
	mems := &fakeMemories{active: []core.Memory{memory(1, 2, 2 * 365 * 24 * time.Hour)}}
	c := &Coordinator{memories: mems, cfg: testConfig()}

	var report core.ConsolidationReport
	c.decayPass(context.Background(), time.Now(), &report)
	if report.MemoriesDormant != 1 {
		t.Fatalf("dormant = %d, want 1", report.MemoriesDormant)
	}
	if len(mems.dormant) != 1 || mems.dormant[0] != 1 {
		t.Fatalf("dormant ids = %v", mems.dormant)
	}
	if len(mems.decays) != 0 {
		t.Fatalf("dormant memory also decayed: %+v", mems.decays)
	}
}

func TestReinforcePassBoostsOnce(t *testing.T) {
	reinforcedAt := time.Now().Add(-time.Hour)
	mem := core.Memory{ID: 1, Salience: 5, CreatedAt: time.Now().Add(-48 * time.Hour), LastReinforcedAt: &reinforcedAt}
	mems := &fakeMemories{reinforced: []core.Memory{mem}}
	c := &Coordinator{memories: mems, cfg: testConfig()}

	var report core.ConsolidationReport
	c.reinforcePass(context.Background(), time.Now(), &report)
	if mems.decays[1] != 5.5 {
		t.Fatalf("salience = %v, want 5.5", mems.decays[1])
	}

	// A decay anchor newer than the reinforcement means the boost was
	// already applied.
	anchored := time.Now()
	mem.DecayedAt = &anchored
	mems2 := &fakeMemories{reinforced: []core.Memory{mem}}
	c2 := &Coordinator{memories: mems2, cfg: testConfig()}
	c2.reinforcePass(context.Background(), time.Now(), &report)
	if len(mems2.decays) != 0 {
		t.Fatalf("boost applied twice: %+v", mems2.decays)
	}
}
