package consolidate

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/internal/service/extract"
	"github.com/sandevgo/engram/pkg/log"
)

// ExtractionRunner is the batch extraction stage of a consolidation run.
type ExtractionRunner interface {
	Run(ctx context.Context) extract.Stats
}

// Coordinator owns the background memory-maintenance job: batch extraction,
// decay, reinforcement, edge upkeep, and mining. At most one run is ever in
// flight. Triggers arriving during a run coalesce into a single pending
// re-run; triggers while idle reset the single-slot debounce timer.
type Coordinator struct {
	ai         core.AIProvider
	extractor  ExtractionRunner
	memories   core.MemoriesRepository
	edges      core.EdgesRepository
	beliefs    core.BeliefsRepository
	categories core.CategoriesRepository
	insights   core.InsightsRepository
	cfg        *config.ConsolidationConfig

	categoryNames []string
	schedule      string

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	rerun   bool
	wg      sync.WaitGroup

	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewCoordinator(
	ai core.AIProvider,
	extractor ExtractionRunner,
	memories core.MemoriesRepository,
	edges core.EdgesRepository,
	beliefs core.BeliefsRepository,
	categories core.CategoriesRepository,
	insights core.InsightsRepository,
	categoryNames []string,
	schedule string,
	cfg *config.ConsolidationConfig,
) *Coordinator {
	return &Coordinator{
		ai:            ai,
		extractor:     extractor,
		memories:      memories,
		edges:         edges,
		beliefs:       beliefs,
		categories:    categories,
		insights:      insights,
		categoryNames: categoryNames,
		schedule:      schedule,
		cfg:           cfg,
	}
}

var _ core.Consolidator = (*Coordinator)(nil)

// Start arms the periodic trigger. The debounce trigger is driven by the
// transport layer calling Nudge after every stored message.
func (c *Coordinator) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(c.schedule, func() {
		c.launch(runCtx)
	}); err != nil {
		return err
	}
	c.cron.Start()
	log.FromCtx(ctx).Info().Str("schedule", c.schedule).Msg("consolidation scheduler started")
	return nil
}

// Shutdown stops the triggers and waits for an in-flight run, bounded by ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.rerun = false
	c.mu.Unlock()

	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	if c.cancel != nil {
		c.cancel()
	}

	idle := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
	}
	return nil
}

// Nudge resets the single-slot debounce timer. A run fires only after the
// idle window passes with no further nudges.
func (c *Coordinator) Nudge(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}
	runCtx := context.WithoutCancel(ctx)
	c.timer = time.AfterFunc(c.cfg.DebounceWindow, func() {
		c.launch(runCtx)
	})
}

// launch starts a run unless one is active, in which case a single re-run is
// queued. Concurrent launches never overlap.
func (c *Coordinator) launch(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.rerun = true
		c.mu.Unlock()
		return
	}
	c.running = true
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		for {
			report, err := c.Run(ctx)
			if err != nil {
				log.FromCtx(ctx).Error().Err(err).Msg("consolidation run failed")
			} else {
				log.FromCtx(ctx).Info().
					Int("memories", report.MemoriesCreated).
					Int("edges_created", report.EdgesCreated).
					Int("decayed", report.MemoriesDecayed).
					Int64("duration_ms", report.DurationMs).
					Msg("consolidation finished")
			}

			c.mu.Lock()
			if c.rerun && ctx.Err() == nil {
				c.rerun = false
				c.mu.Unlock()
				continue
			}
			c.running = false
			c.mu.Unlock()
			return
		}
	}()
}

// Run executes one full consolidation pass synchronously. Safe to call
// directly for a one-shot invocation; the scheduler paths go through launch.
func (c *Coordinator) Run(ctx context.Context) (core.ConsolidationReport, error) {
	started := time.Now()
	var report core.ConsolidationReport

	stats := c.extractor.Run(ctx)
	report.MemoriesCreated = stats.MemoriesCreated
	report.CommitmentsCreated = stats.CommitmentsCreated
	report.RemindersCreated = stats.RemindersCreated
	report.BeliefsCreated = stats.BeliefsCreated
	report.BeliefsReinforced = stats.BeliefsReinforced
	report.Errors = append(report.Errors, stats.Errors...)

	now := time.Now()
	c.reinforcePass(ctx, now, &report)
	c.decayPass(ctx, now, &report)
	c.edgePass(ctx, now, &report)
	c.miningPass(ctx, stats.MemoriesCreated > 0, &report)

	report.DurationMs = time.Since(started).Milliseconds()
	return report, ctx.Err()
}
