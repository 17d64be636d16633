package dispatch

import (
	"context"
	"time"

	"github.com/sandevgo/engram/internal/config"
	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

// confidenceThreshold gates every LLM-backed classifier. A low-confidence
// match is a non-match: a false positive on the identity path permanently
// corrupts the identity record.
const confidenceThreshold = 0.8

// route pairs a cheap local pre-filter with the handler that performs the
// expensive classification and side effect. Routes are evaluated in priority
// order; the first handler returning a result wins.
type route struct {
	name   string
	match  func(msg core.StoredMessage) bool
	handle func(ctx context.Context, msg core.StoredMessage) (*core.DispatchResult, error)
}

type Dispatcher struct {
	ai          core.AIProvider
	identity    core.IdentityRepository
	memories    core.MemoriesRepository
	categories  core.CategoryService
	reminders   core.RemindersRepository
	notes       core.NotesRepository
	lists       core.ListsRepository
	commitments core.CommitmentsRepository
	resolver    core.EntityResolver

	dupWindow time.Duration
	now       func() time.Time

	routes []route
}

func NewDispatcher(
	ai core.AIProvider,
	identity core.IdentityRepository,
	memories core.MemoriesRepository,
	categories core.CategoryService,
	reminders core.RemindersRepository,
	notes core.NotesRepository,
	lists core.ListsRepository,
	commitments core.CommitmentsRepository,
	resolver core.EntityResolver,
	cfg *config.ConsolidationConfig,
) *Dispatcher {
	d := &Dispatcher{
		ai:          ai,
		identity:    identity,
		memories:    memories,
		categories:  categories,
		reminders:   reminders,
		notes:       notes,
		lists:       lists,
		commitments: commitments,
		resolver:    resolver,
		dupWindow:   cfg.DuplicateWindow,
		now:         time.Now,
	}
	d.routes = []route{
		{name: "reminder", match: matchReminder, handle: d.handleReminder},
		{name: "note", match: matchNote, handle: d.handleNote},
		{name: "list", match: matchList, handle: d.handleList},
		{name: "commitment", match: matchCommitment, handle: d.handleCommitment},
	}
	return d
}

// Dispatch runs the classifier cascade against a single message, inline with
// the request that produced it. Identity and relationship extraction always
// run first and are not mutually exclusive; the remaining routes early-exit
// on the first match. A cancelled or failed classifier call is a non-match,
// never a persisted negative.
func (d *Dispatcher) Dispatch(ctx context.Context, msg core.StoredMessage) (core.DispatchResult, error) {
	logger := log.FromCtx(ctx)

	identityResult := d.tryIdentity(ctx, msg)
	relationshipCount := d.tryRelationships(ctx, msg)

	if identityResult != nil {
		identityResult.MemoriesCreated += relationshipCount
		return *identityResult, nil
	}
	if relationshipCount > 0 {
		return core.DispatchResult{
			Action:          core.ActionMemoryCreated,
			MemoriesCreated: relationshipCount,
		}, nil
	}

	for _, r := range d.routes {
		if !r.match(msg) {
			continue
		}
		result, err := r.handle(ctx, msg)
		if err != nil {
			// Real-time failures degrade silently: log, no side effect,
			// the reply path proceeds.
			logger.Warn().Err(err).Str("route", r.name).Msg("dispatch route failed")
			continue
		}
		if result != nil {
			logger.Info().Str("route", r.name).Str("action", result.Action).Msg("dispatched")
			return *result, nil
		}
	}

	return core.DispatchResult{Action: core.ActionNone}, nil
}

// classify issues one low-temperature call and decodes the structured reply.
// Any failure (transport, cancellation, malformed output) reads as false.
func (d *Dispatcher) classify(ctx context.Context, system, user string, out any) bool {
	resp, err := d.ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: system},
		{Role: core.RoleUser, Content: user},
	}, core.ChatOptions{Temperature: 0.1, MaxTokens: 400})
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("classifier call failed")
		return false
	}

	if !jsonrepair.DecodeObject(resp.Content, out) {
		log.FromCtx(ctx).Debug().Int("len", len(resp.Content)).Msg("classifier returned no parseable object")
		return false
	}
	return true
}
