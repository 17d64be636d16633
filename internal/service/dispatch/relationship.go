package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

// relationshipTemplate is a deterministic extraction rule. No model call:
// each regex match produces a templated memory content string plus fixed
// category relevance weights.
type relationshipTemplate struct {
	name       string
	re         *regexp.Regexp
	content    func(groups []string) string
	salience   float64
	categories []core.CategoryScore
}

var relationshipTemplates = []relationshipTemplate{
	{
		// Name captures stay case-sensitive on purpose: a capitalized token is
		// the only signal separating "my wife Robin" from "my wife loves hiking".
		name: "spouse",
		re:   regexp.MustCompile(`\b[Mm]y (wife|husband|spouse|partner)(?:'s name is| is(?: called)?|,)?\s+([A-Z][a-zA-Z'-]+)`),
		content: func(g []string) string {
			return "User's " + strings.ToLower(g[1]) + " is named " + g[2]
		},
		salience: 8,
		categories: []core.CategoryScore{
			{Category: "relationships", Relevance: 0.95, Reason: "spouse statement"},
			{Category: "personality", Relevance: 0.5, Reason: "family context"},
		},
	},
	{
		name: "child",
		re:   regexp.MustCompile(`\b[Mm]y (son|daughter|kid|child)(?:'s name is| is(?: called)?|,)?\s+([A-Z][a-zA-Z'-]+)`),
		content: func(g []string) string {
			return "User's " + strings.ToLower(g[1]) + " is named " + g[2]
		},
		salience: 8,
		categories: []core.CategoryScore{
			{Category: "relationships", Relevance: 0.95, Reason: "child statement"},
			{Category: "personality", Relevance: 0.5, Reason: "family context"},
		},
	},
	{
		name: "children_count",
		re:   regexp.MustCompile(`(?i)\b(?:i|we) have (\d+|a|one|two|three|four|five) (?:kids|children)\b`),
		content: func(g []string) string {
			n := g[1]
			if strings.EqualFold(n, "a") {
				n = "one"
			}
			return "User has " + strings.ToLower(n) + " children"
		},
		salience: 8,
		categories: []core.CategoryScore{
			{Category: "relationships", Relevance: 0.9, Reason: "children count"},
			{Category: "personality", Relevance: 0.4, Reason: "family context"},
		},
	},
	{
		name: "job",
		re:   regexp.MustCompile(`(?i)\bi (?:work (?:as|at|for)|am employed (?:as|at|by))\s+([A-Za-z][A-Za-z0-9 .&'-]{1,60}?)(?:[.,!?]|$)`),
		content: func(g []string) string {
			return "User works as/at " + strings.TrimSpace(g[1])
		},
		salience: 7,
		categories: []core.CategoryScore{
			{Category: "work", Relevance: 0.95, Reason: "job statement"},
			{Category: "personality", Relevance: 0.4, Reason: "occupation context"},
		},
	},
	{
		name: "age",
		re:   regexp.MustCompile(`(?i)\bi(?:'m| am)\s+(\d{1,3})\s+years? old\b`),
		content: func(g []string) string {
			return "User is " + g[1] + " years old"
		},
		salience: 8,
		categories: []core.CategoryScore{
			{Category: "personality", Relevance: 0.9, Reason: "age statement"},
			{Category: "health", Relevance: 0.3, Reason: "demographic context"},
		},
	},
	{
		name: "location",
		re:   regexp.MustCompile(`\b[Ii] (?:live|grew up|was born|reside) in\s+([A-Z][A-Za-z .'-]{1,60}?)(?:[.,!?]|$)`),
		content: func(g []string) string {
			return "User lives in " + strings.TrimSpace(g[1])
		},
		salience: 7,
		categories: []core.CategoryScore{
			{Category: "personality", Relevance: 0.8, Reason: "location statement"},
			{Category: "relationships", Relevance: 0.3, Reason: "home context"},
		},
	},
}

// tryRelationships applies every template. Multiple templates may fire on one
// message. Duplicate suppression is a normalized substring probe within a
// configurable recent window; the window is policy, not a hard constant.
func (d *Dispatcher) tryRelationships(ctx context.Context, msg core.StoredMessage) int {
	logger := log.FromCtx(ctx)
	created := 0

	for _, tpl := range relationshipTemplates {
		groups := tpl.re.FindStringSubmatch(msg.Content)
		if groups == nil {
			continue
		}
		content := tpl.content(groups)

		dup, err := d.memories.HasRecentContent(ctx, content, d.dupWindow)
		if err != nil {
			logger.Warn().Err(err).Str("template", tpl.name).Msg("duplicate probe failed")
			continue
		}
		if dup {
			logger.Debug().Str("template", tpl.name).Msg("relationship fact suppressed as duplicate")
			continue
		}

		memID, err := d.memories.Create(ctx, core.Memory{
			Content:        content,
			Source:         "relationship",
			ConversationID: msg.ConversationID,
			ExtractionType: core.MemoryFact,
			Salience:       tpl.salience,
		})
		if err != nil {
			logger.Warn().Err(err).Str("template", tpl.name).Msg("relationship memory create failed")
			continue
		}
		if err := d.categories.LinkMemory(ctx, memID, tpl.categories); err != nil {
			logger.Warn().Err(err).Str("template", tpl.name).Msg("relationship category link failed")
		}
		logger.Info().Str("template", tpl.name).Str("content", content).Msg("relationship memory created")
		created++
	}
	return created
}
