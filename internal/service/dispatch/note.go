package dispatch

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/log"
)

var notePrefilter = regexp.MustCompile(`(?i)\b(take a note|note (that|this|down)|write (this|that|it) down|jot (this|that|it) down|remember that)\b`)

const notePrompt = `You extract a note from the user's message.

Rules:
- "content" is the information to keep, cleaned of the "note that" phrasing.
- "title" is a short label (a few words).
- "category" is one free-form word like "health", "work", "home", or empty.
- "entity_name" is the person, place, or thing the note is about, or empty.

Respond with only a JSON object:
{"is_note": bool, "content": "...", "title": "...", "category": "", "entity_name": "", "confidence": 0.0-1.0}`

type noteResult struct {
	IsNote     bool    `json:"is_note"`
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	Category   string  `json:"category"`
	EntityName string  `json:"entity_name"`
	Confidence float64 `json:"confidence"`
}

func matchNote(msg core.StoredMessage) bool {
	return notePrefilter.MatchString(msg.Content)
}

func (d *Dispatcher) handleNote(ctx context.Context, msg core.StoredMessage) (*core.DispatchResult, error) {
	var res noteResult
	if !d.classify(ctx, notePrompt, msg.Content, &res) {
		return nil, nil
	}
	if !res.IsNote || strings.TrimSpace(res.Content) == "" || res.Confidence < confidenceThreshold {
		return nil, nil
	}

	entity := strings.TrimSpace(res.EntityName)
	if entity != "" {
		// Best effort: prefer the canonical spelling of a known entity.
		// A miss keeps the model's spelling.
		if resolved, found, err := d.resolver.Search(ctx, entity); err == nil && found {
			entity = resolved
		}
	}

	note, err := d.notes.Create(ctx, core.Note{
		Title:      strings.TrimSpace(res.Title),
		Content:    strings.TrimSpace(res.Content),
		Category:   strings.TrimSpace(res.Category),
		EntityName: entity,
	})
	if err != nil {
		return nil, err
	}

	log.FromCtx(ctx).Info().Str("title", note.Title).Str("entity", note.EntityName).Msg("note created")
	return &core.DispatchResult{
		Action: core.ActionNote,
		Title:  note.Title,
		Detail: note.Content,
	}, nil
}
