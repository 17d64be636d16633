package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

const extractionPrompt = `You extract durable personal memories from a chat transcript of user messages.

Extract only information worth remembering long-term about the user: facts about their life, decisions they made, goals they stated, events that happened or will happen, and preferences they expressed. Skip small talk, questions to the assistant, and transient chatter.

Each memory:
- "content": one self-contained sentence, third person ("User ...").
- "type": one of fact, decision, goal, event, preference.
- "salience_hint": importance from 1 to 10.

Respond with only a JSON array, empty if nothing qualifies:
[{"content": "...", "type": "fact", "salience_hint": 5}]`

type candidate struct {
	Content      string  `json:"content"`
	Type         string  `json:"type"`
	SalienceHint float64 `json:"salience_hint"`
}

var validTypes = map[string]bool{
	core.MemoryFact:       true,
	core.MemoryDecision:   true,
	core.MemoryGoal:       true,
	core.MemoryEvent:      true,
	core.MemoryPreference: true,
}

// extractCandidates runs the bulk extraction call over a transcript. Entries
// failing the type or range checks are discarded silently.
func extractCandidates(ctx context.Context, ai core.AIProvider, transcript string) ([]candidate, error) {
	resp, err := ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: extractionPrompt},
		{Role: core.RoleUser, Content: transcript},
	}, core.ChatOptions{Temperature: 0.2, MaxTokens: 1500})
	if err != nil {
		return nil, fmt.Errorf("bulk extraction: %w", err)
	}

	var raw []candidate
	if !jsonrepair.DecodeArray(resp.Content, &raw) {
		log.FromCtx(ctx).Debug().Msg("bulk extraction returned no parseable array")
		return nil, nil
	}

	out := make([]candidate, 0, len(raw))
	for _, c := range raw {
		c.Content = strings.TrimSpace(c.Content)
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
		if c.Content == "" || !validTypes[c.Type] {
			continue
		}
		if c.SalienceHint < 1 || c.SalienceHint > 10 {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
