package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

var commitmentPrefilter = regexp.MustCompile(`(?i)\b(i need to|i have to|i must|i(?:'ll| will)|i promised|deadline|due (by|on)|by (monday|tuesday|wednesday|thursday|friday|saturday|sunday|tomorrow|next week|end of))\b`)

const commitmentPrompt = `You detect whether the text states a concrete commitment: a task or obligation the user intends to complete.

%s
Rules:
- "title" is the task in a few words. "description" may carry extra detail.
- Resolve any stated deadline with the date table above into "due_at" as "YYYY-MM-DDTHH:MM:SS". Empty when no deadline was stated.
- "all_day" is true when a deadline names a day but no time.
- Vague intentions without a concrete task ("I should exercise more") are not commitments.

Respond with only a JSON object:
{"is_commitment": bool, "title": "...", "description": "", "due_at": "", "all_day": false, "confidence": 0.0-1.0}`

type commitmentResult struct {
	IsCommitment bool    `json:"is_commitment"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	DueAt        string  `json:"due_at"`
	AllDay       bool    `json:"all_day"`
	Confidence   float64 `json:"confidence"`
}

// DetectCommitment runs the commitment classifier over arbitrary text. Both
// the real-time path and the batch extraction path call it; a non-match or
// any failure returns ok false.
func DetectCommitment(ctx context.Context, ai core.AIProvider, now time.Time, text string) (core.Commitment, bool) {
	prompt := fmt.Sprintf(commitmentPrompt, dateTable(now))

	resp, err := ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: prompt},
		{Role: core.RoleUser, Content: text},
	}, core.ChatOptions{Temperature: 0.1, MaxTokens: 400})
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("commitment classifier call failed")
		return core.Commitment{}, false
	}

	var res commitmentResult
	if !jsonrepair.DecodeObject(resp.Content, &res) {
		return core.Commitment{}, false
	}
	if !res.IsCommitment || strings.TrimSpace(res.Title) == "" || res.Confidence < confidenceThreshold {
		return core.Commitment{}, false
	}

	c := core.Commitment{
		Title:       strings.TrimSpace(res.Title),
		Description: strings.TrimSpace(res.Description),
		AllDay:      res.AllDay,
		Status:      core.CommitmentCandidate,
	}
	if ts, ok := parseModelTime(res.DueAt); ok {
		c.DueAt = &ts
	}
	return c, true
}

func matchCommitment(msg core.StoredMessage) bool {
	return commitmentPrefilter.MatchString(msg.Content)
}

func (d *Dispatcher) handleCommitment(ctx context.Context, msg core.StoredMessage) (*core.DispatchResult, error) {
	c, ok := DetectCommitment(ctx, d.ai, d.now(), msg.Content)
	if !ok {
		return nil, nil
	}

	created, err := d.commitments.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	detail := ""
	if created.DueAt != nil {
		if created.AllDay {
			detail = "due " + created.DueAt.Format("2006-01-02")
		} else {
			detail = "due " + created.DueAt.Format("2006-01-02 15:04")
		}
	}
	log.FromCtx(ctx).Info().Str("title", created.Title).Str("due", detail).Msg("commitment created")

	return &core.DispatchResult{
		Action: core.ActionCommitment,
		Title:  created.Title,
		Detail: detail,
	}, nil
}
