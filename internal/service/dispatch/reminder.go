package dispatch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sandevgo/engram/internal/core"
	"github.com/sandevgo/engram/pkg/jsonrepair"
	"github.com/sandevgo/engram/pkg/log"
)

var reminderPrefilter = regexp.MustCompile(`(?i)\bremind (me|us)\b`)

const reminderPrompt = `You extract a reminder from the user's message.

%s
Rules:
- "title" is the short task to be reminded of, without the "remind me" phrasing.
- If the timing is relative ("in 20 minutes", "in 2 hours"), set "delay_minutes" and leave "scheduled_at" empty.
- If the timing names a day or time ("Friday at 5pm", "tomorrow morning"), resolve it with the date table above and set "scheduled_at" as "YYYY-MM-DDTHH:MM:SS". Leave "delay_minutes" at 0.
- Exactly one of the two timing fields may be populated.
- If no timing is stated, default to a 60 minute delay.

Respond with only a JSON object:
{"is_reminder": bool, "title": "...", "delay_minutes": 0, "scheduled_at": "", "confidence": 0.0-1.0}`

type reminderResult struct {
	IsReminder   bool    `json:"is_reminder"`
	Title        string  `json:"title"`
	DelayMinutes int64   `json:"delay_minutes"`
	ScheduledAt  string  `json:"scheduled_at"`
	Confidence   float64 `json:"confidence"`
}

func matchReminder(msg core.StoredMessage) bool {
	return reminderPrefilter.MatchString(msg.Content)
}

// DetectReminder runs the reminder classifier over arbitrary text. The batch
// path uses it as an auxiliary check for messages that slipped the real-time
// loop; the prefilter keeps the model call off plain text.
func DetectReminder(ctx context.Context, ai core.AIProvider, now time.Time, text string) (core.Reminder, bool) {
	if !reminderPrefilter.MatchString(text) {
		return core.Reminder{}, false
	}
	prompt := fmt.Sprintf(reminderPrompt, dateTable(now))

	resp, err := ai.Chat(ctx, []core.Message{
		{Role: core.RoleSystem, Content: prompt},
		{Role: core.RoleUser, Content: text},
	}, core.ChatOptions{Temperature: 0.1, MaxTokens: 400})
	if err != nil {
		log.FromCtx(ctx).Debug().Err(err).Msg("reminder classifier call failed")
		return core.Reminder{}, false
	}

	var res reminderResult
	if !jsonrepair.DecodeObject(resp.Content, &res) {
		return core.Reminder{}, false
	}
	if !res.IsReminder || strings.TrimSpace(res.Title) == "" || res.Confidence < confidenceThreshold {
		return core.Reminder{}, false
	}

	rem := core.Reminder{Title: strings.TrimSpace(res.Title)}
	if ts, ok := parseModelTime(res.ScheduledAt); ok {
		rem.ScheduledAt = &ts
	} else if res.DelayMinutes > 0 {
		delay := res.DelayMinutes
		rem.DelayMinutes = &delay
	} else {
		// No usable timing from the model, fall back to the default delay.
		delay := int64(60)
		rem.DelayMinutes = &delay
	}
	return rem, true
}

func (d *Dispatcher) handleReminder(ctx context.Context, msg core.StoredMessage) (*core.DispatchResult, error) {
	rem, ok := DetectReminder(ctx, d.ai, d.now(), msg.Content)
	if !ok {
		return nil, nil
	}

	created, err := d.reminders.Create(ctx, rem)
	if err != nil {
		return nil, err
	}

	detail := ""
	if created.ScheduledAt != nil {
		detail = created.ScheduledAt.Format("2006-01-02 15:04")
	} else {
		detail = "in " + formatMinutes(*created.DelayMinutes)
	}
	log.FromCtx(ctx).Info().Str("title", created.Title).Str("when", detail).Msg("reminder created")

	return &core.DispatchResult{
		Action: core.ActionReminder,
		Title:  created.Title,
		Detail: detail,
	}, nil
}

func formatMinutes(minutes int64) string {
	if minutes >= 60 && minutes%60 == 0 {
		hours := minutes / 60
		if hours == 1 {
			return "1 hour"
		}
		return strconv.FormatInt(hours, 10) + " hours"
	}
	return strconv.FormatInt(minutes, 10) + " minutes"
}
