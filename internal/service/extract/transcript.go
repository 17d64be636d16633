package extract

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/sandevgo/engram/internal/core"
)

const transcriptEncoding = "cl100k_base"

// transcriptBuilder concatenates pending user turns in sequence order under a
// token budget. When the budget is exceeded, the oldest turns are dropped;
// the newest turns carry the freshest facts.
type transcriptBuilder struct {
	enc    *tiktoken.Tiktoken
	budget int
}

func newTranscriptBuilder(budget int) (*transcriptBuilder, error) {
	enc, err := tiktoken.GetEncoding(transcriptEncoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding: %w", err)
	}
	return &transcriptBuilder{enc: enc, budget: budget}, nil
}

func (b *transcriptBuilder) build(msgs []core.StoredMessage) string {
	lines := make([]string, 0, len(msgs))
	total := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		line := "- " + strings.TrimSpace(msgs[i].Content)
		cost := len(b.enc.Encode(line, nil, nil))
		if total+cost > b.budget && len(lines) > 0 {
			break
		}
		lines = append(lines, line)
		total += cost
	}

	// Restore chronological order after the tail-first walk.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}
