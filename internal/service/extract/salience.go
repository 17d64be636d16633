package extract

import (
	"regexp"
	"strings"

	"github.com/sandevgo/engram/internal/core"
)

// Extraction salience hints systematically undervalue identity and origin
// information. The calibrator applies ordered floors so that such content
// survives downstream decay and filtering; a rule may only raise the score.

const highRelevance = 0.7

var originPhrases = []string{
	"grew up",
	"was born",
	"born in",
	"childhood",
	"raised in",
	"raised by",
	"hometown",
	"when i was a kid",
	"when i was young",
	"as a child",
}

var lifeEventPhrases = []string{
	"birthday",
	"anniversary",
	"wedding",
	"married",
	"divorced",
	"graduated",
	"graduation",
	"retired",
	"diagnosed",
	"passed away",
	"funeral",
	"moved to",
	"new job",
	"first job",
}

var identityPhrases = []string{
	"name is",
	"goes by",
	"calls themselves",
	"known as",
}

var lifeFactPattern = regexp.MustCompile(`(?i)\b(\d{1,3} years old|works (as|at|for)|lives in|wife|husband|spouse|partner|son|daughter|children|kids|mother|father|brother|sister)\b`)

type salienceRule struct {
	name  string
	floor float64
	match func(in calibrationInput) bool
}

type calibrationInput struct {
	content  string
	memType  string
	scores   []core.CategoryScore
	userName string
}

var salienceRules = []salienceRule{
	{
		name: "identity", floor: 10,
		match: func(in calibrationInput) bool {
			if !hasCategory(in.scores, "personality", 0) {
				return false
			}
			if in.userName != "" && strings.Contains(in.content, strings.ToLower(in.userName)) {
				return true
			}
			return containsAny(in.content, identityPhrases)
		},
	},
	{
		name: "personality", floor: 9,
		match: func(in calibrationInput) bool {
			return factOrEvent(in.memType) && hasCategory(in.scores, "personality", highRelevance)
		},
	},
	{
		name: "origin_story", floor: 9,
		match: func(in calibrationInput) bool {
			return factOrEvent(in.memType) && containsAny(in.content, originPhrases)
		},
	},
	{
		name: "life_event", floor: 8,
		match: func(in calibrationInput) bool {
			return factOrEvent(in.memType) && containsAny(in.content, lifeEventPhrases)
		},
	},
	{
		name: "relationship_event", floor: 8,
		match: func(in calibrationInput) bool {
			return in.memType == core.MemoryEvent && hasCategory(in.scores, "relationships", 0)
		},
	},
	{
		name: "life_fact", floor: 8,
		match: func(in calibrationInput) bool {
			return in.memType == core.MemoryFact && lifeFactPattern.MatchString(in.content)
		},
	},
	{
		name: "goal", floor: 7,
		match: func(in calibrationInput) bool {
			return in.memType == core.MemoryGoal
		},
	},
}

// CalibrateSalience returns the calibrated score and the name of the last
// rule that raised it, or an empty string when the base score stood.
func CalibrateSalience(mem core.Memory, scores []core.CategoryScore, userName string) (float64, string) {
	in := calibrationInput{
		content:  strings.ToLower(mem.Content),
		memType:  mem.ExtractionType,
		scores:   scores,
		userName: strings.ToLower(userName),
	}

	score := mem.Salience
	applied := ""
	for _, rule := range salienceRules {
		if rule.match(in) && rule.floor > score {
			score = rule.floor
			applied = rule.name
		}
	}
	return score, applied
}

func factOrEvent(memType string) bool {
	return memType == core.MemoryFact || memType == core.MemoryEvent
}

func hasCategory(scores []core.CategoryScore, category string, minRelevance float64) bool {
	for _, s := range scores {
		if s.Category == category && s.Relevance >= minRelevance && s.Relevance > 0 {
			return true
		}
	}
	return false
}

func containsAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}
