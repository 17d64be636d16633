package core

const (
	EngramName          = "Engram"
	EngramUserAgent     = "Engram-Daemon/0.1"
	EngramRepositoryURL = "https://github.com/sandevgo/engram"
	EngramVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn sent to or received from a text-generation provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions bound a single provider call. Zero values mean provider defaults.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}
