package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a generation request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// Empty reports whether the upstream returned no usage figures at all.
func (u TokenUsage) Empty() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// AgentMeta holds operational metadata for one generation. Surface names the
// entry point that triggered it (web, api, cli, telegram).
type AgentMeta struct {
	AgentName string
	Surface   string
	Usage     TokenUsage
	Latency   time.Duration
}
