package session

import (
	"time"

	"github.com/nanobot-ai/agentcore/pkg/providers"
)

// Session is a single conversation's append-only message log plus the
// consolidation cursor that defines its effective LLM-visible window.
type Session struct {
	Key              string                 `json:"key"`
	Messages         []providers.Message    `json:"-"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	LastConsolidated int                    `json:"last_consolidated"`
}

func newSession(key string) *Session {
	now := time.Now()
	return &Session{
		Key:       key,
		Messages:  []providers.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  map[string]interface{}{},
	}
}

// metadataEnvelope is the first line of a session's JSONL file.
type metadataEnvelope struct {
	Type             string                 `json:"_type"`
	Key              string                 `json:"key"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	LastConsolidated int                    `json:"last_consolidated"`
}
