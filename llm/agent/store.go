package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"routeqa/llm"
	"routeqa/llm/flow"

	"github.com/google/uuid"
)

// Role is the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one entry of the session transcript. Progress turns carry a Stage;
// assistant turns carry the flow Result.
type Turn struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Stage     string       `json:"stage,omitempty"`
	Result    *flow.Result `json:"result,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsError reports whether the turn is a failed assistant answer.
func (t Turn) IsError() bool {
	return t.Result != nil && t.Result.Error != ""
}

func newTurn(role Role, content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// TranscriptStore holds the flat session transcript.
type TranscriptStore interface {
	Add(ctx context.Context, turn Turn) error
	List(ctx context.Context) ([]Turn, error)
	Clear(ctx context.Context) error
}

// MemoryTranscript keeps the most recent turns in memory.
type MemoryTranscript struct {
	mu         sync.RWMutex
	turns      []Turn
	maxTurns   int
	maxExcerpt int
}

// NewMemoryTranscript keeps up to maxTurns turns; non-positive means 20.
func NewMemoryTranscript(maxTurns int) *MemoryTranscript {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &MemoryTranscript{
		maxTurns:   maxTurns,
		maxExcerpt: 2000,
	}
}

// Add appends a turn, dropping the oldest turns beyond the window.
// Source excerpts are shortened before storage.
func (s *MemoryTranscript) Add(_ context.Context, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.Result != nil && len(turn.Result.Sources) > 0 {
		res := *turn.Result
		res.Sources = s.compressSources(res.Sources)
		turn.Result = &res
	}

	s.turns = append(s.turns, turn)
	if len(s.turns) > s.maxTurns {
		s.turns = s.turns[len(s.turns)-s.maxTurns:]
	}
	return nil
}

func (s *MemoryTranscript) compressSources(hits []llm.SearchHit) []llm.SearchHit {
	out := make([]llm.SearchHit, len(hits))
	for i, h := range hits {
		text := h.Text()
		if len(text) <= s.maxExcerpt {
			out[i] = h
			continue
		}
		payload := make(map[string]any, len(h.Payload))
		for k, v := range h.Payload {
			payload[k] = v
		}
		payload[llm.PayloadText] = truncate(text, s.maxExcerpt)
		out[i] = llm.SearchHit{ID: h.ID, Score: h.Score, Payload: payload}
	}
	return out
}

// truncate cuts s near limit, preferring a sentence or line break in the
// second half of the window.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	window := s[:limit]
	cutoff := limit
	for _, bp := range []string{".\n", ". ", "\n\n", "\n"} {
		if idx := strings.LastIndex(window, bp); idx > limit/2 {
			cutoff = idx + len(bp)
			break
		}
	}
	return s[:cutoff] + fmt.Sprintf("\n\n[truncated: %d of %d chars]", cutoff, len(s))
}

// List returns a copy of the transcript, oldest first.
func (s *MemoryTranscript) List(_ context.Context) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Turn, len(s.turns))
	copy(result, s.turns)
	return result, nil
}

// Clear empties the transcript.
func (s *MemoryTranscript) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	return nil
}
