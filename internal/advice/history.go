package advice

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
)

// Roles a conversation turn may carry.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one earlier message of a conversation with the assistant.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

func (t Turn) label() string {
	if t.Role == RoleAssistant {
		return "Assistant"
	}
	return "User"
}

// NormalizeHistory lowercases roles, drops blank turns and keeps the last
// MaxHistoryTurns. An unknown role is an ErrInvalidInput.
func NormalizeHistory(turns []Turn) ([]Turn, error) {
	out := make([]Turn, 0, len(turns))
	for i, t := range turns {
		role := strings.ToLower(strings.TrimSpace(t.Role))
		if role != RoleUser && role != RoleAssistant {
			return nil, fmt.Errorf("history turn %d: role %q: %w", i+1, t.Role, apperrors.ErrInvalidInput)
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		out = append(out, Turn{Role: role, Text: text})
	}
	if len(out) > MaxHistoryTurns {
		out = out[len(out)-MaxHistoryTurns:]
	}
	return out, nil
}
