// Package advice is the client for the hosted text-generation model that
// turns a symptom list into free-text suggestions. It is optional: every
// failure is reported as a readable message and nothing else in the service
// depends on it.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/medmind/pkg/errors"
)

// User-facing messages for conditions that have no upstream detail.
const (
	MissingKeyMessage    = "⚠️ API key missing or invalid."
	EmptyResponseMessage = "⚠️ No response from AI assistant."
)

// Generation parameters sent with every request.
const (
	MaxNewTokens = 200
	Temperature  = 0.7
)

// MaxHistoryTurns bounds how much of a conversation is replayed to the model.
const MaxHistoryTurns = 10

const maxResponseBytes = 1 << 20

var errMissingText = errors.New("'generated_text'")

// Doer sends HTTP requests; *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the endpoint and its credential.
type Config struct {
	URL    string
	APIKey string
}

// Client calls the advice endpoint. It never retries.
type Client struct {
	cfg    Config
	doer   Doer
	logger *slog.Logger
}

// New creates a Client. A nil doer uses http.DefaultClient, whose transport
// defaults are the only timeout; callers wanting a bound pass a deadline in
// the context.
func New(cfg Config, doer Doer) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	return &Client{
		cfg:    cfg,
		doer:   doer,
		logger: slog.Default().With("component", "advice-client"),
	}
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generation struct {
	GeneratedText *string `json:"generated_text"`
}

// Prompt builds the instruction sent to the model. Earlier turns, when
// given, follow the instruction oldest first.
func Prompt(symptoms string, history ...Turn) string {
	prompt := "You are a helpful medical assistant. A patient reports: " + symptoms +
		"\nSuggest possible diagnosis, home care tips, and whether to consult a doctor."
	if len(history) == 0 {
		return prompt
	}
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = t.label() + ": " + t.Text
	}
	return prompt + "\nConversation history: " + strings.Join(lines, " | ")
}

// GetMedicalResponse returns the model's advice, or a human-readable error
// message when the call cannot be made or fails.
func (c *Client) GetMedicalResponse(ctx context.Context, symptoms string, history ...Turn) string {
	text, err := c.Ask(ctx, symptoms, history...)
	if err != nil {
		return Message(err)
	}
	return text
}

// Message turns an Ask error into the text shown in place of advice.
func Message(err error) string {
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return rse.Message()
	}
	return "❌ Error during request: " + err.Error()
}

// Outcome classifies an Ask error for metrics; nil is "ok".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var rse *RemoteServiceError
	if errors.As(err, &rse) {
		return string(rse.Kind)
	}
	return string(KindTransport)
}

// Ask performs the call and returns a *RemoteServiceError on any failure.
func (c *Client) Ask(ctx context.Context, symptoms string, history ...Turn) (string, error) {
	if c.cfg.APIKey == "" {
		c.logger.Warn("advice requested without API key")
		return "", &RemoteServiceError{Kind: KindMissingKey}
	}

	payload, err := json.Marshal(generateRequest{
		Inputs: Prompt(symptoms, history...),
		Parameters: generateParameters{
			MaxNewTokens:   MaxNewTokens,
			Temperature:    Temperature,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", &RemoteServiceError{Kind: KindTransport, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", &RemoteServiceError{Kind: KindTransport, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Error("advice request failed", "error", err)
		return "", &RemoteServiceError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &RemoteServiceError{Kind: KindTransport, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("advice endpoint returned error status", "status", resp.StatusCode)
		return "", &RemoteServiceError{Kind: KindStatus, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var generations []generation
	if err := json.Unmarshal(body, &generations); err != nil {
		return "", &RemoteServiceError{Kind: KindDecode, Err: err}
	}
	if len(generations) == 0 {
		return "", &RemoteServiceError{Kind: KindEmpty}
	}
	text := generations[0].GeneratedText
	if text == nil {
		return "", &RemoteServiceError{Kind: KindDecode, Err: errMissingText}
	}
	c.logger.Debug("advice received", "length", len(*text), "history_turns", len(history))
	return *text, nil
}

// ErrorKind classifies a RemoteServiceError.
type ErrorKind string

const (
	KindMissingKey ErrorKind = "missing_key"
	KindStatus     ErrorKind = "status"
	KindTransport  ErrorKind = "transport"
	KindDecode     ErrorKind = "decode"
	KindEmpty      ErrorKind = "empty"
)

// RemoteServiceError is a failed advice call.
type RemoteServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("advice: status %d: %s", e.StatusCode, e.Body)
	case KindMissingKey, KindEmpty:
		return "advice: " + string(e.Kind)
	default:
		return fmt.Sprintf("advice: %s: %v", e.Kind, e.Err)
	}
}

func (e *RemoteServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperrors.ErrRemoteService}
	}
	return []error{apperrors.ErrRemoteService, e.Err}
}

// Message is the text shown to the user in place of advice.
func (e *RemoteServiceError) Message() string {
	switch e.Kind {
	case KindMissingKey:
		return MissingKeyMessage
	case KindEmpty:
		return EmptyResponseMessage
	case KindStatus:
		return fmt.Sprintf("❌ Error %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("❌ Error during request: %v", e.Err)
	}
}
