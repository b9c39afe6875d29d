package analytics

import "time"

type EventType string

const (
	EventMatch      EventType = "match"
	EventZeroResult EventType = "zero_result"
	EventSevere     EventType = "severe_alert"
	EventAdvice     EventType = "advice"
)

// Surface names the entry point a query came from.
type Surface string

const (
	SurfaceCLI  Surface = "cli"
	SurfaceHTTP Surface = "http"
)

type MatchEvent struct {
	Type         EventType `json:"type"`
	Surface      Surface   `json:"surface"`
	Query        []string  `json:"query"`
	TopN         int       `json:"top_n"`
	TotalMatches int       `json:"total_matches"`
	Returned     int       `json:"returned"`
	TopDisease   string    `json:"top_disease,omitempty"`
	SevereAlert  bool      `json:"severe_alert"`
	CacheHit     bool      `json:"cache_hit"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

type AdviceEvent struct {
	Type         EventType `json:"type"`
	Surface      Surface   `json:"surface"`
	Outcome      string    `json:"outcome"`
	HistoryTurns int       `json:"history_turns"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id,omitempty"`
}

// MatchEventType picks the event type for a finished query. A severe alert
// takes precedence over an ordinary match.
func MatchEventType(totalMatches int, severe bool) EventType {
	switch {
	case totalMatches == 0:
		return EventZeroResult
	case severe:
		return EventSevere
	default:
		return EventMatch
	}
}
