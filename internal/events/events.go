package events

import (
	"strings"
	"time"

	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
)

// Default topic names
const (
	TopicAnalysisRequested = "analysis.requested"
	TopicAnalysisCompleted = "analysis.completed"
	TopicAnalysisFailed    = "analysis.failed"
)

// Topics names the topics results are published to
type Topics struct {
	Completed string
	Failed    string
}

// DefaultTopics returns the default result topics
func DefaultTopics() Topics {
	return Topics{
		Completed: TopicAnalysisCompleted,
		Failed:    TopicAnalysisFailed,
	}
}

// AnalysisRequested asks for one analysis of a bar series
type AnalysisRequested struct {
	RequestID string            `json:"request_id"`
	Symbol    string            `json:"symbol"`
	Interval  string            `json:"interval"`
	Now       time.Time         `json:"now,omitzero"`
	Bars      []market_data.Bar `json:"bars"`
}

// AnalysisCompleted carries a finished analysis
type AnalysisCompleted struct {
	RequestID string                 `json:"request_id,omitempty"`
	Analysis  *levels.ScoredAnalysis `json:"analysis"`
}

// AnalysisFailed reports a request that produced no analysis.
// InputError is true when the request itself was invalid and retrying is pointless.
type AnalysisFailed struct {
	RequestID  string `json:"request_id,omitempty"`
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
	Error      string `json:"error"`
	InputError bool   `json:"input_error"`
}

// SanitizeUTF8 drops invalid UTF-8 sequences so error text always encodes
func SanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "")
}

// messageKey keys result messages by symbol so one symbol's results stay ordered
func messageKey(symbol, interval string) string {
	return symbol + ":" + interval
}
