package analytics

import (
	"errors"
	"strings"
	"time"

	"usely-backend/internal/shared/daterange"
)

// GroupBy selects the breakdown dimension.
type GroupBy string

const (
	GroupByProvider GroupBy = "provider"
	GroupByModel    GroupBy = "model"
	GroupByUser     GroupBy = "user"
	GroupByDay      GroupBy = "day"
	GroupByHour     GroupBy = "hour"
)

// AnonymousUser labels records tracked without a userId.
const AnonymousUser = "anonymous"

const (
	dayKeyLayout  = "2006-01-02"
	hourKeyLayout = "2006-01-02T15:00:00Z"
)

var ErrInvalidGroupBy = errors.New("invalid groupBy")

// ParseGroupBy defaults to provider for an empty value.
func ParseGroupBy(raw string) (GroupBy, error) {
	switch g := GroupBy(strings.ToLower(strings.TrimSpace(raw))); g {
	case "":
		return GroupByProvider, nil
	case GroupByProvider, GroupByModel, GroupByUser, GroupByDay, GroupByHour:
		return g, nil
	default:
		return "", ErrInvalidGroupBy
	}
}

func (g GroupBy) isTime() bool {
	return g == GroupByDay || g == GroupByHour
}

// Query selects records of one account inside Range.
type Query struct {
	AccountID string
	Range     daterange.Range
	Provider  string
	Model     string
	UserID    string
	GroupBy   GroupBy
}

// Totals are raw sums produced by a Store.
type Totals struct {
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

type Summary struct {
	TotalRequests         int64     `json:"totalRequests"`
	InputTokens           int64     `json:"inputTokens"`
	OutputTokens          int64     `json:"outputTokens"`
	TotalTokens           int64     `json:"totalTokens"`
	TotalCost             float64   `json:"totalCost"`
	AverageCostPerRequest float64   `json:"averageCostPerRequest"`
	PeriodStart           time.Time `json:"periodStart"`
	PeriodEnd             time.Time `json:"periodEnd"`
}

// Group is one breakdown row.
type Group struct {
	Key          string  `json:"key"`
	Requests     int64   `json:"requests"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	TotalTokens  int64   `json:"totalTokens"`
	Cost         float64 `json:"cost"`
	Percentage   float64 `json:"percentage"`
}

// Point is one day of a zero-filled series.
type Point struct {
	Date     string  `json:"date"`
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// Result is the body of GET /analytics.
type Result struct {
	Summary   Summary         `json:"summary"`
	GroupBy   GroupBy         `json:"groupBy"`
	Breakdown []Group         `json:"breakdown"`
	Range     daterange.Range `json:"range"`
}
