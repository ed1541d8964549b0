package tracking

import "time"

// Tokens counts prompt (input) and completion (output) tokens.
type Tokens struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
}

func (t Tokens) Total() int64 {
	return t.Input + t.Output
}

// Record is one tracked AI call.
type Record struct {
	ID        string         `json:"id"`
	AccountID string         `json:"-"`
	APIKeyID  string         `json:"-"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Tokens    Tokens         `json:"tokens"`
	Cost      float64        `json:"cost"`
	UserID    string         `json:"userId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Input is the caller-supplied part of a record. A nil Cost is computed from pricing.
type Input struct {
	Provider  string
	Model     string
	Tokens    Tokens
	Cost      *float64
	UserID    string
	Metadata  map[string]any
	Timestamp *time.Time
	APIKeyID  string
}

// Query filters records of one account. Start/End form a half-open range;
// zero values leave that side open. Limit <= 0 means no limit at the repo level.
type Query struct {
	AccountID string
	Start     time.Time
	End       time.Time
	Provider  string
	Model     string
	UserID    string
	Limit     int
	Offset    int
}

// Matches reports whether r satisfies every filter in q.
func (q Query) Matches(r Record) bool {
	if r.AccountID != q.AccountID {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !r.Timestamp.Before(q.End) {
		return false
	}
	if q.Provider != "" && r.Provider != q.Provider {
		return false
	}
	if q.Model != "" && r.Model != q.Model {
		return false
	}
	if q.UserID != "" && r.UserID != q.UserID {
		return false
	}
	return true
}

// View is the JSON body returned for a stored record.
type View struct {
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	Tokens    TokensView     `json:"tokens"`
	Cost      float64        `json:"cost"`
	UserID    string         `json:"userId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type TokensView struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

func (r Record) View() View {
	return View{
		Provider: r.Provider,
		Model:    r.Model,
		Tokens: TokensView{
			Input:  r.Tokens.Input,
			Output: r.Tokens.Output,
			Total:  r.Tokens.Total(),
		},
		Cost:      r.Cost,
		UserID:    r.UserID,
		Metadata:  r.Metadata,
		Timestamp: r.Timestamp,
	}
}
