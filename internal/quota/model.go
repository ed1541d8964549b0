package quota

import "time"

// Usage represents an account's token allowance for the current period.
// Limit 0 means unlimited.
type Usage struct {
	Plan     string    `json:"plan"`
	Limit    int64     `json:"limit"`
	Used     int64     `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns the tokens left, or -1 when unlimited.
func (u Usage) Remaining() int64 {
	if u.Limit == 0 {
		return -1
	}
	if u.Used >= u.Limit {
		return 0
	}
	return u.Limit - u.Used
}

// PercentUsed returns 0..100, always 0 for unlimited plans.
func (u Usage) PercentUsed() float64 {
	if u.Limit <= 0 {
		return 0
	}
	pct := float64(u.Used) / float64(u.Limit) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// PeriodStart is one month before ResetsAt.
func (u Usage) PeriodStart() time.Time {
	return u.ResetsAt.AddDate(0, -1, 0)
}
