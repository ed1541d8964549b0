package quota

import "time"

const (
	DefaultPlan  = "free"
	DefaultLimit = int64(100_000)
)

// Thresholds are the percentages reported by CrossedThresholds.
var Thresholds = []int{80, 100}

func defaultUsage(now time.Time) Usage {
	return Usage{
		Plan:     DefaultPlan,
		Limit:    DefaultLimit,
		Used:     0,
		ResetsAt: nextReset(now),
	}
}

func nextReset(now time.Time) time.Time {
	return now.UTC().AddDate(0, 1, 0)
}

// roll starts a new period when now has reached ResetsAt. Skipped months are
// jumped over so ResetsAt stays on the original day of month.
func roll(u Usage, now time.Time) (Usage, bool) {
	if now.Before(u.ResetsAt) {
		return u, false
	}
	for !now.Before(u.ResetsAt) {
		u.ResetsAt = u.ResetsAt.AddDate(0, 1, 0)
	}
	u.Used = 0
	return u, true
}

// CrossedThresholds returns the thresholds passed when usage moved from before to after.
func CrossedThresholds(limit, before, after int64) []int {
	if limit <= 0 || after <= before {
		return nil
	}
	var out []int
	for _, pct := range Thresholds {
		mark := limit * int64(pct) / 100
		if before < mark && after >= mark {
			out = append(out, pct)
		}
	}
	return out
}
