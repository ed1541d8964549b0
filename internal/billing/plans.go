package billing

import (
	"strings"

	"usely-backend/internal/quota"
)

const Currency = "USD"

// Plan is a catalog entry. TokenLimit and UserLimit of 0 mean unlimited.
type Plan struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Custom     bool    `json:"customPricing,omitempty"`
	TokenLimit int64   `json:"tokenLimit"`
	UserLimit  int     `json:"userLimit"`
}

const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanTeam       = "team"
	PlanEnterprise = "enterprise"
)

var catalog = []Plan{
	{ID: PlanFree, Name: "Free", Price: 0, Currency: Currency, TokenLimit: quota.DefaultLimit, UserLimit: 1},
	{ID: PlanPro, Name: "Pro", Price: 49, Currency: Currency, TokenLimit: 5_000_000, UserLimit: 5},
	{ID: PlanTeam, Name: "Team", Price: 199, Currency: Currency, TokenLimit: 25_000_000, UserLimit: 25},
	{ID: PlanEnterprise, Name: "Enterprise", Currency: Currency, Custom: true},
}

// Plans returns the catalog in display order.
func Plans() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

func LookupPlan(id string) (Plan, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// SeatsAllowed reports whether n seats fit the plan.
func (p Plan) SeatsAllowed(n int) bool {
	return p.UserLimit == 0 || n <= p.UserLimit
}
