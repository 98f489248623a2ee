package models

import "github.com/shopspring/decimal"

type PlanKey string

const (
	PlanFree       PlanKey = "free"
	PlanGrowth     PlanKey = "growth"
	PlanEnterprise PlanKey = "enterprise"
)

type PlanStatus string

const (
	PlanStatusActive            PlanStatus = "active"
	PlanStatusCancelAtPeriodEnd PlanStatus = "cancel_at_period_end"
	PlanStatusError             PlanStatus = "error"
)

type Plan struct {
	Key          PlanKey         `json:"key"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	Currency     string          `json:"currency"`
	// MaxVisitors of zero means unlimited.
	MaxVisitors int `json:"max_visitors"`
}

func (p Plan) AllowsVisitors(count int) bool {
	return p.MaxVisitors == 0 || count <= p.MaxVisitors
}

var plans = []Plan{
	{Key: PlanFree, Name: "Free", MonthlyPrice: decimal.Zero, Currency: "USD", MaxVisitors: 100},
	{Key: PlanGrowth, Name: "Growth", MonthlyPrice: decimal.RequireFromString("49.00"), Currency: "USD", MaxVisitors: 5000},
	{Key: PlanEnterprise, Name: "Enterprise", MonthlyPrice: decimal.RequireFromString("199.00"), Currency: "USD"},
}

func Plans() []Plan {
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}

func FindPlan(key PlanKey) (Plan, bool) {
	for _, p := range plans {
		if p.Key == key {
			return p, true
		}
	}
	return Plan{}, false
}
