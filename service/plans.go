package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tordlabs/tordlabs-defi-intelligence-web-app/model"
)

const (
	CycleMonthly = "monthly"
	CycleAnnual  = "annual"
)

// Plan is a purchasable subscription or credit pack.
type Plan struct {
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Cycle   string          `json:"cycle,omitempty"`
	Price   decimal.Decimal `json:"price"`
	Balance decimal.Decimal `json:"balance"`
	Badge   string          `json:"badge"`
}

func plan(key, name, planType, cycle, price, balance, badge string) Plan {
	return Plan{
		Key:     key,
		Name:    name,
		Type:    planType,
		Cycle:   cycle,
		Price:   decimal.RequireFromString(price),
		Balance: decimal.RequireFromString(balance),
		Badge:   badge,
	}
}

var plans = map[string]Plan{
	"basic_monthly":    plan("basic_monthly", "Basic", model.PlanTypeSubscription, CycleMonthly, "9.90", "9.90", "basic"),
	"basic_annual":     plan("basic_annual", "Basic", model.PlanTypeSubscription, CycleAnnual, "59.40", "118.80", "basic"),
	"standard_monthly": plan("standard_monthly", "Standard", model.PlanTypeSubscription, CycleMonthly, "19.90", "19.90", "standard"),
	"standard_annual":  plan("standard_annual", "Standard", model.PlanTypeSubscription, CycleAnnual, "119.40", "238.80", "standard"),
	"pro_monthly":      plan("pro_monthly", "Pro", model.PlanTypeSubscription, CycleMonthly, "49.90", "49.90", "pro"),
	"pro_annual":       plan("pro_annual", "Pro", model.PlanTypeSubscription, CycleAnnual, "299.40", "598.80", "pro"),
	"starter":          plan("starter", "Starter Pack", model.PlanTypeCreditPack, "", "9.90", "9.90", "starter"),
	"creator":          plan("creator", "Creator Pack", model.PlanTypeCreditPack, "", "24.90", "24.90", "creator"),
	"professional":     plan("professional", "Professional Pack", model.PlanTypeCreditPack, "", "49.90", "49.90", "professional"),
}

func LookupPlan(key string) (Plan, bool) {
	p, ok := plans[key]
	return p, ok
}

// Plans returns the catalogue ordered by price, then key.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// ExpiresAt is when a subscription bought at now lapses. Credit packs don't expire.
func (p Plan) ExpiresAt(now time.Time) *time.Time {
	var t time.Time
	switch p.Cycle {
	case CycleMonthly:
		t = now.Add(30 * 24 * time.Hour)
	case CycleAnnual:
		t = now.Add(365 * 24 * time.Hour)
	default:
		return nil
	}
	return &t
}
