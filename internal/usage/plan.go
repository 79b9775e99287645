package usage

import (
	"fmt"

	"github.com/img2prompt/service/internal/apperr"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPro     Plan = "pro"
	PlanPremium Plan = "premium"
)

// Plans lists every tier in ascending order.
var Plans = []Plan{PlanFree, PlanBasic, PlanPro, PlanPremium}

// monthly uses per tier
var planLimits = map[Plan]int{
	PlanFree:    5,
	PlanBasic:   50,
	PlanPro:     200,
	PlanPremium: 1000,
}

// ParsePlan returns the Plan named s or a ValidationError.
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if _, ok := planLimits[p]; !ok {
		return "", apperr.NewValidation(fmt.Sprintf("invalid subscription plan %q", s))
	}
	return p, nil
}

// Limit returns the number of uses allowed per window. Unknown plans get the free limit.
func (p Plan) Limit() int {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}
