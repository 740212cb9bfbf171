package billing

import "postspark_backend/internal/model"

// Plan IDs
const (
	FreePlan       = "free"
	StarterPlan    = "starter"
	CreatorPlan    = "creator"
	CreatorProPlan = "creator-pro"
)

type Price struct {
	Monthly float64 `json:"monthly"`
	Annual  float64 `json:"annual"`
}

type Plan struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Price        Price    `json:"price"`
	MonthlyPosts int      `json:"monthly_posts"`
	Credits      int      `json:"credits"`
	Features     []string `json:"features"`
	Popular      bool     `json:"popular,omitempty"`
}

// Plans is the static catalog. Read-only after init; plans are configuration
// constants, not database rows.
var Plans = []Plan{
	{
		ID:           FreePlan,
		Name:         "Free",
		Price:        Price{Monthly: 0, Annual: 0},
		MonthlyPosts: 3,
		Credits:      10,
		Features: []string{
			"Access all formatter styles",
			"1 AI generation per week",
			"No scheduling",
			"No analytics",
			"No carousel generator",
		},
	},
	{
		ID:           StarterPlan,
		Name:         "Starter",
		Price:        Price{Monthly: 3, Annual: 29},
		MonthlyPosts: 20,
		Credits:      100,
		Features: []string{
			"AI generation (expand + enhance)",
			"Post scheduling",
			"Export (copy/PDF)",
			"Basic analytics",
			"All formatter styles",
		},
	},
	{
		ID:           CreatorPlan,
		Name:         "Creator",
		Price:        Price{Monthly: 7, Annual: 69},
		MonthlyPosts: 35,
		Credits:      175,
		Features: []string{
			"All Starter features",
			"Carousel generator",
			"Advanced analytics",
			"Priority support",
			"5 bonus monthly posts",
		},
		Popular: true,
	},
	{
		ID:           CreatorProPlan,
		Name:         "Creator Pro",
		Price:        Price{Monthly: 12, Annual: 115},
		MonthlyPosts: 70,
		Credits:      350,
		Features: []string{
			"All Creator features",
			"24/7 support",
			"Early access to team tools",
			"10 bonus monthly posts",
		},
	},
}

// CreditCosts maps each billable action to its price in credits.
var CreditCosts = map[model.CreditAction]int{
	model.ActionAIGeneration: 2,
	model.ActionAIEnhance:    1,
	model.ActionSchedulePost: 2,
	model.ActionCarouselGen:  8,
	model.ActionExportPDF:    1,
	model.ActionFormatterUse: 0,
}

type TopUpOption struct {
	Credits int     `json:"credits"`
	Price   float64 `json:"price"`
	Popular bool    `json:"popular,omitempty"`
}

var TopUpOptions = []TopUpOption{
	{Credits: 50, Price: 1.5},
	{Credits: 100, Price: 2.5, Popular: true},
	{Credits: 250, Price: 5},
}

func GetPlan(planID string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == planID {
			return p, true
		}
	}
	return Plan{}, false
}

// ActionCost returns the credit cost of a spendable action. Allotment and
// top-up entries are credit grants, not spendable actions.
func ActionCost(action model.CreditAction) (int, bool) {
	cost, ok := CreditCosts[action]
	return cost, ok
}

// CountsAgainstQuota reports whether an action consumes the plan's monthly
// post quota in addition to credits.
func CountsAgainstQuota(action model.CreditAction) bool {
	return action == model.ActionSchedulePost || action == model.ActionAIGeneration
}

// TopUpOptionFor looks up a purchasable credit bundle by size.
func TopUpOptionFor(credits int) (TopUpOption, bool) {
	for _, opt := range TopUpOptions {
		if opt.Credits == credits {
			return opt, true
		}
	}
	return TopUpOption{}, false
}

type Savings struct {
	Amount     float64 `json:"amount"`
	Percentage int     `json:"percentage"`
}

// AnnualSavings compares twelve monthly payments against the annual price.
// Zero for the free plan and for unknown plans.
func AnnualSavings(planID string) Savings {
	plan, ok := GetPlan(planID)
	if !ok || plan.Price.Monthly == 0 {
		return Savings{}
	}

	monthlyTotal := plan.Price.Monthly * 12
	amount := monthlyTotal - plan.Price.Annual
	percentage := int(amount/monthlyTotal*100 + 0.5)

	return Savings{Amount: amount, Percentage: percentage}
}
