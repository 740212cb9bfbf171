package model

import (
	"time"

	"gorm.io/datatypes"
)

// Transaction types
type TransactionType string

const (
	TransactionEarned    TransactionType = "earned"
	TransactionSpent     TransactionType = "spent"
	TransactionPurchased TransactionType = "purchased"
)

// Billable actions
type CreditAction string

const (
	ActionAIGeneration     CreditAction = "ai_generation"
	ActionAIEnhance        CreditAction = "ai_enhance"
	ActionSchedulePost     CreditAction = "schedule_post"
	ActionCarouselGen      CreditAction = "carousel_generator"
	ActionExportPDF        CreditAction = "export_pdf"
	ActionFormatterUse     CreditAction = "formatter_use"
	ActionMonthlyAllotment CreditAction = "monthly_allotment"
	ActionTopUp            CreditAction = "top_up"
)

// Subscription status
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionTrialing  SubscriptionStatus = "trialing"
)

// Billing cycles
type BillingCycle string

const (
	CycleMonthly BillingCycle = "monthly"
	CycleAnnual  BillingCycle = "annual"
)

// CreditTransaction is an append-only ledger entry. It lives inside the
// UserBilling document, not in its own table.
type CreditTransaction struct {
	ID          string          `json:"id"`
	UserID      uint            `json:"user_id"`
	Type        TransactionType `json:"type"`
	Amount      int             `json:"amount"` // negative for spends
	Action      CreditAction    `json:"action"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Subscription binds a user to a plan for a billing period. Embedded in the
// UserBilling document; one active subscription per user.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             uint               `json:"user_id"`
	PlanID             string             `json:"plan_id"`
	Status             SubscriptionStatus `json:"status"`
	BillingCycle       BillingCycle       `json:"billing_cycle"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// UserBilling is the per-user billing aggregate. One row per user; the
// subscription and transaction history are stored as JSON columns so the row
// is a self-contained document.
type UserBilling struct {
	ID               uint                                   `json:"-" gorm:"primaryKey"`
	UserID           uint                                   `json:"user_id" gorm:"uniqueIndex;not null"`
	CurrentPlan      string                                 `json:"current_plan" gorm:"not null"`
	Credits          int                                    `json:"credits" gorm:"not null"`
	MonthlyPostsUsed int                                    `json:"monthly_posts_used" gorm:"not null"`
	LastCreditReset  time.Time                              `json:"last_credit_reset"`
	Subscription     datatypes.JSONType[*Subscription]      `json:"subscription"`
	BillingHistory   datatypes.JSONSlice[CreditTransaction] `json:"billing_history"`
	CreatedAt        time.Time                              `json:"created_at"`
	UpdatedAt        time.Time                              `json:"updated_at"`
}

// ActiveSubscription returns the embedded subscription, nil if none.
func (b *UserBilling) ActiveSubscription() *Subscription {
	return b.Subscription.Data()
}

// SetSubscription replaces the embedded subscription.
func (b *UserBilling) SetSubscription(sub *Subscription) {
	b.Subscription = datatypes.NewJSONType(sub)
}

// AppendTransaction records a ledger entry. History is insertion-ordered and
// never mutated after the fact.
func (b *UserBilling) AppendTransaction(tx CreditTransaction) {
	b.BillingHistory = append(b.BillingHistory, tx)
}
