package billing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"postspark_backend/internal/model"
)

var (
	ErrPlanNotFound  = errors.New("plan not found")
	ErrUnknownAction = errors.New("unknown action")
)

// defaultCredits is the starting balance for a brand-new billing record.
const defaultCredits = 10

// Store persists one billing aggregate per user. Load returns nil, nil when
// no record exists yet.
type Store interface {
	Load(userID uint) (*model.UserBilling, error)
	Save(billing *model.UserBilling) error
}

// Decision is the outcome of a pre-flight check. Denials carry a
// human-readable reason meant to be shown to the user verbatim.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Ledger is the single source of truth for what a user may do this billing
// period. Every operation runs load-mutate-save under a per-user lock so
// concurrent requests for the same user cannot lose updates.
type Ledger struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewLedger(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   time.Now,
		locks: make(map[uint]*sync.Mutex),
	}
}

func (l *Ledger) userLock(userID uint) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// GetOrCreateBilling returns the user's billing aggregate, creating and
// persisting the free-plan default on first access.
func (l *Ledger) GetOrCreateBilling(userID uint) (*model.UserBilling, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	return l.loadOrCreate(userID)
}

func (l *Ledger) loadOrCreate(userID uint) (*model.UserBilling, error) {
	billing, err := l.store.Load(userID)
	if err != nil {
		return nil, err
	}
	if billing != nil {
		return billing, nil
	}

	billing = l.defaultBilling(userID)
	if err := l.store.Save(billing); err != nil {
		return nil, err
	}
	return billing, nil
}

func (l *Ledger) defaultBilling(userID uint) *model.UserBilling {
	return &model.UserBilling{
		UserID:          userID,
		CurrentPlan:     FreePlan,
		Credits:         defaultCredits,
		LastCreditReset: l.now(),
		BillingHistory:  datatypes.JSONSlice[model.CreditTransaction]{},
	}
}

// CanPerformAction is a pure pre-flight query: it never mutates state, so
// callers can disable UI affordances without side effects. A missing record
// is evaluated against the free-plan defaults without persisting them.
func (l *Ledger) CanPerformAction(userID uint, action model.CreditAction) (Decision, error) {
	cost, ok := ActionCost(action)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.store.Load(userID)
	if err != nil {
		return Decision{}, err
	}
	if billing == nil {
		billing = l.defaultBilling(userID)
	}

	return decide(billing, action, cost), nil
}

func decide(billing *model.UserBilling, action model.CreditAction, cost int) Decision {
	if cost == 0 {
		return Decision{Allowed: true}
	}

	if billing.Credits < cost {
		return Decision{
			Reason: fmt.Sprintf("Insufficient credits. Need %d credits, have %d.", cost, billing.Credits),
		}
	}

	if CountsAgainstQuota(action) {
		if plan, ok := GetPlan(billing.CurrentPlan); ok && billing.MonthlyPostsUsed >= plan.MonthlyPosts {
			return Decision{
				Reason: fmt.Sprintf("Monthly post limit reached (%d posts).", plan.MonthlyPosts),
			}
		}
	}

	return Decision{Allowed: true}
}

// SpendCredits debits the action's cost and records a spent transaction. It
// re-validates under the lock rather than trusting a caller's pre-flight
// check. Returns false without any mutation when the action is denied.
// Zero-cost actions succeed without touching the record.
func (l *Ledger) SpendCredits(userID uint, action model.CreditAction, description string) (bool, error) {
	cost, ok := ActionCost(action)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	if cost == 0 {
		return true, nil
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.loadOrCreate(userID)
	if err != nil {
		return false, err
	}

	if decision := decide(billing, action, cost); !decision.Allowed {
		return false, nil
	}

	billing.Credits -= cost
	billing.AppendTransaction(model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        model.TransactionSpent,
		Amount:      -cost,
		Action:      action,
		Description: description,
		CreatedAt:   l.now(),
	})

	if CountsAgainstQuota(action) {
		billing.MonthlyPostsUsed++
	}

	if err := l.store.Save(billing); err != nil {
		return false, err
	}
	return true, nil
}

// AddCredits increases the balance and records the matching transaction:
// purchased credits as a top_up, earned credits as a monthly_allotment.
// There is no upper bound on the balance.
func (l *Ledger) AddCredits(userID uint, amount int, txType model.TransactionType, description string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if txType != model.TransactionPurchased && txType != model.TransactionEarned {
		return fmt.Errorf("invalid transaction type %q for credit grant", txType)
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.loadOrCreate(userID)
	if err != nil {
		return err
	}

	l.grant(billing, amount, txType, description)
	return l.store.Save(billing)
}

// grant mutates the aggregate in place so composite operations can include a
// credit grant in their own single save.
func (l *Ledger) grant(billing *model.UserBilling, amount int, txType model.TransactionType, description string) {
	action := model.ActionMonthlyAllotment
	if txType == model.TransactionPurchased {
		action = model.ActionTopUp
	}

	billing.Credits += amount
	billing.AppendTransaction(model.CreditTransaction{
		ID:          uuid.NewString(),
		UserID:      billing.UserID,
		Type:        txType,
		Amount:      amount,
		Action:      action,
		Description: description,
		CreatedAt:   l.now(),
	})
}

// SubscribeToPlan switches the user onto a plan immediately: new active
// subscription, quota reset, and the plan's credit allotment granted, all in
// one atomic mutation. There is no proration of a replaced subscription.
func (l *Ledger) SubscribeToPlan(userID uint, planID string, cycle model.BillingCycle) (*model.Subscription, error) {
	plan, ok := GetPlan(planID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.loadOrCreate(userID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	periodEnd := now.AddDate(0, 1, 0)
	if cycle == model.CycleAnnual {
		periodEnd = now.AddDate(1, 0, 0)
	}

	sub := &model.Subscription{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PlanID:             planID,
		Status:             model.SubscriptionActive,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	billing.CurrentPlan = planID
	billing.SetSubscription(sub)
	billing.MonthlyPostsUsed = 0
	billing.LastCreditReset = now
	l.grant(billing, plan.Credits, model.TransactionEarned, fmt.Sprintf("%s plan credits", plan.Name))

	if err := l.store.Save(billing); err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelSubscription marks the subscription to lapse at period end. Access is
// not revoked here; the flag is advisory state for the period-end collaborator.
// No-op when the user has no subscription.
func (l *Ledger) CancelSubscription(userID uint) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.store.Load(userID)
	if err != nil || billing == nil {
		return err
	}

	sub := billing.ActiveSubscription()
	if sub == nil {
		return nil
	}

	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = l.now()
	billing.SetSubscription(sub)

	return l.store.Save(billing)
}

// CheckMonthlyReset rolls the billing period forward when at least one full
// calendar month has elapsed since the last reset: posts used go back to
// zero and the plan's monthly credits are granted. Elapsed months are counted
// by calendar components (year and month number), not by days, so the policy
// is stable regardless of month length. Idempotent within the same month.
func (l *Ledger) CheckMonthlyReset(userID uint) error {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	billing, err := l.loadOrCreate(userID)
	if err != nil {
		return err
	}

	now := l.now()
	last := billing.LastCreditReset
	monthsPassed := (now.Year()-last.Year())*12 + int(now.Month()) - int(last.Month())
	if monthsPassed < 1 {
		return nil
	}

	plan, ok := GetPlan(billing.CurrentPlan)
	if !ok {
		return nil
	}

	billing.MonthlyPostsUsed = 0
	billing.LastCreditReset = now
	l.grant(billing, plan.Credits, model.TransactionEarned, fmt.Sprintf("Monthly %s credits", plan.Name))

	return l.store.Save(billing)
}
