package billing

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postspark_backend/internal/model"
)

func newTestLedger(now time.Time) (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	ledger := NewLedger(store)
	ledger.now = func() time.Time { return now }
	return ledger, store
}

func TestGetOrCreateBillingDefaults(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	ledger, store := newTestLedger(now)

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)

	assert.Equal(t, FreePlan, b.CurrentPlan)
	assert.Equal(t, 10, b.Credits)
	assert.Equal(t, 0, b.MonthlyPostsUsed)
	assert.Equal(t, now, b.LastCreditReset)
	assert.Empty(t, b.BillingHistory)
	assert.Nil(t, b.ActiveSubscription())

	// Default must be persisted on first access.
	saved, err := store.Load(1)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, b.Credits, saved.Credits)
}

func TestCanPerformActionIsPure(t *testing.T) {
	ledger, store := newTestLedger(time.Now())

	decision, err := ledger.CanPerformAction(7, model.ActionAIGeneration)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Pre-flight checks must not create a record.
	saved, err := store.Load(7)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestCanPerformUnknownAction(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	_, err := ledger.CanPerformAction(1, model.CreditAction("mint_nft"))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestSpendCreditsFreePlanQuota(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	// Free plan: 10 credits, 3 monthly posts, ai_generation costs 2.
	wantCredits := []int{8, 6, 4}
	for i := 0; i < 3; i++ {
		ok, err := ledger.SpendCredits(1, model.ActionAIGeneration, fmt.Sprintf("gen%d", i+1))
		require.NoError(t, err)
		require.True(t, ok)

		b, err := ledger.GetOrCreateBilling(1)
		require.NoError(t, err)
		assert.Equal(t, wantCredits[i], b.Credits)
		assert.Equal(t, i+1, b.MonthlyPostsUsed)
	}

	// Quota exhausted: denied despite 4 remaining credits.
	ok, err := ledger.SpendCredits(1, model.ActionAIGeneration, "gen4")
	require.NoError(t, err)
	assert.False(t, ok)

	decision, err := ledger.CanPerformAction(1, model.ActionAIGeneration)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Contains(t, decision.Reason, "Monthly post limit reached (3 posts)")

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 4, b.Credits)
	assert.Equal(t, 3, b.MonthlyPostsUsed)
	assert.Len(t, b.BillingHistory, 3)
	for _, tx := range b.BillingHistory {
		assert.Equal(t, model.TransactionSpent, tx.Type)
		assert.Equal(t, -2, tx.Amount)
		assert.Equal(t, model.ActionAIGeneration, tx.Action)
	}
}

func TestSpendCreditsInsufficient(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	// Burn the balance down with carousel generations (8 credits each).
	ok, err := ledger.SpendCredits(1, model.ActionCarouselGen, "carousel")
	require.NoError(t, err)
	require.True(t, ok)

	decision, err := ledger.CanPerformAction(1, model.ActionCarouselGen)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "Insufficient credits. Need 8 credits, have 2.", decision.Reason)

	ok, err = ledger.SpendCredits(1, model.ActionCarouselGen, "carousel again")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSpendDenialIsNoOp(t *testing.T) {
	ledger, store := newTestLedger(time.Now())

	_, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)

	before, err := store.Load(1)
	require.NoError(t, err)

	// Carousel twice: second is denied (10 - 8 = 2 < 8).
	ok, err := ledger.SpendCredits(1, model.ActionCarouselGen, "first")
	require.NoError(t, err)
	require.True(t, ok)

	mid, err := store.Load(1)
	require.NoError(t, err)

	ok, err = ledger.SpendCredits(1, model.ActionCarouselGen, "second")
	require.NoError(t, err)
	require.False(t, ok)

	after, err := store.Load(1)
	require.NoError(t, err)

	assert.Equal(t, mid.Credits, after.Credits)
	assert.Equal(t, mid.MonthlyPostsUsed, after.MonthlyPostsUsed)
	assert.Len(t, after.BillingHistory, len(before.BillingHistory)+1)
}

func TestSpendZeroCostAction(t *testing.T) {
	ledger, store := newTestLedger(time.Now())

	ok, err := ledger.SpendCredits(1, model.ActionFormatterUse, "formatter")
	require.NoError(t, err)
	assert.True(t, ok)

	// Zero-cost spends touch nothing, not even record creation.
	saved, err := store.Load(1)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestAddCreditsTopUp(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	// Spend down to 4 first.
	for i := 0; i < 3; i++ {
		ok, err := ledger.SpendCredits(1, model.ActionAIGeneration, "gen")
		require.NoError(t, err)
		require.True(t, ok)
	}

	require.NoError(t, ledger.AddCredits(1, 100, model.TransactionPurchased, "top-up"))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 104, b.Credits)

	last := b.BillingHistory[len(b.BillingHistory)-1]
	assert.Equal(t, model.TransactionPurchased, last.Type)
	assert.Equal(t, model.ActionTopUp, last.Action)
	assert.Equal(t, 100, last.Amount)
}

func TestAddCreditsRejectsNonPositiveAmounts(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	_, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)

	assert.Error(t, ledger.AddCredits(1, 0, model.TransactionPurchased, "zero"))
	assert.Error(t, ledger.AddCredits(1, -50, model.TransactionEarned, "negative"))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)
	assert.Empty(t, b.BillingHistory)
}

func TestAddCreditsRejectsSpentType(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	assert.Error(t, ledger.AddCredits(1, 10, model.TransactionSpent, "bogus"))
}

func TestSubscribeToPlan(t *testing.T) {
	now := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	sub, err := ledger.SubscribeToPlan(1, CreatorPlan, model.CycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, CreatorPlan, sub.PlanID)
	assert.Equal(t, model.CycleMonthly, sub.BillingCycle)
	assert.Equal(t, now, sub.CurrentPeriodStart)
	assert.Equal(t, now.AddDate(0, 1, 0), sub.CurrentPeriodEnd)
	assert.False(t, sub.CancelAtPeriodEnd)

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, CreatorPlan, b.CurrentPlan)
	assert.Equal(t, 0, b.MonthlyPostsUsed)
	assert.Equal(t, 10+175, b.Credits)
	assert.Equal(t, now, b.LastCreditReset)
	require.NotNil(t, b.ActiveSubscription())

	require.Len(t, b.BillingHistory, 1)
	tx := b.BillingHistory[0]
	assert.Equal(t, model.TransactionEarned, tx.Type)
	assert.Equal(t, model.ActionMonthlyAllotment, tx.Action)
	assert.Equal(t, 175, tx.Amount)
}

func TestSubscribeToPlanAnnualPeriod(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	sub, err := ledger.SubscribeToPlan(1, StarterPlan, model.CycleAnnual)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(1, 0, 0), sub.CurrentPeriodEnd)
}

func TestSubscribeUnknownPlan(t *testing.T) {
	ledger, store := newTestLedger(time.Now())

	_, err := ledger.SubscribeToPlan(1, "enterprise", model.CycleMonthly)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// Failed subscribe must not touch (or create) the billing record.
	saved, err := store.Load(1)
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestCancelSubscription(t *testing.T) {
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(now)

	_, err := ledger.SubscribeToPlan(1, StarterPlan, model.CycleMonthly)
	require.NoError(t, err)

	later := now.Add(48 * time.Hour)
	ledger.now = func() time.Time { return later }

	require.NoError(t, ledger.CancelSubscription(1))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	sub := b.ActiveSubscription()
	require.NotNil(t, sub)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, later, sub.UpdatedAt)

	// Cancellation is advisory: the subscription stays active and the plan
	// does not change.
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	assert.Equal(t, StarterPlan, b.CurrentPlan)
}

func TestCancelSubscriptionWithoutOne(t *testing.T) {
	ledger, store := newTestLedger(time.Now())

	// No record at all: no-op, nothing created.
	require.NoError(t, ledger.CancelSubscription(1))
	saved, err := store.Load(1)
	require.NoError(t, err)
	assert.Nil(t, saved)

	// Record without subscription: still a no-op.
	_, err = ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	require.NoError(t, ledger.CancelSubscription(1))
}

func TestCheckMonthlyResetGrantsOncePerMonth(t *testing.T) {
	start := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(start)

	_, err := ledger.SubscribeToPlan(1, CreatorPlan, model.CycleMonthly)
	require.NoError(t, err)

	// Next calendar month, even one day in: counts as one elapsed month.
	ledger.now = func() time.Time { return time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, ledger.CheckMonthlyReset(1))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 10+175+175, b.Credits)
	assert.Equal(t, 0, b.MonthlyPostsUsed)
	require.Len(t, b.BillingHistory, 2)

	// Same month again: idempotent no-op.
	require.NoError(t, ledger.CheckMonthlyReset(1))
	b, err = ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 10+175+175, b.Credits)
	assert.Len(t, b.BillingHistory, 2)
}

func TestCheckMonthlyResetSameMonthNoOp(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(start)

	_, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)

	// 30 days later but still March: calendar months, not day counts.
	ledger.now = func() time.Time { return time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, ledger.CheckMonthlyReset(1))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 10, b.Credits)
	assert.Equal(t, start, b.LastCreditReset)
}

func TestCheckMonthlyResetAcrossYearBoundary(t *testing.T) {
	start := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	ledger, _ := newTestLedger(start)

	_, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)

	next := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return next }
	require.NoError(t, ledger.CheckMonthlyReset(1))

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 20, b.Credits) // free plan grants 10
	assert.Equal(t, next, b.LastCreditReset)
}

func TestConcurrentSpendsSerialize(t *testing.T) {
	ledger, _ := newTestLedger(time.Now())

	require.NoError(t, ledger.AddCredits(1, 90, model.TransactionPurchased, "top-up"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.SpendCredits(1, model.ActionAIEnhance, "enhance")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	b, err := ledger.GetOrCreateBilling(1)
	require.NoError(t, err)
	assert.Equal(t, 50, b.Credits) // 100 - 50×1, no lost updates
	assert.Len(t, b.BillingHistory, 51)
}
