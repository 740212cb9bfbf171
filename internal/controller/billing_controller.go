package controller

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/billing"
	"postspark_backend/pkg/utils/jwt"
	"postspark_backend/pkg/utils/validation"
)

// ledger is shared by the billing, content, post and stats controllers.
var ledger *billing.Ledger

// InitBillingController wires the ledger instance constructed in main.
func InitBillingController(l *billing.Ledger) {
	ledger = l
}

type SubscribeInput struct {
	PlanID       string `json:"plan_id" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"required,oneof=monthly annual"`
}

type TopUpInput struct {
	Credits int `json:"credits" validate:"required,gt=0"`
}

// GetMyBilling is the session bootstrap endpoint: it rolls the monthly period
// forward if one has elapsed, then returns the (possibly new) aggregate.
func GetMyBilling(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	if err := ledger.CheckMonthlyReset(claims.UserID); err != nil {
		log.Errorf("Monthly reset check failed for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not refresh billing period",
		})
	}

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	return c.JSON(userBilling)
}

// GetBillingHistory returns the transaction list, newest first.
func GetBillingHistory(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	history := make([]model.CreditTransaction, len(userBilling.BillingHistory))
	copy(history, userBilling.BillingHistory)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})

	return c.JSON(fiber.Map{
		"transactions": history,
	})
}

// CanPerform exposes the pre-flight check so the UI can disable affordances
// without side effects.
func CanPerform(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	action := model.CreditAction(c.Params("action"))

	decision, err := ledger.CanPerformAction(claims.UserID, action)
	if err != nil {
		if errors.Is(err, billing.ErrUnknownAction) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown action",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not check credit balance",
		})
	}

	return c.JSON(decision)
}

// TopUp credits a purchased bundle. Payment itself happens upstream; this
// endpoint models the post-payment confirmation step.
func TopUp(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(TopUpInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if err := validation.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	option, ok := billing.TopUpOptionFor(input.Credits)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown top-up option",
		})
	}

	if err := ledger.AddCredits(claims.UserID, option.Credits, model.TransactionPurchased, "Credit top-up"); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not add credits",
		})
	}

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Credits added successfully",
		"credits": userBilling.Credits,
	})
}

// ListPlans returns the static plan catalog.
func ListPlans(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"plans":          billing.Plans,
		"top_up_options": billing.TopUpOptions,
	})
}

// GetAnnualSavings returns the annual-vs-monthly price comparison for a plan.
func GetAnnualSavings(c *fiber.Ctx) error {
	planID := c.Params("id")
	if _, ok := billing.GetPlan(planID); !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Plan not found",
		})
	}

	return c.JSON(billing.AnnualSavings(planID))
}

// Subscribe switches the user onto a plan.
func Subscribe(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(SubscribeInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}

	if err := validation.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	sub, err := ledger.SubscribeToPlan(claims.UserID, input.PlanID, model.BillingCycle(input.BillingCycle))
	if err != nil {
		if errors.Is(err, billing.ErrPlanNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Subscription plan not found",
			})
		}
		log.Errorf("Subscription failed for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create subscription",
		})
	}

	return c.JSON(fiber.Map{
		"message":      "Subscription created successfully",
		"subscription": sub,
	})
}

// CancelSubscription flags the subscription to lapse at period end.
func CancelSubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	if err := ledger.CancelSubscription(claims.UserID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel subscription",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Subscription cancelled successfully",
	})
}

// GetMySubscription returns the current subscription, 404 when there is none.
func GetMySubscription(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	sub := userBilling.ActiveSubscription()
	if sub == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No active subscription found",
		})
	}

	return c.JSON(sub)
}
