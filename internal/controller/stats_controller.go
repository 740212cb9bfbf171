package controller

import (
	"github.com/gofiber/fiber/v2"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/billing"
	"postspark_backend/pkg/database"
	"postspark_backend/pkg/utils/jwt"
)

// DashboardStats summarizes the user's billing period and scheduled posts.
type DashboardStats struct {
	Credits          int    `json:"credits"`
	CurrentPlan      string `json:"current_plan"`
	MonthlyPosts     int    `json:"monthly_posts"`
	MonthlyPostsUsed int    `json:"monthly_posts_used"`
	SpentThisPeriod  int    `json:"spent_this_period"`
	ScheduledPosts   int64  `json:"scheduled_posts"`
	PublishedPosts   int64  `json:"published_posts"`
}

func GetDashboardStats(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)
	db := database.GetDB()

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	stats := DashboardStats{
		Credits:          userBilling.Credits,
		CurrentPlan:      userBilling.CurrentPlan,
		MonthlyPostsUsed: userBilling.MonthlyPostsUsed,
	}

	if plan, ok := billing.GetPlan(userBilling.CurrentPlan); ok {
		stats.MonthlyPosts = plan.MonthlyPosts
	}

	// Sum of debits since the period started.
	for _, tx := range userBilling.BillingHistory {
		if tx.Type == model.TransactionSpent && !tx.CreatedAt.Before(userBilling.LastCreditReset) {
			stats.SpentThisPeriod += -tx.Amount
		}
	}

	db.Model(&model.ScheduledPost{}).
		Where("user_id = ? AND status = ?", claims.UserID, model.PostStatusScheduled).
		Count(&stats.ScheduledPosts)
	db.Model(&model.ScheduledPost{}).
		Where("user_id = ? AND status = ?", claims.UserID, model.PostStatusPublished).
		Count(&stats.PublishedPosts)

	return c.JSON(stats)
}
