package middleware

import (
	"github.com/gofiber/fiber/v2"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/billing"
	"postspark_backend/pkg/database"
	"postspark_backend/pkg/utils/jwt"
)

var ledger *billing.Ledger

// InitCreditMiddleware wires the shared ledger instance constructed in main.
func InitCreditMiddleware(l *billing.Ledger) {
	ledger = l
}

// RequireCredits pre-flights an action against the credit ledger so requests
// that would be denied never reach the handler. Handlers still re-validate
// when they spend; this check only exists to fail fast with the reason.
func RequireCredits(action model.CreditAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)

		decision, err := ledger.CanPerformAction(claims.UserID, action)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not check credit balance",
			})
		}

		if !decision.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": decision.Reason,
			})
		}

		return c.Next()
	}
}

// CheckPostOwnership loads the scheduled post from the route param and
// rejects access by anyone but its owner.
func CheckPostOwnership() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		postID := c.Params("id")

		var post model.ScheduledPost
		if err := database.DB.First(&post, postID).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Post not found",
			})
		}

		if post.UserID != claims.UserID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this post",
			})
		}

		return c.Next()
	}
}
