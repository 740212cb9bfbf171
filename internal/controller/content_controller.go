package controller

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/utils/jwt"
)

type ContentActionInput struct {
	Title string `json:"title"`
}

// spendForAction is the shared billing boundary for content features: debit
// the ledger for the action or reject with the denial reason. The generation
// itself happens client-side; this service only meters it.
func spendForAction(c *fiber.Ctx, action model.CreditAction, description string) error {
	claims := c.Locals("user").(*jwt.Claims)

	ok, err := ledger.SpendCredits(claims.UserID, action, description)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record credit usage",
		})
	}

	if !ok {
		decision, derr := ledger.CanPerformAction(claims.UserID, action)
		if derr != nil || decision.Allowed {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Action not allowed",
			})
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": decision.Reason,
		})
	}

	userBilling, err := ledger.GetOrCreateBilling(claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch billing information",
		})
	}

	return c.JSON(fiber.Map{
		"message":            "Usage recorded",
		"credits":            userBilling.Credits,
		"monthly_posts_used": userBilling.MonthlyPostsUsed,
	})
}

func describe(c *fiber.Ctx, verb string) string {
	input := new(ContentActionInput)
	if err := c.BodyParser(input); err != nil || input.Title == "" {
		return verb
	}
	return fmt.Sprintf("%s: %s", verb, input.Title)
}

// RecordGeneration meters an AI post generation.
func RecordGeneration(c *fiber.Ctx) error {
	return spendForAction(c, model.ActionAIGeneration, describe(c, "AI post generation"))
}

// RecordEnhancement meters an AI enhancement pass.
func RecordEnhancement(c *fiber.Ctx) error {
	return spendForAction(c, model.ActionAIEnhance, describe(c, "AI enhancement"))
}

// RecordCarousel meters a carousel generation.
func RecordCarousel(c *fiber.Ctx) error {
	return spendForAction(c, model.ActionCarouselGen, describe(c, "Carousel generation"))
}

// RecordExport meters a PDF export.
func RecordExport(c *fiber.Ctx) error {
	return spendForAction(c, model.ActionExportPDF, describe(c, "PDF export"))
}
