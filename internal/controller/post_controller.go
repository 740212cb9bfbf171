package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/database"
	"postspark_backend/pkg/utils/jwt"
	"postspark_backend/pkg/utils/validation"
)

type SchedulePostInput struct {
	Title       string    `json:"title" validate:"required"`
	Content     string    `json:"content" validate:"required"`
	Platform    string    `json:"platform" validate:"required,oneof=linkedin twitter facebook instagram"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// SchedulePost stores a post for later publishing. Scheduling is a billable
// action: the ledger debit happens first and nothing is stored on denial.
func SchedulePost(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(SchedulePostInput)
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

	if input.ScheduledAt.Before(time.Now()) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Scheduled time must be in the future",
		})
	}

	ok, err := ledger.SpendCredits(claims.UserID, model.ActionSchedulePost, "Scheduled post: "+input.Title)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not record credit usage",
		})
	}
	if !ok {
		decision, derr := ledger.CanPerformAction(claims.UserID, model.ActionSchedulePost)
		reason := "Action not allowed"
		if derr == nil && !decision.Allowed {
			reason = decision.Reason
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": reason,
		})
	}

	post := model.ScheduledPost{
		UserID:      claims.UserID,
		Title:       input.Title,
		Content:     input.Content,
		Platform:    model.Platform(input.Platform),
		ScheduledAt: input.ScheduledAt,
		Status:      model.PostStatusScheduled,
	}

	if err := database.GetDB().Create(&post).Error; err != nil {
		log.Errorf("Could not store scheduled post for user %d: %v", claims.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not schedule post",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post scheduled successfully",
		"post":    post,
	})
}

// ListMyPosts returns the user's scheduled posts, soonest first.
func ListMyPosts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var posts []model.ScheduledPost
	if err := database.GetDB().Where("user_id = ?", claims.UserID).
		Order("scheduled_at asc").Find(&posts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch posts",
		})
	}

	return c.JSON(fiber.Map{
		"posts": posts,
	})
}

// ListUpcomingPosts returns posts still scheduled within the next 7 days.
func ListUpcomingPosts(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	now := time.Now()
	nextWeek := now.AddDate(0, 0, 7)

	var posts []model.ScheduledPost
	if err := database.GetDB().
		Where("user_id = ? AND status = ? AND scheduled_at BETWEEN ? AND ?",
			claims.UserID, model.PostStatusScheduled, now, nextWeek).
		Order("scheduled_at asc").Find(&posts).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch posts",
		})
	}

	return c.JSON(fiber.Map{
		"posts": posts,
	})
}

// CancelPost marks a scheduled post cancelled. Already-published posts stay
// as they are.
func CancelPost(c *fiber.Ctx) error {
	postID := c.Params("id")

	var post model.ScheduledPost
	if err := database.GetDB().First(&post, postID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Post not found",
		})
	}

	if post.Status != model.PostStatusScheduled {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only scheduled posts can be cancelled",
		})
	}

	if err := database.GetDB().Model(&post).Update("status", model.PostStatusCancelled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not cancel post",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Post cancelled successfully",
	})
}
