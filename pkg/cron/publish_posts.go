package cron

import (
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/database"
)

// InitPublisherCron checks every minute for scheduled posts that are due and
// marks them published. Actual delivery to the social platforms happens
// out-of-band; this job owns the status transition.
func InitPublisherCron() {
	c := cron.New()

	_, err := c.AddFunc("* * * * *", func() {
		publishDuePosts()
	})

	if err != nil {
		log.Errorf("Could not initialize publisher cron: %v", err)
		return
	}

	c.Start()
}

func publishDuePosts() {
	var posts []model.ScheduledPost
	err := database.DB.
		Where("status = ? AND scheduled_at <= ?", model.PostStatusScheduled, time.Now()).
		Find(&posts).Error
	if err != nil {
		log.Errorf("Error fetching due posts: %v", err)
		return
	}

	for _, post := range posts {
		updates := map[string]interface{}{
			"status":            model.PostStatusPublished,
			"published_post_id": uuid.NewString(),
		}

		if err := database.DB.Model(&post).Updates(updates).Error; err != nil {
			log.Errorf("Could not mark post %d published: %v", post.ID, err)
			database.DB.Model(&post).Update("status", model.PostStatusFailed)
			continue
		}

		log.Infof("Post %d published to %s", post.ID, post.Platform)
	}
}
