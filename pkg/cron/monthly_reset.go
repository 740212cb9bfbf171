package cron

import (
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"postspark_backend/internal/model"
	"postspark_backend/pkg/billing"
	"postspark_backend/pkg/database"
)

// InitMonthlyResetCron runs the ledger's monthly rollover for every billing
// record once a day. Users also get checked on session bootstrap; the sweep
// covers accounts that haven't logged in across a month boundary.
func InitMonthlyResetCron(ledger *billing.Ledger) {
	c := cron.New()

	_, err := c.AddFunc("0 9 * * *", func() {
		runMonthlyResets(ledger)
	})

	if err != nil {
		log.Errorf("Could not initialize monthly reset cron: %v", err)
		return
	}

	c.Start()
}

func runMonthlyResets(ledger *billing.Ledger) {
	log.Info("Running monthly billing resets...")

	var userIDs []uint
	if err := database.DB.Model(&model.UserBilling{}).
		Pluck("user_id", &userIDs).Error; err != nil {
		log.Errorf("Error fetching billing records: %v", err)
		return
	}

	reset := 0
	for _, userID := range userIDs {
		if err := ledger.CheckMonthlyReset(userID); err != nil {
			log.Errorf("Monthly reset failed for user %d: %v", userID, err)
			continue
		}
		reset++
	}

	log.Infof("Monthly reset check completed for %d users", reset)
}
