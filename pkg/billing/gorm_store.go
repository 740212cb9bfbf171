package billing

import (
	"errors"

	"gorm.io/gorm"

	"postspark_backend/internal/model"
)

// GormStore persists billing aggregates as one row per user, with the
// subscription and transaction history in JSON columns.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Load(userID uint) (*model.UserBilling, error) {
	var billing model.UserBilling
	err := s.db.Where("user_id = ?", userID).First(&billing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &billing, nil
}

func (s *GormStore) Save(billing *model.UserBilling) error {
	return s.db.Save(billing).Error
}
