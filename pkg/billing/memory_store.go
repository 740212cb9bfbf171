package billing

import (
	"sync"

	"postspark_backend/internal/model"
)

// MemoryStore keeps billing aggregates in a map. Used by tests and anything
// running without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uint]model.UserBilling
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uint]model.UserBilling)}
}

func (s *MemoryStore) Load(userID uint) (*model.UserBilling, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, nil
	}

	// Copy the history slice so callers never alias stored state.
	record.BillingHistory = append(record.BillingHistory[:0:0], record.BillingHistory...)
	return &record, nil
}

func (s *MemoryStore) Save(billing *model.UserBilling) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if billing.ID == 0 {
		s.nextID++
		billing.ID = s.nextID
	}

	record := *billing
	record.BillingHistory = append(record.BillingHistory[:0:0], record.BillingHistory...)
	s.records[billing.UserID] = record
	return nil
}
