package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/talkincode/wacapture/internal/domain"
)

// SessionPatch carries the fields written on a status transition. A nil
// PhoneNumber or empty Jid overwrites the stored value, so a disconnect
// patch wipes the pairing identity.
type SessionPatch struct {
	Jid         string
	PhoneNumber *string
	Status      string
}

// SessionStore persists the singleton WhatsApp session row.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Get returns the session row, or nil when the device was never paired.
func (s *SessionStore) Get(ctx context.Context) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.WithContext(ctx).Where("id = ?", domain.SessionRecordID).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query session")
	}
	return &sess, nil
}

// Upsert writes the session row keyed to the fixed record id. The insert
// carries the fixed key and conflicts resolve to an update, so two concurrent
// writers can never produce two rows. last_connected_at only advances when
// the new status is connected.
func (s *SessionStore) Upsert(ctx context.Context, patch SessionPatch) error {
	now := time.Now()
	sess := domain.Session{
		ID:          domain.SessionRecordID,
		Jid:         patch.Jid,
		PhoneNumber: patch.PhoneNumber,
		Status:      patch.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	assignments := map[string]interface{}{
		"jid":          patch.Jid,
		"phone_number": patch.PhoneNumber,
		"status":       patch.Status,
		"updated_at":   now,
	}
	if patch.Status == domain.SessionConnected {
		sess.LastConnectedAt = &now
		assignments["last_connected_at"] = &now
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&sess).Error
	return errors.Wrap(err, "upsert session")
}
