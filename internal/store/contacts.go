package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/pkg/common"
)

// ContactStore deduplicates senders by normalized phone number.
type ContactStore struct {
	db *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{db: db}
}

// Resolve finds or creates the contact for a sender number. The number is
// digit-normalized before lookup so formatting variants map to one row.
// An existing non-null name is never overwritten with null; last_seen_at
// advances on every call.
func (s *ContactStore) Resolve(ctx context.Context, number string, name *string) (*domain.Contact, error) {
	normalized := common.NormalizeNumber(number)
	if normalized == "" {
		return nil, errors.New("contact number has no digits")
	}
	now := time.Now()

	var existing domain.Contact
	err := s.db.WithContext(ctx).Where("whatsapp_number = ?", normalized).First(&existing).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"last_seen_at": now}
		if name != nil && *name != "" {
			updates["name"] = *name
		}
		if err := s.db.WithContext(ctx).Model(&domain.Contact{}).
			Where("id = ?", existing.ID).Updates(updates).Error; err != nil {
			return nil, errors.Wrap(err, "update contact")
		}
		if name != nil && *name != "" {
			existing.Name = name
		}
		existing.LastSeenAt = now
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		contact := domain.Contact{
			ID:             common.UUIDint64(),
			WhatsappNumber: normalized,
			Name:           name,
			WaLink:         fmt.Sprintf("https://wa.me/%s", normalized),
			FirstSeenAt:    now,
			LastSeenAt:     now,
			CreatedAt:      now,
		}
		if err := s.db.WithContext(ctx).Create(&contact).Error; err != nil {
			return nil, errors.Wrap(err, "create contact")
		}
		return &contact, nil
	default:
		return nil, errors.Wrap(err, "query contact")
	}
}
