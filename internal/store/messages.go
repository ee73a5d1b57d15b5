package store

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/talkincode/wacapture/internal/domain"
	"github.com/talkincode/wacapture/pkg/common"
)

// groupWindow bounds how many recent group messages ListGroups scans.
const groupWindow = 1000

// SearchQuery holds the optional message search filters. Filters combine
// with AND across categories; the free-text Search term ORs across content,
// sender name and group name.
type SearchQuery struct {
	Search    string
	GroupName string
	Sender    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
	Offset    int
}

// MessageStore persists normalized messages and serves the search API.
type MessageStore struct {
	db       *gorm.DB
	contacts *ContactStore
}

func NewMessageStore(db *gorm.DB, contacts *ContactStore) *MessageStore {
	return &MessageStore{db: db, contacts: contacts}
}

// Save resolves the sender contact and inserts the message row linked to it.
func (s *MessageStore) Save(ctx context.Context, msg *domain.Message) error {
	contact, err := s.contacts.Resolve(ctx, msg.SenderNumber, msg.SenderName)
	if err != nil {
		return errors.Wrap(err, "resolve sender contact")
	}
	msg.ContactID = contact.ID
	msg.SenderNumber = contact.WhatsappNumber
	if msg.ID == 0 {
		msg.ID = common.UUIDint64()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return errors.Wrap(s.db.WithContext(ctx).Create(msg).Error, "insert message")
}

// likeClause builds a case-insensitive substring match for the active
// dialect: ILIKE on postgres, LOWER LIKE elsewhere.
func likeClause(db *gorm.DB, column string) (string, func(term string) string) {
	if strings.EqualFold(db.Name(), "postgres") {
		return column + " ILIKE ?", func(term string) string { return "%" + term + "%" }
	}
	return "LOWER(" + column + ") LIKE ?", func(term string) string { return "%" + strings.ToLower(term) + "%" }
}

// Search returns one page of matches ordered newest-first plus the total
// match count unaffected by pagination. Each row carries its resolved
// contact so callers get the wa.me link and name without a second query.
func (s *MessageStore) Search(ctx context.Context, q SearchQuery) ([]domain.Message, int64, error) {
	db := s.db.WithContext(ctx).Model(&domain.Message{})

	if term := strings.TrimSpace(q.Search); term != "" {
		contentExpr, contentArg := likeClause(s.db, "content")
		senderExpr, senderArg := likeClause(s.db, "sender_name")
		groupExpr, groupArg := likeClause(s.db, "group_name")
		db = db.Where(contentExpr+" OR "+senderExpr+" OR "+groupExpr,
			contentArg(term), senderArg(term), groupArg(term))
	}
	if term := strings.TrimSpace(q.GroupName); term != "" {
		expr, arg := likeClause(s.db, "group_name")
		db = db.Where(expr, arg(term))
	}
	if term := strings.TrimSpace(q.Sender); term != "" {
		numberExpr, numberArg := likeClause(s.db, "sender_number")
		nameExpr, nameArg := likeClause(s.db, "sender_name")
		db = db.Where(numberExpr+" OR "+nameExpr, numberArg(term), nameArg(term))
	}
	if q.DateFrom != nil {
		db = db.Where("timestamp >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		db = db.Where("timestamp <= ?", *q.DateTo)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count messages")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var messages []domain.Message
	err := db.Preload("Contact").
		Order("timestamp DESC").Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "query messages")
	}
	return messages, total, nil
}

// ListGroups returns the distinct non-null group names seen across the most
// recent group messages, each name once.
func (s *MessageStore) ListGroups(ctx context.Context) ([]string, error) {
	var rows []domain.Message
	err := s.db.WithContext(ctx).
		Select("group_name").
		Where("is_group = ? AND group_name IS NOT NULL", true).
		Order("timestamp DESC").
		Limit(groupWindow).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query group messages")
	}
	seen := make(map[string]bool, len(rows))
	groups := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.GroupName == nil || *row.GroupName == "" {
			continue
		}
		if seen[*row.GroupName] {
			continue
		}
		seen[*row.GroupName] = true
		groups = append(groups, *row.GroupName)
	}
	return groups, nil
}

// PurgeOlderThan deletes messages past the retention window. Contacts are
// kept; only message rows age out.
func (s *MessageStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&domain.Message{})
	return res.RowsAffected, errors.Wrap(res.Error, "purge messages")
}
