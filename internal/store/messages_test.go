package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/wacapture/internal/domain"
)

func newMessageStore(t *testing.T) *MessageStore {
	gdb := openTestDB(t)
	return NewMessageStore(gdb, NewContactStore(gdb))
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 12, 0, 0, 0, time.UTC)
}

func seedListingFixtures(t *testing.T, s *MessageStore) {
	seedMessage(t, s, domain.Message{
		MessageID:    "m1",
		Content:      strptr("2BR apartment for rent in Kemang"),
		SenderNumber: "628111111111",
		SenderName:   strptr("Agent Rina"),
		GroupName:    strptr("Jakarta Housing"),
		GroupID:      strptr("1111@g.us"),
		IsGroup:      true,
		MessageType:  domain.MsgTypeText,
		Timestamp:    day(10),
	})
	seedMessage(t, s, domain.Message{
		MessageID:    "m2",
		Content:      strptr("studio available near campus"),
		SenderNumber: "628222222222",
		SenderName:   strptr("Budi"),
		GroupName:    strptr("Bandung Kost Info"),
		GroupID:      strptr("2222@g.us"),
		IsGroup:      true,
		MessageType:  domain.MsgTypeText,
		Timestamp:    day(15),
	})
	seedMessage(t, s, domain.Message{
		MessageID:    "m3",
		Content:      strptr("house photos attached"),
		SenderNumber: "628111111111",
		SenderName:   strptr("Agent Rina"),
		GroupName:    strptr("Jakarta Housing"),
		GroupID:      strptr("1111@g.us"),
		IsGroup:      true,
		MessageType:  domain.MsgTypeImage,
		Timestamp:    day(20),
	})
	seedMessage(t, s, domain.Message{
		MessageID:    "m4",
		Content:      strptr("is the apartment still free?"),
		SenderNumber: "628333333333",
		IsGroup:      false,
		MessageType:  domain.MsgTypeText,
		Timestamp:    day(25),
	})
}

func TestSaveLinksContact(t *testing.T) {
	s := newMessageStore(t)
	msg := domain.Message{
		MessageID:    "m1",
		Content:      strptr("hello"),
		SenderNumber: "+62 811-111-1111",
		SenderName:   strptr("Rina"),
		MessageType:  domain.MsgTypeText,
		Timestamp:    day(1),
	}
	require.NoError(t, s.Save(context.Background(), &msg))

	assert.NotZero(t, msg.ID)
	assert.NotZero(t, msg.ContactID)
	assert.Equal(t, "628111111111", msg.SenderNumber)

	var contact domain.Contact
	require.NoError(t, s.db.First(&contact, "id = ?", msg.ContactID).Error)
	assert.Equal(t, "628111111111", contact.WhatsappNumber)
}

func TestSearchFreeText(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	// Case-insensitive over content, sender name and group name.
	results, total, err := s.Search(context.Background(), SearchQuery{Search: "APARTMENT"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, results, 2)

	results, _, err = s.Search(context.Background(), SearchQuery{Search: "rina"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, _, err = s.Search(context.Background(), SearchQuery{Search: "kost"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m2", results[0].MessageID)
}

func TestSearchFilters(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)
	ctx := context.Background()

	results, total, err := s.Search(ctx, SearchQuery{GroupName: "jakarta"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)

	results, _, err = s.Search(ctx, SearchQuery{Sender: "628222222222"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m2", results[0].MessageID)

	results, _, err = s.Search(ctx, SearchQuery{Sender: "budi"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m2", results[0].MessageID)
}

func TestSearchEmbedsContact(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	results, _, err := s.Search(context.Background(), SearchQuery{Sender: "628111111111"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, msg := range results {
		require.NotNil(t, msg.Contact)
		assert.Equal(t, msg.ContactID, msg.Contact.ID)
		assert.Equal(t, "628111111111", msg.Contact.WhatsappNumber)
		assert.Equal(t, "https://wa.me/628111111111", msg.Contact.WaLink)
	}
}

func TestSearchFreeTextCombinesWithDateFilter(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	// "apartment" matches m1 (day 10) and m4 (day 25); the date bound must
	// apply to the whole free-text OR group, not just its last branch.
	from := day(15)
	results, total, err := s.Search(context.Background(), SearchQuery{
		Search:   "apartment",
		DateFrom: &from,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, "m4", results[0].MessageID)
}

func TestSearchDateRangeInclusive(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	from := day(15)
	to := day(20)
	results, total, err := s.Search(context.Background(), SearchQuery{DateFrom: &from, DateTo: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	ids := []string{results[0].MessageID, results[1].MessageID}
	assert.ElementsMatch(t, []string{"m2", "m3"}, ids)
}

func TestSearchPaginationAndOrder(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)
	ctx := context.Background()

	page1, total, err := s.Search(ctx, SearchQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page1, 2)
	assert.Equal(t, "m4", page1[0].MessageID)
	assert.Equal(t, "m3", page1[1].MessageID)

	page2, total, err := s.Search(ctx, SearchQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page2, 2)
	assert.Equal(t, "m2", page2[0].MessageID)
	assert.Equal(t, "m1", page2[1].MessageID)
}

func TestListGroupsDedupes(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	groups, err := s.ListGroups(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Jakarta Housing", "Bandung Kost Info"}, groups)
}

func TestPurgeOlderThan(t *testing.T) {
	s := newMessageStore(t)
	seedListingFixtures(t, s)

	purged, err := s.PurgeOlderThan(context.Background(), day(16))
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	_, total, err := s.Search(context.Background(), SearchQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Contacts survive the purge.
	var contacts int64
	require.NoError(t, s.db.Model(&domain.Contact{}).Count(&contacts).Error)
	assert.Equal(t, int64(3), contacts)
}
