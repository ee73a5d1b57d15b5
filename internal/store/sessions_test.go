package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/wacapture/internal/domain"
)

func TestSessionGetBeforeFirstPairing(t *testing.T) {
	s := NewSessionStore(openTestDB(t))

	sess, err := s.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionUpsertKeepsSingleRow(t *testing.T) {
	gdb := openTestDB(t)
	s := NewSessionStore(gdb)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SessionPatch{Status: domain.SessionConnecting}))
	phone := "628123456789"
	require.NoError(t, s.Upsert(ctx, SessionPatch{
		Jid:         "628123456789:12@s.whatsapp.net",
		PhoneNumber: &phone,
		Status:      domain.SessionConnected,
	}))
	require.NoError(t, s.Upsert(ctx, SessionPatch{Status: domain.SessionDisconnected}))

	var count int64
	require.NoError(t, gdb.Model(&domain.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	sess, err := s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, domain.SessionDisconnected, sess.Status)
}

func TestSessionLastConnectedOnlyOnConnect(t *testing.T) {
	s := NewSessionStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, SessionPatch{Status: domain.SessionConnecting}))
	sess, err := s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Nil(t, sess.LastConnectedAt)

	require.NoError(t, s.Upsert(ctx, SessionPatch{Jid: "j", Status: domain.SessionConnected}))
	sess, err = s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess.LastConnectedAt)
	connectedAt := *sess.LastConnectedAt

	// A later disconnect keeps the last successful connection time.
	require.NoError(t, s.Upsert(ctx, SessionPatch{Status: domain.SessionDisconnected}))
	sess, err = s.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess.LastConnectedAt)
	assert.Equal(t, connectedAt.Unix(), sess.LastConnectedAt.Unix())
}

func TestSessionConcurrentUpserts(t *testing.T) {
	gdb := openTestDB(t)
	s := NewSessionStore(gdb)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Upsert(context.Background(), SessionPatch{Status: domain.SessionConnecting})
		}()
	}
	wg.Wait()

	var count int64
	require.NoError(t, gdb.Model(&domain.Session{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
