package sessioncache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveGetClear(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer cache.Close()

	snap, err := cache.Get()
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := Snapshot{
		Jid:         "628123456789:12@s.whatsapp.net",
		PhoneNumber: "628123456789",
		PairedAt:    time.Now().Truncate(time.Second),
	}
	require.NoError(t, cache.Save(want))

	snap, err = cache.Get()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, want.Jid, snap.Jid)
	assert.Equal(t, want.PhoneNumber, snap.PhoneNumber)
	assert.True(t, want.PairedAt.Equal(snap.PairedAt))

	require.NoError(t, cache.Clear())
	snap, err = cache.Get()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestSaveReplacesPrevious(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Save(Snapshot{Jid: "old@s.whatsapp.net"}))
	require.NoError(t, cache.Save(Snapshot{Jid: "new@s.whatsapp.net"}))

	snap, err := cache.Get()
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "new@s.whatsapp.net", snap.Jid)
}
