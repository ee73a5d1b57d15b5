// Package sessioncache keeps a local snapshot of the paired WhatsApp
// identity in a bbolt file under the application workdir. The snapshot lets
// the status API answer immediately after a restart, and an explicit logout
// must wipe it together with the remote session record.
package sessioncache

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("wa_session")
	snapKey    = []byte("snapshot")
)

// Snapshot is the locally cached pairing identity.
type Snapshot struct {
	Jid         string    `json:"jid"`
	PhoneNumber string    `json:"phone_number"`
	PairedAt    time.Time `json:"paired_at"`
}

type Cache struct {
	db *bolt.DB
}

// Open opens (or creates) the cache file.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "open session cache")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "init session cache bucket")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Save stores the snapshot, replacing any previous one.
func (c *Cache) Save(snap Snapshot) error {
	data, err := jsoniter.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshal session snapshot")
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(snapKey, data)
	})
}

// Get returns the cached snapshot, or nil if none is stored.
func (c *Cache) Get() (*Snapshot, error) {
	var snap *Snapshot
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketName).Get(snapKey)
		if data == nil {
			return nil
		}
		snap = new(Snapshot)
		return jsoniter.Unmarshal(data, snap)
	})
	if err != nil {
		return nil, errors.Wrap(err, "read session snapshot")
	}
	return snap, nil
}

// Clear removes the snapshot. Called on explicit logout.
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(snapKey)
	})
}
