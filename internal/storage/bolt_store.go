package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Layout: root bucket "checks" holds one nested bucket per profile. Keys inside a
// profile bucket are the big-endian CheckedAt in unix nanoseconds, so cursor order is
// time order; values are the JSON outcome.
var rootBucket = []byte("checks")

var errNoRoot = errors.New("checks bucket missing")

type boltStore struct {
	db   *bolt.DB
	opts Options
	now  func() time.Time

	cleanupMu   sync.Mutex
	lastCleanup time.Time
}

func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &boltStore{db: db, opts: opts, now: time.Now, lastCleanup: time.Now()}, nil
}

func (b *boltStore) Close() error {
	return b.db.Close()
}

// Record appends outcome to its profile history and trims the history to MaxHistory.
func (b *boltStore) Record(outcome domain.CheckOutcome) error {
	if outcome.Profile == "" {
		return fmt.Errorf("outcome has no profile")
	}
	if outcome.CheckedAt.IsZero() {
		outcome.CheckedAt = b.now().UTC()
	}
	if err := b.maybeCleanup(); err != nil {
		return err
	}

	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return errNoRoot
		}
		hist, err := root.CreateBucketIfNotExists([]byte(outcome.Profile))
		if err != nil {
			return fmt.Errorf("profile bucket %q: %w", outcome.Profile, err)
		}

		key := timeKey(outcome.CheckedAt)
		for hist.Get(key) != nil {
			// Same-nanosecond collision; step forward to keep every record.
			key = timeKey(keyTime(key).Add(time.Nanosecond))
		}
		if err := hist.Put(key, payload); err != nil {
			return err
		}

		var keys [][]byte
		c := hist.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		if excess := len(keys) - b.opts.MaxHistory; excess > 0 {
			return deleteKeys(hist, keys[:excess])
		}
		return nil
	})
}

func (b *boltStore) Last(profile string) (domain.CheckOutcome, bool, error) {
	hist, err := b.History(profile, 1)
	if err != nil || len(hist) == 0 {
		return domain.CheckOutcome{}, false, err
	}
	return hist[0], true, nil
}

func (b *boltStore) History(profile string, limit int) ([]domain.CheckOutcome, error) {
	cutoff := b.now().Add(-b.opts.EntryTTL)
	var out []domain.CheckOutcome
	err := b.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return errNoRoot
		}
		hist := root.Bucket([]byte(profile))
		if hist == nil {
			return nil
		}

		c := hist.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) >= limit {
				break
			}
			if !keyTime(k).After(cutoff) {
				break
			}
			var o domain.CheckOutcome
			if err := json.Unmarshal(v, &o); err != nil {
				return fmt.Errorf("decode outcome for %q: %w", profile, err)
			}
			out = append(out, o)
		}
		return nil
	})
	return out, err
}

// maybeCleanup drops expired records and empty profile buckets once per CleanupInterval.
func (b *boltStore) maybeCleanup() error {
	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	now := b.now()
	if now.Sub(b.lastCleanup) < b.opts.CleanupInterval {
		return nil
	}
	cutoff := now.Add(-b.opts.EntryTTL)

	err := b.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		if root == nil {
			return errNoRoot
		}

		var names [][]byte
		if err := root.ForEachBucket(func(name []byte) error {
			names = append(names, append([]byte(nil), name...))
			return nil
		}); err != nil {
			return err
		}

		for _, name := range names {
			hist := root.Bucket(name)
			var expired [][]byte
			c := hist.Cursor()
			k, _ := c.First()
			for ; k != nil && !keyTime(k).After(cutoff); k, _ = c.Next() {
				expired = append(expired, append([]byte(nil), k...))
			}
			if k == nil {
				if err := root.DeleteBucket(name); err != nil {
					return err
				}
				continue
			}
			if err := deleteKeys(hist, expired); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup = now
	}
	return err
}

func deleteKeys(bucket *bolt.Bucket, keys [][]byte) error {
	for _, k := range keys {
		if err := bucket.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func timeKey(t time.Time) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(t.UnixNano()))
	return key
}

func keyTime(key []byte) time.Time {
	if len(key) != 8 {
		return time.Time{}
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(key)))
}
