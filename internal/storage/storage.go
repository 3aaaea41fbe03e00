// Package storage journals check outcomes for operators. It is write-mostly: the
// status client never reads from it.
package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/zosmf-probe/internal/domain"
)

// Store keeps a bounded, expiring history of check outcomes per profile.
type Store interface {
	Close() error
	Record(outcome domain.CheckOutcome) error
	// Last returns the newest unexpired outcome for profile.
	Last(profile string) (domain.CheckOutcome, bool, error)
	// History returns up to limit unexpired outcomes for profile, newest first.
	History(profile string, limit int) ([]domain.CheckOutcome, error)
}

// Options controls retention.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
	MaxHistory      int
}

const (
	defaultEntryTTL        = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
	defaultMaxHistory      = 100
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = defaultMaxHistory
	}

	switch strings.TrimSpace(strings.ToLower(typ)) {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Record(domain.CheckOutcome) error { return nil }
func (noopStore) Last(string) (domain.CheckOutcome, bool, error) {
	return domain.CheckOutcome{}, false, nil
}
func (noopStore) History(string, int) ([]domain.CheckOutcome, error) { return nil, nil }
