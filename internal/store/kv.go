package store

import (
	"context"
	"errors"
	"fmt"
)

// Well-known logical keys. Each maps to one opaque stored object.
const (
	KeyTransactions       = "transactions"
	KeyBudgets            = "budgets"
	ConversationKeyPrefix = "conversations/"
)

var (
	// ErrKeyNotFound is returned by Get for a key that has never been written.
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrRevisionMismatch is returned by Put when the expected revision does
	// not match the current one, i.e. a concurrent writer got there first.
	ErrRevisionMismatch = errors.New("store: revision mismatch")
)

// KV is a fixed-key get/put store holding opaque values. Every value carries
// a monotonically increasing revision; Put succeeds only when the caller
// presents the revision it read, which makes read-modify-write updates safe
// under concurrent writers. A missing key has revision 0.
type KV interface {
	// Get returns the stored bytes and their revision, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, int64, error)

	// Put writes data if the key's current revision equals expectedRev
	// (0 for a key that must not exist yet). Returns the new revision or
	// ErrRevisionMismatch.
	Put(ctx context.Context, key string, data []byte, expectedRev int64) (int64, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// maxUpdateAttempts bounds the CAS retry loop in Update.
const maxUpdateAttempts = 5

// Update performs an atomic read-modify-write of a single key: it reads the
// current value, applies fn, and writes the result back conditioned on the
// revision it read, retrying on conflict. fn receives nil when the key does
// not exist yet.
func Update(ctx context.Context, kv KV, key string, fn func(old []byte) ([]byte, error)) error {
	var lastErr error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		old, rev, err := kv.Get(ctx, key)
		if err != nil && !errors.Is(err, ErrKeyNotFound) {
			return fmt.Errorf("update %q: read: %w", key, err)
		}

		updated, err := fn(old)
		if err != nil {
			return err
		}

		if _, err := kv.Put(ctx, key, updated, rev); err != nil {
			if errors.Is(err, ErrRevisionMismatch) {
				lastErr = err
				continue
			}
			return fmt.Errorf("update %q: write: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("update %q: gave up after %d attempts: %w", key, maxUpdateAttempts, lastErr)
}
