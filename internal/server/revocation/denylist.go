// Package revocation keeps a denylist of revoked token ids in the key-value store.
// Entries live only as long as the token they revoke.
package revocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/nautilus/internal/server/storage"
)

// KeyPrefix is the key namespace of denylist entries: revoked:<jti>
const KeyPrefix = "revoked:"

type entry struct {
	ExpiresAt time.Time `json:"expiresAt"`
}

// Denylist implements jwt.Denylist on top of storage.Store
type Denylist struct {
	store storage.Store
	now   func() time.Time
}

// New creates a denylist. A nil clock means time.Now.
func New(store storage.Store, now func() time.Time) *Denylist {
	if now == nil {
		now = time.Now
	}
	return &Denylist{store: store, now: now}
}

// Revoke stores jti until expiresAt. Already expired tokens are skipped.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return fmt.Errorf("token id cannot be empty")
	}
	if !d.now().Before(expiresAt) {
		return nil
	}

	data, err := json.Marshal(entry{ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal denylist entry: %w", err)
	}

	if err := d.store.Put(ctx, KeyPrefix+jti, data); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is on the list and not yet expired
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	data, err := d.store.Get(ctx, KeyPrefix+jti)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read denylist entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Повреждённая запись: считаем токен отозванным
		return true, nil
	}

	return d.now().Before(e.ExpiresAt), nil
}

// Purge removes expired and unreadable entries and returns how many were removed
func (d *Denylist) Purge(ctx context.Context) (int, error) {
	keys, err := d.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to list denylist: %w", err)
	}

	now := d.now()
	removed := 0
	for _, key := range keys {
		data, err := d.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("failed to read denylist entry: %w", err)
		}

		var e entry
		if err := json.Unmarshal(data, &e); err == nil && now.Before(e.ExpiresAt) {
			continue
		}

		if err := d.store.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("failed to delete denylist entry: %w", err)
		}
		removed++
	}

	return removed, nil
}
