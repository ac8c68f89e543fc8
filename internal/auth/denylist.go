// AngelaMos | 2026
// denylist.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/kv"
	"github.com/carterperez-dev/househelp-api/internal/middleware"
)

const denylistPrefix = "denylist:"

// Denylist records logged-out token ids until the token would have expired
// anyway. It is consulted on sensitive routes only.
type Denylist struct {
	store kv.Store
	now   func() time.Time
}

func NewDenylist(store kv.Store) *Denylist {
	return &Denylist{store: store, now: time.Now}
}

func (d *Denylist) WithClock(now func() time.Time) *Denylist {
	d.now = now
	return d
}

func (d *Denylist) Revoke(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil || claims.TokenID == "" {
		return nil
	}

	ttl := claims.ExpiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	if err := d.store.Set(ctx, denylistPrefix+claims.TokenID, []byte{1}, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	_, ok, err := d.store.Get(ctx, denylistPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}
	return ok, nil
}

var _ middleware.Denylist = (*Denylist)(nil)
