// AngelaMos | 2026
// memory.go

package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

// MemoryRepository keeps codes in process. WithTx restores the previous
// state when fn fails, so consumption hooks behave as they do against
// Postgres.
type MemoryRepository struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	codes []Code
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) WithTx(
	ctx context.Context,
	fn func(ctx context.Context, repo Repository) error,
) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	snapshot := make([]Code, len(r.codes))
	copy(snapshot, r.codes)
	r.mu.Unlock()

	if err := fn(ctx, r); err != nil {
		r.mu.Lock()
		r.codes = snapshot
		r.mu.Unlock()
		return err
	}

	return nil
}

func (r *MemoryRepository) InvalidateActive(
	_ context.Context,
	role core.Role,
	identifier string,
	purpose Purpose,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := r.now()
	for i := range r.codes {
		c := &r.codes[i]
		if c.Role == role && c.Identifier == identifier &&
			c.Purpose == purpose && !c.Used {
			c.Used = true
			c.UsedAt = &now
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Create(_ context.Context, code *Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.Role == code.Role && c.Identifier == code.Identifier &&
			c.Purpose == code.Purpose && !c.Used {
			return fmt.Errorf("create code: %w", core.ErrDuplicateKey)
		}
	}

	code.CreatedAt = r.now()
	r.codes = append(r.codes, *code)
	return nil
}

func (r *MemoryRepository) FindActive(
	_ context.Context,
	role core.Role,
	identifier, codeHash string,
	purpose Purpose,
) (*Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.codes) - 1; i >= 0; i-- {
		c := r.codes[i]
		if c.Role == role && c.Identifier == identifier &&
			c.CodeHash == codeHash && c.Purpose == purpose && !c.Used {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("find code: %w", core.ErrNotFound)
}

func (r *MemoryRepository) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for i := range r.codes {
		c := &r.codes[i]
		if c.ID == id && !c.Used {
			c.Used = true
			c.UsedAt = &now
			return nil
		}
	}
	return fmt.Errorf("mark code used: %w", core.ErrNotFound)
}

func (r *MemoryRepository) CountOutstanding(
	_ context.Context,
	now time.Time,
) (map[Purpose]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[Purpose]int)
	for _, c := range r.codes {
		if !c.Used && !c.IsExpired(now) {
			counts[c.Purpose]++
		}
	}
	return counts, nil
}

// Len reports how many rows have been stored, consumed ones included.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.codes)
}
