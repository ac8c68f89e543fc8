// AngelaMos | 2026
// fakes_test.go

package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carterperez-dev/househelp-api/internal/core"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[core.Role]map[string]Identity
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[core.Role]map[string]Identity)}
}

func (m *memRepo) table(role core.Role) map[string]Identity {
	t, ok := m.rows[role]
	if !ok {
		t = make(map[string]Identity)
		m.rows[role] = t
	}
	return t
}

func (m *memRepo) conflict(i *Identity) error {
	for _, row := range m.table(i.Role) {
		if row.ID == i.ID {
			continue
		}
		if i.Email != "" && row.Email == i.Email {
			return &core.FieldConflict{Field: "email"}
		}
		if i.Phone != "" && row.Phone == i.Phone {
			return &core.FieldConflict{Field: "phone"}
		}
	}
	return nil
}

func (m *memRepo) Create(_ context.Context, identity *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.conflict(identity); err != nil {
		return fmt.Errorf("create %s: %w", identity.Role, err)
	}
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	m.table(identity.Role)[identity.ID] = *identity
	return nil
}

func (m *memRepo) find(role core.Role, match func(Identity) bool) (*Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, row := range m.table(role) {
		if match(row) {
			cp := row
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get %s: %w", role, core.ErrNotFound)
}

func (m *memRepo) GetByID(_ context.Context, role core.Role, id string) (*Identity, error) {
	return m.find(role, func(i Identity) bool { return i.ID == id })
}

func (m *memRepo) GetByEmail(_ context.Context, role core.Role, email string) (*Identity, error) {
	return m.find(role, func(i Identity) bool { return i.Email != "" && i.Email == email })
}

func (m *memRepo) GetByPhone(_ context.Context, role core.Role, phone string) (*Identity, error) {
	return m.find(role, func(i Identity) bool { return i.Phone != "" && i.Phone == phone })
}

func (m *memRepo) mutate(role core.Role, id string, fn func(*Identity)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.table(role)[id]
	if !ok {
		return core.ErrNotFound
	}
	fn(&row)
	row.UpdatedAt = time.Now()
	m.table(role)[id] = row
	return nil
}

func (m *memRepo) UpdateProfile(_ context.Context, identity *Identity) error {
	m.mu.Lock()
	err := m.conflict(identity)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.mutate(identity.Role, identity.ID, func(i *Identity) {
		i.Name = identity.Name
		i.Phone = identity.Phone
	})
}

func (m *memRepo) UpdatePassword(_ context.Context, role core.Role, id, hash string) error {
	return m.mutate(role, id, func(i *Identity) { i.PasswordHash = hash })
}

func (m *memRepo) UpdateStatus(_ context.Context, role core.Role, id string, status core.Status) error {
	return m.mutate(role, id, func(i *Identity) { i.Status = status })
}

func (m *memRepo) Activate(_ context.Context, role core.Role, id string) error {
	return m.mutate(role, id, func(i *Identity) {
		i.VerificationStatus = core.VerificationVerified
		if i.Status == core.StatusVerifying {
			i.Status = core.StatusActive
		}
	})
}

func (m *memRepo) MarkEmailVerified(_ context.Context, role core.Role, id string) error {
	return m.mutate(role, id, func(i *Identity) { i.VerificationStatus = core.VerificationVerified })
}

func (m *memRepo) List(_ context.Context, role core.Role, params ListParams) ([]Identity, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	params.Normalize()
	var out []Identity
	for _, row := range m.table(role) {
		if params.Status != "" && string(row.Status) != params.Status {
			continue
		}
		if params.Search != "" && !strings.Contains(row.Email+row.Name+row.Phone, params.Search) {
			continue
		}
		row.PasswordHash = ""
		out = append(out, row)
	}

	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (m *memRepo) Count(_ context.Context, role core.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table(role)), nil
}
