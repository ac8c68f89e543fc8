// AngelaMos | 2026
// fakes_test.go

package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/househelp-api/internal/config"
	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/kv"
	"github.com/carterperez-dev/househelp-api/internal/notify"
	"github.com/carterperez-dev/househelp-api/internal/otp"
	"github.com/carterperez-dev/househelp-api/internal/ratelimit"
)

type memIdentities struct {
	mu   sync.Mutex
	byID map[string]*IdentityInfo
}

func newMemIdentities() *memIdentities {
	return &memIdentities{byID: make(map[string]*IdentityInfo)}
}

func (m *memIdentities) NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	switch {
	case strings.HasPrefix(digits, "250") && len(digits) == 12:
		return "+" + digits, nil
	case strings.HasPrefix(digits, "07") && len(digits) == 10:
		return "+250" + digits[1:], nil
	}
	return "", fmt.Errorf("normalize phone: %w", core.ErrInvalidInput)
}

func (m *memIdentities) GetByLogin(_ context.Context, role core.Role, login string) (*IdentityInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !strings.Contains(login, "@") {
		phone, err := m.NormalizePhone(login)
		if err != nil {
			return nil, core.ErrNotFound
		}
		login = phone
	}

	for _, i := range m.byID {
		if i.Role == role && (strings.EqualFold(i.Email, login) || i.Phone == login) {
			cp := *i
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get by login: %w", core.ErrNotFound)
}

func (m *memIdentities) GetByID(_ context.Context, role core.Role, id string) (*IdentityInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[id]
	if !ok || i.Role != role {
		return nil, fmt.Errorf("get by id: %w", core.ErrNotFound)
	}
	cp := *i
	return &cp, nil
}

func (m *memIdentities) Create(_ context.Context, in NewIdentity) (*IdentityInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, i := range m.byID {
		if i.Role != in.Role {
			continue
		}
		if in.Email != "" && strings.EqualFold(i.Email, in.Email) {
			return nil, &core.FieldConflict{Field: "email"}
		}
		if i.Phone == in.Phone {
			return nil, &core.FieldConflict{Field: "phone"}
		}
	}

	i := &IdentityInfo{
		ID:                 uuid.New().String(),
		Email:              in.Email,
		Phone:              in.Phone,
		Name:               in.Name,
		Role:               in.Role,
		PasswordHash:       in.PasswordHash,
		Status:             core.StatusVerifying,
		VerificationStatus: core.VerificationPending,
	}
	m.byID[i.ID] = i
	cp := *i
	return &cp, nil
}

func (m *memIdentities) update(role core.Role, id string, fn func(*IdentityInfo)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[id]
	if !ok || i.Role != role {
		return core.ErrNotFound
	}
	fn(i)
	return nil
}

func (m *memIdentities) UpdatePassword(_ context.Context, role core.Role, id, hash string) error {
	return m.update(role, id, func(i *IdentityInfo) { i.PasswordHash = hash })
}

func (m *memIdentities) Activate(_ context.Context, role core.Role, id string) error {
	return m.update(role, id, func(i *IdentityInfo) {
		i.VerificationStatus = core.VerificationVerified
		if i.Status == core.StatusVerifying {
			i.Status = core.StatusActive
		}
	})
}

func (m *memIdentities) MarkEmailVerified(_ context.Context, role core.Role, id string) error {
	return m.update(role, id, func(i *IdentityInfo) { i.VerificationStatus = core.VerificationVerified })
}

func (m *memIdentities) seed(t *testing.T, role core.Role, email, phone, password string, status core.Status) *IdentityInfo {
	t.Helper()
	hash, err := core.HashPassword(password)
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	i := &IdentityInfo{
		ID:                 uuid.New().String(),
		Email:              email,
		Phone:              phone,
		Name:               "Seeded",
		Role:               role,
		PasswordHash:       hash,
		Status:             status,
		VerificationStatus: core.VerificationVerified,
	}
	m.byID[i.ID] = i
	cp := *i
	return &cp
}

func (m *memIdentities) get(id string) IdentityInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

type outbox struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return o.err
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func (o *outbox) lastCode(t *testing.T, to string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To == to {
			code := sixDigits.FindString(o.msgs[i].Body)
			require.NotEmpty(t, code)
			return code
		}
	}
	t.Fatalf("no message to %s", to)
	return ""
}

var linkToken = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (o *outbox) lastLinkToken(t *testing.T, to string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To == to {
			m := linkToken.FindStringSubmatch(o.msgs[i].Body)
			require.Len(t, m, 2)
			return m[1]
		}
	}
	t.Fatalf("no message to %s", to)
	return ""
}

type harness struct {
	svc        *Service
	tokens     *TokenManager
	identities *memIdentities
	outbox     *outbox
	denylist   *Denylist
	store      *kv.MemoryStore
	now        time.Time
}

const adminEmail = "ops@househelp.rw"

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		identities: newMemIdentities(),
		outbox:     &outbox{},
		now:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return h.now }

	h.store = kv.NewMemoryStore(kv.WithClock(clock))

	tokens, err := NewTokenManager(config.AuthConfig{
		TokenSecret: testSecret,
		TokenExpire: DefaultTokenExpire,
		Issuer:      "househelp-api",
	})
	require.NoError(t, err)
	h.tokens = tokens.WithClock(clock)

	codes := otp.NewService(otp.NewMemoryRepository(), h.outbox, "https://househelp.test", nil).
		WithClock(clock)

	h.denylist = NewDenylist(h.store).WithClock(clock)

	authCfg := config.AuthConfig{AdminEmailDomain: "househelp.rw"}
	h.svc = NewService(ServiceConfig{
		Tokens:       h.tokens,
		Identities:   h.identities,
		Codes:        codes,
		Limiter:      ratelimit.New(h.store).WithClock(clock),
		Denylist:     h.denylist,
		CodeLimit:    config.WindowLimit{Max: 3, Window: 10 * time.Minute},
		AttemptLimit: config.WindowLimit{Max: 5, Window: 15 * time.Minute},
		AdminAllowed: authCfg.AdminAllowed,
	})
	return h
}
