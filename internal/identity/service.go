// AngelaMos | 2026
// service.go

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/househelp-api/internal/auth"
	"github.com/carterperez-dev/househelp-api/internal/core"
)

type Service struct {
	repo  Repository
	phone *PhoneNormalizer
}

func NewService(repo Repository, phone *PhoneNormalizer) *Service {
	return &Service{repo: repo, phone: phone}
}

func (s *Service) NormalizePhone(raw string) (string, error) {
	return s.phone.Normalize(raw)
}

func (s *Service) GetByLogin(
	ctx context.Context,
	role core.Role,
	login string,
) (*auth.IdentityInfo, error) {
	identity, err := s.findByLogin(ctx, role, login)
	if err != nil {
		return nil, err
	}
	return toIdentityInfo(identity), nil
}

func (s *Service) findByLogin(
	ctx context.Context,
	role core.Role,
	login string,
) (*Identity, error) {
	login = strings.TrimSpace(login)
	if strings.Contains(login, "@") {
		return s.repo.GetByEmail(ctx, role, strings.ToLower(login))
	}

	phone, err := s.phone.Normalize(login)
	if err != nil {
		return nil, fmt.Errorf("get %s by login: %w", role, core.ErrNotFound)
	}
	return s.repo.GetByPhone(ctx, role, phone)
}

func (s *Service) GetByID(
	ctx context.Context,
	role core.Role,
	id string,
) (*auth.IdentityInfo, error) {
	identity, err := s.repo.GetByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	return toIdentityInfo(identity), nil
}

func (s *Service) Create(
	ctx context.Context,
	in auth.NewIdentity,
) (*auth.IdentityInfo, error) {
	identity := &Identity{
		ID:                 uuid.New().String(),
		Role:               in.Role,
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:              in.Phone,
		Name:               strings.TrimSpace(in.Name),
		PasswordHash:       in.PasswordHash,
		Status:             core.StatusVerifying,
		VerificationStatus: core.VerificationPending,
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}

	return toIdentityInfo(identity), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	role core.Role,
	id, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, role, id, passwordHash)
}

func (s *Service) Activate(ctx context.Context, role core.Role, id string) error {
	return s.repo.Activate(ctx, role, id)
}

func (s *Service) MarkEmailVerified(
	ctx context.Context,
	role core.Role,
	id string,
) error {
	return s.repo.MarkEmailVerified(ctx, role, id)
}

// IsSuspended reports whether the identity has been suspended.
func (s *Service) IsSuspended(ctx context.Context, role core.Role, id string) (bool, error) {
	identity, err := s.repo.GetByID(ctx, role, id)
	if err != nil {
		return false, err
	}
	return identity.Status == core.StatusSuspended, nil
}

func (s *Service) GetIdentity(
	ctx context.Context,
	role core.Role,
	id string,
) (*Identity, error) {
	return s.repo.GetByID(ctx, role, id)
}

func (s *Service) UpdateIdentity(
	ctx context.Context,
	role core.Role,
	id string,
	req UpdateIdentityRequest,
) (*Identity, error) {
	identity, err := s.repo.GetByID(ctx, role, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		identity.Name = strings.TrimSpace(*req.Name)
	}

	if req.Phone != nil {
		phone, err := s.phone.Normalize(*req.Phone)
		if err != nil {
			return nil, err
		}
		identity.Phone = phone
	}

	if err := s.repo.UpdateProfile(ctx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

func (s *Service) ListIdentities(
	ctx context.Context,
	role core.Role,
	params ListParams,
) ([]Identity, int, error) {
	if params.Status != "" {
		if _, err := core.ParseStatus(params.Status); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, role, params)
}

// UpdateStatus changes an identity's status on behalf of an admin. Admins
// cannot change their own status.
func (s *Service) UpdateStatus(
	ctx context.Context,
	requesterID string,
	role core.Role,
	id string,
	status core.Status,
) (*Identity, error) {
	if role == core.RoleAdmin && requesterID == id {
		return nil, fmt.Errorf("update own status: %w", core.ErrForbidden)
	}

	if err := s.repo.UpdateStatus(ctx, role, id, status); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, role, id)
}

// Counts returns the number of identities per role.
func (s *Service) Counts(ctx context.Context) (map[core.Role]int, error) {
	counts := make(map[core.Role]int, len(core.Roles()))
	for _, role := range core.Roles() {
		n, err := s.repo.Count(ctx, role)
		if err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, nil
}

func toIdentityInfo(i *Identity) *auth.IdentityInfo {
	return &auth.IdentityInfo{
		ID:                 i.ID,
		Email:              i.Email,
		Phone:              i.Phone,
		Name:               i.Name,
		Role:               i.Role,
		PasswordHash:       i.PasswordHash,
		Status:             i.Status,
		VerificationStatus: i.VerificationStatus,
	}
}

var _ auth.IdentityProvider = (*Service)(nil)
