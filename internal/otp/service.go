// AngelaMos | 2026
// service.go

package otp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/househelp-api/internal/core"
	"github.com/carterperez-dev/househelp-api/internal/notify"
)

type Issued struct {
	Identifier string
	Purpose    Purpose
	ExpiresAt  time.Time
	Delivered  bool
}

func (i *Issued) ExpiresIn() int {
	return int(i.Purpose.TTL().Seconds())
}

type Service struct {
	repo     Repository
	notifier notify.Notifier
	linkBase string
	now      func() time.Time
	logger   *slog.Logger
}

func NewService(
	repo Repository,
	notifier notify.Notifier,
	linkBase string,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		linkBase: strings.TrimRight(linkBase, "/"),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue supersedes any unconsumed code for (role, identifier, purpose),
// stores a fresh one, and hands it to the notifier. Delivery failures are
// logged and reported through Issued.Delivered; the stored code stays valid.
func (s *Service) Issue(
	ctx context.Context,
	role core.Role,
	identifier string,
	purpose Purpose,
) (*Issued, error) {
	ctx, span := core.StartSpan(ctx, "otp.Issue",
		attribute.String("otp.purpose", string(purpose)),
		attribute.String("otp.role", string(role)),
	)
	defer span.End()

	value, err := generate(purpose)
	if err != nil {
		return nil, fmt.Errorf("issue %s code: %w", purpose, err)
	}

	code := &Code{
		ID:         uuid.New().String(),
		Role:       role,
		Identifier: identifier,
		CodeHash:   core.HashToken(value),
		Purpose:    purpose,
		ExpiresAt:  s.now().Add(purpose.TTL()),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.InvalidateActive(ctx, role, identifier, purpose); err != nil {
			return err
		}
		return repo.Create(ctx, code)
	})
	if err != nil {
		return nil, fmt.Errorf("issue %s code: %w", purpose, err)
	}

	issued := &Issued{
		Identifier: identifier,
		Purpose:    purpose,
		ExpiresAt:  code.ExpiresAt,
		Delivered:  true,
	}

	core.AddSpanEvent(ctx, "otp.stored",
		attribute.String("otp.expires_at", code.ExpiresAt.UTC().Format(time.RFC3339)),
	)

	msg := s.compose(role, identifier, value, purpose)
	if err := s.notifier.Send(ctx, msg); err != nil {
		issued.Delivered = false
		core.SetSpanError(ctx, err)
		s.logger.WarnContext(ctx, "code delivery failed",
			"purpose", purpose,
			"channel", msg.Channel,
			"role", role,
			"error", err,
		)
	}

	return issued, nil
}

// Outstanding reports live codes per purpose.
func (s *Service) Outstanding(ctx context.Context) (map[Purpose]int, error) {
	return s.repo.CountOutstanding(ctx, s.now())
}

// Check validates a code without consuming it.
func (s *Service) Check(
	ctx context.Context,
	role core.Role,
	identifier, value string,
	purpose Purpose,
) error {
	_, err := s.lookup(ctx, s.repo, role, identifier, value, purpose)
	return err
}

// Consume validates the code, marks it used and runs onConsumed in the same
// transaction. An onConsumed error leaves the code unconsumed.
func (s *Service) Consume(
	ctx context.Context,
	role core.Role,
	identifier, value string,
	purpose Purpose,
	onConsumed func(ctx context.Context) error,
) error {
	ctx, span := core.StartSpan(ctx, "otp.Consume",
		attribute.String("otp.purpose", string(purpose)),
		attribute.String("otp.role", string(role)),
	)
	defer span.End()

	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		code, err := s.lookup(ctx, repo, role, identifier, value, purpose)
		if err != nil {
			return err
		}

		if err := repo.MarkUsed(ctx, code.ID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return fmt.Errorf("consume code: %w", core.ErrCodeInvalid)
			}
			return fmt.Errorf("consume code: %w", err)
		}

		if onConsumed == nil {
			return nil
		}
		return onConsumed(ctx)
	})
}

func (s *Service) lookup(
	ctx context.Context,
	repo Repository,
	role core.Role,
	identifier, value string,
	purpose Purpose,
) (*Code, error) {
	if value == "" {
		return nil, fmt.Errorf("check code: %w", core.ErrCodeInvalid)
	}

	code, err := repo.FindActive(
		ctx, role, identifier, core.HashToken(value), purpose,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("check code: %w", core.ErrCodeInvalid)
		}
		return nil, fmt.Errorf("check code: %w", err)
	}

	if code.IsExpired(s.now()) {
		return nil, fmt.Errorf("check code: %w", core.ErrCodeExpired)
	}

	return code, nil
}

func generate(purpose Purpose) (string, error) {
	if purpose.Opaque() {
		return core.GenerateOpaqueToken()
	}
	return core.GenerateNumericCode(codeLength)
}
