package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/questboard/questboard-api/internal/domain/authz"
)

// Service exposes the caller's own wallet and ledger.
type Service struct {
	repo  *Repository
	guard *authz.Guard
}

func NewService(repo *Repository, guard *authz.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

// GetMyWallet returns the caller's user wallet, creating it on first read.
func (s *Service) GetMyWallet(ctx context.Context, principal uuid.UUID) (*Wallet, error) {
	if _, err := s.guard.RequireRole(ctx, principal, authz.Submitters...); err != nil {
		return nil, err
	}
	return s.repo.GetBalance(ctx, UserOwner(principal))
}

// GetMyLedger returns the caller's entries newest first.
func (s *Service) GetMyLedger(ctx context.Context, principal uuid.UUID, limit, offset int) ([]*Entry, error) {
	if _, err := s.guard.RequireRole(ctx, principal, authz.Submitters...); err != nil {
		return nil, err
	}
	return s.repo.ListEntries(ctx, UserOwner(principal), limit, offset)
}
