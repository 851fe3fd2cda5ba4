// Package authz re-derives a caller's role from the identity store before any
// mutating operation runs. Role claims from the client are never consulted.
package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/questboard/questboard-api/internal/domain/user"
	"github.com/questboard/questboard-api/internal/pkg/apperror"
)

// IdentityStore is the trusted source of user roles.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Guard checks roles against the identity store.
type Guard struct {
	identities IdentityStore
}

// NewGuard creates a guard backed by the given identity store.
func NewGuard(identities IdentityStore) *Guard {
	return &Guard{identities: identities}
}

// RequireRole returns the principal's stored role if it is in allowed.
// Unknown and banned principals are denied.
func (g *Guard) RequireRole(ctx context.Context, principal uuid.UUID, allowed ...Role) (Role, error) {
	if principal == uuid.Nil {
		return "", apperror.Forbidden("authentication required")
	}

	u, err := g.identities.GetByID(ctx, principal)
	if err != nil {
		return "", apperror.Internal(fmt.Errorf("load principal %s: %w", principal, err), "identity lookup failed")
	}
	if u == nil || !u.IsActive() {
		log.Warn().Str("principal", principal.String()).Msg("role check denied: unknown or banned principal")
		return "", apperror.Forbidden("principal is not allowed to perform this action")
	}

	if !Allows(allowed, u.Role) {
		log.Warn().
			Str("principal", principal.String()).
			Str("role", string(u.Role)).
			Msg("role check denied")
		return "", apperror.Forbidden("role %s is not allowed to perform this action", u.Role)
	}

	return u.Role, nil
}
