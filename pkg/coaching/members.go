package coaching

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Members manages which clients belong to which portal. Removal is a soft delete:
// the membership row is kept with is_active cleared, and a client may later be
// added again as a new membership.
type Members struct {
	store store.Store
	log   zerolog.Logger
}

func NewMembers(s store.Store, log zerolog.Logger) *Members {
	return &Members{
		store: s,
		log:   log.With().Str("component", "members").Logger(),
	}
}

func activeMembership(portalID models.PortalID, clientID models.ClientID) store.Query {
	return store.ByPortal(portalID).And("client_id", clientID).And("is_active", true)
}

// AddMember adds clientID to a portal. An empty role means RoleMember. Adding a
// client that already has an active membership is a validation error.
func (m *Members) AddMember(ctx context.Context, portalID models.PortalID, clientID models.ClientID, role models.MemberRole) (*models.PortalMember, error) {
	if _, err := m.store.Portals().FetchOne(ctx, portalID); err != nil {
		return nil, err
	}
	existing, err := m.store.PortalMembers().FetchMany(ctx, activeMembership(portalID, clientID))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, store.NewValidationError(nil, store.FieldError{
			Field:   "client_id",
			Message: "client is already a member of this portal",
		})
	}
	if role == "" {
		role = models.RoleMember
	}

	member := &models.PortalMember{
		PortalID: portalID,
		ClientID: clientID,
		Role:     role,
		IsActive: true,
	}
	if err := m.store.PortalMembers().Create(ctx, member); err != nil {
		return nil, err
	}
	m.log.Info().
		Str("portal_id", portalID.String()).
		Str("client_id", clientID.String()).
		Str("role", string(role)).
		Msg("member added")
	return member, nil
}

// RemoveMember deactivates the client's active membership of a portal.
func (m *Members) RemoveMember(ctx context.Context, portalID models.PortalID, clientID models.ClientID) error {
	existing, err := m.store.PortalMembers().FetchMany(ctx, activeMembership(portalID, clientID))
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return &store.NotFoundError{Table: "portal_members", ID: portalID.String() + "/" + clientID.String()}
	}
	for _, member := range existing {
		if _, err := m.store.PortalMembers().Update(ctx, member.ID, store.Patch{"is_active": false}); err != nil {
			return err
		}
	}
	return nil
}

// ListByPortal returns the active members of a portal, oldest first.
func (m *Members) ListByPortal(ctx context.Context, portalID models.PortalID) ([]*models.PortalMember, error) {
	return m.store.PortalMembers().FetchMany(ctx, store.ByPortal(portalID).And("is_active", true).Asc("joined_at"))
}

// ListByClient returns the client's active portal memberships.
func (m *Members) ListByClient(ctx context.Context, clientID models.ClientID) ([]*models.PortalMember, error) {
	return m.store.PortalMembers().FetchMany(ctx, store.ByClient(clientID).And("is_active", true).Asc("joined_at"))
}
