package coaching

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/composition"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// DefaultPortalPage is a page every new portal can be seeded with.
type DefaultPortalPage struct {
	Title string
	Icon  string
}

// DefaultPortalPages are created by CreateDefaultPages, in order.
var DefaultPortalPages = []DefaultPortalPage{
	{Title: "Welcome", Icon: "Home"},
	{Title: "Resources", Icon: "BookOpen"},
	{Title: "Progress", Icon: "TrendingUp"},
}

// Portals manages shared, owner-authored portal templates.
type Portals struct {
	store store.Store
	pages *composition.Engine
	log   zerolog.Logger
}

func NewPortals(s store.Store, pages *composition.Engine, log zerolog.Logger) *Portals {
	return &Portals{
		store: s,
		pages: pages,
		log:   log.With().Str("component", "portals").Logger(),
	}
}

// Create stores a new, active portal.
func (p *Portals) Create(ctx context.Context, in models.Portal) (*models.Portal, error) {
	portal := &models.Portal{
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		IsActive:    true,
	}
	if err := p.store.Portals().Create(ctx, portal); err != nil {
		return nil, err
	}
	p.log.Info().Str("portal_id", portal.ID.String()).Msg("portal created")
	return portal, nil
}

func (p *Portals) Get(ctx context.Context, id models.PortalID) (*models.Portal, error) {
	return p.store.Portals().FetchOne(ctx, id)
}

func (p *Portals) List(ctx context.Context) ([]*models.Portal, error) {
	return p.store.Portals().FetchMany(ctx, store.Query{}.Asc("created_at"))
}

func (p *Portals) ListByOwner(ctx context.Context, owner models.CoachID) ([]*models.Portal, error) {
	return p.store.Portals().FetchMany(ctx, store.Where("owner_id", owner).Asc("created_at"))
}

func (p *Portals) Update(ctx context.Context, id models.PortalID, patch store.Patch) (*models.Portal, error) {
	return p.store.Portals().Update(ctx, id, patch)
}

// SetActive publishes or retires a portal.
func (p *Portals) SetActive(ctx context.Context, id models.PortalID, active bool) (*models.Portal, error) {
	return p.store.Portals().Update(ctx, id, store.Patch{"is_active": active})
}

// Delete removes the portal record. Its pages and memberships are left in place.
func (p *Portals) Delete(ctx context.Context, id models.PortalID) error {
	return p.store.Portals().Delete(ctx, id)
}

// CreateDefaultPages appends DefaultPortalPages to a portal with one create call
// per page. When a create fails, the pages created so far are returned with the
// error and are not removed.
func (p *Portals) CreateDefaultPages(ctx context.Context, id models.PortalID) ([]*models.Page, error) {
	if _, err := p.store.Portals().FetchOne(ctx, id); err != nil {
		return nil, err
	}
	created := make([]*models.Page, 0, len(DefaultPortalPages))
	for _, def := range DefaultPortalPages {
		page, err := p.pages.CreatePage(ctx, composition.PortalParent(id), def.Title, def.Icon)
		if err != nil {
			return created, fmt.Errorf("create default page %q: %w", def.Title, err)
		}
		created = append(created, page)
	}
	return created, nil
}
