// Package memory provides an in-process implementation of the
// [github.com/apper-apps/coachflow-optimal/pkg/store.Store] interface.
//
// Records live in maps guarded by a mutex per table and are copied on the way in
// and out, so callers never share state with the store. An optional artificial
// latency makes the store behave like a remote one in demos.
//
//	s := memory.New(memory.WithLatency(250 * time.Millisecond))
//	defer s.Close()
package memory

import (
	"context"
	"time"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Store is the in-memory record store.
type Store struct {
	latency time.Duration
	now     func() time.Time

	blocks        *table[models.Block, models.BlockID, *models.Block]
	pages         *table[models.Page, models.PageID, *models.Page]
	portals       *table[models.Portal, models.PortalID, *models.Portal]
	portalMembers *table[models.PortalMember, models.PortalMemberID, *models.PortalMember]
	clients       *table[models.Client, models.ClientID, *models.Client]
	deliverables  *table[models.Deliverable, models.DeliverableID, *models.Deliverable]
	resources     *table[models.Resource, models.ResourceID, *models.Resource]
	notifications *table[models.Notification, models.NotificationID, *models.Notification]
}

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every operation by d, or until the context is done.
func WithLatency(d time.Duration) Option {
	return func(s *Store) { s.latency = d }
}

// WithClock replaces time.Now for assigned timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.blocks = newTable[models.Block, models.BlockID](s, "blocks", func(b *models.Block) models.BlockID { return b.ID })
	s.pages = newTable[models.Page, models.PageID](s, "pages", func(p *models.Page) models.PageID { return p.ID })
	s.portals = newTable[models.Portal, models.PortalID](s, "portals", func(p *models.Portal) models.PortalID { return p.ID })
	s.portalMembers = newTable[models.PortalMember, models.PortalMemberID](s, "portal_members",
		func(m *models.PortalMember) models.PortalMemberID { return m.ID })
	s.clients = newTable[models.Client, models.ClientID](s, "clients", func(c *models.Client) models.ClientID { return c.ID })
	s.deliverables = newTable[models.Deliverable, models.DeliverableID](s, "deliverables",
		func(d *models.Deliverable) models.DeliverableID { return d.ID })
	s.resources = newTable[models.Resource, models.ResourceID](s, "resources",
		func(r *models.Resource) models.ResourceID { return r.ID })
	s.notifications = newTable[models.Notification, models.NotificationID](s, "notifications",
		func(n *models.Notification) models.NotificationID { return n.ID })
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Blocks() store.Table[models.Block, models.BlockID]   { return s.blocks }
func (s *Store) Pages() store.Table[models.Page, models.PageID]      { return s.pages }
func (s *Store) Portals() store.Table[models.Portal, models.PortalID] { return s.portals }

func (s *Store) PortalMembers() store.Table[models.PortalMember, models.PortalMemberID] {
	return s.portalMembers
}

func (s *Store) Clients() store.Table[models.Client, models.ClientID] { return s.clients }

func (s *Store) Deliverables() store.Table[models.Deliverable, models.DeliverableID] {
	return s.deliverables
}

func (s *Store) Resources() store.Table[models.Resource, models.ResourceID] { return s.resources }

func (s *Store) Notifications() store.Table[models.Notification, models.NotificationID] {
	return s.notifications
}

// ReorderBlocks assigns sort_order by position under a single lock, so readers
// never observe a half-applied order.
func (s *Store) ReorderBlocks(ctx context.Context, pageID models.PageID, blockIDs []models.BlockID) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	t := s.blocks
	t.mu.Lock()
	defer t.mu.Unlock()

	now := s.now()
	for i, id := range blockIDs {
		b, ok := t.rows[id]
		if !ok || b.PageID != pageID {
			continue
		}
		b.SortOrder = i
		b.UpdatedAt = now
	}
	return nil
}

// Migrate is a no-op; tables exist from New.
func (s *Store) Migrate(ctx context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// wait applies the configured latency.
func (s *Store) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return store.Transport("memory", ctx.Err())
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return store.Transport("memory", ctx.Err())
	case <-timer.C:
		return nil
	}
}
