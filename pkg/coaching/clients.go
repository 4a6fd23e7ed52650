package coaching

import (
	"context"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Clients manages the coach's client records.
type Clients struct {
	store store.Store
}

func NewClients(s store.Store) *Clients {
	return &Clients{store: s}
}

// Create stores an active client that has never logged in.
func (c *Clients) Create(ctx context.Context, in models.Client) (*models.Client, error) {
	rec := &models.Client{
		Name:   in.Name,
		Email:  in.Email,
		Status: models.ClientActive,
	}
	if err := c.store.Clients().Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Clients) Get(ctx context.Context, id models.ClientID) (*models.Client, error) {
	return c.store.Clients().FetchOne(ctx, id)
}

func (c *Clients) List(ctx context.Context) ([]*models.Client, error) {
	return c.store.Clients().FetchMany(ctx, store.Query{}.Asc("created_at"))
}

func (c *Clients) Update(ctx context.Context, id models.ClientID, patch store.Patch) (*models.Client, error) {
	return c.store.Clients().Update(ctx, id, patch)
}

// Delete removes the client record only; pages, memberships and deliverables
// that reference it are kept.
func (c *Clients) Delete(ctx context.Context, id models.ClientID) error {
	return c.store.Clients().Delete(ctx, id)
}
