package coaching

import (
	"context"
	"slices"

	"gorm.io/datatypes"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Resources is the coach's library of shareable material.
type Resources struct {
	store store.Store
}

func NewResources(s store.Store) *Resources {
	return &Resources{store: s}
}

// Create stores a resource at version 1 with no assignments.
func (r *Resources) Create(ctx context.Context, in models.Resource) (*models.Resource, error) {
	rec := &models.Resource{
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		FileURL:     in.FileURL,
		Tags:        append(datatypes.JSONSlice[string]{}, in.Tags...),
		IsGlobal:    in.IsGlobal,
		Version:     1,
	}
	if in.ClientID != nil {
		rec.ClientID = in.ClientID.Ptr()
	}
	if err := r.store.Resources().Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Resources) Get(ctx context.Context, id models.ResourceID) (*models.Resource, error) {
	return r.store.Resources().FetchOne(ctx, id)
}

func (r *Resources) List(ctx context.Context) ([]*models.Resource, error) {
	return r.store.Resources().FetchMany(ctx, store.Query{}.Desc("created_at"))
}

// ListForClient returns the resources assigned to clientID together with every
// global resource, newest first.
func (r *Resources) ListForClient(ctx context.Context, clientID models.ClientID) ([]*models.Resource, error) {
	own, err := r.store.Resources().FetchMany(ctx, store.ByClient(clientID))
	if err != nil {
		return nil, err
	}
	global, err := r.store.Resources().FetchMany(ctx, store.Where("is_global", true))
	if err != nil {
		return nil, err
	}

	seen := make(map[models.ResourceID]bool, len(own))
	out := make([]*models.Resource, 0, len(own)+len(global))
	for _, res := range append(own, global...) {
		if seen[res.ID] {
			continue
		}
		seen[res.ID] = true
		out = append(out, res)
	}
	slices.SortStableFunc(out, func(a, b *models.Resource) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// AssignToClient records one more assignment of a resource. The client must exist.
func (r *Resources) AssignToClient(ctx context.Context, id models.ResourceID, clientID models.ClientID) (*models.Resource, error) {
	if _, err := r.store.Clients().FetchOne(ctx, clientID); err != nil {
		return nil, err
	}
	res, err := r.store.Resources().FetchOne(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.store.Resources().Update(ctx, id, store.Patch{"assignments": res.Assignments + 1})
}

func (r *Resources) Update(ctx context.Context, id models.ResourceID, patch store.Patch) (*models.Resource, error) {
	return r.store.Resources().Update(ctx, id, patch)
}

func (r *Resources) Delete(ctx context.Context, id models.ResourceID) error {
	return r.store.Resources().Delete(ctx, id)
}
