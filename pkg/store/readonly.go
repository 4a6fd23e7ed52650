package store

import (
	"context"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// ReadOnlyStore wraps a Store and rejects writes while isReadOnly reports true.
//
// The flag is consulted on every write, so the application can switch modes at
// runtime (for maintenance windows) without rebuilding the store. Reads always
// pass through.
type ReadOnlyStore struct {
	Store
	isReadOnly func() bool
}

// NewReadOnlyStore creates a new read-only wrapper for a store
func NewReadOnlyStore(store Store, isReadOnly func() bool) Store {
	return &ReadOnlyStore{
		Store:      store,
		isReadOnly: isReadOnly,
	}
}

// Unwrap returns the underlying store
func (r *ReadOnlyStore) Unwrap() Store {
	return r.Store
}

func (r *ReadOnlyStore) checkReadOnly() error {
	if r.isReadOnly() {
		return ErrReadOnly
	}
	return nil
}

func (r *ReadOnlyStore) Blocks() Table[models.Block, models.BlockID] {
	return guard(r, r.Store.Blocks())
}

func (r *ReadOnlyStore) Pages() Table[models.Page, models.PageID] {
	return guard(r, r.Store.Pages())
}

func (r *ReadOnlyStore) Portals() Table[models.Portal, models.PortalID] {
	return guard(r, r.Store.Portals())
}

func (r *ReadOnlyStore) PortalMembers() Table[models.PortalMember, models.PortalMemberID] {
	return guard(r, r.Store.PortalMembers())
}

func (r *ReadOnlyStore) Clients() Table[models.Client, models.ClientID] {
	return guard(r, r.Store.Clients())
}

func (r *ReadOnlyStore) Deliverables() Table[models.Deliverable, models.DeliverableID] {
	return guard(r, r.Store.Deliverables())
}

func (r *ReadOnlyStore) Resources() Table[models.Resource, models.ResourceID] {
	return guard(r, r.Store.Resources())
}

func (r *ReadOnlyStore) Notifications() Table[models.Notification, models.NotificationID] {
	return guard(r, r.Store.Notifications())
}

func (r *ReadOnlyStore) ReorderBlocks(ctx context.Context, pageID models.PageID, blockIDs []models.BlockID) error {
	if err := r.checkReadOnly(); err != nil {
		return err
	}
	return r.Store.ReorderBlocks(ctx, pageID, blockIDs)
}

// readOnlyTable guards the write operations of one table.
type readOnlyTable[T any, I Identifier] struct {
	Table[T, I]
	owner *ReadOnlyStore
}

func guard[T any, I Identifier](owner *ReadOnlyStore, t Table[T, I]) Table[T, I] {
	return &readOnlyTable[T, I]{Table: t, owner: owner}
}

func (t *readOnlyTable[T, I]) Create(ctx context.Context, rec *T) error {
	if err := t.owner.checkReadOnly(); err != nil {
		return err
	}
	return t.Table.Create(ctx, rec)
}

func (t *readOnlyTable[T, I]) Update(ctx context.Context, id I, patch Patch) (*T, error) {
	if err := t.owner.checkReadOnly(); err != nil {
		return nil, err
	}
	return t.Table.Update(ctx, id, patch)
}

func (t *readOnlyTable[T, I]) Delete(ctx context.Context, id I) error {
	if err := t.owner.checkReadOnly(); err != nil {
		return err
	}
	return t.Table.Delete(ctx, id)
}
