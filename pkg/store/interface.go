// Package store defines the record store the composition engine and the coaching
// services persist through.
//
// A [Store] exposes one [Table] per entity type with the same five operations:
// FetchMany, FetchOne, Create, Update and Delete. Three implementations exist:
//
//   - [github.com/apper-apps/coachflow-optimal/pkg/store/memory.Store]: in-process maps,
//     used by tests and demos
//   - [github.com/apper-apps/coachflow-optimal/pkg/store/postgres.Store]: PostgreSQL through GORM
//   - [github.com/apper-apps/coachflow-optimal/pkg/store/surrealdb.Store]: SurrealDB through the Go SDK
//
// The implementation is chosen once at startup and wrapped with [NewReadOnlyStore].
//
// # Errors
//
// Every implementation reports failures with the same taxonomy:
//
//   - [ErrNotFound] (as [*NotFoundError]) when a record id is absent
//   - [*ValidationError] when a record fails validation before it is written
//   - [*TransportError] when the backend cannot be reached or fails unexpectedly
//
// No operation retries.
package store

import (
	"context"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
)

// Identifier is satisfied by every typed id in package models.
type Identifier interface {
	comparable
	String() string
	IsZero() bool
	Table() string
}

// Table is the record store contract for one entity type.
type Table[T any, I Identifier] interface {
	// FetchMany returns the records matching q, in q's order. It never returns nil
	// on success.
	FetchMany(ctx context.Context, q Query) ([]*T, error)

	// FetchOne returns the record with id, or a NotFoundError.
	FetchOne(ctx context.Context, id I) (*T, error)

	// Create validates rec, assigns its id and timestamps when unset and stores it.
	// rec is updated in place with the assigned values.
	Create(ctx context.Context, rec *T) error

	// Update applies patch to the stored record and returns the result. Keys are
	// json field names; the id cannot be patched.
	Update(ctx context.Context, id I, patch Patch) (*T, error)

	// Delete removes the record with id, or returns a NotFoundError.
	Delete(ctx context.Context, id I) error
}

// Store bundles the tables of every entity type.
type Store interface {
	Blocks() Table[models.Block, models.BlockID]
	Pages() Table[models.Page, models.PageID]
	Portals() Table[models.Portal, models.PortalID]
	PortalMembers() Table[models.PortalMember, models.PortalMemberID]
	Clients() Table[models.Client, models.ClientID]
	Deliverables() Table[models.Deliverable, models.DeliverableID]
	Resources() Table[models.Resource, models.ResourceID]
	Notifications() Table[models.Notification, models.NotificationID]

	// ReorderBlocks sets sort_order = index for each id in blockIDs that belongs
	// to pageID, as a single operation. Ids of other pages are ignored.
	ReorderBlocks(ctx context.Context, pageID models.PageID, blockIDs []models.BlockID) error

	// Migrate prepares the backend schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	Close() error
}
