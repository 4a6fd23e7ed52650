package coaching

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Deliverables tracks client work through review. Status changes are not
// guarded: any status may follow any other.
type Deliverables struct {
	store store.Store
	log   zerolog.Logger
}

func NewDeliverables(s store.Store, log zerolog.Logger) *Deliverables {
	return &Deliverables{
		store: s,
		log:   log.With().Str("component", "deliverables").Logger(),
	}
}

// Column is one status column of a review board.
type Column struct {
	Status models.DeliverableStatus `json:"id"`
	Title  string                   `json:"title"`
	Items  []*models.Deliverable    `json:"items"`
}

var columnTitles = map[models.DeliverableStatus]string{
	models.StatusSubmitted:    "Submitted",
	models.StatusReviewed:     "Reviewed",
	models.StatusNeedsChanges: "Needs Changes",
	models.StatusApproved:     "Approved",
}

// Create stores a new submission: status submitted, no comments, submitted now.
func (d *Deliverables) Create(ctx context.Context, in models.Deliverable) (*models.Deliverable, error) {
	rec := &models.Deliverable{
		ClientID:    in.ClientID,
		Title:       in.Title,
		Description: in.Description,
		FileURL:     in.FileURL,
		Status:      models.StatusSubmitted,
	}
	if in.PortalID != nil {
		rec.PortalID = in.PortalID.Ptr()
	}
	if err := d.store.Deliverables().Create(ctx, rec); err != nil {
		return nil, err
	}
	d.log.Info().Str("deliverable_id", rec.ID.String()).Str("client_id", rec.ClientID.String()).Msg("deliverable submitted")
	return rec, nil
}

// CreateForPortal stores a new submission made through a portal.
func (d *Deliverables) CreateForPortal(ctx context.Context, portalID models.PortalID, in models.Deliverable) (*models.Deliverable, error) {
	in.PortalID = portalID.Ptr()
	return d.Create(ctx, in)
}

func (d *Deliverables) Get(ctx context.Context, id models.DeliverableID) (*models.Deliverable, error) {
	return d.store.Deliverables().FetchOne(ctx, id)
}

// ListByClient returns a client's deliverables, newest first.
func (d *Deliverables) ListByClient(ctx context.Context, clientID models.ClientID) ([]*models.Deliverable, error) {
	return d.store.Deliverables().FetchMany(ctx, store.ByClient(clientID).Desc("submitted_at"))
}

// ListByPortal returns the deliverables submitted through a portal, newest first.
func (d *Deliverables) ListByPortal(ctx context.Context, portalID models.PortalID) ([]*models.Deliverable, error) {
	return d.store.Deliverables().FetchMany(ctx, store.ByPortal(portalID).Desc("submitted_at"))
}

func (d *Deliverables) Update(ctx context.Context, id models.DeliverableID, patch store.Patch) (*models.Deliverable, error) {
	return d.store.Deliverables().Update(ctx, id, patch)
}

// UpdateStatus moves a deliverable to status. Unknown statuses are rejected;
// known ones are always accepted.
func (d *Deliverables) UpdateStatus(ctx context.Context, id models.DeliverableID, status models.DeliverableStatus) (*models.Deliverable, error) {
	if !status.Valid() {
		names := make([]string, len(models.DeliverableStatuses))
		for i, s := range models.DeliverableStatuses {
			names[i] = string(s)
		}
		return nil, store.NewValidationError(nil, store.FieldError{
			Field:   "status",
			Message: "status must be one of " + strings.Join(names, ", "),
		})
	}
	rec, err := d.store.Deliverables().Update(ctx, id, store.Patch{"status": status})
	if err != nil {
		return nil, err
	}
	d.log.Debug().Str("deliverable_id", id.String()).Str("status", string(status)).Msg("deliverable status changed")
	return rec, nil
}

// MoveToColumn is UpdateStatus keyed by board column id.
func (d *Deliverables) MoveToColumn(ctx context.Context, id models.DeliverableID, column string) (*models.Deliverable, error) {
	return d.UpdateStatus(ctx, id, models.DeliverableStatus(column))
}

func (d *Deliverables) Delete(ctx context.Context, id models.DeliverableID) error {
	return d.store.Deliverables().Delete(ctx, id)
}

// Board groups a client's deliverables into one column per status, in
// DeliverableStatuses order. Every column is present, possibly empty.
func (d *Deliverables) Board(ctx context.Context, clientID models.ClientID) ([]Column, error) {
	items, err := d.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return GroupByStatus(items), nil
}

// GroupByStatus builds review columns from items. Items with an unknown status
// are dropped.
func GroupByStatus(items []*models.Deliverable) []Column {
	columns := make([]Column, len(models.DeliverableStatuses))
	index := make(map[models.DeliverableStatus]int, len(columns))
	for i, s := range models.DeliverableStatuses {
		columns[i] = Column{Status: s, Title: columnTitles[s], Items: []*models.Deliverable{}}
		index[s] = i
	}
	for _, item := range items {
		if i, ok := index[item.Status]; ok {
			columns[i].Items = append(columns[i].Items, item)
		}
	}
	return columns
}
