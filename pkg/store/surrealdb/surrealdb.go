// Package surrealdb provides a SurrealDB implementation of the
// [github.com/apper-apps/coachflow-optimal/pkg/store.Store] interface using native
// SurrealQL through the Go SDK.
//
// # CBOR Marshaling
//
// The connection is configured with the surrealcbor codec. Typed ids from
// [github.com/apper-apps/coachflow-optimal/pkg/models] implement MarshalCBOR and
// encode as record links (table:uuid), so records are stored without a separate
// wire type and foreign keys such as page_id are real links that can be compared
// with a typed id passed as a query parameter.
//
// # Query Safety
//
// Values always travel as $parameters. Field names are the only identifiers
// spliced into query text and are checked by [store.Query.Validate] first.
//
// # Schema
//
// SurrealDB creates tables on first insert. [Store.Migrate] only defines the
// indexes used by the ownership filters.
//
//	s, err := surrealdb.New(ctx, surrealdb.Config{
//		URL:       "ws://localhost:8000/rpc",
//		Namespace: "coachflow",
//		Database:  "coachflow",
//		Username:  "root",
//		Password:  "root",
//	})
package surrealdb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Config locates and authenticates against a SurrealDB instance.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Store implements store.Store on SurrealDB.
type Store struct {
	db  *surrealdb.DB
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New connects over WebSocket, signs in when credentials are set and selects the
// namespace and database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse SurrealDB URL: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, store.Transport("surrealdb connect", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, store.Transport("surrealdb signin", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, store.Transport("surrealdb use", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// indexes lists the fields filtered on by the services, per table.
var indexes = map[string][]string{
	"blocks":         {"page_id"},
	"pages":          {"client_id", "portal_id"},
	"portals":        {"owner_id"},
	"portal_members": {"portal_id", "client_id"},
	"deliverables":   {"client_id", "portal_id"},
	"resources":      {"client_id"},
}

// Migrate defines the lookup indexes. Tables themselves need no definition.
func (s *Store) Migrate(ctx context.Context) error {
	var b strings.Builder
	for tb, fields := range indexes {
		for _, f := range fields {
			fmt.Fprintf(&b, "DEFINE INDEX IF NOT EXISTS %s_%s ON TABLE %s FIELDS %s;\n", tb, f, tb, f)
		}
	}
	_, err := surrealdb.Query[any](ctx, s.db, b.String(), nil)
	return store.Transport("surrealdb migrate", err)
}

func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

func (s *Store) Blocks() store.Table[models.Block, models.BlockID] {
	return &table[models.Block, models.BlockID, *models.Block]{s: s}
}

func (s *Store) Pages() store.Table[models.Page, models.PageID] {
	return &table[models.Page, models.PageID, *models.Page]{s: s}
}

func (s *Store) Portals() store.Table[models.Portal, models.PortalID] {
	return &table[models.Portal, models.PortalID, *models.Portal]{s: s}
}

func (s *Store) PortalMembers() store.Table[models.PortalMember, models.PortalMemberID] {
	return &table[models.PortalMember, models.PortalMemberID, *models.PortalMember]{s: s}
}

func (s *Store) Clients() store.Table[models.Client, models.ClientID] {
	return &table[models.Client, models.ClientID, *models.Client]{s: s}
}

func (s *Store) Deliverables() store.Table[models.Deliverable, models.DeliverableID] {
	return &table[models.Deliverable, models.DeliverableID, *models.Deliverable]{s: s}
}

func (s *Store) Resources() store.Table[models.Resource, models.ResourceID] {
	return &table[models.Resource, models.ResourceID, *models.Resource]{s: s}
}

func (s *Store) Notifications() store.Table[models.Notification, models.NotificationID] {
	return &table[models.Notification, models.NotificationID, *models.Notification]{s: s}
}

// ReorderBlocks issues one UPDATE per block inside a single transaction. The
// page_id guard skips blocks of other pages.
func (s *Store) ReorderBlocks(ctx context.Context, pageID models.PageID, blockIDs []models.BlockID) error {
	if len(blockIDs) == 0 {
		return nil
	}
	vars := map[string]any{
		"page": pageID,
		"now":  s.now(),
	}
	var b strings.Builder
	b.WriteString("BEGIN TRANSACTION;\n")
	for i, id := range blockIDs {
		name := fmt.Sprintf("b%d", i)
		vars[name] = id.RecordID()
		fmt.Fprintf(&b, "UPDATE $%s SET sort_order = %d, updated_at = $now WHERE page_id = $page;\n", name, i)
	}
	b.WriteString("COMMIT TRANSACTION;")

	_, err := surrealdb.Query[any](ctx, s.db, b.String(), vars)
	return store.Transport("surrealdb reorder blocks", err)
}

// handleNotFound reports whether err is the SDK's way of saying a record is absent.
func handleNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}
