package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	surrealdb_models "github.com/surrealdb/surrealdb.go/pkg/models"
)

// recordIDTag is the CBOR tag SurrealDB uses for record links.
const recordIDTag = 8

// kind names the table an ID points into.
type kind interface {
	table() string
}

type (
	blockKind        struct{}
	pageKind         struct{}
	portalKind       struct{}
	portalMemberKind struct{}
	clientKind       struct{}
	coachKind        struct{}
	deliverableKind  struct{}
	resourceKind     struct{}
	notificationKind struct{}
)

func (blockKind) table() string        { return "blocks" }
func (pageKind) table() string         { return "pages" }
func (portalKind) table() string       { return "portals" }
func (portalMemberKind) table() string { return "portal_members" }
func (clientKind) table() string       { return "clients" }
func (coachKind) table() string        { return "coaches" }
func (deliverableKind) table() string  { return "deliverables" }
func (resourceKind) table() string     { return "resources" }
func (notificationKind) table() string { return "notifications" }

// ID is a UUID bound to one table. Two IDs of different tables never compare equal
// and cannot be passed for one another.
//
// The same value serializes as a string in JSON, a uuid column in PostgreSQL and a
// record link in SurrealDB.
type ID[K kind] struct {
	uuid uuid.UUID
}

type (
	BlockID        = ID[blockKind]
	PageID         = ID[pageKind]
	PortalID       = ID[portalKind]
	PortalMemberID = ID[portalMemberKind]
	ClientID       = ID[clientKind]
	CoachID        = ID[coachKind]
	DeliverableID  = ID[deliverableKind]
	ResourceID     = ID[resourceKind]
	NotificationID = ID[notificationKind]
)

func NewBlockID() BlockID               { return BlockID{uuid: uuid.New()} }
func NewPageID() PageID                 { return PageID{uuid: uuid.New()} }
func NewPortalID() PortalID             { return PortalID{uuid: uuid.New()} }
func NewPortalMemberID() PortalMemberID { return PortalMemberID{uuid: uuid.New()} }
func NewClientID() ClientID             { return ClientID{uuid: uuid.New()} }
func NewCoachID() CoachID               { return CoachID{uuid: uuid.New()} }
func NewDeliverableID() DeliverableID   { return DeliverableID{uuid: uuid.New()} }
func NewResourceID() ResourceID         { return ResourceID{uuid: uuid.New()} }
func NewNotificationID() NotificationID { return NotificationID{uuid: uuid.New()} }

func ParseBlockID(s string) (BlockID, error)               { return parseID[blockKind](s) }
func ParsePageID(s string) (PageID, error)                 { return parseID[pageKind](s) }
func ParsePortalID(s string) (PortalID, error)             { return parseID[portalKind](s) }
func ParsePortalMemberID(s string) (PortalMemberID, error) { return parseID[portalMemberKind](s) }
func ParseClientID(s string) (ClientID, error)             { return parseID[clientKind](s) }
func ParseCoachID(s string) (CoachID, error)               { return parseID[coachKind](s) }
func ParseDeliverableID(s string) (DeliverableID, error)   { return parseID[deliverableKind](s) }
func ParseResourceID(s string) (ResourceID, error)         { return parseID[resourceKind](s) }
func ParseNotificationID(s string) (NotificationID, error) { return parseID[notificationKind](s) }

func parseID[K kind](s string) (ID[K], error) {
	id, err := uuid.Parse(s)
	if err != nil {
		var k K
		return ID[K]{}, fmt.Errorf("invalid %s ID: %w", k.table(), err)
	}
	return ID[K]{uuid: id}, nil
}

func (id ID[K]) UUID() uuid.UUID { return id.uuid }
func (id ID[K]) String() string  { return id.uuid.String() }
func (id ID[K]) IsZero() bool    { return id.uuid == uuid.Nil }

// Table returns the table the ID belongs to.
func (id ID[K]) Table() string {
	var k K
	return k.table()
}

// Ptr returns a pointer to a copy of id, for optional foreign keys.
func (id ID[K]) Ptr() *ID[K] { return &id }

func (id ID[K]) RecordID() surrealdb_models.RecordID {
	return surrealdb_models.RecordID{
		Table: id.Table(),
		ID:    id.uuid.String(),
	}
}

func (id ID[K]) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.uuid.String())
}

func (id *ID[K]) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		id.uuid = uuid.Nil
		return nil
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	id.uuid = parsed
	return nil
}

func (id ID[K]) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{
		Number:  recordIDTag,
		Content: []any{id.Table(), id.uuid.String()},
	})
}

func (id *ID[K]) UnmarshalCBOR(data []byte) error {
	return unmarshalRecordLink(data, id.Table(), &id.uuid)
}

func (id ID[K]) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.uuid.String(), nil
}

func (id *ID[K]) Scan(value any) error {
	if value == nil {
		id.uuid = uuid.Nil
		return nil
	}
	switch v := value.(type) {
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return err
		}
		id.uuid = parsed
	case []byte:
		parsed, err := uuid.ParseBytes(v)
		if err != nil {
			return err
		}
		id.uuid = parsed
	default:
		return fmt.Errorf("cannot scan type %T into %s ID", value, id.Table())
	}
	return nil
}

func (ID[K]) GormDataType() string { return "uuid" }

// unmarshalRecordLink decodes a SurrealDB record link ([table, id] under tag 8)
// into target, rejecting links into other tables.
func unmarshalRecordLink(data []byte, table string, target *uuid.UUID) error {
	if len(data) == 0 {
		return fmt.Errorf("empty CBOR data")
	}
	if major := data[0] >> 5; major != 6 {
		return fmt.Errorf("expected CBOR tag for record link, got major type %d", major)
	}

	var tag cbor.Tag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR tag: %w", err)
	}
	if tag.Number != recordIDTag {
		return fmt.Errorf("expected record link tag (%d), got %d", recordIDTag, tag.Number)
	}

	arr, ok := tag.Content.([]any)
	if !ok || len(arr) != 2 {
		return fmt.Errorf("invalid record link: expected [table, id] array")
	}
	if got, _ := arr[0].(string); got != table {
		return fmt.Errorf("expected table %s, got %v", table, arr[0])
	}
	s, ok := arr[1].(string)
	if !ok {
		return fmt.Errorf("invalid record link: id must be a string")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid UUID in record link: %w", err)
	}
	*target = parsed
	return nil
}
