package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entity is implemented by pointers to every stored model. The store packages use it
// to name tables and to assign ids and creation timestamps uniformly.
type Entity interface {
	TableName() string
	Key() uuid.UUID
	Prepare(now time.Time)
}

// DeliverableStatus is a review column. Any status may follow any other.
type DeliverableStatus string

const (
	StatusSubmitted    DeliverableStatus = "submitted"
	StatusReviewed     DeliverableStatus = "reviewed"
	StatusNeedsChanges DeliverableStatus = "needs_changes"
	StatusApproved     DeliverableStatus = "approved"
)

// DeliverableStatuses lists the review columns in board order.
var DeliverableStatuses = []DeliverableStatus{
	StatusSubmitted,
	StatusReviewed,
	StatusNeedsChanges,
	StatusApproved,
}

func (s DeliverableStatus) Valid() bool {
	for _, known := range DeliverableStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// MemberRole is a client's role within a portal.
type MemberRole string

const (
	RoleMember MemberRole = "member"
	RoleViewer MemberRole = "viewer"
	RoleEditor MemberRole = "editor"
)

type ClientStatus string

const (
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
	ClientPending  ClientStatus = "pending"
)

// DefaultPageIcon is the icon name used when a page is created without one.
const DefaultPageIcon = "FileText"

// Block is one typed unit of page content.
type Block struct {
	ID        BlockID   `gorm:"type:uuid;primaryKey" json:"id"`
	PageID    PageID    `gorm:"type:uuid;not null;index" json:"page_id" validate:"required"`
	Type      BlockType `gorm:"not null" json:"type" validate:"required,blocktype"`
	Content   JSONMap   `gorm:"type:jsonb" json:"content"`
	SortOrder int       `gorm:"not null" json:"sort_order" validate:"gte=0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBlock builds a block on page from a typed payload.
func NewBlock(pageID PageID, p Payload, sortOrder int) (*Block, error) {
	b := &Block{PageID: pageID, SortOrder: sortOrder}
	if err := b.SetPayload(p); err != nil {
		return nil, err
	}
	return b, nil
}

// Payload decodes the block's content as its tagged variant.
func (b *Block) Payload() (Payload, error) {
	return DecodePayload(b.Type, b.Content)
}

// SetPayload replaces both the type tag and the content of b.
func (b *Block) SetPayload(p Payload) error {
	content, err := EncodePayload(p)
	if err != nil {
		return err
	}
	b.Type = p.Kind()
	b.Content = content
	return nil
}

// Clone returns a copy of b that shares no content with it.
func (b *Block) Clone() *Block {
	out := *b
	out.Content = b.Content.Clone()
	return &out
}

func (Block) TableName() string { return "blocks" }
func (b Block) Key() uuid.UUID  { return b.ID.UUID() }

func (b *Block) Prepare(now time.Time) {
	if b.ID.IsZero() {
		b.ID = NewBlockID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Page is an ordered container of blocks. It belongs either to one client's
// workspace or to a shared portal, never both.
type Page struct {
	ID         PageID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title      string    `gorm:"not null" json:"title" validate:"required,max=200"`
	Slug       string    `gorm:"not null;index" json:"slug" validate:"slug"`
	Icon       string    `json:"icon"`
	SortOrder  int       `gorm:"not null" json:"sort_order" validate:"gte=0"`
	IsVisible  bool      `gorm:"not null" json:"is_visible"`
	ClientID   *ClientID `gorm:"type:uuid;index" json:"client_id" validate:"required_without=PortalID,excluded_with=PortalID"`
	PortalID   *PortalID `gorm:"type:uuid;index" json:"portal_id" validate:"required_without=ClientID,excluded_with=ClientID"`
	BlockCount int       `gorm:"not null" json:"block_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Page) TableName() string { return "pages" }
func (p Page) Key() uuid.UUID  { return p.ID.UUID() }

func (p *Page) Prepare(now time.Time) {
	if p.ID.IsZero() {
		p.ID = NewPageID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Portal is an owner-authored, multi-page template shared by several clients.
type Portal struct {
	ID          PortalID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title" validate:"required,max=200"`
	Description string    `json:"description"`
	OwnerID     CoachID   `gorm:"type:uuid;index" json:"owner_id"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Portal) TableName() string { return "portals" }
func (p Portal) Key() uuid.UUID  { return p.ID.UUID() }

func (p *Portal) Prepare(now time.Time) {
	if p.ID.IsZero() {
		p.ID = NewPortalID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// PortalMember associates a client with a portal. Removing a member clears
// IsActive; the row itself is kept.
type PortalMember struct {
	ID       PortalMemberID `gorm:"type:uuid;primaryKey" json:"id"`
	PortalID PortalID       `gorm:"type:uuid;not null;index" json:"portal_id" validate:"required"`
	ClientID ClientID       `gorm:"type:uuid;not null;index" json:"client_id" validate:"required"`
	Role     MemberRole     `gorm:"not null" json:"role" validate:"required,member_role"`
	IsActive bool           `gorm:"not null" json:"is_active"`
	JoinedAt time.Time      `json:"joined_at"`
}

func (PortalMember) TableName() string { return "portal_members" }
func (m PortalMember) Key() uuid.UUID  { return m.ID.UUID() }

func (m *PortalMember) Prepare(now time.Time) {
	if m.ID.IsZero() {
		m.ID = NewPortalMemberID()
	}
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now
	}
}

type Client struct {
	ID        ClientID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name" validate:"required,max=200"`
	Email     string       `gorm:"not null;index" json:"email" validate:"required,email"`
	Status    ClientStatus `gorm:"not null" json:"status" validate:"required,oneof=active inactive pending"`
	LastLogin *time.Time   `json:"last_login"`
	CreatedAt time.Time    `json:"created_at"`
}

func (Client) TableName() string { return "clients" }
func (c Client) Key() uuid.UUID  { return c.ID.UUID() }

func (c *Client) Prepare(now time.Time) {
	if c.ID.IsZero() {
		c.ID = NewClientID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
}

// Deliverable is a piece of client work moving through review.
type Deliverable struct {
	ID          DeliverableID     `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID    ClientID          `gorm:"type:uuid;not null;index" json:"client_id" validate:"required"`
	PortalID    *PortalID         `gorm:"type:uuid;index" json:"portal_id"`
	Title       string            `gorm:"not null" json:"title" validate:"required,max=200"`
	Description string            `json:"description"`
	FileURL     string            `json:"file_url" validate:"omitempty,url"`
	Status      DeliverableStatus `gorm:"not null" json:"status" validate:"required,deliverable_status"`
	Comments    int               `gorm:"not null" json:"comments" validate:"gte=0"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

func (Deliverable) TableName() string { return "deliverables" }
func (d Deliverable) Key() uuid.UUID  { return d.ID.UUID() }

func (d *Deliverable) Prepare(now time.Time) {
	if d.ID.IsZero() {
		d.ID = NewDeliverableID()
	}
	if d.SubmittedAt.IsZero() {
		d.SubmittedAt = now
	}
}

// Resource is a library item a coach shares with one client or with everyone.
type Resource struct {
	ID          ResourceID                 `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string                     `gorm:"not null" json:"title" validate:"required,max=200"`
	Description string                     `json:"description"`
	Type        string                     `json:"type"`
	FileURL     string                     `json:"file_url" validate:"omitempty,url"`
	Tags        datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tags"`
	ClientID    *ClientID                  `gorm:"type:uuid;index" json:"client_id"`
	IsGlobal    bool                       `gorm:"not null" json:"is_global"`
	Version     int                        `gorm:"not null" json:"version" validate:"gte=1"`
	Assignments int                        `gorm:"not null" json:"assignments" validate:"gte=0"`
	CreatedAt   time.Time                  `json:"created_at"`
}

func (Resource) TableName() string { return "resources" }
func (r Resource) Key() uuid.UUID  { return r.ID.UUID() }

func (r *Resource) Prepare(now time.Time) {
	if r.ID.IsZero() {
		r.ID = NewResourceID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

type Notification struct {
	ID        NotificationID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string         `json:"title"`
	Message   string         `gorm:"not null" json:"message" validate:"required"`
	Type      string         `json:"type"`
	IsRead    bool           `gorm:"not null" json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
func (n Notification) Key() uuid.UUID  { return n.ID.UUID() }

func (n *Notification) Prepare(now time.Time) {
	if n.ID.IsZero() {
		n.ID = NewNotificationID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
}
