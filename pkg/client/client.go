// Package client is a typed Go client for the coachflow HTTP API.
//
// Every method maps to one endpoint and uses the same [models] types as the
// server. Failed calls return an [*APIError] carrying the HTTP status, the
// server's message and, for 422 replies, the rejected fields:
//
//	c := client.NewClient("http://localhost:8080")
//	page, err := c.CreateClientPage(ctx, clientID, "Q1 Goals", "Target")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
//		for _, f := range apiErr.Fields {
//			fmt.Println(f.Field, f.Message)
//		}
//	}
//
// Client instances are safe for concurrent use by multiple goroutines.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apper-apps/coachflow-optimal/pkg/coaching"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Client talks to one coachflow server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL, e.g. "http://localhost:8080", with a
// 30 second request timeout.
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a client that sends requests through hc.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
	Fields  []store.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d, message=%s", e.Status, e.Message)
}

// doRequest performs an HTTP request with proper headers
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// decodeResponse decodes the JSON response into target, or the error body into
// an APIError.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode}
		var reply struct {
			Error  string             `json:"error"`
			Fields []store.FieldError `json:"fields"`
		}
		if err := json.Unmarshal(body, &reply); err == nil && reply.Error != "" {
			apiErr.Message = reply.Error
			apiErr.Fields = reply.Fields
		} else {
			apiErr.Message = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, error) {
	var result T
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return result, err
	}
	err = decodeResponse(resp, &result)
	return result, err
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Health checks the health status of the server
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return call[map[string]any](ctx, c, http.MethodGet, "/health", nil)
}

type readOnlyState struct {
	ReadOnly bool `json:"read_only"`
}

type markAllReadResult struct {
	Updated int `json:"updated"`
}

// SetReadOnly switches the server's maintenance mode and returns the new state.
func (c *Client) SetReadOnly(ctx context.Context, readOnly bool) (bool, error) {
	state, err := call[readOnlyState](ctx, c, http.MethodPut, "/api/admin/read-only", readOnlyState{ReadOnly: readOnly})
	return state.ReadOnly, err
}

// Clients

func (c *Client) CreateClient(ctx context.Context, in *models.Client) (*models.Client, error) {
	return call[*models.Client](ctx, c, http.MethodPost, "/api/clients", in)
}

func (c *Client) ListClients(ctx context.Context) ([]*models.Client, error) {
	return call[[]*models.Client](ctx, c, http.MethodGet, "/api/clients", nil)
}

func (c *Client) GetClient(ctx context.Context, id models.ClientID) (*models.Client, error) {
	return call[*models.Client](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s", id), nil)
}

// UpdateClient applies a partial update keyed by json field name.
func (c *Client) UpdateClient(ctx context.Context, id models.ClientID, patch store.Patch) (*models.Client, error) {
	return call[*models.Client](ctx, c, http.MethodPatch, fmt.Sprintf("/api/clients/%s", id), patch)
}

func (c *Client) DeleteClient(ctx context.Context, id models.ClientID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/clients/%s", id), nil)
}

// ListClientPortals returns the client's active portal memberships.
func (c *Client) ListClientPortals(ctx context.Context, id models.ClientID) ([]*models.PortalMember, error) {
	return call[[]*models.PortalMember](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s/portals", id), nil)
}

func (c *Client) ListClientDeliverables(ctx context.Context, id models.ClientID) ([]*models.Deliverable, error) {
	return call[[]*models.Deliverable](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s/deliverables", id), nil)
}

// DeliverableBoard returns the client's deliverables in the four review columns.
func (c *Client) DeliverableBoard(ctx context.Context, id models.ClientID) ([]coaching.Column, error) {
	return call[[]coaching.Column](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s/deliverables/board", id), nil)
}

// ListClientResources returns the client's own resources and every global one.
func (c *Client) ListClientResources(ctx context.Context, id models.ClientID) ([]*models.Resource, error) {
	return call[[]*models.Resource](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s/resources", id), nil)
}

// Pages

type pageRequest struct {
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
}

func (c *Client) CreateClientPage(ctx context.Context, id models.ClientID, title, icon string) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/clients/%s/pages", id), pageRequest{title, icon})
}

func (c *Client) ListClientPages(ctx context.Context, id models.ClientID) ([]*models.Page, error) {
	return call[[]*models.Page](ctx, c, http.MethodGet, fmt.Sprintf("/api/clients/%s/pages", id), nil)
}

func (c *Client) ReorderClientPages(ctx context.Context, id models.ClientID, order []models.PageID) ([]*models.Page, error) {
	return call[[]*models.Page](ctx, c, http.MethodPut, fmt.Sprintf("/api/clients/%s/pages/reorder", id), map[string]any{"ids": order})
}

func (c *Client) CreatePortalPage(ctx context.Context, id models.PortalID, title, icon string) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/portals/%s/pages", id), pageRequest{title, icon})
}

func (c *Client) ListPortalPages(ctx context.Context, id models.PortalID) ([]*models.Page, error) {
	return call[[]*models.Page](ctx, c, http.MethodGet, fmt.Sprintf("/api/portals/%s/pages", id), nil)
}

func (c *Client) ReorderPortalPages(ctx context.Context, id models.PortalID, order []models.PageID) ([]*models.Page, error) {
	return call[[]*models.Page](ctx, c, http.MethodPut, fmt.Sprintf("/api/portals/%s/pages/reorder", id), map[string]any{"ids": order})
}

func (c *Client) GetPage(ctx context.Context, id models.PageID) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodGet, fmt.Sprintf("/api/pages/%s", id), nil)
}

func (c *Client) UpdatePage(ctx context.Context, id models.PageID, patch store.Patch) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodPatch, fmt.Sprintf("/api/pages/%s", id), patch)
}

func (c *Client) DeletePage(ctx context.Context, id models.PageID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/pages/%s", id), nil)
}

// DuplicatePage copies a page's metadata under the same parent. Blocks are not
// copied.
func (c *Client) DuplicatePage(ctx context.Context, id models.PageID) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/pages/%s/duplicate", id), nil)
}

func (c *Client) TogglePageVisibility(ctx context.Context, id models.PageID) (*models.Page, error) {
	return call[*models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/pages/%s/visibility", id), nil)
}

// Blocks

func (c *Client) ListBlocks(ctx context.Context, pageID models.PageID) ([]*models.Block, error) {
	return call[[]*models.Block](ctx, c, http.MethodGet, fmt.Sprintf("/api/pages/%s/blocks", pageID), nil)
}

// AddBlock appends a block of type t with its default content.
func (c *Client) AddBlock(ctx context.Context, pageID models.PageID, t models.BlockType) (*models.Block, error) {
	return call[*models.Block](ctx, c, http.MethodPost, fmt.Sprintf("/api/pages/%s/blocks", pageID), map[string]any{"type": t})
}

// ReorderBlocks puts the page's blocks in the order of ids. Blocks ids leaves out
// follow in their current order.
func (c *Client) ReorderBlocks(ctx context.Context, pageID models.PageID, ids []models.BlockID) ([]*models.Block, error) {
	return call[[]*models.Block](ctx, c, http.MethodPut, fmt.Sprintf("/api/pages/%s/blocks/reorder", pageID), map[string]any{"ids": ids})
}

func (c *Client) MoveBlock(ctx context.Context, pageID models.PageID, from, to int) ([]*models.Block, error) {
	return call[[]*models.Block](ctx, c, http.MethodPost, fmt.Sprintf("/api/pages/%s/blocks/move", pageID), map[string]int{"from": from, "to": to})
}

func (c *Client) GetBlock(ctx context.Context, id models.BlockID) (*models.Block, error) {
	return call[*models.Block](ctx, c, http.MethodGet, fmt.Sprintf("/api/blocks/%s", id), nil)
}

// UpdateBlockContent merges partial into the block's content.
func (c *Client) UpdateBlockContent(ctx context.Context, id models.BlockID, partial map[string]any) (*models.Block, error) {
	return call[*models.Block](ctx, c, http.MethodPatch, fmt.Sprintf("/api/blocks/%s", id), partial)
}

func (c *Client) DeleteBlock(ctx context.Context, id models.BlockID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/blocks/%s", id), nil)
}

func (c *Client) AddChecklistItem(ctx context.Context, id models.BlockID, text string) (*models.Block, error) {
	return call[*models.Block](ctx, c, http.MethodPost, fmt.Sprintf("/api/blocks/%s/items", id), map[string]string{"text": text})
}

func (c *Client) ToggleChecklistItem(ctx context.Context, id models.BlockID, index int) (*models.Block, error) {
	return call[*models.Block](ctx, c, http.MethodPost, fmt.Sprintf("/api/blocks/%s/items/%d/toggle", id, index), nil)
}

// Portals

func (c *Client) CreatePortal(ctx context.Context, in *models.Portal) (*models.Portal, error) {
	return call[*models.Portal](ctx, c, http.MethodPost, "/api/portals", in)
}

// ListPortals lists every portal, or those of owner when it is non-zero.
func (c *Client) ListPortals(ctx context.Context, owner models.CoachID) ([]*models.Portal, error) {
	path := "/api/portals"
	if !owner.IsZero() {
		path += "?owner_id=" + url.QueryEscape(owner.String())
	}
	return call[[]*models.Portal](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) GetPortal(ctx context.Context, id models.PortalID) (*models.Portal, error) {
	return call[*models.Portal](ctx, c, http.MethodGet, fmt.Sprintf("/api/portals/%s", id), nil)
}

func (c *Client) UpdatePortal(ctx context.Context, id models.PortalID, patch store.Patch) (*models.Portal, error) {
	return call[*models.Portal](ctx, c, http.MethodPatch, fmt.Sprintf("/api/portals/%s", id), patch)
}

func (c *Client) DeletePortal(ctx context.Context, id models.PortalID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/portals/%s", id), nil)
}

func (c *Client) SetPortalActive(ctx context.Context, id models.PortalID, active bool) (*models.Portal, error) {
	return call[*models.Portal](ctx, c, http.MethodPut, fmt.Sprintf("/api/portals/%s/active", id), map[string]bool{"active": active})
}

// CreateDefaultPages adds the starter pages to a portal.
func (c *Client) CreateDefaultPages(ctx context.Context, id models.PortalID) ([]*models.Page, error) {
	return call[[]*models.Page](ctx, c, http.MethodPost, fmt.Sprintf("/api/portals/%s/default-pages", id), nil)
}

func (c *Client) ListMembers(ctx context.Context, id models.PortalID) ([]*models.PortalMember, error) {
	return call[[]*models.PortalMember](ctx, c, http.MethodGet, fmt.Sprintf("/api/portals/%s/members", id), nil)
}

func (c *Client) AddMember(ctx context.Context, portalID models.PortalID, clientID models.ClientID, role models.MemberRole) (*models.PortalMember, error) {
	body := map[string]any{"client_id": clientID, "role": role}
	return call[*models.PortalMember](ctx, c, http.MethodPost, fmt.Sprintf("/api/portals/%s/members", portalID), body)
}

func (c *Client) RemoveMember(ctx context.Context, portalID models.PortalID, clientID models.ClientID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/portals/%s/members/%s", portalID, clientID), nil)
}

func (c *Client) ListPortalDeliverables(ctx context.Context, id models.PortalID) ([]*models.Deliverable, error) {
	return call[[]*models.Deliverable](ctx, c, http.MethodGet, fmt.Sprintf("/api/portals/%s/deliverables", id), nil)
}

func (c *Client) CreatePortalDeliverable(ctx context.Context, id models.PortalID, in *models.Deliverable) (*models.Deliverable, error) {
	return call[*models.Deliverable](ctx, c, http.MethodPost, fmt.Sprintf("/api/portals/%s/deliverables", id), in)
}

// Deliverables

func (c *Client) CreateDeliverable(ctx context.Context, in *models.Deliverable) (*models.Deliverable, error) {
	return call[*models.Deliverable](ctx, c, http.MethodPost, "/api/deliverables", in)
}

func (c *Client) GetDeliverable(ctx context.Context, id models.DeliverableID) (*models.Deliverable, error) {
	return call[*models.Deliverable](ctx, c, http.MethodGet, fmt.Sprintf("/api/deliverables/%s", id), nil)
}

func (c *Client) UpdateDeliverable(ctx context.Context, id models.DeliverableID, patch store.Patch) (*models.Deliverable, error) {
	return call[*models.Deliverable](ctx, c, http.MethodPatch, fmt.Sprintf("/api/deliverables/%s", id), patch)
}

func (c *Client) UpdateDeliverableStatus(ctx context.Context, id models.DeliverableID, status models.DeliverableStatus) (*models.Deliverable, error) {
	return call[*models.Deliverable](ctx, c, http.MethodPut, fmt.Sprintf("/api/deliverables/%s/status", id), map[string]any{"status": status})
}

func (c *Client) DeleteDeliverable(ctx context.Context, id models.DeliverableID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/deliverables/%s", id), nil)
}

// Resources

func (c *Client) CreateResource(ctx context.Context, in *models.Resource) (*models.Resource, error) {
	return call[*models.Resource](ctx, c, http.MethodPost, "/api/resources", in)
}

func (c *Client) ListResources(ctx context.Context) ([]*models.Resource, error) {
	return call[[]*models.Resource](ctx, c, http.MethodGet, "/api/resources", nil)
}

func (c *Client) GetResource(ctx context.Context, id models.ResourceID) (*models.Resource, error) {
	return call[*models.Resource](ctx, c, http.MethodGet, fmt.Sprintf("/api/resources/%s", id), nil)
}

func (c *Client) UpdateResource(ctx context.Context, id models.ResourceID, patch store.Patch) (*models.Resource, error) {
	return call[*models.Resource](ctx, c, http.MethodPatch, fmt.Sprintf("/api/resources/%s", id), patch)
}

func (c *Client) DeleteResource(ctx context.Context, id models.ResourceID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/resources/%s", id), nil)
}

func (c *Client) AssignResource(ctx context.Context, id models.ResourceID, clientID models.ClientID) (*models.Resource, error) {
	return call[*models.Resource](ctx, c, http.MethodPost, fmt.Sprintf("/api/resources/%s/assign", id), map[string]any{"client_id": clientID})
}

// Notifications

func (c *Client) CreateNotification(ctx context.Context, in *models.Notification) (*models.Notification, error) {
	return call[*models.Notification](ctx, c, http.MethodPost, "/api/notifications", in)
}

// ListNotifications returns every notification, or only unread ones newest first.
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]*models.Notification, error) {
	path := "/api/notifications"
	if unreadOnly {
		path += "?unread=true"
	}
	return call[[]*models.Notification](ctx, c, http.MethodGet, path, nil)
}

func (c *Client) MarkNotificationRead(ctx context.Context, id models.NotificationID) (*models.Notification, error) {
	return call[*models.Notification](ctx, c, http.MethodPost, fmt.Sprintf("/api/notifications/%s/read", id), nil)
}

// MarkAllNotificationsRead reports how many notifications changed.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	out, err := call[markAllReadResult](ctx, c, http.MethodPost, "/api/notifications/read-all", nil)
	return out.Updated, err
}

func (c *Client) DeleteNotification(ctx context.Context, id models.NotificationID) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/api/notifications/%s", id), nil)
}
