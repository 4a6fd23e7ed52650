package coachflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/coaching"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
	"github.com/apper-apps/coachflow-optimal/pkg/store/memory"
)

func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

type testServer struct {
	t       *testing.T
	app     *App
	handler http.Handler
}

func newTestServer(t *testing.T, base store.Store) *testServer {
	t.Helper()
	if base == nil {
		base = memory.New(memory.WithClock(steppingClock()))
	}
	app := NewWithStore(&Config{Store: StoreMemory, Port: "0"}, base, zerolog.Nop())
	t.Cleanup(func() { _ = app.Close() })
	return &testServer{t: t, app: app, handler: app.Router()}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// expect asserts the status of rec and decodes its body.
func expect[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	return decodeAs[T](t, rec)
}

func (s *testServer) createClient(name string) *models.Client {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/clients", models.Client{Name: name, Email: strings.ToLower(name) + "@example.com"})
	return expect[*models.Client](s.t, rec, http.StatusCreated)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/health", "/api/health"} {
		body := expect[map[string]any](t, srv.do(http.MethodGet, path, nil), http.StatusOK)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, StoreMemory, body["store"])
		assert.Equal(t, false, body["read_only"])
	}
}

func TestClientWorkspace(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Jordan")
	assert.Equal(t, models.ClientActive, client.Status)

	pagesPath := "/api/clients/" + client.ID.String() + "/pages"
	page := expect[*models.Page](t, srv.do(http.MethodPost, pagesPath, PageRequest{Title: "Client's Q1 Goals"}), http.StatusCreated)
	assert.Equal(t, "clients-q1-goals", page.Slug)
	assert.Equal(t, models.DefaultPageIcon, page.Icon)
	require.NotNil(t, page.ClientID)
	assert.Equal(t, client.ID, *page.ClientID)

	second := expect[*models.Page](t, srv.do(http.MethodPost, pagesPath, PageRequest{Title: "Notes", Icon: "Pen"}), http.StatusCreated)
	pages := expect[[]*models.Page](t, srv.do(http.MethodPut, pagesPath+"/reorder", PageOrderRequest{IDs: []models.PageID{second.ID, page.ID}}), http.StatusOK)
	require.Len(t, pages, 2)
	assert.Equal(t, second.ID, pages[0].ID)
	assert.Equal(t, 0, pages[0].SortOrder)

	listed := expect[[]*models.Page](t, srv.do(http.MethodGet, pagesPath, nil), http.StatusOK)
	assert.Equal(t, []models.PageID{second.ID, page.ID}, []models.PageID{listed[0].ID, listed[1].ID})

	pagePath := "/api/pages/" + page.ID.String()
	updated := expect[*models.Page](t, srv.do(http.MethodPatch, pagePath, map[string]any{"icon": "Target"}), http.StatusOK)
	assert.Equal(t, "Target", updated.Icon)

	hidden := expect[*models.Page](t, srv.do(http.MethodPost, pagePath+"/visibility", nil), http.StatusOK)
	assert.False(t, hidden.IsVisible)

	dup := expect[*models.Page](t, srv.do(http.MethodPost, pagePath+"/duplicate", nil), http.StatusCreated)
	assert.Equal(t, "Client's Q1 Goals (Copy)", dup.Title)
	assert.Equal(t, "clients-q1-goals-copy", dup.Slug)

	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/pages/"+dup.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/pages/"+dup.ID.String(), nil).Code)
}

func TestBlockEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Sam")
	page := expect[*models.Page](t, srv.do(http.MethodPost, "/api/clients/"+client.ID.String()+"/pages", PageRequest{Title: "Plan"}), http.StatusCreated)
	blocksPath := "/api/pages/" + page.ID.String() + "/blocks"

	var blocks []*models.Block
	for _, bt := range []models.BlockType{models.BlockTypeText, models.BlockTypeLink, models.BlockTypeChecklist} {
		b := expect[*models.Block](t, srv.do(http.MethodPost, blocksPath, BlockRequest{Type: bt}), http.StatusCreated)
		assert.Equal(t, bt, b.Type)
		assert.Equal(t, len(blocks), b.SortOrder)
		blocks = append(blocks, b)
	}
	text, link, checklist := blocks[0], blocks[1], blocks[2]

	fresh := expect[*models.Page](t, srv.do(http.MethodGet, "/api/pages/"+page.ID.String(), nil), http.StatusOK)
	assert.Equal(t, 3, fresh.BlockCount)

	t.Run("unknown type", func(t *testing.T) {
		body := expect[ErrorResponse](t, srv.do(http.MethodPost, blocksPath, BlockRequest{Type: "video"}), http.StatusUnprocessableEntity)
		require.Len(t, body.Fields, 1)
		assert.Equal(t, "type", body.Fields[0].Field)
	})

	t.Run("partial content update", func(t *testing.T) {
		b := expect[*models.Block](t, srv.do(http.MethodPatch, "/api/blocks/"+link.ID.String(), map[string]any{"url": "https://example.com/read"}), http.StatusOK)
		assert.Equal(t, "https://example.com/read", b.Content["url"])
		assert.Contains(t, b.Content, "title")
	})

	t.Run("checklist items", func(t *testing.T) {
		itemsPath := "/api/blocks/" + checklist.ID.String() + "/items"
		b := expect[*models.Block](t, srv.do(http.MethodPost, itemsPath, ChecklistItemRequest{Text: "Draft values"}), http.StatusOK)
		payload, err := b.Payload()
		require.NoError(t, err)
		require.Len(t, payload.(models.ChecklistContent).Items, 1)

		b = expect[*models.Block](t, srv.do(http.MethodPost, itemsPath+"/0/toggle", nil), http.StatusOK)
		payload, err = b.Payload()
		require.NoError(t, err)
		assert.True(t, payload.(models.ChecklistContent).Items[0].Completed)

		assert.Equal(t, http.StatusUnprocessableEntity, srv.do(http.MethodPost, itemsPath+"/5/toggle", nil).Code)
	})

	t.Run("move", func(t *testing.T) {
		moved := expect[[]*models.Block](t, srv.do(http.MethodPost, blocksPath+"/move", MoveRequest{From: 2, To: 0}), http.StatusOK)
		assert.Equal(t, []models.BlockID{checklist.ID, text.ID, link.ID}, ids(moved))

		listed := expect[[]*models.Block](t, srv.do(http.MethodGet, blocksPath, nil), http.StatusOK)
		assert.Equal(t, []models.BlockID{checklist.ID, text.ID, link.ID}, ids(listed))
		for i, b := range listed {
			assert.Equal(t, i, b.SortOrder)
		}

		assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, blocksPath+"/move", MoveRequest{From: 0, To: 9}).Code)
	})

	t.Run("reorder", func(t *testing.T) {
		ordered := expect[[]*models.Block](t, srv.do(http.MethodPut, blocksPath+"/reorder", BlockOrderRequest{IDs: []models.BlockID{link.ID, text.ID}}), http.StatusOK)
		assert.Equal(t, []models.BlockID{link.ID, text.ID, checklist.ID}, ids(ordered))
	})

	t.Run("delete keeps gaps", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/blocks/"+text.ID.String(), nil).Code)
		listed := expect[[]*models.Block](t, srv.do(http.MethodGet, blocksPath, nil), http.StatusOK)
		require.Len(t, listed, 2)
		assert.Equal(t, 0, listed[0].SortOrder)
		assert.Equal(t, 2, listed[1].SortOrder)
		assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/blocks/"+text.ID.String(), nil).Code)

		appended := expect[*models.Block](t, srv.do(http.MethodPost, blocksPath, BlockRequest{Type: models.BlockTypeEmbed}), http.StatusCreated)
		assert.Equal(t, 3, appended.SortOrder)
		listed = expect[[]*models.Block](t, srv.do(http.MethodGet, blocksPath, nil), http.StatusOK)
		assert.Equal(t, appended.ID, listed[len(listed)-1].ID)
	})
}

func ids(blocks []*models.Block) []models.BlockID {
	out := make([]models.BlockID, len(blocks))
	for i, b := range blocks {
		out[i] = b.ID
	}
	return out
}

// unreachableStore fails block reordering the way a backend outage would.
type unreachableStore struct{ store.Store }

func (unreachableStore) ReorderBlocks(context.Context, models.PageID, []models.BlockID) error {
	return store.Transport("reorder blocks", errors.New("connection refused"))
}

func TestErrorResponses(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("malformed id", func(t *testing.T) {
		body := expect[ErrorResponse](t, srv.do(http.MethodGet, "/api/pages/not-a-uuid", nil), http.StatusBadRequest)
		assert.Equal(t, "Invalid page ID", body.Error)
	})

	t.Run("malformed body", func(t *testing.T) {
		body := expect[ErrorResponse](t, srv.do(http.MethodPost, "/api/clients", "{"), http.StatusBadRequest)
		assert.Equal(t, "Invalid request payload", body.Error)
	})

	t.Run("missing record", func(t *testing.T) {
		for _, path := range []string{
			"/api/pages/" + models.NewPageID().String(),
			"/api/blocks/" + models.NewBlockID().String(),
			"/api/portals/" + models.NewPortalID().String(),
			"/api/clients/" + models.NewClientID().String(),
			"/api/deliverables/" + models.NewDeliverableID().String(),
			"/api/resources/" + models.NewResourceID().String(),
		} {
			assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, path, nil).Code, path)
		}
	})

	t.Run("validation fields", func(t *testing.T) {
		body := expect[ErrorResponse](t, srv.do(http.MethodPost, "/api/clients", map[string]any{"name": "", "email": "nope"}), http.StatusUnprocessableEntity)
		var fields []string
		for _, f := range body.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"name", "email"}, fields)
	})

	t.Run("unknown patch field", func(t *testing.T) {
		client := srv.createClient("Robin")
		body := expect[ErrorResponse](t, srv.do(http.MethodPatch, "/api/clients/"+client.ID.String(), map[string]any{"nickname": "Rob"}), http.StatusUnprocessableEntity)
		require.Len(t, body.Fields, 1)
		assert.Equal(t, "nickname", body.Fields[0].Field)
	})

	t.Run("store unavailable", func(t *testing.T) {
		down := newTestServer(t, unreachableStore{memory.New()})
		client := down.createClient("Alex")
		page := expect[*models.Page](t, down.do(http.MethodPost, "/api/clients/"+client.ID.String()+"/pages", PageRequest{Title: "Plan"}), http.StatusCreated)
		blocksPath := "/api/pages/" + page.ID.String() + "/blocks"
		expect[*models.Block](t, down.do(http.MethodPost, blocksPath, BlockRequest{Type: models.BlockTypeText}), http.StatusCreated)

		body := expect[ErrorResponse](t, down.do(http.MethodPut, blocksPath+"/reorder", BlockOrderRequest{}), http.StatusBadGateway)
		assert.Equal(t, "record store unavailable", body.Error)
	})
}

func TestReadOnlyMode(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Casey")

	state := expect[ReadOnlyState](t, srv.do(http.MethodPut, "/api/admin/read-only", ReadOnlyState{ReadOnly: true}), http.StatusOK)
	assert.True(t, state.ReadOnly)
	assert.True(t, srv.app.IsReadOnly())

	assert.Equal(t, http.StatusServiceUnavailable, srv.do(http.MethodPost, "/api/clients", models.Client{Name: "Blocked", Email: "blocked@example.com"}).Code)
	assert.Equal(t, http.StatusServiceUnavailable, srv.do(http.MethodDelete, "/api/clients/"+client.ID.String(), nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/clients/"+client.ID.String(), nil).Code)

	state = expect[ReadOnlyState](t, srv.do(http.MethodGet, "/api/admin/read-only", nil), http.StatusOK)
	assert.True(t, state.ReadOnly)

	expect[ReadOnlyState](t, srv.do(http.MethodPut, "/api/admin/read-only", ReadOnlyState{}), http.StatusOK)
	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/clients/"+client.ID.String(), nil).Code)
}

func TestPortalEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Morgan")
	owner := models.NewCoachID()

	portal := expect[*models.Portal](t, srv.do(http.MethodPost, "/api/portals", models.Portal{Title: "Cohort", OwnerID: owner}), http.StatusCreated)
	assert.True(t, portal.IsActive)
	portalPath := "/api/portals/" + portal.ID.String()

	pages := expect[[]*models.Page](t, srv.do(http.MethodPost, portalPath+"/default-pages", nil), http.StatusCreated)
	require.Len(t, pages, len(coaching.DefaultPortalPages))
	for i, p := range pages {
		assert.Equal(t, coaching.DefaultPortalPages[i].Title, p.Title)
		require.NotNil(t, p.PortalID)
		assert.Nil(t, p.ClientID)
	}
	listed := expect[[]*models.Page](t, srv.do(http.MethodGet, portalPath+"/pages", nil), http.StatusOK)
	assert.Len(t, listed, 3)

	owned := expect[[]*models.Portal](t, srv.do(http.MethodGet, "/api/portals?owner_id="+owner.String(), nil), http.StatusOK)
	require.Len(t, owned, 1)
	none := expect[[]*models.Portal](t, srv.do(http.MethodGet, "/api/portals?owner_id="+models.NewCoachID().String(), nil), http.StatusOK)
	assert.Empty(t, none)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/portals?owner_id=x", nil).Code)

	inactive := expect[*models.Portal](t, srv.do(http.MethodPut, portalPath+"/active", ActiveRequest{Active: false}), http.StatusOK)
	assert.False(t, inactive.IsActive)

	t.Run("members", func(t *testing.T) {
		membersPath := portalPath + "/members"
		member := expect[*models.PortalMember](t, srv.do(http.MethodPost, membersPath, MemberRequest{ClientID: client.ID}), http.StatusCreated)
		assert.Equal(t, models.RoleMember, member.Role)
		assert.True(t, member.IsActive)

		dup := expect[ErrorResponse](t, srv.do(http.MethodPost, membersPath, MemberRequest{ClientID: client.ID}), http.StatusUnprocessableEntity)
		require.Len(t, dup.Fields, 1)
		assert.Equal(t, "client_id", dup.Fields[0].Field)

		portals := expect[[]*models.PortalMember](t, srv.do(http.MethodGet, "/api/clients/"+client.ID.String()+"/portals", nil), http.StatusOK)
		require.Len(t, portals, 1)
		assert.Equal(t, portal.ID, portals[0].PortalID)

		memberPath := membersPath + "/" + client.ID.String()
		assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, memberPath, nil).Code)
		assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, memberPath, nil).Code)
		assert.Empty(t, expect[[]*models.PortalMember](t, srv.do(http.MethodGet, membersPath, nil), http.StatusOK))

		missing := "/api/portals/" + models.NewPortalID().String() + "/members"
		assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, missing, MemberRequest{ClientID: client.ID}).Code)
	})

	t.Run("deliverables", func(t *testing.T) {
		item := expect[*models.Deliverable](t, srv.do(http.MethodPost, portalPath+"/deliverables", models.Deliverable{ClientID: client.ID, Title: "Reflection"}), http.StatusCreated)
		require.NotNil(t, item.PortalID)
		assert.Equal(t, portal.ID, *item.PortalID)
		assert.Len(t, expect[[]*models.Deliverable](t, srv.do(http.MethodGet, portalPath+"/deliverables", nil), http.StatusOK), 1)
	})
}

func TestDeliverableEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Riley")

	item := expect[*models.Deliverable](t, srv.do(http.MethodPost, "/api/deliverables", models.Deliverable{
		ClientID: client.ID,
		Title:    "Goals draft",
		Status:   models.StatusApproved,
	}), http.StatusCreated)
	assert.Equal(t, models.StatusSubmitted, item.Status)
	itemPath := "/api/deliverables/" + item.ID.String()

	bad := expect[ErrorResponse](t, srv.do(http.MethodPut, itemPath+"/status", StatusRequest{Status: "archived"}), http.StatusUnprocessableEntity)
	assert.Contains(t, bad.Error, "status must be one of")

	approved := expect[*models.Deliverable](t, srv.do(http.MethodPut, itemPath+"/status", StatusRequest{Status: models.StatusApproved}), http.StatusOK)
	assert.Equal(t, models.StatusApproved, approved.Status)
	back := expect[*models.Deliverable](t, srv.do(http.MethodPut, itemPath+"/status", StatusRequest{Status: models.StatusSubmitted}), http.StatusOK)
	assert.Equal(t, models.StatusSubmitted, back.Status)

	patched := expect[*models.Deliverable](t, srv.do(http.MethodPatch, itemPath, map[string]any{"comments": 2}), http.StatusOK)
	assert.Equal(t, 2, patched.Comments)

	board := expect[[]coaching.Column](t, srv.do(http.MethodGet, "/api/clients/"+client.ID.String()+"/deliverables/board", nil), http.StatusOK)
	require.Len(t, board, 4)
	for i, col := range board {
		assert.Equal(t, models.DeliverableStatuses[i], col.Status)
	}
	assert.Len(t, board[0].Items, 1)

	assert.Len(t, expect[[]*models.Deliverable](t, srv.do(http.MethodGet, "/api/clients/"+client.ID.String()+"/deliverables", nil), http.StatusOK), 1)
	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, itemPath, nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, itemPath, nil).Code)
}

func TestLibraryEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	client := srv.createClient("Taylor")

	global := expect[*models.Resource](t, srv.do(http.MethodPost, "/api/resources", models.Resource{Title: "Worksheet", IsGlobal: true, Tags: []string{"goals"}}), http.StatusCreated)
	assert.Equal(t, 1, global.Version)
	private := expect[*models.Resource](t, srv.do(http.MethodPost, "/api/resources", models.Resource{Title: "Notes"}), http.StatusCreated)

	assigned := expect[*models.Resource](t, srv.do(http.MethodPost, "/api/resources/"+private.ID.String()+"/assign", AssignRequest{ClientID: client.ID}), http.StatusOK)
	assert.Nil(t, assigned.ClientID)
	assert.Equal(t, 1, assigned.Assignments)

	// assigning only counts; the private resource stays out of the client's library
	forClient := expect[[]*models.Resource](t, srv.do(http.MethodGet, "/api/clients/"+client.ID.String()+"/resources", nil), http.StatusOK)
	require.Len(t, forClient, 1)
	assert.Equal(t, global.ID, forClient[0].ID)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPost, "/api/resources/"+global.ID.String()+"/assign", AssignRequest{ClientID: models.NewClientID()}).Code)

	for _, msg := range []string{"Deliverable submitted", "Session booked"} {
		expect[*models.Notification](t, srv.do(http.MethodPost, "/api/notifications", models.Notification{Message: msg, IsRead: true}), http.StatusCreated)
	}
	unread := expect[[]*models.Notification](t, srv.do(http.MethodGet, "/api/notifications?unread=true", nil), http.StatusOK)
	require.Len(t, unread, 2)
	assert.Equal(t, "Session booked", unread[0].Message)

	read := expect[*models.Notification](t, srv.do(http.MethodPost, "/api/notifications/"+unread[0].ID.String()+"/read", nil), http.StatusOK)
	assert.True(t, read.IsRead)
	result := expect[MarkAllReadResponse](t, srv.do(http.MethodPost, "/api/notifications/read-all", nil), http.StatusOK)
	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, expect[[]*models.Notification](t, srv.do(http.MethodGet, "/api/notifications?unread=true", nil), http.StatusOK))
	assert.Len(t, expect[[]*models.Notification](t, srv.do(http.MethodGet, "/api/notifications", nil), http.StatusOK), 2)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/notifications?unread=maybe", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.do(http.MethodGet, "/health", nil)
	srv.app.SetReadOnly(true)
	srv.do(http.MethodPost, "/api/clients", models.Client{Name: "Quinn", Email: "quinn@example.com"})

	rec := srv.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `coachflow_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, body, `coachflow_http_requests_total{method="POST",route="/api/clients",status="503"} 1`)
	assert.Contains(t, body, `coachflow_store_operations_total{op="create",outcome="read_only",table="clients"} 1`)
	assert.Contains(t, body, "coachflow_http_request_duration_seconds_bucket")
}
