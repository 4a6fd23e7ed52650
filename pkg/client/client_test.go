package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/client"
	"github.com/apper-apps/coachflow-optimal/pkg/coachflow"
	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store/memory"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	app := coachflow.NewWithStore(&coachflow.Config{Store: coachflow.StoreMemory}, memory.New(), zerolog.Nop())
	srv := httptest.NewServer(app.Router())
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})
	return client.NewClientWithHTTP(srv.URL+"/", srv.Client())
}

func apiStatus(t *testing.T, err error) int {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	return apiErr.Status
}

func TestWorkspaceRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health["status"])

	cl, err := c.CreateClient(ctx, &models.Client{Name: "Jordan Avery", Email: "jordan@example.com"})
	require.NoError(t, err)

	page, err := c.CreateClientPage(ctx, cl.ID, "Client's Q1 Goals", "")
	require.NoError(t, err)
	assert.Equal(t, "clients-q1-goals", page.Slug)

	text, err := c.AddBlock(ctx, page.ID, models.BlockTypeText)
	require.NoError(t, err)
	list, err := c.AddBlock(ctx, page.ID, models.BlockTypeChecklist)
	require.NoError(t, err)

	list, err = c.AddChecklistItem(ctx, list.ID, "Pick three goals")
	require.NoError(t, err)
	list, err = c.ToggleChecklistItem(ctx, list.ID, 0)
	require.NoError(t, err)
	payload, err := list.Payload()
	require.NoError(t, err)
	assert.Equal(t, []models.ChecklistItem{{Text: "Pick three goals", Completed: true}}, payload.(models.ChecklistContent).Items)

	text, err = c.UpdateBlockContent(ctx, text.ID, map[string]any{"text": "Focus on delegation"})
	require.NoError(t, err)
	assert.Equal(t, "Focus on delegation", text.Content["text"])

	ordered, err := c.MoveBlock(ctx, page.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, list.ID, ordered[0].ID)

	ordered, err = c.ReorderBlocks(ctx, page.ID, []models.BlockID{text.ID})
	require.NoError(t, err)
	assert.Equal(t, text.ID, ordered[0].ID)
	assert.Equal(t, list.ID, ordered[1].ID)

	dup, err := c.DuplicatePage(ctx, page.ID)
	require.NoError(t, err)
	blocks, err := c.ListBlocks(ctx, dup.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)

	pages, err := c.ReorderClientPages(ctx, cl.ID, []models.PageID{dup.ID, page.ID})
	require.NoError(t, err)
	assert.Equal(t, dup.ID, pages[0].ID)

	require.NoError(t, c.DeleteBlock(ctx, text.ID))
	_, err = c.GetBlock(ctx, text.ID)
	assert.Equal(t, http.StatusNotFound, apiStatus(t, err))
}

func TestPortalRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	owner := models.NewCoachID()

	cl, err := c.CreateClient(ctx, &models.Client{Name: "Sam", Email: "sam@example.com"})
	require.NoError(t, err)
	portal, err := c.CreatePortal(ctx, &models.Portal{Title: "Leadership", OwnerID: owner})
	require.NoError(t, err)

	pages, err := c.CreateDefaultPages(ctx, portal.ID)
	require.NoError(t, err)
	assert.Len(t, pages, 3)

	owned, err := c.ListPortals(ctx, owner)
	require.NoError(t, err)
	require.Len(t, owned, 1)

	_, err = c.AddMember(ctx, portal.ID, cl.ID, models.RoleViewer)
	require.NoError(t, err)
	_, err = c.AddMember(ctx, portal.ID, cl.ID, models.RoleViewer)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.NotEmpty(t, apiErr.Fields)
	assert.Equal(t, "client_id", apiErr.Fields[0].Field)

	memberships, err := c.ListClientPortals(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, memberships, 1)
	assert.Equal(t, models.RoleViewer, memberships[0].Role)

	require.NoError(t, c.RemoveMember(ctx, portal.ID, cl.ID))
	members, err := c.ListMembers(ctx, portal.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	item, err := c.CreatePortalDeliverable(ctx, portal.ID, &models.Deliverable{ClientID: cl.ID, Title: "Reflection"})
	require.NoError(t, err)
	_, err = c.UpdateDeliverableStatus(ctx, item.ID, models.StatusNeedsChanges)
	require.NoError(t, err)

	board, err := c.DeliverableBoard(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Len(t, board[2].Items, 1)
	assert.Equal(t, "Needs Changes", board[2].Title)
}

func TestReadOnlyThroughClient(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	on, err := c.SetReadOnly(ctx, true)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = c.CreateNotification(ctx, &models.Notification{Message: "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, apiStatus(t, err))

	list, err := c.ListNotifications(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = c.SetReadOnly(ctx, false)
	require.NoError(t, err)
	_, err = c.CreateNotification(ctx, &models.Notification{Message: "hello"})
	require.NoError(t, err)
	n, err := c.MarkAllNotificationsRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
