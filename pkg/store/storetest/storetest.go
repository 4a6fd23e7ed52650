// Package storetest runs the same behavioural checks against any
// [store.Store] implementation.
//
// Backends that need an external server call [Run] only when their connection
// settings are present in the environment:
//
//	func TestConformance(t *testing.T) {
//		dsn := os.Getenv("COACHFLOW_TEST_POSTGRES_DSN")
//		if dsn == "" {
//			t.Skip("COACHFLOW_TEST_POSTGRES_DSN not set")
//		}
//		storetest.Run(t, func(t *testing.T) store.Store { ... })
//	}
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// Factory returns a migrated store. Each call may share a database with earlier
// calls; the checks only read records they created themselves.
type Factory func(t *testing.T) store.Store

// Run executes every check as a subtest.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndFetch", func(t *testing.T) { testCreateAndFetch(t, newStore(t)) })
	t.Run("FetchManyOrder", func(t *testing.T) { testFetchManyOrder(t, newStore(t)) })
	t.Run("NilCondition", func(t *testing.T) { testNilCondition(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ReorderBlocks", func(t *testing.T) { testReorderBlocks(t, newStore(t)) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, newStore(t)) })
}

func testCreateAndFetch(t *testing.T, s store.Store) {
	ctx := context.Background()

	b, err := models.NewBlock(models.NewPageID(), models.ChecklistContent{
		Items: []models.ChecklistItem{{Text: "Draft plan", Completed: true}, {Text: "Review"}},
	}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Blocks().Create(ctx, b))
	require.False(t, b.ID.IsZero())

	got, err := s.Blocks().FetchOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.PageID, got.PageID)
	assert.Equal(t, models.BlockTypeChecklist, got.Type)

	p, err := got.Payload()
	require.NoError(t, err)
	assert.Equal(t, models.ChecklistContent{
		Items: []models.ChecklistItem{{Text: "Draft plan", Completed: true}, {Text: "Review"}},
	}, p)

	r := &models.Resource{
		Title:    "Workbook",
		Tags:     []string{"planning", "q1"},
		IsGlobal: true,
		Version:  1,
	}
	require.NoError(t, s.Resources().Create(ctx, r))
	gotR, err := s.Resources().FetchOne(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"planning", "q1"}, []string(gotR.Tags))
	assert.Nil(t, gotR.ClientID)
}

func testFetchManyOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	page := models.NewPageID()

	var want []models.BlockID
	for _, order := range []int{2, 0, 1} {
		b, err := models.NewBlock(page, models.TextContent{Text: "x"}, order)
		require.NoError(t, err)
		require.NoError(t, s.Blocks().Create(ctx, b))
		want = append(want, b.ID)
	}
	want = []models.BlockID{want[1], want[2], want[0]}

	got, err := s.Blocks().FetchMany(ctx, store.ByPage(page).Asc("sort_order"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, b := range got {
		assert.Equal(t, want[i], b.ID, "position %d", i)
	}

	desc, err := s.Blocks().FetchMany(ctx, store.ByPage(page).Desc("sort_order"))
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, want[2], desc[0].ID)

	empty, err := s.Blocks().FetchMany(ctx, store.ByPage(models.NewPageID()))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testNilCondition(t *testing.T, s store.Store) {
	ctx := context.Background()
	client := models.NewClientID()

	own := &models.Deliverable{ClientID: client, Title: "Own", Status: models.StatusSubmitted}
	require.NoError(t, s.Deliverables().Create(ctx, own))
	shared := &models.Deliverable{
		ClientID: client,
		PortalID: models.NewPortalID().Ptr(),
		Title:    "Shared",
		Status:   models.StatusSubmitted,
	}
	require.NoError(t, s.Deliverables().Create(ctx, shared))

	got, err := s.Deliverables().FetchMany(ctx, store.ByClient(client).And("portal_id", nil))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, own.ID, got[0].ID)

	got, err = s.Deliverables().FetchMany(ctx, store.ByClient(client).And("portal_id", shared.PortalID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, shared.ID, got[0].ID)
}

func testUpdate(t *testing.T, s store.Store) {
	ctx := context.Background()
	d := &models.Deliverable{ClientID: models.NewClientID(), Title: "Essay", Status: models.StatusSubmitted}
	require.NoError(t, s.Deliverables().Create(ctx, d))

	updated, err := s.Deliverables().Update(ctx, d.ID, store.Patch{"status": models.StatusApproved, "comments": 2})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, 2, updated.Comments)
	assert.Equal(t, "Essay", updated.Title)

	got, err := s.Deliverables().FetchOne(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)

	_, err = s.Deliverables().Update(ctx, d.ID, store.Patch{"status": "archived"})
	assert.True(t, store.IsValidation(err), "got %v", err)

	_, err = s.Deliverables().Update(ctx, models.NewDeliverableID(), store.Patch{"title": "x"})
	assert.True(t, store.IsNotFound(err), "got %v", err)
}

func testDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	n := &models.Notification{Message: "Session moved"}
	require.NoError(t, s.Notifications().Create(ctx, n))

	require.NoError(t, s.Notifications().Delete(ctx, n.ID))
	_, err := s.Notifications().FetchOne(ctx, n.ID)
	assert.True(t, store.IsNotFound(err), "got %v", err)
	assert.True(t, store.IsNotFound(s.Notifications().Delete(ctx, n.ID)))
}

func testReorderBlocks(t *testing.T, s store.Store) {
	ctx := context.Background()
	page := models.NewPageID()

	var ids []models.BlockID
	for i := 0; i < 4; i++ {
		b, err := models.NewBlock(page, models.TextContent{Text: "x"}, i)
		require.NoError(t, err)
		require.NoError(t, s.Blocks().Create(ctx, b))
		ids = append(ids, b.ID)
	}

	order := []models.BlockID{ids[2], ids[0], ids[1], ids[3]}
	require.NoError(t, s.ReorderBlocks(ctx, page, order))

	got, err := s.Blocks().FetchMany(ctx, store.ByPage(page).Asc("sort_order"))
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, b := range got {
		assert.Equal(t, order[i], b.ID)
		assert.Equal(t, i, b.SortOrder)
	}
}

func testValidation(t *testing.T, s store.Store) {
	ctx := context.Background()

	err := s.Blocks().Create(ctx, &models.Block{Type: "video", PageID: models.NewPageID()})
	assert.True(t, store.IsValidation(err), "got %v", err)

	err = s.PortalMembers().Create(ctx, &models.PortalMember{
		PortalID: models.NewPortalID(),
		ClientID: models.NewClientID(),
		Role:     "owner",
	})
	assert.True(t, store.IsValidation(err), "got %v", err)
}
