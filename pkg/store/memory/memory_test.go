package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newClientPage(t *testing.T, s *Store, clientID models.ClientID, title string, order int) *models.Page {
	t.Helper()
	p := &models.Page{
		Title:     title,
		Slug:      models.Slug(title),
		Icon:      models.DefaultPageIcon,
		SortOrder: order,
		IsVisible: true,
		ClientID:  clientID.Ptr(),
	}
	require.NoError(t, s.Pages().Create(context.Background(), p))
	return p
}

func TestCreateAssignsIDAndTimestamps(t *testing.T) {
	s := New(WithClock(tickingClock()))
	ctx := context.Background()

	p := newClientPage(t, s, models.NewClientID(), "Goals", 0)
	assert.False(t, p.ID.IsZero())
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := s.Pages().FetchOne(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestRecordsAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	b, err := models.NewBlock(models.NewPageID(), models.TextContent{Text: "original"}, 0)
	require.NoError(t, err)
	require.NoError(t, s.Blocks().Create(ctx, b))

	b.Content["text"] = "changed by caller"

	got, err := s.Blocks().FetchOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Content["text"])

	got.Content["text"] = "changed again"
	again, err := s.Blocks().FetchOne(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Content["text"])
}

func TestCreateRejectsInvalidRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	tests := []struct {
		name  string
		page  *models.Page
		field string
	}{
		{
			name:  "missing title",
			page:  &models.Page{ClientID: models.NewClientID().Ptr()},
			field: "title",
		},
		{
			name: "both parents",
			page: &models.Page{
				Title:    "Both",
				Slug:     "both",
				ClientID: models.NewClientID().Ptr(),
				PortalID: models.NewPortalID().Ptr(),
			},
			field: "client_id",
		},
		{
			name:  "no parent",
			page:  &models.Page{Title: "Orphan", Slug: "orphan"},
			field: "client_id",
		},
		{
			name:  "bad slug",
			page:  &models.Page{Title: "Bad", Slug: "Bad Slug", ClientID: models.NewClientID().Ptr()},
			field: "slug",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Pages().Create(ctx, tt.page)
			require.Error(t, err)
			var ve *store.ValidationError
			require.True(t, errors.As(err, &ve), "got %T: %v", err, err)

			var fields []string
			for _, f := range ve.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	all, err := s.Pages().FetchMany(ctx, store.Query{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFetchManyFiltersAndOrders(t *testing.T) {
	s := New(WithClock(tickingClock()))
	ctx := context.Background()
	client := models.NewClientID()
	other := models.NewClientID()

	c := newClientPage(t, s, client, "Third", 2)
	a := newClientPage(t, s, client, "First", 0)
	newClientPage(t, s, other, "Elsewhere", 0)
	b := newClientPage(t, s, client, "Second", 1)

	portalPage := &models.Page{Title: "Portal", Slug: "portal", PortalID: models.NewPortalID().Ptr()}
	require.NoError(t, s.Pages().Create(ctx, portalPage))

	got, err := s.Pages().FetchMany(ctx, store.ByClient(client).Asc("sort_order"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []models.PageID{a.ID, b.ID, c.ID}, []models.PageID{got[0].ID, got[1].ID, got[2].ID})

	got, err = s.Pages().FetchMany(ctx, store.ByClient(client).Desc("created_at"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []models.PageID{b.ID, a.ID, c.ID}, []models.PageID{got[0].ID, got[1].ID, got[2].ID})

	unparented, err := s.Pages().FetchMany(ctx, store.Where("client_id", nil))
	require.NoError(t, err)
	require.Len(t, unparented, 1)
	assert.Equal(t, portalPage.ID, unparented[0].ID)

	none, err := s.Pages().FetchMany(ctx, store.ByClient(models.NewClientID()))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFetchManyFiltersByBool(t *testing.T) {
	s := New()
	ctx := context.Background()
	portal := models.NewPortalID()

	for i, active := range []bool{true, false, true} {
		m := &models.PortalMember{
			PortalID: portal,
			ClientID: models.NewClientID(),
			Role:     models.RoleMember,
			IsActive: active,
		}
		require.NoError(t, s.PortalMembers().Create(ctx, m), "member %d", i)
	}

	active, err := s.PortalMembers().FetchMany(ctx, store.ByPortal(portal).And("is_active", true))
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestFetchManyRejectsBadFieldNames(t *testing.T) {
	s := New()
	_, err := s.Pages().FetchMany(context.Background(), store.Where("title; DROP", "x"))
	assert.True(t, store.IsValidation(err))

	_, err = s.Pages().FetchMany(context.Background(), store.Query{}.Asc("Sort Order"))
	assert.True(t, store.IsValidation(err))
}

func TestUpdate(t *testing.T) {
	s := New(WithClock(tickingClock()))
	ctx := context.Background()
	p := newClientPage(t, s, models.NewClientID(), "Goals", 0)

	updated, err := s.Pages().Update(ctx, p.ID, store.Patch{"title": "New Goals", "is_visible": false})
	require.NoError(t, err)
	assert.Equal(t, "New Goals", updated.Title)
	assert.False(t, updated.IsVisible)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(t, p.ClientID, updated.ClientID)

	t.Run("unknown field", func(t *testing.T) {
		_, err := s.Pages().Update(ctx, p.ID, store.Patch{"colour": "red"})
		assert.True(t, store.IsValidation(err))
	})

	t.Run("id is immutable", func(t *testing.T) {
		_, err := s.Pages().Update(ctx, p.ID, store.Patch{"id": models.NewPageID().String()})
		assert.True(t, store.IsValidation(err))
	})

	t.Run("result must validate", func(t *testing.T) {
		_, err := s.Pages().Update(ctx, p.ID, store.Patch{"title": ""})
		assert.True(t, store.IsValidation(err))

		got, err := s.Pages().FetchOne(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Goals", got.Title)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := s.Pages().Update(ctx, models.NewPageID(), store.Patch{"title": "x"})
		assert.True(t, store.IsNotFound(err))
	})
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := newClientPage(t, s, models.NewClientID(), "Goals", 0)

	require.NoError(t, s.Pages().Delete(ctx, p.ID))

	_, err := s.Pages().FetchOne(ctx, p.ID)
	var nf *store.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "pages", nf.Table)
	assert.Equal(t, p.ID.String(), nf.ID)

	assert.True(t, store.IsNotFound(s.Pages().Delete(ctx, p.ID)))
}

func TestReorderBlocks(t *testing.T) {
	s := New()
	ctx := context.Background()
	page := models.NewPageID()

	var ids []models.BlockID
	for i := 0; i < 3; i++ {
		b, err := models.NewBlock(page, models.TextContent{Text: "block"}, i)
		require.NoError(t, err)
		require.NoError(t, s.Blocks().Create(ctx, b))
		ids = append(ids, b.ID)
	}
	foreign, err := models.NewBlock(models.NewPageID(), models.TextContent{Text: "elsewhere"}, 7)
	require.NoError(t, err)
	require.NoError(t, s.Blocks().Create(ctx, foreign))

	require.NoError(t, s.ReorderBlocks(ctx, page, []models.BlockID{ids[2], foreign.ID, ids[0], ids[1]}))

	got, err := s.Blocks().FetchMany(ctx, store.ByPage(page).Asc("sort_order"))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[0], got[1].ID)
	assert.Equal(t, ids[1], got[2].ID)

	untouched, err := s.Blocks().FetchOne(ctx, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, untouched.SortOrder)
}

func TestLatencyHonoursContext(t *testing.T) {
	s := New(WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Pages().FetchOne(ctx, models.NewPageID())
	require.Error(t, err)
	assert.True(t, store.IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentCreates(t *testing.T) {
	s := New()
	ctx := context.Background()
	page := models.NewPageID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := models.NewBlock(page, models.TextContent{Text: "x"}, i)
			if assert.NoError(t, err) {
				assert.NoError(t, s.Blocks().Create(ctx, b))
			}
		}(i)
	}
	wg.Wait()

	got, err := s.Blocks().FetchMany(ctx, store.ByPage(page))
	require.NoError(t, err)
	assert.Len(t, got, 20)
}
