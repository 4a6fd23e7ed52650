package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
	"github.com/apper-apps/coachflow-optimal/pkg/store/memory"
)

func TestErrorTaxonomy(t *testing.T) {
	id := models.NewBlockID()
	nf := store.NewNotFound("blocks", id)
	assert.True(t, store.IsNotFound(nf))
	assert.False(t, store.IsTransport(nf))
	assert.Equal(t, fmt.Sprintf("block %s not found", id), nf.Error())

	wrapped := fmt.Errorf("load block: %w", nf)
	assert.True(t, store.IsNotFound(wrapped))

	ve := store.NewValidationError(nil, store.FieldError{Field: "title", Message: "this field is required"})
	assert.True(t, store.IsValidation(ve))
	assert.Equal(t, "validation failed: title: this field is required", ve.Error())

	cause := errors.New("connection refused")
	te := store.Transport("postgres fetch", cause)
	assert.True(t, store.IsTransport(te))
	assert.ErrorIs(t, te, cause)
	assert.Equal(t, "postgres fetch: connection refused", te.Error())

	t.Run("transport keeps classified errors", func(t *testing.T) {
		assert.Same(t, nf, store.Transport("op", nf))
		assert.Same(t, ve, store.Transport("op", ve))
		assert.Equal(t, store.ErrReadOnly, store.Transport("op", store.ErrReadOnly))
		assert.Same(t, te, store.Transport("outer", te))
		assert.NoError(t, store.Transport("op", nil))
	})
}

func TestQueryBuilders(t *testing.T) {
	page := models.NewPageID()
	q := store.ByPage(page).And("type", models.BlockTypeText).Asc("sort_order")

	require.Len(t, q.Where, 2)
	assert.Equal(t, "page_id", q.Where[0].Field)
	assert.Equal(t, page, q.Where[0].Value)
	assert.Equal(t, &store.Order{Field: "sort_order"}, q.OrderBy)
	assert.NoError(t, q.Validate())

	desc := q.Desc("created_at")
	assert.True(t, desc.OrderBy.Descending)
	assert.False(t, q.OrderBy.Descending)

	base := store.Where("a", 1)
	left := base.And("b", 2)
	right := base.And("c", 3)
	assert.Equal(t, "b", left.Where[1].Field)
	assert.Equal(t, "c", right.Where[1].Field)

	for _, field := range []string{"", "Title", "1st", "a-b", "page_id OR 1=1"} {
		assert.True(t, store.IsValidation(store.Where(field, 1).Validate()), field)
	}
}

func TestApply(t *testing.T) {
	client := models.NewClientID()
	page := &models.Page{
		ID:        models.NewPageID(),
		Title:     "Goals",
		Slug:      "goals",
		IsVisible: true,
		ClientID:  client.Ptr(),
	}

	require.NoError(t, store.Apply(page, store.Patch{"title": "Q2 Goals", "sort_order": 3}))
	assert.Equal(t, "Q2 Goals", page.Title)
	assert.Equal(t, 3, page.SortOrder)
	assert.True(t, page.IsVisible)
	assert.Equal(t, client, *page.ClientID)

	err := store.Apply(page, store.Patch{"nope": 1, "id": "x"})
	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 2)
	assert.Equal(t, "Q2 Goals", page.Title)

	err = store.Apply(page, store.Patch{"sort_order": "three"})
	assert.True(t, store.IsValidation(err))
}

func TestValidateMessages(t *testing.T) {
	err := store.Validate(&models.Block{Type: "video"})
	var ve *store.ValidationError
	require.True(t, errors.As(err, &ve))

	messages := map[string]string{}
	for _, f := range ve.Fields {
		messages[f.Field] = f.Message
	}
	assert.Equal(t, "this field is required", messages["page_id"])
	assert.Equal(t, "type must be one of text, link, embed, file, checklist", messages["type"])

	err = store.Validate(&models.Page{Title: "x"})
	require.True(t, errors.As(err, &ve))
	messages = map[string]string{}
	for _, f := range ve.Fields {
		messages[f.Field] = f.Message
	}
	assert.Equal(t, "client_id is required unless portal_id is set", messages["client_id"])

	d := &models.Deliverable{ClientID: models.NewClientID(), Title: "Essay", Status: "lost"}
	assert.True(t, store.IsValidation(store.Validate(d)))
	d.Status = models.StatusNeedsChanges
	assert.NoError(t, store.Validate(d))
}

func TestReadOnlyStore(t *testing.T) {
	ctx := context.Background()
	var readOnly atomic.Bool
	s := store.NewReadOnlyStore(memory.New(), readOnly.Load)

	n := &models.Notification{Title: "Hi", Message: "Welcome"}
	require.NoError(t, s.Notifications().Create(ctx, n))

	readOnly.Store(true)

	assert.ErrorIs(t, s.Notifications().Create(ctx, &models.Notification{Message: "blocked"}), store.ErrReadOnly)
	_, err := s.Notifications().Update(ctx, n.ID, store.Patch{"is_read": true})
	assert.ErrorIs(t, err, store.ErrReadOnly)
	assert.ErrorIs(t, s.Notifications().Delete(ctx, n.ID), store.ErrReadOnly)
	assert.ErrorIs(t, s.ReorderBlocks(ctx, models.NewPageID(), nil), store.ErrReadOnly)

	got, err := s.Notifications().FetchOne(ctx, n.ID)
	require.NoError(t, err)
	assert.False(t, got.IsRead)

	all, err := s.Notifications().FetchMany(ctx, store.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	readOnly.Store(false)
	_, err = s.Notifications().Update(ctx, n.ID, store.Patch{"is_read": true})
	assert.NoError(t, err)

	unwrapped := s.(*store.ReadOnlyStore).Unwrap()
	assert.IsType(t, &memory.Store{}, unwrapped)
}
