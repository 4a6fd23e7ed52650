package surrealdb

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/models"
	"github.com/apper-apps/coachflow-optimal/pkg/store"
	"github.com/apper-apps/coachflow-optimal/pkg/store/storetest"
)

func TestSelectQuery(t *testing.T) {
	page := models.NewPageID()

	tests := []struct {
		name     string
		q        store.Query
		wantSQL  string
		wantVars map[string]any
	}{
		{
			name:     "all",
			q:        store.Query{},
			wantSQL:  "SELECT * FROM type::table($tb)",
			wantVars: map[string]any{"tb": "blocks"},
		},
		{
			name:     "filtered and ordered",
			q:        store.ByPage(page).And("type", models.BlockTypeText).Asc("sort_order"),
			wantSQL:  "SELECT * FROM type::table($tb) WHERE page_id = $w0 AND type = $w1 ORDER BY sort_order ASC",
			wantVars: map[string]any{"tb": "blocks", "w0": page, "w1": models.BlockTypeText},
		},
		{
			name:     "unset field",
			q:        store.Where("portal_id", nil).Desc("created_at"),
			wantSQL:  "SELECT * FROM type::table($tb) WHERE (portal_id = NONE OR portal_id = NULL) ORDER BY created_at DESC",
			wantVars: map[string]any{"tb": "blocks"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, vars := selectQuery("blocks", tt.q)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantVars, vars)
		})
	}
}

func TestHandleNotFound(t *testing.T) {
	assert.False(t, handleNotFound(nil))
	assert.False(t, handleNotFound(errors.New("connection reset by peer")))
	assert.True(t, handleNotFound(errors.New("Expected a single or multiple results but got 0")))
}

func TestConformance(t *testing.T) {
	wsURL := os.Getenv("COACHFLOW_TEST_SURREALDB_URL")
	if wsURL == "" {
		t.Skip("COACHFLOW_TEST_SURREALDB_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := New(ctx, Config{
			URL:       wsURL,
			Namespace: "coachflow_test",
			Database:  "conformance",
			Username:  os.Getenv("COACHFLOW_TEST_SURREALDB_USER"),
			Password:  os.Getenv("COACHFLOW_TEST_SURREALDB_PASS"),
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
