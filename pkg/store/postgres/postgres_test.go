package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/apper-apps/coachflow-optimal/pkg/store"
	"github.com/apper-apps/coachflow-optimal/pkg/store/storetest"
)

func TestIsNil(t *testing.T) {
	var nilPtr *int
	one := 1
	require.True(t, isNil(nil))
	require.True(t, isNil(nilPtr))
	require.False(t, isNil(&one))
	require.False(t, isNil(0))
}

func TestConformance(t *testing.T) {
	dsn := os.Getenv("COACHFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("COACHFLOW_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := New(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.Migrate(ctx))
		return s
	})
}
