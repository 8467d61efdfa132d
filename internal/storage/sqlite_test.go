package storage

import (
	"context"
	"path/filepath"
	"testing"

	"hookweave/internal/action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveAndLoadCapture(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	actions := []action.BuildAction{
		{ID: 0, Kind: action.KindCompile, Package: "pkg/a", Output: "compile pkg/a\n"},
		{ID: 1, Kind: action.KindLink, Package: "main", Output: "link main\n"},
	}
	id, err := store.SaveCapture(ctx, CaptureRecord{Kind: "capture", WorkDir: "/tmp/w", ExitCode: 0}, actions)
	require.NoError(t, err)

	loaded, err := store.LoadActions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, actions, loaded)

	rec, err := store.LatestCapture(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "/tmp/w", rec.WorkDir)
	assert.NotEmpty(t, rec.CreatedAt)
}

func TestSQLiteStore_LatestCaptureEmpty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LatestCapture(context.Background())
	assert.Error(t, err)
}

func TestSQLiteStore_ListPackages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.SaveCapture(ctx, CaptureRecord{Kind: "capture"}, []action.BuildAction{
		{ID: 0, Kind: action.KindCompile, Package: "pkg/b", Output: "x\n"},
		{ID: 1, Kind: action.KindCompile, Package: "pkg/a", Output: "y\n"},
		{ID: 2, Kind: action.KindOther, Package: "", Output: "z\n"},
		{ID: 3, Kind: action.KindLink, Package: "pkg/a", Output: "w\n"},
	})
	require.NoError(t, err)

	pkgs, err := store.ListPackages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg/a", "pkg/b"}, pkgs)
}

func TestSQLiteStore_ForestSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestForest(ctx)
	assert.Error(t, err)

	require.NoError(t, store.SaveForest(ctx, "main:\n  -> helper (lines 3)\n"))
	require.NoError(t, store.SaveForest(ctx, "main:\n  -> helper (lines 4)\n"))

	latest, err := store.LatestForest(ctx)
	require.NoError(t, err)
	assert.Contains(t, latest, "lines 4")
}
