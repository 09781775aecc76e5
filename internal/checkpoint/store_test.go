package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Save(ctx, "tok-1", []byte(`{"workflow_stage":"initial"}`)))
	data, err := store.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"workflow_stage":"initial"}`, string(data))

	// last writer wins
	require.NoError(t, store.Save(ctx, "tok-1", []byte(`{"workflow_stage":"awaiting_cv"}`)))
	data, err = store.Load(ctx, "tok-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"workflow_stage":"awaiting_cv"}`, string(data))

	require.NoError(t, store.Save(ctx, "tok-2", []byte(`{}`)))
	require.NoError(t, store.Delete(ctx, "tok-1"))
	_, err = store.Load(ctx, "tok-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Load(ctx, "tok-2")
	assert.NoError(t, err)

	// deleting a missing checkpoint is not an error
	assert.NoError(t, store.Delete(ctx, "missing"))

	assert.Error(t, store.Save(ctx, "  ", []byte(`{}`)))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store)
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	buf := []byte(`{"a":1}`)
	require.NoError(t, store.Save(ctx, "tok", buf))
	buf[2] = 'b'

	data, err := store.Load(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestMemoryStore_Closed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Load(context.Background(), "tok")
	assert.Error(t, err)
	assert.Error(t, store.Save(context.Background(), "tok", nil))
}

func TestGormStore_SQLite(t *testing.T) {
	store, err := NewGormStore(DriverSQLite, filepath.Join(t.TempDir(), "nested", "checkpoints.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	storeContract(t, store)
}

func TestGormStore_ErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()

	_, err := NewGormStore("oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open gorm store")

	store, err := NewGormStore(DriverSQLite, filepath.Join(t.TempDir(), "cp.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Load(ctx, "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "failed to load checkpoint")

	err = store.Save(ctx, "tok", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save checkpoint")

	err = store.Delete(ctx, "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete checkpoint")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, "", "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "cp.db"), nil)
	require.NoError(t, err)
	assert.IsType(t, &GormStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, "redis", "", nil)
	assert.Error(t, err)
}

func TestOpenGorm_RequiresDSNForPostgres(t *testing.T) {
	_, err := openGorm(DriverPostgres, "")
	assert.Error(t, err)
}
