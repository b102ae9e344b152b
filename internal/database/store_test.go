package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/contactrelay/internal/config"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	db, err := NewDB(config.DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "relay.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })
	return NewStore(db, nil)
}

func TestNewDBUnsupportedDriver(t *testing.T) {
	_, err := NewDB(config.DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relay.db")
	cfg := config.DatabaseConfig{Driver: DriverSQLite, Path: path}

	db, err := NewDB(cfg)
	require.NoError(t, err)
	CloseDB(db)

	db, err = NewDB(cfg)
	require.NoError(t, err)
	CloseDB(db)
}

func TestInsertAndGetIdentity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	missing, err := store.GetIdentity(ctx, "100")
	require.NoError(t, err)
	assert.Nil(t, missing)

	created, err := store.InsertIdentity(ctx, &Identity{
		ChatID:    "100",
		Username:  NullString("ann"),
		FirstName: NullString("Ann"),
	})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := store.GetIdentity(ctx, "100")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "ann", got.Username.String)
	assert.Equal(t, "Ann", got.FirstName.String)
	assert.False(t, got.LastName.Valid)
	assert.False(t, got.PhoneNumber.Valid)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestInsertIdentityConflict(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.InsertIdentity(ctx, &Identity{ChatID: "7", FirstName: NullString("First")})
	require.NoError(t, err)
	require.True(t, created)

	created, err = store.InsertIdentity(ctx, &Identity{ChatID: "7", FirstName: NullString("Second")})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetIdentity(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "First", got.FirstName.String)
}

func TestUpdateIdentity(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.InsertIdentity(ctx, &Identity{ChatID: "55", FirstName: NullString("Bob")})
	require.NoError(t, err)

	later := time.Now().UTC().Add(time.Minute)
	err = store.UpdateIdentity(ctx, &Identity{
		ChatID:      "55",
		FirstName:   NullString("Bob"),
		PhoneNumber: NullString("+79991234567"),
		UpdatedAt:   later,
	})
	require.NoError(t, err)

	got, err := store.GetIdentity(ctx, "55")
	require.NoError(t, err)
	assert.Equal(t, "+79991234567", got.PhoneNumber.String)
	assert.WithinDuration(t, later, got.UpdatedAt, time.Second)
}

func TestFindAndListIdentities(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, id := range []string{"1", "2", "3"} {
		_, err := store.InsertIdentity(ctx, &Identity{ChatID: id})
		require.NoError(t, err)
	}
	require.NoError(t, store.UpdateIdentity(ctx, &Identity{ChatID: "2", PhoneNumber: NullString("+7000")}))

	found, err := store.FindIdentitiesByPhone(ctx, "+7000")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ChatID)

	all, err := store.ListIdentities(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	rest, err := store.ListIdentities(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestRunSQLMaintenance(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.RunSQLMaintenance(context.Background()))
	require.NoError(t, store.Ping(context.Background()))
}
