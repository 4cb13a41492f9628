package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/mx-space/fpcollector/internal/config"
	"github.com/mx-space/fpcollector/internal/database"
	"github.com/mx-space/fpcollector/internal/modules/auth"
	"github.com/mx-space/fpcollector/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

func newTestStore(t *testing.T) *store.SQL {
	t.Helper()
	db, err := database.Open(config.DatabaseRuntimeConfig{
		Driver: config.DriverSQLite,
		DSN:    fmt.Sprintf("file:credential_%d?mode=memory&cache=shared", dbSeq.Add(1)),
	}, logger.Silent)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewSQL(db)
}

func TestSaveCredentialPlain(t *testing.T) {
	ctx := context.Background()
	gw := newTestStore(t)

	cred, err := saveCredential(ctx, gw, config.PasswordSchemePlain, " admin@example.com ", "hunter2", "")
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", cred.Email)
	assert.Equal(t, "admin@example.com", cred.Name)

	found, err := gw.FindCredential(ctx, "admin@example.com", "hunter2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "admin@example.com", found.Name)
}

func TestSaveCredentialBcryptUpdatesExistingRow(t *testing.T) {
	ctx := context.Background()
	gw := newTestStore(t)

	_, err := saveCredential(ctx, gw, config.PasswordSchemeBcrypt, "admin@example.com", "old", "Admin")
	require.NoError(t, err)
	cred, err := saveCredential(ctx, gw, config.PasswordSchemeBcrypt, "admin@example.com", "new", "Maria")
	require.NoError(t, err)
	assert.NotEqual(t, "new", cred.Password)

	v, err := auth.NewVerifier(config.PasswordSchemeBcrypt, gw)
	require.NoError(t, err)
	got, err := v.Verify(ctx, "admin@example.com", "new")
	require.NoError(t, err)
	assert.Equal(t, "Maria", got.Name)

	_, err = v.Verify(ctx, "admin@example.com", "old")
	assert.ErrorIs(t, err, auth.ErrCredentialMismatch)
}

func TestSaveCredentialRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	gw := newTestStore(t)

	_, err := saveCredential(ctx, gw, config.PasswordSchemePlain, "  ", "pw", "")
	assert.Error(t, err)
	_, err = saveCredential(ctx, gw, config.PasswordSchemePlain, "a@b.com", "", "")
	assert.Error(t, err)
	_, err = saveCredential(ctx, gw, "argon2", "a@b.com", "pw", "")
	assert.Error(t, err)

	found, err := gw.FindCredential(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Nil(t, found)
}
