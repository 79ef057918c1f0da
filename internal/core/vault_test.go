package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/filevault/internal/model"
	"github.com/edvin/filevault/internal/storage"
)

func newVaultForTest(db *mockDB, backend storage.Backend) *VaultService {
	registry := NewBackupService(db)
	servers := NewFileServerService(db)
	settings := NewSettingsService(db)
	return NewVaultService(
		registry,
		servers,
		NewFileServerResolver(servers),
		NewQuotaService(registry, settings),
		settings,
		fixedOpen(backend),
		zerolog.Nop(),
	)
}

func expectNotExists(db *mockDB, ctx context.Context) {
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM backups")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*bool) = false
		return nil
	}})
}

func expectGetBackup(db *mockDB, ctx context.Context, b *model.Backup) {
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM backups WHERE id")
	}), []any{b.ID}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = b.ID
		*dest[1].(*string) = b.TenantID
		*dest[2].(*string) = b.Kind
		*dest[3].(*string) = b.ServerID
		*dest[4].(*string) = b.FileName
		*dest[5].(*int64) = b.SizeBytes
		*dest[6].(*string) = b.ContentKey
		return nil
	}})
}

// ---------- file names ----------

func TestBackupFileName(t *testing.T) {
	for rawPath, want := range map[string]string{
		"world.zip":                    "world.zip",
		"saves/world.zip":              "world.zip",
		`saves\world.zip`:              "world.zip",
		"/etc/../saves/my world-1.zip": "my world-1.zip",
		"user@host.tar.gz":             "user@host.tar.gz",
	} {
		got, err := backupFileName(rawPath)
		require.NoError(t, err, rawPath)
		assert.Equal(t, want, got)
	}
}

func TestBackupFileName_Rejected(t *testing.T) {
	for _, rawPath := range []string{
		"",
		".",
		"..",
		"saves/..",
		"world|save.zip",
		"save\x00.zip",
		"säve.zip",
	} {
		_, err := backupFileName(rawPath)
		require.Error(t, err, rawPath)
		assert.ErrorIs(t, err, ErrInvalidName)
	}
}

func TestExpandLocalRoot(t *testing.T) {
	tenant := &model.Tenant{ID: "t-1", WorkingDir: "/srv/t-1"}

	for template, want := range map[string]string{
		"{working_dir}/backups":           "/srv/t-1/backups",
		"{working_dir}/backups/{tenant}":  "/srv/t-1/backups/t-1",
		"/var/backups/{tenant_id}":        "/var/backups/t-1",
		"/var/backups/{tenant}/{tenant}":  "/var/backups/t-1/t-1",
		"/var/backups/plain":              "/var/backups/plain",
	} {
		assert.Equal(t, want, expandLocalRoot(template, tenant), template)
	}
}

// ---------- Store ----------

func TestVaultService_Store_Local(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	content := []byte("world data")

	expectNotExists(db, ctx)
	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 0)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "INSERT INTO backups")
	}), mock.Anything).Return(pgconn.CommandTag{}, nil)
	backend.On("Put", ctx, "world.zip", content, "application/zip").Return(nil)

	backup, err := svc.Store(ctx, testTenant(), model.KindLocal, "saves/world.zip", "application/zip", content)
	require.NoError(t, err)
	assert.Equal(t, "world.zip", backup.FileName)
	assert.Equal(t, model.LocalServerID, backup.ServerID)
	assert.Equal(t, int64(len(content)), backup.SizeBytes)
	assert.NotEmpty(t, backup.ID)
	assert.NotEmpty(t, backup.ContentKey)
	backend.AssertExpectations(t)
}

func TestVaultService_Store_InvalidName(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)

	_, err := svc.Store(context.Background(), testTenant(), model.KindLocal, "../..", "", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, db.Calls)
	assert.Empty(t, backend.Calls)
}

func TestVaultService_Store_UnknownKind(t *testing.T) {
	db := &mockDB{}
	svc := newVaultForTest(db, &mockBackend{})

	_, err := svc.Store(context.Background(), testTenant(), "tape", "world.zip", "", []byte("x"))
	require.Error(t, err)
}

func TestVaultService_Store_Duplicate(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "SELECT EXISTS(SELECT 1 FROM backups")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*bool) = true
		return nil
	}})

	_, err := svc.Store(ctx, testTenant(), model.KindLocal, "world.zip", "", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupExists)
	assert.Empty(t, backend.Calls)
}

func TestVaultService_Store_QuotaExceeded(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	expectNotExists(db, ctx)
	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 5_000_000_000)

	_, err := svc.Store(ctx, testTenant(), model.KindLocal, "world.zip", "", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Empty(t, backend.Calls)
}

func TestVaultService_Store_BackendFailure(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	expectNotExists(db, ctx)
	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 0)
	backend.On("Put", ctx, "world.zip", mock.Anything, "").Return(errors.New("disk full"))

	_, err := svc.Store(ctx, testTenant(), model.KindLocal, "world.zip", "", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestVaultService_Store_OrphanOnInsertFailure(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	expectNotExists(db, ctx)
	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 0)
	backend.On("Put", ctx, "world.zip", mock.Anything, "").Return(nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection lost"))

	// The content is durably stored, so the store still succeeds.
	backup, err := svc.Store(ctx, testTenant(), model.KindLocal, "world.zip", "", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "world.zip", backup.FileName)
}

func TestVaultService_Store_InsertConflict(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	expectNotExists(db, ctx)
	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 0)
	backend.On("Put", ctx, "world.zip", mock.Anything, "").Return(nil)
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"})

	// A conflicting insert from another process is a real conflict.
	_, err := svc.Store(ctx, testTenant(), model.KindLocal, "world.zip", "", []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupExists)
}

// ---------- Restore ----------

func TestVaultService_Restore_DirectLink(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal, directLink: true}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	stored := testBackup()
	stored.ServerID = model.LocalServerID
	stored.Kind = model.KindLocal
	expectGetBackup(db, ctx, stored)
	expectSettings(db, ctx)
	backend.On("DirectLink", ctx, "world.zip").Return("https://node1.example.com/downloads/test-tenant-1/world.zip", nil)

	plan, err := svc.Restore(ctx, testTenant(), stored.ID)
	require.NoError(t, err)
	assert.True(t, plan.Direct())
	assert.Equal(t, "world.zip", plan.FileName)
	assert.Contains(t, plan.DirectURL, "world.zip")
	assert.Empty(t, plan.Content)
}

func TestVaultService_Restore_Content(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	stored := testBackup()
	stored.ServerID = model.LocalServerID
	stored.Kind = model.KindLocal
	expectGetBackup(db, ctx, stored)
	expectSettings(db, ctx)
	backend.On("GetBytes", ctx, "world.zip").Return([]byte("world data"), nil)

	plan, err := svc.Restore(ctx, testTenant(), stored.ID)
	require.NoError(t, err)
	assert.False(t, plan.Direct())
	assert.Equal(t, []byte("world data"), plan.Content)
}

func TestVaultService_Restore_WrongTenant(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	stored := testBackup()
	stored.TenantID = "someone-else"
	expectGetBackup(db, ctx, stored)

	_, err := svc.Restore(ctx, testTenant(), stored.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, backend.Calls)
}

// ---------- Delete ----------

func TestVaultService_Delete_Success(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	stored := testBackup()
	stored.ServerID = model.LocalServerID
	stored.Kind = model.KindLocal
	expectGetBackup(db, ctx, stored)
	expectSettings(db, ctx)
	backend.On("Delete", ctx, "world.zip").Return(nil)
	db.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "DELETE FROM backups")
	}), []any{stored.ID}).Return(pgconn.NewCommandTag("DELETE 1"), nil)

	require.NoError(t, svc.Delete(ctx, testTenant(), stored.ID))
	backend.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestVaultService_Delete_BackendFailureKeepsRecord(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindLocal}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	stored := testBackup()
	stored.ServerID = model.LocalServerID
	stored.Kind = model.KindLocal
	expectGetBackup(db, ctx, stored)
	expectSettings(db, ctx)
	backend.On("Delete", ctx, "world.zip").Return(errors.New("connection refused"))

	err := svc.Delete(ctx, testTenant(), stored.ID)
	require.Error(t, err)

	// The registry record survives so the delete can be retried.
	for _, call := range db.Calls {
		assert.NotEqual(t, "Exec", call.Method)
	}
}

// ---------- AccessibleBackends ----------

func TestVaultService_AccessibleBackends(t *testing.T) {
	db := &mockDB{}
	svc := newVaultForTest(db, &mockBackend{})
	ctx := context.Background()

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "platform_config")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = mustJSON(t, model.DefaultSettings())
		return nil
	}})
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM file_servers WHERE kind")
	}), []any{model.KindS3}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*bool) = true
		return nil
	}})
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM file_servers WHERE kind")
	}), []any{model.KindSFTP}).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*bool) = false
		return nil
	}})

	accessible, err := svc.AccessibleBackends(ctx, testTenant())
	require.NoError(t, err)
	assert.Contains(t, accessible, model.KindS3)
	assert.Contains(t, accessible, model.KindLocal)
	assert.NotContains(t, accessible, model.KindSFTP)
}

func TestVaultService_AccessibleBackends_QuotaLockout(t *testing.T) {
	db := &mockDB{}
	svc := newVaultForTest(db, &mockBackend{})
	ctx := context.Background()

	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "platform_config")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = mustJSON(t, model.DefaultSettings())
		return nil
	}})
	db.On("QueryRow", mock.Anything, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "FROM file_servers WHERE kind")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*bool) = true
		return nil
	}})

	tenant := testTenant()
	tenant.QuotaOverrides = map[string]int64{model.KindLocal: model.QuotaDisabled}

	accessible, err := svc.AccessibleBackends(ctx, tenant)
	require.NoError(t, err)
	assert.NotContains(t, accessible, model.KindLocal)
	assert.Contains(t, accessible, model.KindS3)
}

// ---------- BackendCapacity ----------

func TestVaultService_BackendCapacity_Unsupported(t *testing.T) {
	db := &mockDB{}
	backend := &mockBackend{kind: model.KindSFTP}
	svc := newVaultForTest(db, backend)
	ctx := context.Background()

	tenant := testTenant()
	tenant.ServerSelection = map[string]string{model.KindSFTP: "srv-1"}
	expectServerByID(db, ctx, "srv-1", model.KindSFTP)

	_, err := svc.BackendCapacity(ctx, tenant, model.KindSFTP)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
}
