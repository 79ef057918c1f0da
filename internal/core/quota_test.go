package core

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/filevault/internal/model"
)

func newQuotaService(db *mockDB) *QuotaService {
	return NewQuotaService(NewBackupService(db), NewSettingsService(db))
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func testTenant() *model.Tenant {
	return &model.Tenant{
		ID:         "test-tenant-1",
		Name:       "acme",
		WorkingDir: "/srv/tenants/acme",
	}
}

// expectSettings makes settings lookups return the defaults.
func expectSettings(db *mockDB, ctx context.Context) {
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "platform_config")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})
}

// expectUsedBytes makes the registry usage query return used.
func expectUsedBytes(db *mockDB, ctx context.Context, used int64) {
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "SUM(size_bytes)")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*int64) = used
		return nil
	}})
}

// ---------- Check ----------

func TestQuotaService_Check_WithinLimit(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 1000)

	err := svc.Check(ctx, testTenant(), model.KindS3, 500)
	require.NoError(t, err)
}

func TestQuotaService_Check_Exceeded(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 4_999_999_999)

	err := svc.Check(ctx, testTenant(), model.KindS3, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestQuotaService_Check_ExactFit(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 4_999_999_000)

	// Landing exactly on the limit is allowed.
	err := svc.Check(ctx, testTenant(), model.KindS3, 1000)
	require.NoError(t, err)
}

func TestQuotaService_Check_Unlimited(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)

	tenant := testTenant()
	tenant.QuotaOverrides = map[string]int64{model.KindS3: model.QuotaUnlimited}

	// No usage query needed when the limit is unlimited.
	err := svc.Check(ctx, tenant, model.KindS3, 1<<40)
	require.NoError(t, err)
	db.AssertNumberOfCalls(t, "QueryRow", 1)
}

func TestQuotaService_Check_TenantLockedOut(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)

	tenant := testTenant()
	tenant.QuotaOverrides = map[string]int64{model.KindS3: model.QuotaDisabled}

	err := svc.Check(ctx, tenant, model.KindS3, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendDisabled)
}

func TestQuotaService_Check_KindDisabledGlobally(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	settings := model.DefaultSettings()
	settings.SFTPEnabled = false
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool {
		return strings.Contains(sql, "platform_config")
	}), mock.Anything).Return(&mockRow{scanFunc: func(dest ...any) error {
		*dest[0].(*string) = mustJSON(t, settings)
		return nil
	}})

	// A disabled kind beats any tenant override.
	tenant := testTenant()
	tenant.QuotaOverrides = map[string]int64{model.KindSFTP: model.QuotaUnlimited}

	err := svc.Check(ctx, tenant, model.KindSFTP, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendDisabled)
}

// ---------- Capacity ----------

func TestQuotaService_Capacity(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 2048)

	capacity, err := svc.Capacity(ctx, testTenant(), model.KindLocal)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), capacity.UsedBytes)
	assert.Equal(t, int64(5_000_000_000), capacity.LimitBytes)
	assert.Equal(t, "2.0 KiB", capacity.Used)
	assert.False(t, capacity.Unlimited)
	assert.False(t, capacity.Disabled)
}

func TestQuotaService_Capacity_Unlimited(t *testing.T) {
	db := &mockDB{}
	svc := newQuotaService(db)
	ctx := context.Background()

	expectSettings(db, ctx)
	expectUsedBytes(db, ctx, 0)

	tenant := testTenant()
	tenant.QuotaOverrides = map[string]int64{model.KindLocal: model.QuotaUnlimited}

	capacity, err := svc.Capacity(ctx, tenant, model.KindLocal)
	require.NoError(t, err)
	assert.True(t, capacity.Unlimited)
	assert.Equal(t, "unlimited", capacity.Limit)
}
