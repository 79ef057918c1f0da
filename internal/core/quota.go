package core

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/edvin/filevault/internal/model"
)

// QuotaService answers capacity questions from the registry's usage
// figures and the configured limits.
type QuotaService struct {
	registry *BackupService
	settings *SettingsService
}

func NewQuotaService(registry *BackupService, settings *SettingsService) *QuotaService {
	return &QuotaService{registry: registry, settings: settings}
}

// limitFor resolves the effective byte limit for a tenant and backend
// kind: a disabled backend locks the tenant out regardless of overrides,
// then the tenant's own override wins over the global default.
func limitFor(settings *model.Settings, tenant *model.Tenant, kind string) int64 {
	if !settings.KindEnabled(kind) {
		return model.QuotaDisabled
	}
	if limit, ok := tenant.QuotaOverrides[kind]; ok {
		return limit
	}
	return settings.DefaultCapacity(kind)
}

// Limit returns the effective byte limit for the tenant and kind.
func (s *QuotaService) Limit(ctx context.Context, tenant *model.Tenant, kind string) (int64, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return limitFor(settings, tenant, kind), nil
}

// Check verifies that storing incoming bytes would keep the tenant within
// its limit. The check is advisory: nothing is reserved, and concurrent
// stores may still overshoot between check and insert.
func (s *QuotaService) Check(ctx context.Context, tenant *model.Tenant, kind string, incoming int64) error {
	limit, err := s.Limit(ctx, tenant, kind)
	if err != nil {
		return err
	}

	switch {
	case limit == model.QuotaDisabled:
		return fmt.Errorf("backend %s for tenant %s: %w", kind, tenant.ID, ErrBackendDisabled)
	case limit == model.QuotaUnlimited:
		return nil
	}

	used, err := s.registry.UsedBytes(ctx, tenant.ID, kind)
	if err != nil {
		return err
	}
	if used+incoming > limit {
		return fmt.Errorf("tenant %s has %s of %s used on %s: %w",
			tenant.ID, humanize.IBytes(uint64(used)), humanize.IBytes(uint64(limit)), kind, ErrQuotaExceeded)
	}
	return nil
}

// Capacity reports usage and limit for one backend kind, with
// human-readable figures for display.
func (s *QuotaService) Capacity(ctx context.Context, tenant *model.Tenant, kind string) (*model.Capacity, error) {
	limit, err := s.Limit(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	used, err := s.registry.UsedBytes(ctx, tenant.ID, kind)
	if err != nil {
		return nil, err
	}

	return buildCapacity(kind, used, limit), nil
}

func buildCapacity(kind string, used, limit int64) *model.Capacity {
	c := &model.Capacity{
		Kind:       kind,
		UsedBytes:  used,
		LimitBytes: limit,
		Used:       humanize.IBytes(uint64(used)),
	}
	switch limit {
	case model.QuotaUnlimited:
		c.Unlimited = true
		c.Limit = "unlimited"
	case model.QuotaDisabled:
		c.Disabled = true
		c.Limit = "disabled"
	default:
		c.Limit = humanize.IBytes(uint64(limit))
	}
	return c
}
