package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/filevault/internal/model"
)

const tenantColumns = "id, name, working_dir, host_id, datacenter_id, quota_overrides, server_selection, status, created_at, updated_at"

type TenantService struct {
	db DB
}

func NewTenantService(db DB) *TenantService {
	return &TenantService{db: db}
}

func (s *TenantService) Create(ctx context.Context, tenant *model.Tenant) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO tenants (id, name, working_dir, host_id, datacenter_id, quota_overrides, server_selection, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tenant.ID, tenant.Name, tenant.WorkingDir, tenant.HostID, tenant.DatacenterID,
		tenant.QuotaOverrides, tenant.ServerSelection, tenant.Status,
		tenant.CreatedAt, tenant.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	var t model.Tenant
	err := s.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.WorkingDir, &t.HostID, &t.DatacenterID,
		&t.QuotaOverrides, &t.ServerSelection, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get tenant %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return &t, nil
}

func (s *TenantService) List(ctx context.Context, limit int, cursor string) ([]model.Tenant, bool, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE status != 'deleted'`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.WorkingDir, &t.HostID, &t.DatacenterID,
			&t.QuotaOverrides, &t.ServerSelection, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate tenants: %w", err)
	}

	hasMore := len(tenants) > limit
	if hasMore {
		tenants = tenants[:limit]
	}
	return tenants, hasMore, nil
}

func (s *TenantService) Update(ctx context.Context, tenant *model.Tenant) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE tenants SET name = $1, working_dir = $2, host_id = $3, datacenter_id = $4,
		 quota_overrides = $5, server_selection = $6, updated_at = now() WHERE id = $7`,
		tenant.Name, tenant.WorkingDir, tenant.HostID, tenant.DatacenterID,
		tenant.QuotaOverrides, tenant.ServerSelection, tenant.ID,
	)
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", tenant.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update tenant %s: %w", tenant.ID, ErrNotFound)
	}
	return nil
}

// Delete marks the tenant deleted. Backup records and stored objects are
// left for the operator to reclaim.
func (s *TenantService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE tenants SET status = $1, updated_at = now() WHERE id = $2",
		model.TenantStatusDeleted, id,
	)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete tenant %s: %w", id, ErrNotFound)
	}
	return nil
}
