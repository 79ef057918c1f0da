package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/filevault/internal/model"
)

const backupColumns = "id, tenant_id, kind, server_id, file_name, size_bytes, content_key, created_at, updated_at"

// BackupService is the registry of stored backups. It records metadata
// only; the bytes live on the storage backends.
type BackupService struct {
	db DB
}

func NewBackupService(db DB) *BackupService {
	return &BackupService{db: db}
}

// Create inserts a backup record. The unique index on
// (tenant_id, kind, file_name) makes the insert the authoritative
// duplicate check, so concurrent stores cannot both register the
// same name.
func (s *BackupService) Create(ctx context.Context, backup *model.Backup) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO backups (id, tenant_id, kind, server_id, file_name, size_bytes, content_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		backup.ID, backup.TenantID, backup.Kind, backup.ServerID, backup.FileName,
		backup.SizeBytes, backup.ContentKey, backup.CreatedAt, backup.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("insert backup %s/%s: %w", backup.Kind, backup.FileName, ErrBackupExists)
		}
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (s *BackupService) GetByID(ctx context.Context, id string) (*model.Backup, error) {
	var b model.Backup
	err := s.db.QueryRow(ctx,
		`SELECT `+backupColumns+` FROM backups WHERE id = $1`, id,
	).Scan(&b.ID, &b.TenantID, &b.Kind, &b.ServerID, &b.FileName,
		&b.SizeBytes, &b.ContentKey, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get backup %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get backup %s: %w", id, err)
	}
	return &b, nil
}

// Exists reports whether a backup with the given name is already
// registered for the tenant and backend kind.
func (s *BackupService) Exists(ctx context.Context, tenantID, kind, fileName string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM backups WHERE tenant_id = $1 AND kind = $2 AND file_name = $3)",
		tenantID, kind, fileName,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check backup %s/%s: %w", kind, fileName, err)
	}
	return exists, nil
}

// ListForTenant returns the tenant's backups in creation order. An empty
// kind lists across all backends.
func (s *BackupService) ListForTenant(ctx context.Context, tenantID, kind string) ([]model.Backup, error) {
	query := `SELECT ` + backupColumns + ` FROM backups WHERE tenant_id = $1`
	args := []any{tenantID}

	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list backups for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		var b model.Backup
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Kind, &b.ServerID, &b.FileName,
			&b.SizeBytes, &b.ContentKey, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return backups, nil
}

func (s *BackupService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM backups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete backup %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete backup %s: %w", id, ErrNotFound)
	}
	return nil
}

// UsedBytes sums the registered backup sizes for one tenant and backend
// kind. This is the registry's view; the backend may disagree if orphaned
// objects exist.
func (s *BackupService) UsedBytes(ctx context.Context, tenantID, kind string) (int64, error) {
	var used int64
	err := s.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(size_bytes), 0) FROM backups WHERE tenant_id = $1 AND kind = $2",
		tenantID, kind,
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("sum backup sizes for tenant %s: %w", tenantID, err)
	}
	return used, nil
}
