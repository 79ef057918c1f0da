package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/filevault/internal/model"
)

const fileServerColumns = `id, name, kind, enabled, position, host, port, username, password,
	base_path, endpoint, region, bucket, access_key_id, secret_access_key, use_path_style,
	created_at, updated_at`

// FileServerService manages the configured remote file servers and the
// per-host and per-datacenter routing overrides.
type FileServerService struct {
	db DB
}

func NewFileServerService(db DB) *FileServerService {
	return &FileServerService{db: db}
}

func scanFileServer(row interface{ Scan(dest ...any) error }) (model.FileServer, error) {
	var fs model.FileServer
	err := row.Scan(&fs.ID, &fs.Name, &fs.Kind, &fs.Enabled, &fs.Position,
		&fs.Host, &fs.Port, &fs.Username, &fs.Password,
		&fs.BasePath, &fs.Endpoint, &fs.Region, &fs.Bucket,
		&fs.AccessKeyID, &fs.SecretAccessKey, &fs.UsePathStyle,
		&fs.CreatedAt, &fs.UpdatedAt)
	return fs, err
}

func (s *FileServerService) Create(ctx context.Context, fs *model.FileServer) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO file_servers (id, name, kind, enabled, position, host, port, username, password,
		 base_path, endpoint, region, bucket, access_key_id, secret_access_key, use_path_style, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		fs.ID, fs.Name, fs.Kind, fs.Enabled, fs.Position, fs.Host, fs.Port, fs.Username, fs.Password,
		fs.BasePath, fs.Endpoint, fs.Region, fs.Bucket, fs.AccessKeyID, fs.SecretAccessKey, fs.UsePathStyle,
		fs.CreatedAt, fs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file server: %w", err)
	}
	return nil
}

func (s *FileServerService) GetByID(ctx context.Context, id string) (*model.FileServer, error) {
	fs, err := scanFileServer(s.db.QueryRow(ctx,
		`SELECT `+fileServerColumns+` FROM file_servers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get file server %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get file server %s: %w", id, err)
	}
	return &fs, nil
}

func (s *FileServerService) List(ctx context.Context) ([]model.FileServer, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+fileServerColumns+` FROM file_servers ORDER BY kind, position, id`)
	if err != nil {
		return nil, fmt.Errorf("list file servers: %w", err)
	}
	defer rows.Close()

	var servers []model.FileServer
	for rows.Next() {
		fs, err := scanFileServer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file server: %w", err)
		}
		servers = append(servers, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file servers: %w", err)
	}
	return servers, nil
}

// FirstEnabledByKind returns the lowest-position enabled server for a
// backend kind, the fallback when no override routes the tenant.
func (s *FileServerService) FirstEnabledByKind(ctx context.Context, kind string) (*model.FileServer, error) {
	fs, err := scanFileServer(s.db.QueryRow(ctx,
		`SELECT `+fileServerColumns+` FROM file_servers
		 WHERE kind = $1 AND enabled ORDER BY position, id LIMIT 1`, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pick file server for kind %s: %w", kind, ErrNoServerAvailable)
		}
		return nil, fmt.Errorf("pick file server for kind %s: %w", kind, err)
	}
	return &fs, nil
}

// AnyEnabledByKind reports whether at least one enabled server exists for
// the kind.
func (s *FileServerService) AnyEnabledByKind(ctx context.Context, kind string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM file_servers WHERE kind = $1 AND enabled)", kind,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check file servers for kind %s: %w", kind, err)
	}
	return exists, nil
}

func (s *FileServerService) Update(ctx context.Context, fs *model.FileServer) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE file_servers SET name = $1, kind = $2, enabled = $3, position = $4, host = $5,
		 port = $6, username = $7, password = $8, base_path = $9, endpoint = $10, region = $11,
		 bucket = $12, access_key_id = $13, secret_access_key = $14, use_path_style = $15,
		 updated_at = now() WHERE id = $16`,
		fs.Name, fs.Kind, fs.Enabled, fs.Position, fs.Host, fs.Port, fs.Username, fs.Password,
		fs.BasePath, fs.Endpoint, fs.Region, fs.Bucket, fs.AccessKeyID, fs.SecretAccessKey,
		fs.UsePathStyle, fs.ID,
	)
	if err != nil {
		return fmt.Errorf("update file server %s: %w", fs.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update file server %s: %w", fs.ID, ErrNotFound)
	}
	return nil
}

func (s *FileServerService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM file_servers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete file server %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete file server %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetOverride returns the server ID routed for a scope, or "" when no
// override is set.
func (s *FileServerService) GetOverride(ctx context.Context, scope, scopeID, kind string) (string, error) {
	var serverID string
	err := s.db.QueryRow(ctx,
		"SELECT server_id FROM file_server_overrides WHERE scope = $1 AND scope_id = $2 AND kind = $3",
		scope, scopeID, kind,
	).Scan(&serverID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get file server override %s/%s: %w", scope, scopeID, err)
	}
	return serverID, nil
}

func (s *FileServerService) SetOverride(ctx context.Context, ov *model.FileServerOverride) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO file_server_overrides (scope, scope_id, kind, server_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (scope, scope_id, kind) DO UPDATE SET server_id = EXCLUDED.server_id`,
		ov.Scope, ov.ScopeID, ov.Kind, ov.ServerID,
	)
	if err != nil {
		return fmt.Errorf("set file server override %s/%s: %w", ov.Scope, ov.ScopeID, err)
	}
	return nil
}

func (s *FileServerService) DeleteOverride(ctx context.Context, scope, scopeID, kind string) error {
	_, err := s.db.Exec(ctx,
		"DELETE FROM file_server_overrides WHERE scope = $1 AND scope_id = $2 AND kind = $3",
		scope, scopeID, kind,
	)
	if err != nil {
		return fmt.Errorf("delete file server override %s/%s: %w", scope, scopeID, err)
	}
	return nil
}

func (s *FileServerService) ListOverrides(ctx context.Context, scope, scopeID string) ([]model.FileServerOverride, error) {
	rows, err := s.db.Query(ctx,
		"SELECT scope, scope_id, kind, server_id FROM file_server_overrides WHERE scope = $1 AND scope_id = $2 ORDER BY kind",
		scope, scopeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list file server overrides %s/%s: %w", scope, scopeID, err)
	}
	defer rows.Close()

	var overrides []model.FileServerOverride
	for rows.Next() {
		var ov model.FileServerOverride
		if err := rows.Scan(&ov.Scope, &ov.ScopeID, &ov.Kind, &ov.ServerID); err != nil {
			return nil, fmt.Errorf("scan file server override: %w", err)
		}
		overrides = append(overrides, ov)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file server overrides: %w", err)
	}
	return overrides, nil
}
