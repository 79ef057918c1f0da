package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/filevault/internal/metrics"
	"github.com/edvin/filevault/internal/model"
	"github.com/edvin/filevault/internal/platform"
	"github.com/edvin/filevault/internal/storage"
)

// fileNameRe is the character set allowed in backup file names. Anything
// else is rejected before a backend is touched.
var fileNameRe = regexp.MustCompile(`^[A-Za-z0-9_.@ -]+$`)

// VaultService orchestrates backup storage: name validation, quota
// checks, server resolution, the backend write, and the registry record.
type VaultService struct {
	registry *BackupService
	servers  *FileServerService
	resolver *FileServerResolver
	quota    *QuotaService
	settings *SettingsService
	open     storage.OpenFunc
	logger   zerolog.Logger

	storeLocks keyedMutex
}

func NewVaultService(
	registry *BackupService,
	servers *FileServerService,
	resolver *FileServerResolver,
	quota *QuotaService,
	settings *SettingsService,
	open storage.OpenFunc,
	logger zerolog.Logger,
) *VaultService {
	return &VaultService{
		registry: registry,
		servers:  servers,
		resolver: resolver,
		quota:    quota,
		settings: settings,
		open:     open,
		logger:   logger,
	}
}

// backupFileName reduces a client-supplied path to its final segment and
// validates it. Directory components are discarded, never interpreted, so
// traversal sequences cannot reach the backend.
func backupFileName(rawPath string) (string, error) {
	name := path.Base(strings.ReplaceAll(rawPath, `\`, "/"))
	if name == "." || name == ".." || name == "/" || !fileNameRe.MatchString(name) {
		return "", fmt.Errorf("file name %q: %w", rawPath, ErrInvalidName)
	}
	return name, nil
}

func expandLocalRoot(template string, tenant *model.Tenant) string {
	root := strings.ReplaceAll(template, "{working_dir}", tenant.WorkingDir)
	root = strings.ReplaceAll(root, "{tenant}", tenant.ID)
	return strings.ReplaceAll(root, "{tenant_id}", tenant.ID)
}

// backendFor opens a storage backend bound to the tenant's scope on the
// given server. Callers own the Close.
func (s *VaultService) backendFor(ctx context.Context, tenant *model.Tenant, srv *model.FileServer) (storage.Backend, error) {
	cfg := storage.Config{
		Kind:   srv.Kind,
		Scope:  tenant.ID,
		Server: srv,
	}
	if srv.Kind == model.KindLocal {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		cfg.Server = nil
		cfg.LocalRoot = expandLocalRoot(settings.LocalDirectoryTemplate, tenant)
		cfg.DownloadBaseURL = settings.LocalDownloadBaseURL
	}
	return s.open(ctx, cfg)
}

// Store validates, quota-checks, writes the content to the resolved
// backend and registers the backup. Stores of the same tenant, kind and
// name are serialized so the duplicate check holds under concurrency.
func (s *VaultService) Store(ctx context.Context, tenant *model.Tenant, kind, rawPath, contentType string, content []byte) (*model.Backup, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}

	fileName, err := backupFileName(rawPath)
	if err != nil {
		return nil, err
	}

	unlock := s.storeLocks.lock(tenant.ID + "/" + kind + "/" + fileName)
	defer unlock()

	exists, err := s.registry.Exists(ctx, tenant.ID, kind, fileName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("backup %s/%s: %w", kind, fileName, ErrBackupExists)
	}

	if err := s.quota.Check(ctx, tenant, kind, int64(len(content))); err != nil {
		return nil, err
	}

	srv, err := s.resolver.Resolve(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	backend, err := s.backendFor(ctx, tenant, srv)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	if err := backend.Put(ctx, fileName, content, contentType); err != nil {
		metrics.BackupOps.WithLabelValues("store", kind, "error").Inc()
		return nil, fmt.Errorf("store backup %q: %w", fileName, err)
	}

	now := time.Now()
	backup := &model.Backup{
		ID:         platform.NewID(),
		TenantID:   tenant.ID,
		Kind:       kind,
		ServerID:   srv.ID,
		FileName:   fileName,
		SizeBytes:  int64(len(content)),
		ContentKey: platform.NewContentKey(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.registry.Create(ctx, backup); err != nil {
		if errors.Is(err, ErrBackupExists) {
			return nil, err
		}
		// The content is durably stored; losing the record must not fail
		// the upload. The object is orphaned until an operator reconciles.
		s.logger.Warn().Err(err).
			Str("tenant_id", tenant.ID).
			Str("kind", kind).
			Str("file_name", fileName).
			Msg("backup stored but registry insert failed, object orphaned")
		metrics.OrphanedBackups.Inc()
	}

	metrics.BackupOps.WithLabelValues("store", kind, "ok").Inc()
	metrics.BackupBytesStored.WithLabelValues(kind).Add(float64(len(content)))
	return backup, nil
}

// getOwned fetches a backup and verifies tenant ownership. A backup owned
// by someone else is indistinguishable from a missing one.
func (s *VaultService) getOwned(ctx context.Context, tenant *model.Tenant, backupID string) (*model.Backup, error) {
	backup, err := s.registry.GetByID(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if backup.TenantID != tenant.ID {
		return nil, fmt.Errorf("get backup %s: %w", backupID, ErrNotFound)
	}
	return backup, nil
}

// Get returns one of the tenant's backups by ID.
func (s *VaultService) Get(ctx context.Context, tenant *model.Tenant, backupID string) (*model.Backup, error) {
	return s.getOwned(ctx, tenant, backupID)
}

// Restore produces a retrieval plan for a backup: a direct URL when the
// backend supports links, otherwise the content itself.
func (s *VaultService) Restore(ctx context.Context, tenant *model.Tenant, backupID string) (*model.RestorePlan, error) {
	backup, err := s.getOwned(ctx, tenant, backupID)
	if err != nil {
		return nil, err
	}

	srv, err := s.resolver.ServerFor(ctx, backup)
	if err != nil {
		return nil, err
	}

	backend, err := s.backendFor(ctx, tenant, srv)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	plan := &model.RestorePlan{BackupID: backup.ID, FileName: backup.FileName}

	if backend.SupportsDirectLink() {
		url, err := backend.DirectLink(ctx, backup.FileName)
		if err != nil {
			return nil, fmt.Errorf("restore backup %q: %w", backup.FileName, err)
		}
		plan.DirectURL = url
		metrics.BackupOps.WithLabelValues("restore", backup.Kind, "ok").Inc()
		return plan, nil
	}

	content, err := backend.GetBytes(ctx, backup.FileName)
	if err != nil {
		metrics.BackupOps.WithLabelValues("restore", backup.Kind, "error").Inc()
		return nil, fmt.Errorf("restore backup %q: %w", backup.FileName, err)
	}
	plan.Content = content

	metrics.BackupOps.WithLabelValues("restore", backup.Kind, "ok").Inc()
	return plan, nil
}

// Delete removes the backup from its backend first, then drops the
// record. A failed backend delete keeps the record so the operation can
// be retried; a missing object deletes cleanly.
func (s *VaultService) Delete(ctx context.Context, tenant *model.Tenant, backupID string) error {
	backup, err := s.getOwned(ctx, tenant, backupID)
	if err != nil {
		return err
	}

	srv, err := s.resolver.ServerFor(ctx, backup)
	if err != nil {
		return err
	}

	backend, err := s.backendFor(ctx, tenant, srv)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := backend.Delete(ctx, backup.FileName); err != nil {
		metrics.BackupOps.WithLabelValues("delete", backup.Kind, "error").Inc()
		return fmt.Errorf("delete backup %q: %w", backup.FileName, err)
	}

	if err := s.registry.Delete(ctx, backup.ID); err != nil {
		return err
	}

	metrics.BackupOps.WithLabelValues("delete", backup.Kind, "ok").Inc()
	return nil
}

// List returns the tenant's backups, optionally filtered to one kind.
func (s *VaultService) List(ctx context.Context, tenant *model.Tenant, kind string) ([]model.Backup, error) {
	if kind != "" && !model.ValidKind(kind) {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return s.registry.ListForTenant(ctx, tenant.ID, kind)
}

// Capacity reports the tenant's usage and limit for one kind from the
// registry's figures.
func (s *VaultService) Capacity(ctx context.Context, tenant *model.Tenant, kind string) (*model.Capacity, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}
	return s.quota.Capacity(ctx, tenant, kind)
}

// BackendCapacity reports usage as measured by the backend itself rather
// than the registry. Only backends that can enumerate their objects
// support this.
func (s *VaultService) BackendCapacity(ctx context.Context, tenant *model.Tenant, kind string) (*model.Capacity, error) {
	if !model.ValidKind(kind) {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}

	srv, err := s.resolver.Resolve(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}

	backend, err := s.backendFor(ctx, tenant, srv)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	usage, ok := backend.(storage.ScopeUsage)
	if !ok {
		return nil, fmt.Errorf("backend %s cannot measure usage: %w", kind, ErrUnsupported)
	}

	used, err := usage.UsedBytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("measure backend usage: %w", err)
	}

	limit, err := s.quota.Limit(ctx, tenant, kind)
	if err != nil {
		return nil, err
	}
	return buildCapacity(kind, used, limit), nil
}

// AccessibleBackends returns the kinds the tenant can store to right now:
// enabled globally, not locked out by quota, and (for remote kinds)
// backed by at least one enabled server.
func (s *VaultService) AccessibleBackends(ctx context.Context, tenant *model.Tenant) ([]string, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	kinds := model.Kinds()
	available := make([]bool, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			if limitFor(settings, tenant, kind) == model.QuotaDisabled {
				return nil
			}
			if kind != model.KindLocal {
				ok, err := s.servers.AnyEnabledByKind(gctx, kind)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}
			available[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accessible := make([]string, 0, len(kinds))
	for i, kind := range kinds {
		if available[i] {
			accessible = append(accessible, kind)
		}
	}
	return accessible, nil
}
