package core

import (
	"context"
	"fmt"

	"github.com/edvin/filevault/internal/model"
)

// FileServerResolver picks the file server a tenant's backups land on.
// The cascade is: tenant's own selection, then the host override, then
// the datacenter override, then the first enabled server for the kind.
// Local storage never involves a server row.
type FileServerResolver struct {
	servers *FileServerService
}

func NewFileServerResolver(servers *FileServerService) *FileServerResolver {
	return &FileServerResolver{servers: servers}
}

func (r *FileServerResolver) Resolve(ctx context.Context, tenant *model.Tenant, kind string) (*model.FileServer, error) {
	if kind == model.KindLocal {
		return model.LocalFileServer(), nil
	}

	if id := tenant.ServerSelection[kind]; id != "" {
		srv, err := r.servers.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("tenant %s selected server: %w", tenant.ID, err)
		}
		return srv, nil
	}

	for _, ov := range []struct{ scope, scopeID string }{
		{model.OverrideScopeHost, tenant.HostID},
		{model.OverrideScopeDatacenter, tenant.DatacenterID},
	} {
		if ov.scopeID == "" {
			continue
		}
		id, err := r.servers.GetOverride(ctx, ov.scope, ov.scopeID, kind)
		if err != nil {
			return nil, err
		}
		if id == "" {
			continue
		}
		srv, err := r.servers.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%s override for %s: %w", ov.scope, ov.scopeID, err)
		}
		return srv, nil
	}

	return r.servers.FirstEnabledByKind(ctx, kind)
}

// ServerFor returns the server a stored backup lives on, honoring the
// sentinel for local storage. Restores and deletes must go back to the
// server recorded at store time, not re-run the cascade.
func (r *FileServerResolver) ServerFor(ctx context.Context, backup *model.Backup) (*model.FileServer, error) {
	if backup.ServerID == model.LocalServerID {
		return model.LocalFileServer(), nil
	}
	return r.servers.GetByID(ctx, backup.ServerID)
}
