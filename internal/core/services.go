package core

import (
	"github.com/rs/zerolog"

	"github.com/edvin/filevault/internal/storage"
)

type Services struct {
	Settings   *SettingsService
	Tenant     *TenantService
	FileServer *FileServerService
	Backup     *BackupService
	Quota      *QuotaService
	Resolver   *FileServerResolver
	Vault      *VaultService
	APIKey     *APIKeyService
}

func NewServices(db DB, logger zerolog.Logger) *Services {
	settings := NewSettingsService(db)
	tenant := NewTenantService(db)
	fileServer := NewFileServerService(db)
	backup := NewBackupService(db)
	quota := NewQuotaService(backup, settings)
	resolver := NewFileServerResolver(fileServer)

	return &Services{
		Settings:   settings,
		Tenant:     tenant,
		FileServer: fileServer,
		Backup:     backup,
		Quota:      quota,
		Resolver:   resolver,
		Vault:      NewVaultService(backup, fileServer, resolver, quota, settings, storage.Open, logger),
		APIKey:     NewAPIKeyService(db),
	}
}
