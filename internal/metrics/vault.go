package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupOps counts backup operations by operation, backend kind and
	// outcome.
	BackupOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_backup_operations_total",
		Help: "Backup operations by operation, backend kind and status",
	}, []string{"operation", "kind", "status"})

	// BackupBytesStored counts bytes written to backends by kind.
	BackupBytesStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_backup_stored_bytes_total",
		Help: "Bytes written to storage backends by kind",
	}, []string{"kind"})

	// OrphanedBackups counts stores whose content landed on the backend
	// but whose registry record could not be written.
	OrphanedBackups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_backup_orphaned_objects_total",
		Help: "Stored objects left without a registry record",
	})
)
