package request

// RestoreBackup optionally redirects the restored file to a
// subdirectory of the tenant's working directory.
type RestoreBackup struct {
	TargetDir string `json:"target_dir"`
}
