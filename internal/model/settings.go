package model

// Quota capacity sentinels. These are the only two special values: every other
// limit is a plain byte count.
const (
	// QuotaUnlimited means no capacity ceiling is enforced.
	QuotaUnlimited int64 = -1
	// QuotaDisabled means the backend kind is locked out for the tenant:
	// every store is denied and the kind is not listed as accessible.
	QuotaDisabled int64 = 0
)

// Settings is the global backup configuration blob, persisted as JSON under a
// single platform_config key and loaded fresh for each operation.
type Settings struct {
	S3Enabled    bool `json:"s3_enabled"`
	SFTPEnabled  bool `json:"sftp_enabled"`
	LocalEnabled bool `json:"local_enabled"`

	DefaultS3CapacityBytes    int64 `json:"default_s3_capacity_bytes"`
	DefaultSFTPCapacityBytes  int64 `json:"default_sftp_capacity_bytes"`
	DefaultLocalCapacityBytes int64 `json:"default_local_capacity_bytes"`

	// LocalDirectoryTemplate is expanded per tenant to root local backups.
	// Supported variables: {working_dir}, {tenant}, {tenant_id}.
	LocalDirectoryTemplate string `json:"local_directory_template"`

	// LocalDownloadBaseURL enables direct download links for local backups
	// when set; empty means the local kind streams through the API.
	LocalDownloadBaseURL string `json:"local_download_base_url,omitempty"`
}

// DefaultSettings returns the settings used before an operator saves any.
func DefaultSettings() *Settings {
	return &Settings{
		S3Enabled:                 true,
		SFTPEnabled:               true,
		LocalEnabled:              true,
		DefaultS3CapacityBytes:    5_000_000_000,
		DefaultSFTPCapacityBytes:  5_000_000_000,
		DefaultLocalCapacityBytes: 5_000_000_000,
		LocalDirectoryTemplate:    "{working_dir}/backups",
	}
}

func (s *Settings) KindEnabled(kind string) bool {
	switch kind {
	case KindS3:
		return s.S3Enabled
	case KindSFTP:
		return s.SFTPEnabled
	case KindLocal:
		return s.LocalEnabled
	}
	return false
}

// DefaultCapacity returns the global capacity for a kind, applied when the
// tenant carries no override.
func (s *Settings) DefaultCapacity(kind string) int64 {
	switch kind {
	case KindS3:
		return s.DefaultS3CapacityBytes
	case KindSFTP:
		return s.DefaultSFTPCapacityBytes
	case KindLocal:
		return s.DefaultLocalCapacityBytes
	}
	return QuotaDisabled
}
