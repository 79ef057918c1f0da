package request

// UpdateSettings carries the full backup settings blob. Capacities use
// -1 for unlimited and 0 to disable storing while the kind stays on.
type UpdateSettings struct {
	S3Enabled    bool `json:"s3_enabled"`
	SFTPEnabled  bool `json:"sftp_enabled"`
	LocalEnabled bool `json:"local_enabled"`

	DefaultS3CapacityBytes    int64 `json:"default_s3_capacity_bytes" validate:"gte=-1"`
	DefaultSFTPCapacityBytes  int64 `json:"default_sftp_capacity_bytes" validate:"gte=-1"`
	DefaultLocalCapacityBytes int64 `json:"default_local_capacity_bytes" validate:"gte=-1"`

	LocalDirectoryTemplate string `json:"local_directory_template" validate:"required"`
	LocalDownloadBaseURL   string `json:"local_download_base_url" validate:"omitempty,url"`
}
