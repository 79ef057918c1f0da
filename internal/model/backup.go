package model

import "time"

// Backup is one stored backup file: the registry row that ties a tenant's
// logical file name to the backend and server holding the bytes.
type Backup struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Kind       string    `json:"kind"`
	ServerID   string    `json:"server_id"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	ContentKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Backend kinds. The remote file-server kind speaks SFTP.
const (
	KindS3    = "s3"
	KindSFTP  = "sftp"
	KindLocal = "local"
)

// Kinds returns all backend kinds in display order.
func Kinds() []string {
	return []string{KindS3, KindSFTP, KindLocal}
}

func ValidKind(kind string) bool {
	switch kind {
	case KindS3, KindSFTP, KindLocal:
		return true
	}
	return false
}
