package request

// CreateFileServer describes a new remote file server. Local storage has
// no server rows, so local is not an accepted kind here.
type CreateFileServer struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=s3 sftp"`
	Enabled  *bool  `json:"enabled"`
	Position int    `json:"position" validate:"gte=0"`

	Host     string `json:"host" validate:"required_if=Kind sftp"`
	Port     int    `json:"port" validate:"gte=0,lte=65535"`
	Username string `json:"username" validate:"required_if=Kind sftp"`
	Password string `json:"password"`
	BasePath string `json:"base_path"`

	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket" validate:"required_if=Kind s3"`
	AccessKeyID     string `json:"access_key_id" validate:"required_if=Kind s3"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

type UpdateFileServer struct {
	Name     string `json:"name" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=s3 sftp"`
	Enabled  *bool  `json:"enabled"`
	Position int    `json:"position" validate:"gte=0"`

	Host     string `json:"host"`
	Port     int    `json:"port" validate:"gte=0,lte=65535"`
	Username string `json:"username"`
	Password string `json:"password"`
	BasePath string `json:"base_path"`

	Endpoint        string `json:"endpoint"`
	Region          string `json:"region"`
	Bucket          string `json:"bucket"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	UsePathStyle    bool   `json:"use_path_style"`
}

type SetFileServerOverride struct {
	Kind     string `json:"kind" validate:"required,oneof=s3 sftp"`
	ServerID string `json:"server_id" validate:"required"`
}
