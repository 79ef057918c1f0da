package model

import "time"

// LocalServerID is the sentinel server reference recorded for backups on the
// local kind, which has no remote server.
const LocalServerID = "local"

// FileServer is one configured backup target. Remote kinds carry connection
// parameters; the local kind is represented only by the LocalServerID sentinel
// and never stored here.
type FileServer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Enabled  bool   `json:"enabled"`
	Position int    `json:"position"`

	// SFTP connection parameters.
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
	BasePath string `json:"base_path,omitempty"`

	// S3 connection parameters.
	Endpoint        string `json:"endpoint,omitempty"`
	Region          string `json:"region,omitempty"`
	Bucket          string `json:"bucket,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty"`
	SecretAccessKey string `json:"-"`
	UsePathStyle    bool   `json:"use_path_style,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocalFileServer returns the sentinel server used when a backup lives on
// the tenant's own disk.
func LocalFileServer() *FileServer {
	return &FileServer{ID: LocalServerID, Name: "local", Kind: KindLocal, Enabled: true}
}

// Override scopes for file server selection.
const (
	OverrideScopeHost       = "host"
	OverrideScopeDatacenter = "datacenter"
)

// FileServerOverride pins a backend kind to a specific server for every tenant
// on a host or in a datacenter.
type FileServerOverride struct {
	Scope    string `json:"scope"`
	ScopeID  string `json:"scope_id"`
	Kind     string `json:"kind"`
	ServerID string `json:"server_id"`
}
