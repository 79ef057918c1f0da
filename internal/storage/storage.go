package storage

import (
	"context"
	"fmt"

	"github.com/edvin/filevault/internal/model"
)

// Backend stores and retrieves backup content for a single tenant scope.
// Instances are bound to one server and one scope at open time, used for one
// operation, and closed afterwards; they are not safe for concurrent use.
type Backend interface {
	// Kind returns the backend kind (s3, sftp, local).
	Kind() string

	// Put writes content under the given name, creating intermediate
	// directories or prefixes as needed. Re-putting a name overwrites.
	Put(ctx context.Context, name string, content []byte, contentType string) error

	// GetBytes retrieves the full content into memory.
	// Returns ErrNotFound when the object is absent.
	GetBytes(ctx context.Context, name string) ([]byte, error)

	// Delete removes the object. A missing object is treated as already
	// deleted and is not an error.
	Delete(ctx context.Context, name string) error

	// DirectLink returns a URL the caller can fetch without streaming bytes
	// through the engine. Returns ErrUnsupported when the backend cannot.
	DirectLink(ctx context.Context, name string) (string, error)

	// SupportsDirectLink reports whether DirectLink can succeed.
	SupportsDirectLink() bool

	// Close releases connections held by the instance.
	Close() error
}

// ScopeUsage is implemented by backends that can report authoritative usage
// for their scope, independent of the registry's recorded sizes.
type ScopeUsage interface {
	UsedBytes(ctx context.Context) (int64, error)
}

// Config carries everything needed to open a backend bound to one tenant.
type Config struct {
	Kind string

	// Scope prefixes every object name on remote kinds; it is the tenant ID.
	Scope string

	// Server holds connection parameters for remote kinds; nil for local.
	Server *model.FileServer

	// LocalRoot is the tenant-scoped directory for the local kind.
	LocalRoot string

	// DownloadBaseURL enables direct links for the local kind when set.
	DownloadBaseURL string
}

// Constructor creates a backend instance from its config.
type Constructor func(ctx context.Context, cfg Config) (Backend, error)

var registry = make(map[string]Constructor)

// Register makes a backend kind available to Open. Called from the kind
// subpackages' init functions.
func Register(kind string, constructor Constructor) {
	registry[kind] = constructor
}

// OpenFunc matches Open; the orchestrator holds one so tests can substitute
// fake backends.
type OpenFunc func(ctx context.Context, cfg Config) (Backend, error)

// Open creates a backend for the given config.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	constructor, ok := registry[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown backend kind: %s", cfg.Kind)
	}
	return constructor(ctx, cfg)
}
