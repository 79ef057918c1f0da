package core

import "errors"

// Sentinel errors returned by the services. Handlers map these to HTTP
// status codes; everything else is a 500.
var (
	ErrInvalidName       = errors.New("invalid backup name")
	ErrBackupExists      = errors.New("backup already exists")
	ErrQuotaExceeded     = errors.New("backup quota exceeded")
	ErrBackendDisabled   = errors.New("storage backend disabled")
	ErrNoServerAvailable = errors.New("no file server available")
	ErrNotFound          = errors.New("not found")
	ErrUnsupported       = errors.New("operation not supported")
)
