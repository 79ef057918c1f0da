package model

import "time"

// Tenant is the identity a caller supplies with every vault operation. The
// engine never looks tenants up from a session; the API layer loads the row
// and passes the struct down.
type Tenant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	WorkingDir   string `json:"working_dir"`
	HostID       string `json:"host_id"`
	DatacenterID string `json:"datacenter_id"`

	// QuotaOverrides maps backend kind to a capacity in bytes, overriding the
	// global default. QuotaUnlimited and QuotaDisabled are honored here too.
	QuotaOverrides map[string]int64 `json:"quota_overrides,omitempty"`

	// ServerSelection maps backend kind to an explicit file server ID,
	// taking precedence over host and datacenter overrides.
	ServerSelection map[string]string `json:"server_selection,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	TenantStatusActive  = "active"
	TenantStatusDeleted = "deleted"
)
