package model

// RestorePlan tells the caller how to materialize a backup. The engine never
// writes into a tenant's working directory itself: it either hands back a
// direct URL to fetch, or the full content to write.
type RestorePlan struct {
	BackupID string `json:"backup_id"`
	FileName string `json:"file_name"`

	// DirectURL is set when the backend supports direct downloads. When
	// non-empty, Content is nil.
	DirectURL string `json:"direct_url,omitempty"`

	// Content holds the backup bytes when no direct URL is available.
	Content []byte `json:"-"`
}

// Direct reports whether the plan bypasses the engine for the transfer.
func (p *RestorePlan) Direct() bool {
	return p.DirectURL != ""
}

// Capacity is the quota view for one tenant and backend kind.
type Capacity struct {
	Kind       string `json:"kind"`
	UsedBytes  int64  `json:"used_bytes"`
	LimitBytes int64  `json:"limit_bytes"`
	Used       string `json:"used"`
	Limit      string `json:"limit"`
	Unlimited  bool   `json:"unlimited"`
	Disabled   bool   `json:"disabled"`
}
