package request

type CreateTenant struct {
	Name            string            `json:"name" validate:"required"`
	WorkingDir      string            `json:"working_dir" validate:"required"`
	HostID          string            `json:"host_id"`
	DatacenterID    string            `json:"datacenter_id"`
	QuotaOverrides  map[string]int64  `json:"quota_overrides" validate:"omitempty,dive,keys,kind,endkeys,gte=-1"`
	ServerSelection map[string]string `json:"server_selection" validate:"omitempty,dive,keys,kind,endkeys,required"`
}

type UpdateTenant struct {
	Name            string            `json:"name" validate:"required"`
	WorkingDir      string            `json:"working_dir" validate:"required"`
	HostID          string            `json:"host_id"`
	DatacenterID    string            `json:"datacenter_id"`
	QuotaOverrides  map[string]int64  `json:"quota_overrides" validate:"omitempty,dive,keys,kind,endkeys,gte=-1"`
	ServerSelection map[string]string `json:"server_selection" validate:"omitempty,dive,keys,kind,endkeys,required"`
}
