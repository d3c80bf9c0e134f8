package dto

// ChatRequest asks a question about one dataset.
type ChatRequest struct {
	DatasetID     int64          `json:"dataset_id"`
	UserPrompt    string         `json:"user_prompt"`
	FilterOptions *FilterOptions `json:"filter_options,omitempty"`
	TopK          int            `json:"top_k,omitempty"`
}

// ChatResponse carries the model's answer.
type ChatResponse struct {
	Response string `json:"response"`
}

// FilterOptions are the UI filters the user had applied when asking.
type FilterOptions struct {
	HostFilters           HostFilterOptions           `json:"host_filters"`
	VMFilters             VMFilterOptions             `json:"vm_filters"`
	InfrastructureFilters InfrastructureFilterOptions `json:"infrastructure_filters"`
}

// HostFilterOptions filter ESXi hosts.
type HostFilterOptions struct {
	HostNames      []string `json:"host_names"`
	Models         []string `json:"models"`
	CPUModels      []string `json:"cpu_models"`
	Vendors        []string `json:"vendors"`
	ESXVersions    []string `json:"esx_versions"`
	HTActives      []string `json:"ht_actives"`
	MemoryGBValues []int    `json:"memory_gb_values"`
}

// VMFilterOptions filter virtual machines.
type VMFilterOptions struct {
	VMNames       []string `json:"vm_names"`
	OSTypes       []string `json:"os_types"`
	OSVersions    []string `json:"os_versions"`
	PowerStates   []string `json:"power_states"`
	Apps          []string `json:"apps"`
	ThinValues    []bool   `json:"thin_values"`
	Switches      []string `json:"switches"`
	Networks      []string `json:"networks"`
	MemoryGBRange IntRange `json:"memory_gb_range"`
	InUseMiBRange IntRange `json:"in_use_mib_range"`
}

// InfrastructureFilterOptions filter by vSphere topology.
type InfrastructureFilterOptions struct {
	VCenters    []string `json:"vcenters"`
	Datacenters []string `json:"datacenters"`
	Clusters    []string `json:"clusters"`
}

// IntRange is an inclusive numeric range.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultIntRange matches the unbounded range used by the UI.
func DefaultIntRange() IntRange {
	return IntRange{Min: 0, Max: 999999}
}

// IsEmpty reports whether no filter value is set.
func (f *FilterOptions) IsEmpty() bool {
	if f == nil {
		return true
	}
	h, v, i := f.HostFilters, f.VMFilters, f.InfrastructureFilters
	return len(h.HostNames)+len(h.Models)+len(h.CPUModels)+len(h.Vendors)+len(h.ESXVersions)+len(h.HTActives)+len(h.MemoryGBValues) == 0 &&
		len(v.VMNames)+len(v.OSTypes)+len(v.OSVersions)+len(v.PowerStates)+len(v.Apps)+len(v.ThinValues)+len(v.Switches)+len(v.Networks) == 0 &&
		isDefaultRange(v.MemoryGBRange) && isDefaultRange(v.InUseMiBRange) &&
		len(i.VCenters)+len(i.Datacenters)+len(i.Clusters) == 0
}

func isDefaultRange(r IntRange) bool {
	return r == IntRange{} || r == DefaultIntRange()
}
