package entity

import "time"

// InventoryRecord is one flat inventory row as stored in the record store.
type InventoryRecord map[string]any

// VMRecord is the typed view of an RVTools VM row.
type VMRecord struct {
	VM             string     `mapstructure:"vm"`
	VMHash         *string    `mapstructure:"vm_hash"`
	DatasetID      *int64     `mapstructure:"dataset_id"`
	Host           *string    `mapstructure:"host"`
	Cluster        *string    `mapstructure:"cluster"`
	Datacenter     *string    `mapstructure:"datacenter"`
	VCenter        *string    `mapstructure:"vcenter"`
	Path           *string    `mapstructure:"path"`
	ResourcePool   *string    `mapstructure:"resource_pool"`
	PowerState     *string    `mapstructure:"powerstate"`
	CPUs           int        `mapstructure:"cpus"`
	Memory         int        `mapstructure:"memory"`
	MemoryGB       *float64   `mapstructure:"memory_gb"`
	Disks          int        `mapstructure:"disks"`
	NICs           int        `mapstructure:"nics"`
	ProvisionedMiB *float64   `mapstructure:"provisioned_mib"`
	ProvisionedGB  *float64   `mapstructure:"provisioned_gb"`
	InUseMiB       *float64   `mapstructure:"in_use_mib"`
	InUseGB        *float64   `mapstructure:"in_use_gb"`
	ConsumedMiB    *float64   `mapstructure:"consumed_mib"`
	CapacityMiB    []float64  `mapstructure:"capacity_mib"`
	Network        []string   `mapstructure:"network"`
	Switch         []string   `mapstructure:"switch"`
	ConfigOS       *string    `mapstructure:"config_os"`
	VMToolsOS      *string    `mapstructure:"vm_tools_os"`
	PhysCoresUsed  *float64   `mapstructure:"phys_cores_used"`
	PhysRAMUsed    *float64   `mapstructure:"phys_ram_used"`
	IsDesktop      bool       `mapstructure:"is_desktop"`
	Thin           []bool     `mapstructure:"thin"`
	Collection     *string    `mapstructure:"collection"`
	CreatedAt      *time.Time `mapstructure:"created_at"`
}

// HostRecord is the typed view of an RVTools host row.
type HostRecord struct {
	Host        string     `mapstructure:"host"`
	HostHash    *string    `mapstructure:"host_hash"`
	DatasetID   *int64     `mapstructure:"dataset_id"`
	Datacenter  *string    `mapstructure:"datacenter"`
	Cluster     *string    `mapstructure:"cluster"`
	VCenter     *string    `mapstructure:"vcenter"`
	Vendor      *string    `mapstructure:"vendor"`
	Model       *string    `mapstructure:"model"`
	CPUModel    *string    `mapstructure:"cpu_model"`
	CPUs        int        `mapstructure:"cpus"`
	Cores       int        `mapstructure:"cores"`
	VCPUs       int        `mapstructure:"vcpus"`
	Speed       float64    `mapstructure:"speed"`
	Memory      int        `mapstructure:"memory"`
	MemoryGB    int        `mapstructure:"memory_gb"`
	NICs        int        `mapstructure:"nics"`
	HBAs        int        `mapstructure:"hbas"`
	CPUUsage    float64    `mapstructure:"cpu_usage"`
	MemoryUsage float64    `mapstructure:"memory_usage"`
	VMs         int        `mapstructure:"vms"`
	DesktopVMs  int        `mapstructure:"desktop_vms"`
	ServerVMs   int        `mapstructure:"server_vms"`
	VRAM        int        `mapstructure:"vram"`
	ESXVersion  *string    `mapstructure:"esx_version"`
	HTActive    bool       `mapstructure:"ht_active"`
	Collection  *string    `mapstructure:"collection"`
	CreatedAt   *time.Time `mapstructure:"created_at"`
}
