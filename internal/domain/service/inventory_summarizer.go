// Package service holds domain services that operate on inventory entities.
package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"

	"github.com/let-userName-Brian/exempla-ai/internal/domain/entity"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/errors/domain"
	"github.com/let-userName-Brian/exempla-ai/internal/domain/valueobject"
)

const (
	unknownValue     = "unknown"
	unknownTimeValue = "unknown time"
	notApplicable    = "N/A"
	createdAtLayout  = "2006-01-02 15:04:05"
	mibPerGiB        = 1024.0
)

// InventorySummarizer turns flat inventory rows into point ids, summary text
// and metadata payloads. Summaries depend only on the record's fields.
type InventorySummarizer struct {
	newID func() string
}

// NewInventorySummarizer creates a summarizer that falls back to random uuids
// for records without a hash or natural key.
func NewInventorySummarizer() *InventorySummarizer {
	return &InventorySummarizer{newID: func() string { return uuid.New().String() }}
}

// Prepare dispatches on the record kind.
func (s *InventorySummarizer) Prepare(kind valueobject.RecordKind, record entity.InventoryRecord) (entity.PreparedPoint, error) {
	switch kind {
	case valueobject.RecordKindVM:
		return s.PrepareVM(record)
	case valueobject.RecordKindHost:
		return s.PrepareHost(record)
	default:
		return entity.PreparedPoint{}, fmt.Errorf("%w: %s", domain.ErrInvalidRecordKind, kind)
	}
}

// PrepareVM builds the point id, summary and metadata for a VM row.
func (s *InventorySummarizer) PrepareVM(record entity.InventoryRecord) (entity.PreparedPoint, error) {
	var vm entity.VMRecord
	if err := decodeRecord(record, &vm); err != nil {
		return entity.PreparedPoint{}, err
	}

	summary := SummarizeVM(vm)
	metadata := vmMetadata(vm)
	metadata[entity.PayloadContentKey] = summary

	return entity.PreparedPoint{
		ID:       s.pointID(valueobject.RecordKindVM, deref(vm.VMHash), vm.VM),
		Summary:  summary,
		Metadata: metadata,
	}, nil
}

// PrepareHost builds the point id, summary and metadata for a host row.
func (s *InventorySummarizer) PrepareHost(record entity.InventoryRecord) (entity.PreparedPoint, error) {
	var host entity.HostRecord
	if err := decodeRecord(record, &host); err != nil {
		return entity.PreparedPoint{}, err
	}

	summary := SummarizeHost(host)
	metadata := hostMetadata(host)
	metadata[entity.PayloadContentKey] = summary

	return entity.PreparedPoint{
		ID:       s.pointID(valueobject.RecordKindHost, deref(host.HostHash), host.Host),
		Summary:  summary,
		Metadata: metadata,
	}, nil
}

// pointID prefers the domain hash, then the natural key, then a random id.
func (s *InventorySummarizer) pointID(kind valueobject.RecordKind, hash, naturalKey string) string {
	if hash != "" {
		return hash
	}
	if naturalKey != "" {
		return naturalKey
	}
	return kind.String() + "-" + s.newID()
}

func decodeRecord(record entity.InventoryRecord, out any) error {
	if len(record) == 0 {
		return fmt.Errorf("%w: empty record", domain.ErrRecordPreparation)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRecordPreparation, err)
	}
	if err := decoder.Decode(map[string]any(record)); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrRecordPreparation, err)
	}
	return nil
}

// SummarizeVM renders the natural-language description of a VM.
func SummarizeVM(vm entity.VMRecord) string {
	powerState := orDefault(vm.PowerState, unknownValue)
	if powerState == "poweredOn" {
		powerState = "powered on"
	}

	memoryGB := 0.0
	switch {
	case vm.MemoryGB != nil && *vm.MemoryGB != 0:
		memoryGB = *vm.MemoryGB
	case vm.Memory != 0:
		memoryGB = round2(float64(vm.Memory) / mibPerGiB)
	}

	thinCount := 0
	for _, thin := range vm.Thin {
		if thin {
			thinCount++
		}
	}

	osInfo := unknownValue
	switch {
	case deref(vm.ConfigOS) != "":
		osInfo = *vm.ConfigOS
	case deref(vm.VMToolsOS) != "":
		osInfo = *vm.VMToolsOS
	}

	var b strings.Builder
	fmt.Fprintf(&b, "VM '%s' (hash=%s), dataset %s. ",
		orDefault(&vm.VM, unknownValue), orDefault(vm.VMHash, unknownValue), datasetLabel(vm.DatasetID))
	fmt.Fprintf(&b, "It is %s on host '%s', cluster '%s', in datacenter '%s'. ",
		powerState, orDefault(vm.Host, unknownValue), orDefault(vm.Cluster, unknownValue), orDefault(vm.Datacenter, unknownValue))
	fmt.Fprintf(&b, "Has %d vCPUs, %s GB memory. Provisioned ~%s GB, in-use ~%s GB, consumed ~%s GB. ",
		vm.CPUs,
		formatNumber(memoryGB),
		formatNumber(round2(gibOrMiB(vm.ProvisionedGB, vm.ProvisionedMiB))),
		formatNumber(round2(gibOrMiB(vm.InUseGB, vm.InUseMiB))),
		formatNumber(round2(gibOrMiB(nil, vm.ConsumedMiB))))
	fmt.Fprintf(&b, "OS: %s. is_desktop: %s. ", osInfo, formatBool(vm.IsDesktop))
	fmt.Fprintf(&b, "Networks: %s. Switches: %s. ", joinOrNone(vm.Network), joinOrNone(vm.Switch))
	fmt.Fprintf(&b, "Thin-provisioned disks: %d of %d. ", thinCount, vm.Disks)
	fmt.Fprintf(&b, "Resource pool: %s. Path: %s. ", orDefault(vm.ResourcePool, notApplicable), orDefault(vm.Path, notApplicable))
	fmt.Fprintf(&b, "Physical cores used: %s, physical RAM used: %s GB. ",
		nonZeroOrUnknown(vm.PhysCoresUsed), nonZeroOrUnknown(vm.PhysRAMUsed))
	fmt.Fprintf(&b, "Record created at %s.", formatCreatedAt(vm.CreatedAt))

	return strings.TrimSpace(b.String())
}

// SummarizeHost renders the natural-language description of an ESXi host.
func SummarizeHost(host entity.HostRecord) string {
	hyperThreading := "inactive"
	if host.HTActive {
		hyperThreading = "active"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Host '%s' (hash=%s), dataset %s. ",
		orDefault(&host.Host, unknownValue), orDefault(host.HostHash, unknownValue), datasetLabel(host.DatasetID))
	fmt.Fprintf(&b, "Datacenter: '%s'. Cluster: '%s'. ",
		orDefault(host.Datacenter, unknownValue), orDefault(host.Cluster, unknownValue))
	fmt.Fprintf(&b, "Vendor: %s, Model: %s, CPU model: %s. ",
		orDefault(host.Vendor, unknownValue), orDefault(host.Model, unknownValue), orDefault(host.CPUModel, unknownValue))
	fmt.Fprintf(&b, "ESXi version: %s, hyper-threading: %s. ", orDefault(host.ESXVersion, unknownValue), hyperThreading)
	fmt.Fprintf(&b, "Cores: %d, total vCPUs: %d, usage at %s%%. ", host.Cores, host.VCPUs, formatNumber(host.CPUUsage))
	fmt.Fprintf(&b, "Memory: %d MB (~%d GB), usage %s%%. ", host.Memory, host.MemoryGB, formatNumber(host.MemoryUsage))
	fmt.Fprintf(&b, "%d VMs total, %d desktop, %d server. VRAM: %d MB. ",
		host.VMs, host.DesktopVMs, host.ServerVMs, host.VRAM)
	fmt.Fprintf(&b, "NICS: %d, HBAs: %d, CPU packages: %d, speed: %s MHz. ",
		host.NICs, host.HBAs, host.CPUs, formatNumber(host.Speed))
	fmt.Fprintf(&b, "vCenter: %s. Created at %s.", orDefault(host.VCenter, unknownValue), formatCreatedAt(host.CreatedAt))

	return strings.TrimSpace(b.String())
}

func vmMetadata(vm entity.VMRecord) map[string]any {
	return map[string]any{
		"dataset_id":      derefAny(vm.DatasetID),
		"type":            valueobject.RecordKindVM.String(),
		"vm":              orDefault(&vm.VM, unknownValue),
		"vm_hash":         derefAny(vm.VMHash),
		"host":            orDefault(vm.Host, unknownValue),
		"cluster":         orDefault(vm.Cluster, unknownValue),
		"datacenter":      orDefault(vm.Datacenter, unknownValue),
		"vcenter":         derefAny(vm.VCenter),
		"path":            derefAny(vm.Path),
		"resource_pool":   derefAny(vm.ResourcePool),
		"powerstate":      orDefault(vm.PowerState, unknownValue),
		"created_at":      createdAtValue(vm.CreatedAt),
		"cpus":            vm.CPUs,
		"memory":          vm.Memory,
		"memory_gb":       derefAny(vm.MemoryGB),
		"disks":           vm.Disks,
		"nics":            vm.NICs,
		"provisioned_mib": derefAny(vm.ProvisionedMiB),
		"provisioned_gb":  derefAny(vm.ProvisionedGB),
		"in_use_mib":      derefAny(vm.InUseMiB),
		"in_use_gb":       derefAny(vm.InUseGB),
		"consumed_mib":    derefAny(vm.ConsumedMiB),
		"capacity_mib":    nonNil(vm.CapacityMiB),
		"network":         nonNil(vm.Network),
		"switch":          nonNil(vm.Switch),
		"config_os":       derefAny(vm.ConfigOS),
		"vm_tools_os":     derefAny(vm.VMToolsOS),
		"phys_cores_used": derefAny(vm.PhysCoresUsed),
		"phys_ram_used":   derefAny(vm.PhysRAMUsed),
		"is_desktop":      vm.IsDesktop,
		"thin":            nonNil(vm.Thin),
		"collection":      derefAny(vm.Collection),
	}
}

func hostMetadata(host entity.HostRecord) map[string]any {
	return map[string]any{
		"dataset_id":   derefAny(host.DatasetID),
		"type":         valueobject.RecordKindHost.String(),
		"host":         orDefault(&host.Host, unknownValue),
		"host_hash":    derefAny(host.HostHash),
		"datacenter":   orDefault(host.Datacenter, unknownValue),
		"cluster":      derefAny(host.Cluster),
		"vcenter":      derefAny(host.VCenter),
		"vendor":       derefAny(host.Vendor),
		"model":        derefAny(host.Model),
		"cpu_model":    derefAny(host.CPUModel),
		"cpus":         host.CPUs,
		"cores":        host.Cores,
		"vcpus":        host.VCPUs,
		"speed":        host.Speed,
		"memory":       host.Memory,
		"memory_gb":    host.MemoryGB,
		"nics":         host.NICs,
		"hbas":         host.HBAs,
		"cpu_usage":    host.CPUUsage,
		"memory_usage": host.MemoryUsage,
		"vms":          host.VMs,
		"desktop_vms":  host.DesktopVMs,
		"server_vms":   host.ServerVMs,
		"vram":         host.VRAM,
		"esx_version":  derefAny(host.ESXVersion),
		"ht_active":    host.HTActive,
		"collection":   derefAny(host.Collection),
		"created_at":   createdAtValue(host.CreatedAt),
	}
}

func gibOrMiB(gib, mib *float64) float64 {
	if gib != nil && *gib != 0 {
		return *gib
	}
	if mib != nil && *mib != 0 {
		return *mib / mibPerGiB
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatCreatedAt(t *time.Time) string {
	if t == nil || t.IsZero() {
		return unknownTimeValue
	}
	return t.UTC().Format(createdAtLayout)
}

func createdAtValue(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nonZeroOrUnknown(v *float64) string {
	if v == nil || *v == 0 {
		return unknownValue
	}
	return formatNumber(*v)
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func datasetLabel(id *int64) string {
	if id == nil {
		return unknownValue
	}
	return strconv.FormatInt(*id, 10)
}

func orDefault(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefAny[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
