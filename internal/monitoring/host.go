package monitoring

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostStats is a snapshot of the machine the server runs on.
type HostStats struct {
	Hostname      string  `json:"hostname"`
	UptimeSeconds uint64  `json:"uptimeSeconds"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryPercent float64 `json:"memoryPercent"`
}

// CollectHostStats samples CPU, memory and uptime.
func CollectHostStats(ctx context.Context) (HostStats, error) {
	var stats HostStats

	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("host info: %w", err)
	}
	stats.Hostname = info.Hostname
	stats.UptimeSeconds = info.Uptime

	// Zero interval compares against the previous call instead of sleeping.
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return stats, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, fmt.Errorf("memory: %w", err)
	}
	stats.MemoryPercent = vm.UsedPercent

	return stats, nil
}
