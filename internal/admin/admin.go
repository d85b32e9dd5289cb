/*
Package admin exposes operational introspection for the advisory service:
host, CPU, memory and disk readings for the ops dashboard.
*/
package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemStats is the ops snapshot returned by the system endpoint.
type SystemStats struct {
	Hostname       string  `json:"hostname"`
	Platform       string  `json:"platform"`
	UptimeSeconds  uint64  `json:"uptime_seconds"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedPercent float64 `json:"mem_used_percent"`
	MemTotalMB     uint64  `json:"mem_total_mb"`
	DiskUsedPct    float64 `json:"disk_used_percent"`
}

// GetSystemStatsHandler reports current host utilization. Individual probe
// failures zero the affected fields instead of failing the request.
func GetSystemStatsHandler(c echo.Context) error {
	stats := SystemStats{}

	if info, err := host.Info(); err == nil {
		stats.Hostname = info.Hostname
		stats.Platform = info.Platform
		stats.UptimeSeconds = info.Uptime
	} else {
		log.Warn().Err(err).Msg("Failed to read host info")
	}

	if percents, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read cpu usage")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemUsedPercent = vm.UsedPercent
		stats.MemTotalMB = vm.Total / 1024 / 1024
	} else {
		log.Warn().Err(err).Msg("Failed to read memory usage")
	}

	if du, err := disk.Usage("/"); err == nil {
		stats.DiskUsedPct = du.UsedPercent
	} else {
		log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	return c.JSON(http.StatusOK, stats)
}
