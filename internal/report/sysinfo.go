package report

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

// SysInfo describes the machine a solve ran on.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
	Cores    int    `json:"cores"`
}

// CaptureSysInfo probes the host. Fields it cannot read are left as "unknown".
func CaptureSysInfo() SysInfo {
	info := SysInfo{Platform: runtime.GOOS, CPU: "unknown", RAM: "unknown", Cores: runtime.NumCPU()}
	if h, err := host.Info(); err == nil && h.Platform != "" {
		info.Platform = h.Platform
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 && c[0].ModelName != "" {
		info.CPU = c[0].ModelName
	}
	if v, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", v.Total/1024/1024/1024)
	}
	return info
}
