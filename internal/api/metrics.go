package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics метрики процесса для /api/status
type ProcessMetrics struct {
	startTime time.Time
}

// ProcessSnapshot снимок метрик процесса
type ProcessSnapshot struct {
	Uptime     string  `json:"uptime"`
	MemoryMB   float64 `json:"memory_mb"`
	HeapMB     float64 `json:"heap_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	Goroutines int     `json:"goroutines"`
	NumGC      uint32  `json:"num_gc"`
	ServerTime int64   `json:"server_time"`
}

// NewProcessMetrics создает новый экземпляр метрик
func NewProcessMetrics() *ProcessMetrics {
	return &ProcessMetrics{startTime: time.Now()}
}

// Uptime возвращает время работы
func (pm *ProcessMetrics) Uptime() string {
	return formatUptime(time.Since(pm.startTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// CPUUsage использование CPU процессом в процентах. Если метрика процесса
// недоступна, возвращается системная.
func (pm *ProcessMetrics) CPUUsage() (float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		if pct, err := proc.CPUPercent(); err == nil {
			return pct, nil
		}
	}
	pcts, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(pcts) == 0 {
		return 0, fmt.Errorf("cpu usage unavailable")
	}
	return pcts[0], nil
}

// Snapshot собирает метрики процесса
func (pm *ProcessMetrics) Snapshot() ProcessSnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	cpuPct, _ := pm.CPUUsage()
	return ProcessSnapshot{
		Uptime:     pm.Uptime(),
		MemoryMB:   float64(m.Alloc) / 1024 / 1024,
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		CPUPercent: cpuPct,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
		ServerTime: time.Now().Unix(),
	}
}
