// 本文件用于采集健康检查所需的进程与主机指标
package sysinfo

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"error-match/internal/models"
)

const defaultCacheTTL = 1 * time.Second

// Collector 负责采集健康检查快照
// 指标读取有系统调用开销，短 TTL 缓存避免健康检查被刷爆
type Collector struct {
	mu             sync.Mutex
	cacheTTL       time.Duration
	lastSnapshot   models.HealthSnapshot
	lastSnapshotAt time.Time
	proc           *process.Process
}

// NewCollector 创建系统信息采集器
// 任何采集失败都只是对应字段归零 健康检查本身永不失败
func NewCollector() *Collector {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		proc = nil
	}
	return &Collector{
		cacheTTL: defaultCacheTTL,
		proc:     proc,
	}
}

// Snapshot 返回当前运行指标快照
func (c *Collector) Snapshot() models.HealthSnapshot {
	if c == nil {
		return models.HealthSnapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.lastSnapshotAt) < c.cacheTTL && !c.lastSnapshotAt.IsZero() {
		return c.lastSnapshot
	}

	snapshot := models.HealthSnapshot{
		Goroutines: runtime.NumGoroutine(),
	}
	if hostname, err := os.Hostname(); err == nil {
		snapshot.Hostname = hostname
	}
	if uptime, err := host.Uptime(); err == nil {
		snapshot.UptimeSec = uptime
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snapshot.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil && vm != nil {
		snapshot.MemUsedPercent = vm.UsedPercent
	}
	if c.proc != nil {
		if info, err := c.proc.MemoryInfo(); err == nil && info != nil {
			snapshot.ProcessRSS = info.RSS
		}
	}

	c.lastSnapshot = snapshot
	c.lastSnapshotAt = time.Now()
	return snapshot
}
