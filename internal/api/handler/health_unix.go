//go:build linux || darwin

package handler

import (
	"sync"
	"syscall"
	"time"
)

var cpuSample struct {
	sync.Mutex
	cpu  time.Duration
	wall time.Time
}

// getDiskStats returns disk usage statistics for the filesystem holding path.
func getDiskStats(path string) (total, free, used int64, usedPct float64) {
	var statfs syscall.Statfs_t
	if err := syscall.Statfs(path, &statfs); err != nil {
		return 0, 0, 0, 0
	}
	total = int64(statfs.Blocks) * int64(statfs.Bsize)
	free = int64(statfs.Bavail) * int64(statfs.Bsize)
	used = total - free
	if total > 0 {
		usedPct = float64(used) / float64(total) * 100
	}
	return total, free, used, usedPct
}

// getCPUUsage returns process CPU usage since the previous call, capped at
// one core. The first call returns 0.
func getCPUUsage() float64 {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	cpu := time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
	now := time.Now()

	cpuSample.Lock()
	defer cpuSample.Unlock()

	prevCPU, prevWall := cpuSample.cpu, cpuSample.wall
	cpuSample.cpu, cpuSample.wall = cpu, now
	if prevWall.IsZero() {
		return 0
	}

	wall := now.Sub(prevWall)
	if wall <= 0 {
		return 0
	}
	pct := float64(cpu-prevCPU) / float64(wall) * 100
	return min(max(pct, 0), 100)
}
