// runtime.go snapshots process state for panic-derived exceptions.

package posthog

import (
	"os"
	"runtime"
	"time"
)

// Prop keys written by WithRuntimeProps.
const (
	PropRuntimeMemoryBytes = "$runtime_memory_bytes"
	PropRuntimeGoroutines  = "$runtime_goroutines"
	PropProcessUptimeMs    = "$process_uptime_ms"
	PropHostName           = "$host"
)

var processStart = time.Now()

// RuntimeState is process state at the moment of a panic.
type RuntimeState struct {
	MemoryBytes    int64
	GoroutineCount int
	UptimeMs       int64
	HostName       string
}

// CaptureRuntimeState captures process metrics at the current moment.
// The startTime parameter is used to calculate process uptime.
func CaptureRuntimeState(startTime time.Time) RuntimeState {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hostname, _ := os.Hostname() // empty hostname is acceptable

	uptimeMs := time.Since(startTime).Milliseconds()
	if uptimeMs < 0 {
		uptimeMs = 0
	}

	return RuntimeState{
		MemoryBytes:    int64(memStats.Alloc),
		GoroutineCount: runtime.NumGoroutine(),
		UptimeMs:       uptimeMs,
		HostName:       hostname,
	}
}

// insertInto adds the state to target as props. The hostname is skipped
// when unknown.
func (s RuntimeState) insertInto(target PropertyInserter) error {
	if err := target.InsertProp(PropRuntimeMemoryBytes, s.MemoryBytes); err != nil {
		return err
	}
	if err := target.InsertProp(PropRuntimeGoroutines, s.GoroutineCount); err != nil {
		return err
	}
	if err := target.InsertProp(PropProcessUptimeMs, s.UptimeMs); err != nil {
		return err
	}
	if s.HostName != "" {
		return target.InsertProp(PropHostName, s.HostName)
	}
	return nil
}
