package limiter

import (
	"runtime"
	"time"
)

// CPULimiter paces the sweep loop to a maximum CPU percentage by sleeping
// between candidates. For hard limits use cgroups or systemd instead.
type CPULimiter struct {
	maxPercent float64
	lastSleep  time.Time
}

// NewCPULimiter creates a new CPU limiter
func NewCPULimiter(maxPercent float64) *CPULimiter {
	return &CPULimiter{
		maxPercent: maxPercent,
		lastSleep:  time.Now(),
	}
}

// Throttle sleeps to limit CPU usage to maxPercent
func (l *CPULimiter) Throttle() {
	if l.maxPercent <= 0 || l.maxPercent >= 100 {
		return // No limit or invalid
	}

	// To spend maxPercent of the time working, sleep for the rest of the
	// work/sleep cycle.
	sleepPercent := 100.0 - l.maxPercent

	workTime := 10 * time.Millisecond
	sleepTime := time.Duration(float64(workTime) * (sleepPercent / l.maxPercent))

	if time.Since(l.lastSleep) > workTime {
		time.Sleep(sleepTime)
		l.lastSleep = time.Now()
	}

	runtime.Gosched()
}
