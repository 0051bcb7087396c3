package telemetry

import (
	"sort"
	"sync"
	"time"
)

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthStale    = "stale"
	HealthError    = "error"
	HealthPending  = "pending"
)

// HealthTracker aggregates named checks reported by background components.
type HealthTracker struct {
	mu     sync.RWMutex
	checks map[string]*HealthCheck
	now    func() time.Time
}

// HealthCheck is one component's view of its own health. A check with a
// positive maxAge goes stale when it has not been beaten within that window.
type HealthCheck struct {
	tracker *HealthTracker
	name    string
	maxAge  time.Duration
	last    time.Time
	err     error
}

type HealthReport struct {
	Status string              `json:"status"`
	Checks []HealthCheckReport `json:"checks,omitempty"`
}

type HealthCheckReport struct {
	Name     string     `json:"name"`
	Status   string     `json:"status"`
	LastBeat *time.Time `json:"lastBeat,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		checks: make(map[string]*HealthCheck),
		now:    time.Now,
	}
}

// Register returns the check for name, creating it on first use.
func (t *HealthTracker) Register(name string, maxAge time.Duration) *HealthCheck {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if check, ok := t.checks[name]; ok {
		check.maxAge = maxAge
		return check
	}
	check := &HealthCheck{tracker: t, name: name, maxAge: maxAge}
	t.checks[name] = check
	return check
}

// Beat records a successful round and clears any previous failure.
func (c *HealthCheck) Beat() {
	if c == nil {
		return
	}
	c.tracker.mu.Lock()
	c.last = c.tracker.now()
	c.err = nil
	c.tracker.mu.Unlock()
}

// Fail records err as the latest outcome of the check.
func (c *HealthCheck) Fail(err error) {
	if c == nil || err == nil {
		return
	}
	c.tracker.mu.Lock()
	c.err = err
	c.tracker.mu.Unlock()
}

func (t *HealthTracker) Report() HealthReport {
	report := HealthReport{Status: HealthOK}
	if t == nil {
		return report
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	for _, check := range t.checks {
		entry := HealthCheckReport{Name: check.name, Status: HealthOK}
		if !check.last.IsZero() {
			last := check.last
			entry.LastBeat = &last
		}
		switch {
		case check.err != nil:
			entry.Status = HealthError
			entry.Error = check.err.Error()
		case check.last.IsZero():
			entry.Status = HealthPending
		case check.maxAge > 0 && now.Sub(check.last) > check.maxAge:
			entry.Status = HealthStale
		}
		if entry.Status == HealthError || entry.Status == HealthStale {
			report.Status = HealthDegraded
		}
		report.Checks = append(report.Checks, entry)
	}
	sort.Slice(report.Checks, func(i, j int) bool {
		return report.Checks[i].Name < report.Checks[j].Name
	})
	return report
}
