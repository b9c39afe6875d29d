// Package health runs dependency probes for the liveness and readiness
// endpoints. A failing required probe marks the service down; a failing or
// unconfigured optional probe only degrades it.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Probe returns nil when the dependency is usable.
type Probe func(ctx context.Context) error

var errNotConfigured = errors.New("not configured")

type ComponentHealth struct {
	Status   Status `json:"status"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type component struct {
	name     string
	probe    Probe
	required bool
}

type Checker struct {
	mu           sync.RWMutex
	components   []component
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		probeTimeout: 3 * time.Second,
		logger:       slog.Default().With("component", "health"),
	}
}

// Required registers a probe whose failure makes the service not ready.
func (c *Checker) Required(name string, p Probe) {
	c.add(component{name: name, probe: p, required: true})
}

// Optional registers a probe for a dependency the service can run without.
// A nil probe reports the dependency as not configured.
func (c *Checker) Optional(name string, p Probe) {
	c.add(component{name: name, probe: p})
}

// add replaces an existing component of the same name.
func (c *Checker) add(comp component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.components {
		if c.components[i].name == comp.name {
			c.components[i] = comp
			return
		}
	}
	c.components = append(c.components, comp)
}

func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.components))
	for _, comp := range c.components {
		names = append(names, comp.name)
	}
	slices.Sort(names)
	return names
}

// Run probes every component concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	comps := slices.Clone(c.components)
	c.mu.RUnlock()

	results := make([]ComponentHealth, len(comps))
	var g errgroup.Group
	for i, comp := range comps {
		g.Go(func() error {
			results[i] = c.probe(ctx, comp)
			return nil
		})
	}
	g.Wait()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(comps)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	for i, comp := range comps {
		res := results[i]
		report.Components[comp.name] = res
		switch res.Status {
		case StatusDown:
			c.logger.Warn("component down", "name", comp.name, "message", res.Message)
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func (c *Checker) probe(ctx context.Context, comp component) ComponentHealth {
	res := ComponentHealth{Status: StatusUp, Required: comp.required}
	start := time.Now()
	err := errNotConfigured
	if comp.probe != nil {
		pctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
		err = comp.probe(pctx)
		cancel()
		res.Latency = time.Since(start).Round(time.Millisecond).String()
	}
	if err == nil {
		return res
	}
	res.Message = err.Error()
	res.Status = StatusDegraded
	if comp.required {
		res.Status = StatusDown
	}
	return res
}

// CatalogProbe fails when the catalog holds no diseases.
func CatalogProbe(size func() int) Probe {
	return func(context.Context) error {
		if size() == 0 {
			return errors.New("catalog empty")
		}
		return nil
	}
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 only when a required component is down.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		status := http.StatusOK
		if report.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
