// Package telemetry keeps in-process counters for the intake service and
// exposes them in Prometheus text format at /metrics.
package telemetry

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// Metric names.
const (
	ClaimsTotal          = "intake_claims_total"
	SecondaryWritesTotal = "intake_secondary_writes_total"
	SubmissionsTotal     = "intake_submissions_total"
	HTTPRequestsTotal    = "http_server_requests_total"
)

var help = map[string]string{
	ClaimsTotal:          "Participant slot claims by outcome.",
	SecondaryWritesTotal: "Best-effort survey writes by write and status.",
	SubmissionsTotal:     "Pretest submissions by final state.",
	HTTPRequestsTotal:    "HTTP requests by method and status code.",
}

// Label is one name="value" pair on a counter.
type Label struct {
	Name  string
	Value string
}

func L(name, value string) Label { return Label{Name: name, Value: value} }

// counterStore is keyed by (metricName, label1, label2, ...).
type counterStore struct {
	mu    sync.RWMutex
	items map[string]*int64
}

func newCounterStore() *counterStore {
	return &counterStore{items: make(map[string]*int64)}
}

func (s *counterStore) inc(key string) {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if ok {
		atomic.AddInt64(p, 1)
		return
	}
	s.mu.Lock()
	p, ok = s.items[key]
	if !ok {
		v := int64(1)
		s.items[key] = &v
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	atomic.AddInt64(p, 1)
}

func (s *counterStore) get(key string) int64 {
	s.mu.RLock()
	p, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	return atomic.LoadInt64(p)
}

func (s *counterStore) snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string]int64, len(s.items))
	for k, p := range s.items {
		cp[k] = atomic.LoadInt64(p)
	}
	return cp
}

// Registry holds every counter the service reports. A nil *Registry is valid
// and records nothing, so services can run without metrics in tests.
type Registry struct {
	counters *counterStore
	started  time.Time
}

func NewRegistry() *Registry {
	return &Registry{counters: newCounterStore(), started: time.Now()}
}

func key(name string, labels []Label) string {
	var b strings.Builder
	b.WriteString(name)
	for _, l := range labels {
		b.WriteByte('|')
		b.WriteString(l.Name)
		b.WriteByte('=')
		b.WriteString(l.Value)
	}
	return b.String()
}

// Inc increments the counter identified by name and labels. Labels must be
// passed in the same order on every call for a given metric.
func (r *Registry) Inc(name string, labels ...Label) {
	if r == nil {
		return
	}
	r.counters.inc(key(name, labels))
}

// Get returns the current value of a counter.
func (r *Registry) Get(name string, labels ...Label) int64 {
	if r == nil {
		return 0
	}
	return r.counters.get(key(name, labels))
}

// Middleware counts every request by method and status.
func (r *Registry) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			r.Inc(HTTPRequestsTotal,
				L("method", c.Request().Method),
				L("status", strconv.Itoa(status)))
			return err
		}
	}
}

// PrometheusHandler serves all counters in Prometheus text exposition format.
func (r *Registry) PrometheusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, r.Expose())
	}
}

// Expose renders the counters. Series are sorted so output is stable.
func (r *Registry) Expose() string {
	var b strings.Builder
	if r == nil {
		return ""
	}

	byMetric := make(map[string][]string)
	for k, v := range r.counters.snapshot() {
		parts := strings.Split(k, "|")
		name := parts[0]
		var labels []string
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) == 2 {
				labels = append(labels, fmt.Sprintf("%s=%q", kv[0], kv[1]))
			}
		}
		series := name
		if len(labels) > 0 {
			series += "{" + strings.Join(labels, ",") + "}"
		}
		byMetric[name] = append(byMetric[name], fmt.Sprintf("%s %d", series, v))
	}

	names := make([]string, 0, len(byMetric))
	for name := range byMetric {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if h, ok := help[name]; ok {
			fmt.Fprintf(&b, "# HELP %s %s\n", name, h)
		}
		fmt.Fprintf(&b, "# TYPE %s counter\n", name)
		lines := byMetric[name]
		sort.Strings(lines)
		for _, line := range lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString("# HELP process_uptime_seconds Seconds since the registry was created.\n")
	b.WriteString("# TYPE process_uptime_seconds gauge\n")
	fmt.Fprintf(&b, "process_uptime_seconds %d\n", int64(time.Since(r.started).Seconds()))
	return b.String()
}
