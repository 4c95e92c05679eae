// Package health reports whether the console's dependencies are reachable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

const DefaultProbeTimeout = 3 * time.Second

// Prober checks one dependency. A nil error means reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

type Result struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Report struct {
	Status Status   `json:"status"`
	Checks []Result `json:"checks"`
}

type named struct {
	name   string
	prober Prober
}

type Service struct {
	timeout time.Duration

	mu      sync.RWMutex
	probers []named
}

func NewService(timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Service{timeout: timeout}
}

func (s *Service) Register(name string, p Prober) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probers = append(s.probers, named{name: name, prober: p})
}

// Check runs every prober concurrently, each bounded by the probe timeout.
// Results keep registration order.
func (s *Service) Check(ctx context.Context) Report {
	s.mu.RLock()
	probers := append([]named(nil), s.probers...)
	s.mu.RUnlock()

	results := make([]Result, len(probers))
	var wg sync.WaitGroup
	for i, p := range probers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.probe(ctx, p)
		}()
	}
	wg.Wait()

	report := Report{Status: StatusUp, Checks: results}
	for _, r := range results {
		if r.Status != StatusUp {
			report.Status = StatusDown
			break
		}
	}
	return report
}

func (s *Service) probe(ctx context.Context, p named) Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := p.prober.Probe(ctx)
	res := Result{Name: p.name, Status: StatusUp, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
	}
	return res
}

// Handler serves the report: 200 when everything is up, 503 otherwise.
func (s *Service) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := s.Check(r.Context())
		code := http.StatusOK
		if report.Status != StatusUp {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(report)
	}
}
