// Package health reports whether the sneakers store can be served, for the
// admin listener's /health, /livez and /readyz endpoints.
package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stevemurr/sneakers-server/store"
)

// State is the health of one probe or of the whole server.
type State string

const (
	StateUp   State = "up"
	StateDown State = "down"
)

// Probe is the outcome of one named check.
type Probe struct {
	Name      string         `json:"name"`
	State     State          `json:"state"`
	Error     string         `json:"error,omitempty"`
	Items     map[string]int `json:"items,omitempty"`
	LatencyMs float64        `json:"latency_ms"`
}

// Report is the body of GET /health. Probes are sorted by name.
type Report struct {
	State     State     `json:"state"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime"`
	CheckedAt time.Time `json:"checked_at"`
	Probes    []Probe   `json:"probes"`
}

// CheckFunc fills in p and returns an error when the component is down.
type CheckFunc func(p *Probe) error

// Monitor runs the registered checks on demand.
type Monitor struct {
	version string
	started time.Time
	logger  *log.Entry

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func NewMonitor(version string, logger *log.Entry) *Monitor {
	if logger == nil {
		logger = log.WithField("component", "health")
	}
	return &Monitor{
		version: version,
		started: time.Now(),
		logger:  logger,
		checks:  make(map[string]CheckFunc),
	}
}

// Add registers fn under name, replacing any earlier check with that name.
func (m *Monitor) Add(name string, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = fn
}

// AddStore registers a "store" check that loads the document and reports
// the item count of every collection in it.
func (m *Monitor) AddStore(s store.Store) {
	m.Add("store", func(p *Probe) error {
		doc, err := s.Load()
		if err != nil {
			return err
		}
		p.Items = make(map[string]int, len(doc))
		for name, c := range doc {
			p.Items[name] = len(c)
		}
		return nil
	})
}

// Report runs every check once.
func (m *Monitor) Report() Report {
	m.mu.RLock()
	names := make([]string, 0, len(m.checks))
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		names = append(names, name)
		checks[name] = fn
	}
	m.mu.RUnlock()
	sort.Strings(names)

	r := Report{
		State:     StateUp,
		Version:   m.version,
		Uptime:    time.Since(m.started).Round(time.Second).String(),
		CheckedAt: time.Now().UTC(),
		Probes:    make([]Probe, 0, len(names)),
	}
	for _, name := range names {
		p := Probe{Name: name, State: StateUp}
		start := time.Now()
		err := checks[name](&p)
		p.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
		if err != nil {
			p.State = StateDown
			p.Error = err.Error()
			r.State = StateDown
			m.logger.WithError(err).WithField("probe", name).Warn("health probe failed")
		}
		r.Probes = append(r.Probes, p)
	}
	return r
}

// ServeHTTP writes the report as JSON, with 503 when any probe is down.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	r := m.Report()
	w.Header().Set("Content-Type", "application/json")
	if r.State == StateDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(r)
}

// Ready answers 503 while any probe is down.
func (m *Monitor) Ready(w http.ResponseWriter, _ *http.Request) {
	if m.Report().State == StateDown {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready"))
}

// Live answers 200 for as long as the process can serve requests.
func Live(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}
