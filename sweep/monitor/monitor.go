// Package monitor serves the live progress of a campaign over HTTP.
package monitor

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"

	"github.com/garnet-sweep/garnet-sweep/sweep"
)

// SweepStatus is the live state of one sweep.
type SweepStatus struct {
	Nodes       int      `json:"nodes"`
	Pattern     string   `json:"pattern"`
	VCs         int      `json:"vcs"`
	ConfFile    string   `json:"conf_file"`
	State       string   `json:"state"` // running or done
	Samples     int      `json:"samples"`
	LastRate    float64  `json:"last_rate"`
	LastLatency *float64 `json:"last_latency"`
	Outcome     string   `json:"outcome,omitempty"`
	Throughput  *float64 `json:"throughput,omitempty"`
	Error       string   `json:"error,omitempty"`

	key sweep.SweepKey
}

// Progress summarizes the campaign.
type Progress struct {
	Campaign string    `json:"campaign"`
	Total    int       `json:"total"`
	Running  int       `json:"running"`
	Finished int       `json:"finished"`
	Failed   int       `json:"failed"`
	Runs     int       `json:"runs"`
	Started  time.Time `json:"started"`
	Elapsed  string    `json:"elapsed"`
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// Monitor is a sweep.Observer that keeps per-sweep status and serves it as
// JSON.
type Monitor struct {
	mu         sync.Mutex
	campaign   string
	total      int
	started    time.Time
	sweeps     map[sweep.SweepKey]*SweepStatus
	portNumber int
}

// NewMonitor creates a Monitor for a campaign of total sweeps.
func NewMonitor(campaign string, total int) *Monitor {
	return &Monitor{
		campaign: campaign,
		total:    total,
		started:  time.Now(),
		sweeps:   make(map[sweep.SweepKey]*SweepStatus),
	}
}

// WithPortNumber sets the listening port; 0 picks a free port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	m.portNumber = portNumber
	return m
}

func (m *Monitor) status(key sweep.SweepKey) *SweepStatus {
	st, ok := m.sweeps[key]
	if !ok {
		st = &SweepStatus{
			Nodes: key.Nodes, Pattern: key.Pattern, VCs: key.VCs, ConfFile: key.ConfFile,
			State: "running", key: key,
		}
		m.sweeps[key] = st
	}
	return st
}

func (m *Monitor) OnSample(key sweep.SweepKey, _ sweep.RunConfig, s sweep.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status(key)
	st.Samples++
	st.LastRate = s.Rate
	st.LastLatency = nil
	if !math.IsInf(s.Latency, 0) {
		lat := s.Latency
		st.LastLatency = &lat
	}
}

func (m *Monitor) OnResult(r *sweep.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status(r.Key)
	st.State = "done"
	st.Outcome = string(r.Outcome)
	if r.Found {
		tp := r.Throughput
		st.Throughput = &tp
	}
	if r.Err != nil {
		st.Error = r.Err.Error()
	}
}

// Progress returns a snapshot of the campaign progress.
func (m *Monitor) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Progress{
		Campaign: m.campaign,
		Total:    m.total,
		Started:  m.started,
		Elapsed:  time.Since(m.started).Round(time.Second).String(),
	}
	for _, st := range m.sweeps {
		p.Runs += st.Samples
		if st.State == "done" {
			p.Finished++
			if st.Outcome == string(sweep.OutcomeFailed) {
				p.Failed++
			}
		} else {
			p.Running++
		}
	}
	return p
}

// Sweeps returns a snapshot of every sweep seen so far, in key order.
func (m *Monitor) Sweeps() []SweepStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SweepStatus, 0, len(m.sweeps))
	for _, st := range m.sweeps {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.Less(out[j].key) })
	return out
}

// Router returns the HTTP API.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/progress", m.listProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/sweeps", m.listSweeps).Methods(http.MethodGet)
	r.HandleFunc("/api/sweeps/{nodes:[0-9]+}/{pattern}/{vcs:[0-9]+}", m.sweepDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	return r
}

// StartServer serves the API in the background and returns the bound address.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("starting monitor: %w", err)
	}
	addr := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	logrus.Infof("Monitoring campaign %s at %s", m.campaign, addr)

	go func() {
		if err := http.Serve(listener, m.Router()); err != nil {
			logrus.Warnf("Monitor server stopped: %v", err)
		}
	}()
	return addr, nil
}

func (m *Monitor) listProgress(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.Progress())
}

func (m *Monitor) listSweeps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, m.Sweeps())
}

func (m *Monitor) sweepDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	nodes, _ := strconv.Atoi(vars["nodes"])
	vcs, _ := strconv.Atoi(vars["vcs"])
	pattern := vars["pattern"]

	var matches []SweepStatus
	for _, st := range m.Sweeps() {
		if st.Nodes == nodes && st.Pattern == pattern && st.VCs == vcs {
			matches = append(matches, st)
		}
	}
	if len(matches) == 0 {
		http.Error(w, fmt.Sprintf("no sweep %s/vc-%d on %d nodes", pattern, vcs, nodes), http.StatusNotFound)
		return
	}
	writeJSON(w, matches)
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, resourceRsp{CPUPercent: cpuPercent, MemorySize: memInfo.RSS})
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(bytes)
}
