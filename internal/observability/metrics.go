package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	upstreamCount map[string]int64
	upstreamTotal map[string]time.Duration
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		upstreamCount: make(map[string]int64),
		upstreamTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordUpstream counts one outbound endpoint call by outcome code,
// "OK" for success.
func (m *Metrics) RecordUpstream(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	key := endpoint + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upstreamCount[key]++
	m.upstreamTotal[endpoint] += duration
}

// Counter is one labeled count in a Snapshot.
type Counter struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of all counters, sorted by key.
type Snapshot struct {
	Requests          []Counter        `json:"requests"`
	Errors            []Counter        `json:"errors"`
	Upstream          []Counter        `json:"upstream"`
	UpstreamLatencyMs map[string]int64 `json:"upstream_latency_ms"`
}

// Snapshot copies the counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{UpstreamLatencyMs: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	latency := make(map[string]int64, len(m.upstreamTotal))
	for k, v := range m.upstreamTotal {
		latency[k] = v.Milliseconds()
	}
	return Snapshot{
		Requests:          counters(m.requestCount),
		Errors:            counters(m.errorCount),
		Upstream:          counters(m.upstreamCount),
		UpstreamLatencyMs: latency,
	}
}

func counters(src map[string]int64) []Counter {
	out := make([]Counter, 0, len(src))
	for k, v := range src {
		out = append(out, Counter{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
