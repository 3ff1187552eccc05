package observability

import (
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets/:id", "GET", 200, time.Millisecond)
	m.RecordRequest("/api/tickets/:id", "GET", 200, time.Millisecond)
	m.RecordError("/api/chat", "POST", "UPSTREAM_ERROR")
	m.RecordUpstream("chat", "OK", 20*time.Millisecond)
	m.RecordUpstream("chat", "UPSTREAM_ERROR", 10*time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Requests) != 1 || snap.Requests[0].Count != 2 {
		t.Fatalf("requests = %+v", snap.Requests)
	}
	if snap.Requests[0].Key != "/api/tickets/:id|GET|200" {
		t.Fatalf("request key = %q", snap.Requests[0].Key)
	}
	if len(snap.Errors) != 1 {
		t.Fatalf("errors = %+v", snap.Errors)
	}
	if len(snap.Upstream) != 2 || snap.Upstream[0].Key != "chat|OK" {
		t.Fatalf("upstream = %+v", snap.Upstream)
	}
	if snap.UpstreamLatencyMs["chat"] != 30 {
		t.Fatalf("latency = %d", snap.UpstreamLatencyMs["chat"])
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	m.RecordUpstream("chat", "OK", 0)
	if snap := m.Snapshot(); len(snap.Requests) != 0 {
		t.Fatal("nil metrics should produce an empty snapshot")
	}
}
