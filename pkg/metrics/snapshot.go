// Package metrics holds the agent's single shared metrics snapshot and its
// Prometheus exposition.
package metrics

import (
	"sync"
	"time"

	"github.com/xandmon/solana-agent/pkg/solana"
)

// NodeMetrics is the full set of values published for one node, assembled
// once per collection cycle. Catchup is nil until the first successful
// parse; LastUpdate is zero until then and is only advanced on success, so
// scrapers can detect staleness.
type NodeMetrics struct {
	NodeName   string
	Catchup    *solana.CatchupResult
	Healthy    bool
	RPCError   bool
	Version    string
	LastUpdate time.Time
}

// Snapshot is the one piece of shared mutable state in the agent. The
// collector replaces its contents wholesale once per cycle while request
// handlers read it concurrently; a reader always observes a complete value
// from a single cycle, never a torn write.
type Snapshot struct {
	mu  sync.RWMutex
	cur NodeMetrics
}

// NewSnapshot creates an empty snapshot for the named node.
func NewSnapshot(nodeName string) *Snapshot {
	return &Snapshot{
		cur: NodeMetrics{NodeName: nodeName},
	}
}

// Read returns a copy of the current metrics. The critical section is a
// plain struct copy; it never waits on network or process I/O.
func (s *Snapshot) Read() NodeMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cur
}

// Replace swaps in a fully assembled metrics value. It is the only mutator;
// the collector is its only caller.
func (s *Snapshot) Replace(m NodeMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = m
}
