// Package collector drives the periodic collection cycle: query the node,
// parse catchup status, derive health, and publish one snapshot per cycle.
package collector

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/xandmon/solana-agent/pkg/metrics"
	"github.com/xandmon/solana-agent/pkg/push"
	"github.com/xandmon/solana-agent/pkg/solana"
)

// Collector owns the agent's only snapshot writer. A failed cycle never
// stops the ticker and never raises past the loop; the previous snapshot
// keeps serving scrapers while this node is degraded.
type Collector struct {
	nodeName  string
	identity  string
	client    solana.NodeClient
	snapshot  *metrics.Snapshot
	pusher    *push.Client
	interval  time.Duration
	done      chan struct{}
	closeOnce sync.Once
}

// New wires a collector to its node client, snapshot, and optional pusher.
func New(nodeName, identity string, client solana.NodeClient, snapshot *metrics.Snapshot,
	pusher *push.Client, interval time.Duration) *Collector {
	return &Collector{
		nodeName: nodeName,
		identity: identity,
		client:   client,
		snapshot: snapshot,
		pusher:   pusher,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (c *Collector) Name() string {
	return "collector"
}

// Start runs one immediate cycle and then ticks at the configured interval
// until the context is canceled or Stop is called. Push delivery runs
// synchronously after each cycle inside this loop; its retry sleeps extend
// the cycle but never touch the exposition path.
func (c *Collector) Start(ctx context.Context) error {
	log.Printf("Starting collection loop for node %s (interval=%v)", c.nodeName, c.interval)

	c.runCycle(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-ticker.C:
			c.runCycle(ctx)
		}
	}
}

// Stop terminates the collection loop.
func (c *Collector) Stop() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return nil
}

func (c *Collector) runCycle(ctx context.Context) {
	c.RunOnce(ctx)

	if c.pusher != nil && c.pusher.Enabled() {
		payload := push.NewPayload(c.snapshot.Read(), c.identity)
		c.pusher.Deliver(ctx, payload)
	}
}

// RunOnce performs a single collection cycle and reports whether it produced
// fresh data. On any failure the snapshot keeps its previous catchup result
// and last-update time and is marked degraded.
func (c *Collector) RunOnce(ctx context.Context) bool {
	output, err := c.client.CatchupOutput(ctx)
	if err != nil {
		log.Printf("Catchup status unavailable: %v", err)
		c.markDegraded()

		return false
	}

	result, err := solana.ParseCatchup(output)
	if err != nil {
		var parseErr *solana.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("Could not parse catchup output: %q", parseErr.Raw)
		} else {
			log.Printf("Catchup parse failed: %v", err)
		}

		c.markDegraded()

		return false
	}

	healthy := true
	if err := c.client.CheckHealth(ctx); err != nil {
		log.Printf("Node health probe failed: %v", err)

		healthy = false
	}

	// Version is best effort; keep the previous reading when the query fails.
	version := c.snapshot.Read().Version

	if v, err := c.client.Version(ctx); err != nil {
		log.Printf("Version query failed, keeping %q: %v", version, err)
	} else if v != "" {
		version = v
	}

	c.snapshot.Replace(metrics.NodeMetrics{
		NodeName:   c.nodeName,
		Catchup:    &result,
		Healthy:    healthy,
		RPCError:   false,
		Version:    version,
		LastUpdate: time.Now(),
	})

	log.Printf("Metrics updated: slot=%d lag=%d healthy=%v", result.LocalSlot, result.SlotLag, healthy)

	return true
}

// markDegraded flags the snapshot without discarding the previous cycle's
// catchup data or last-update time.
func (c *Collector) markDegraded() {
	m := c.snapshot.Read()
	m.Healthy = false
	m.RPCError = true
	c.snapshot.Replace(m)
}
