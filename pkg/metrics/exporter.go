package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solana"

// Exporter translates the current snapshot into Prometheus series on each
// scrape. It is a read-only consumer: one Read per Collect, no decision
// logic beyond omitting series that have no value yet.
type Exporter struct {
	snapshot *Snapshot

	slotCurrent *prometheus.Desc
	slotCluster *prometheus.Desc
	slotLag     *prometheus.Desc
	nodeHealth  *prometheus.Desc
	rpcError    *prometheus.Desc
	lastUpdate  *prometheus.Desc
	nodeInfo    *prometheus.Desc
}

// NewExporter creates a Prometheus collector backed by the given snapshot.
func NewExporter(snapshot *Snapshot) *Exporter {
	return &Exporter{
		snapshot: snapshot,
		slotCurrent: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "slot_current"),
			"Current slot number on this node",
			[]string{"node"}, nil,
		),
		slotCluster: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "slot_cluster"),
			"Cluster tip slot number from reference RPC",
			[]string{"node", "rpc"}, nil,
		),
		slotLag: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "slot_lag"),
			"Slots behind cluster tip",
			[]string{"node"}, nil,
		),
		nodeHealth: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "node_health"),
			"Node health status (1=healthy, 0=unhealthy)",
			[]string{"node"}, nil,
		),
		rpcError: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rpc_error"),
			"RPC error while fetching catchup status (1=error, 0=ok)",
			[]string{"node"}, nil,
		),
		lastUpdate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "metrics", "last_update_timestamp"),
			"Unix timestamp of last successful metrics update",
			[]string{"node"}, nil,
		),
		nodeInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "node_info"),
			"Solana node information",
			[]string{"node_name", "version"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.slotCurrent
	ch <- e.slotCluster
	ch <- e.slotLag
	ch <- e.nodeHealth
	ch <- e.rpcError
	ch <- e.lastUpdate
	ch <- e.nodeInfo
}

// Collect implements prometheus.Collector. Slot and last-update series are
// absent until the first successful collection cycle.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	m := e.snapshot.Read()

	if m.Catchup != nil {
		ch <- prometheus.MustNewConstMetric(
			e.slotCurrent, prometheus.GaugeValue, float64(m.Catchup.LocalSlot), m.NodeName)
		ch <- prometheus.MustNewConstMetric(
			e.slotCluster, prometheus.GaugeValue, float64(m.Catchup.ReferenceSlot), m.NodeName, "catchup")
		ch <- prometheus.MustNewConstMetric(
			e.slotLag, prometheus.GaugeValue, float64(m.Catchup.SlotLag), m.NodeName)
	}

	ch <- prometheus.MustNewConstMetric(
		e.nodeHealth, prometheus.GaugeValue, boolValue(m.Healthy), m.NodeName)
	ch <- prometheus.MustNewConstMetric(
		e.rpcError, prometheus.GaugeValue, boolValue(m.RPCError), m.NodeName)

	if !m.LastUpdate.IsZero() {
		ch <- prometheus.MustNewConstMetric(
			e.lastUpdate, prometheus.GaugeValue, float64(m.LastUpdate.Unix()), m.NodeName)
	}

	if m.Version != "" {
		ch <- prometheus.MustNewConstMetric(
			e.nodeInfo, prometheus.GaugeValue, 1, m.NodeName, m.Version)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
