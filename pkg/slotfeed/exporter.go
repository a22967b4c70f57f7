package slotfeed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Exporter publishes the feed's latest observation as Prometheus series.
// Series are absent until the first notification arrives.
type Exporter struct {
	feed     *Feed
	nodeName string

	wsSlot     *prometheus.Desc
	wsRootSlot *prometheus.Desc
	wsLastSeen *prometheus.Desc
}

// NewExporter creates a Prometheus collector for the feed, labeled by node.
func NewExporter(feed *Feed, nodeName string) *Exporter {
	return &Exporter{
		feed:     feed,
		nodeName: nodeName,
		wsSlot: prometheus.NewDesc(
			"solana_ws_slot",
			"Latest slot observed on the pubsub websocket",
			[]string{"node"}, nil,
		),
		wsRootSlot: prometheus.NewDesc(
			"solana_ws_root_slot",
			"Latest rooted slot observed on the pubsub websocket",
			[]string{"node"}, nil,
		),
		wsLastSeen: prometheus.NewDesc(
			"solana_ws_last_slot_seen_timestamp",
			"Unix timestamp of the last websocket slot notification",
			[]string{"node"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.wsSlot
	ch <- e.wsRootSlot
	ch <- e.wsLastSeen
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	obs, ok := e.feed.Last()
	if !ok {
		return
	}

	ch <- prometheus.MustNewConstMetric(
		e.wsSlot, prometheus.GaugeValue, float64(obs.Slot), e.nodeName)
	ch <- prometheus.MustNewConstMetric(
		e.wsRootSlot, prometheus.GaugeValue, float64(obs.Root), e.nodeName)
	ch <- prometheus.MustNewConstMetric(
		e.wsLastSeen, prometheus.GaugeValue, float64(obs.SeenAt.Unix()), e.nodeName)
}
