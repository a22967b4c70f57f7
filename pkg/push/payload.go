package push

import (
	"time"

	"github.com/xandmon/solana-agent/pkg/metrics"
)

const agentVersion = "1.0.0"

// Payload is the push wire format: one node, one timestamp, a flat map of
// metric values. Built fresh from a snapshot copy for each delivery attempt
// sequence and never retained.
type Payload struct {
	Node      string             `json:"node"`
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
	Version   string             `json:"version,omitempty"`
	Metadata  Metadata           `json:"metadata"`
}

// Metadata carries static agent information alongside the metrics.
type Metadata struct {
	AgentVersion string  `json:"agent_version"`
	PushTime     float64 `json:"push_time"`
	Identity     string  `json:"identity,omitempty"`
}

// NewPayload flattens a snapshot copy into the push wire format. Slot values
// are omitted until the first successful parse, mirroring the scrape side.
func NewPayload(m metrics.NodeMetrics, identity string) *Payload {
	now := time.Now()

	values := map[string]float64{
		"solana_node_health": boolValue(m.Healthy),
		"solana_rpc_error":   boolValue(m.RPCError),
	}

	if m.Catchup != nil {
		values["solana_slot_current"] = float64(m.Catchup.LocalSlot)
		values["solana_slot_cluster"] = float64(m.Catchup.ReferenceSlot)
		values["solana_slot_lag"] = float64(m.Catchup.SlotLag)
	}

	if !m.LastUpdate.IsZero() {
		values["solana_metrics_last_update_timestamp"] = float64(m.LastUpdate.Unix())
	}

	return &Payload{
		Node:      m.NodeName,
		Timestamp: now.Unix(),
		Metrics:   values,
		Version:   m.Version,
		Metadata: Metadata{
			AgentVersion: agentVersion,
			PushTime:     float64(now.UnixNano()) / float64(time.Second),
			Identity:     identity,
		},
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}

	return 0
}
