// Package health exposes the snapshot-derived node state through the
// standard gRPC health protocol for poller-style consumers.
package health

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	"github.com/xandmon/solana-agent/pkg/metrics"
)

const defaultStaleAfter = 90 * time.Second

// Server answers gRPC health checks from the current snapshot. SERVING means
// the last collection cycle succeeded recently and the node probe passed.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer

	snapshot   *metrics.Snapshot
	staleAfter time.Duration
	now        func() time.Time
}

// NewServer creates a health server. staleAfter bounds how old the last
// successful update may be before the node is reported NOT_SERVING; zero
// selects the default.
func NewServer(snapshot *metrics.Snapshot, staleAfter time.Duration) *Server {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Server{
		snapshot:   snapshot,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Check implements grpc_health_v1.HealthServer. Catchup details ride along
// as a JSON response header for callers that want more than SERVING/NOT_SERVING.
func (s *Server) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	m := s.snapshot.Read()

	details := map[string]interface{}{
		"node":        m.NodeName,
		"healthy":     m.Healthy,
		"rpc_error":   m.RPCError,
		"version":     m.Version,
		"last_update": m.LastUpdate,
	}

	if m.Catchup != nil {
		details["local_slot"] = m.Catchup.LocalSlot
		details["reference_slot"] = m.Catchup.ReferenceSlot
		details["slot_lag"] = m.Catchup.SlotLag
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("Error marshaling status details: %v", err)
	} else {
		md := metadata.Pairs("status-details", string(detailsJSON))

		if err := grpc.SetHeader(ctx, md); err != nil {
			return nil, err
		}
	}

	if m.LastUpdate.IsZero() {
		return notServing(), nil
	}

	if age := s.now().Sub(m.LastUpdate); age > s.staleAfter {
		log.Printf("Health check failed: no successful update in %v (last at %v)",
			age, m.LastUpdate.Format(time.RFC3339))

		return notServing(), nil
	}

	if !m.Healthy || m.RPCError {
		return notServing(), nil
	}

	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_SERVING,
	}, nil
}

func notServing() *grpc_health_v1.HealthCheckResponse {
	return &grpc_health_v1.HealthCheckResponse{
		Status: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
	}
}
