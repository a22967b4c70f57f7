package solana

import "context"

//go:generate mockgen -destination=mock_client.go -package=solana github.com/xandmon/solana-agent/pkg/solana NodeClient

// NodeClient is the capability surface the collector needs from a node.
// Implementations must bound every call with their own timeout so a stuck
// node command cannot stall a collection cycle indefinitely.
type NodeClient interface {
	// CatchupOutput returns the raw text of one catchup status query.
	CatchupOutput(ctx context.Context) (string, error)

	// Version returns the node software version string.
	Version(ctx context.Context) (string, error)

	// CheckHealth performs a lightweight liveness probe against the local
	// node. A nil return means the node responded.
	CheckHealth(ctx context.Context) error
}
