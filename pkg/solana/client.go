package solana

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	catchupTimeout = 30 * time.Second
	probeTimeout   = 10 * time.Second
)

// CLIClient runs node status queries through the solana CLI. It holds no
// mutable state; each call spawns one bounded command invocation.
type CLIClient struct {
	localRPCPort    int
	referenceRPCURL string
}

// NewCLIClient returns a client that compares the node listening on
// localRPCPort against the cluster behind referenceRPCURL.
func NewCLIClient(localRPCPort int, referenceRPCURL string) *CLIClient {
	log.Printf("Initialized solana CLI client for local port %d", localRPCPort)

	return &CLIClient{
		localRPCPort:    localRPCPort,
		referenceRPCURL: referenceRPCURL,
	}
}

// CatchupOutput runs `solana catchup` against the local node and returns its
// raw stdout. The command is bounded by a 30-second timeout; expiry and
// nonzero exits are both surfaced as errors for the caller to classify.
func (c *CLIClient) CatchupOutput(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, catchupTimeout)
	defer cancel()

	args := []string{
		"--url", c.referenceRPCURL,
		"catchup",
		"--our-localhost", strconv.Itoa(c.localRPCPort),
	}

	output, err := runCommand(ctx, args)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %v", errCatchupTimeout, catchupTimeout)
		}

		return "", fmt.Errorf("%w: %w", errCatchupFailed, err)
	}

	return output, nil
}

// Version returns the CLI-reported node software version.
func (c *CLIClient) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := runCommand(ctx, []string{"--version"})
	if err != nil {
		return "", fmt.Errorf("%w: %w", errVersionFailed, err)
	}

	return strings.TrimSpace(output), nil
}

// CheckHealth probes the local node's RPC endpoint with a cheap
// cluster-version query. Any failure means the node is not responding.
func (c *CLIClient) CheckHealth(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	localURL := fmt.Sprintf("http://localhost:%d", c.localRPCPort)

	if _, err := runCommand(ctx, []string{"--url", localURL, "cluster-version"}); err != nil {
		return fmt.Errorf("%w: %w", errHealthProbe, err)
	}

	return nil
}

func runCommand(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "solana", args...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			return "", err
		}

		return "", fmt.Errorf("%w: %s", err, detail)
	}

	return stdout.String(), nil
}
