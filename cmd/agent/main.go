// cmd/agent/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xandmon/solana-agent/pkg/api"
	"github.com/xandmon/solana-agent/pkg/collector"
	"github.com/xandmon/solana-agent/pkg/config"
	"github.com/xandmon/solana-agent/pkg/health"
	"github.com/xandmon/solana-agent/pkg/metrics"
	"github.com/xandmon/solana-agent/pkg/push"
	"github.com/xandmon/solana-agent/pkg/slotfeed"
	"github.com/xandmon/solana-agent/pkg/solana"
)

const (
	shutdownTimeout = 10 * time.Second

	// The gRPC health endpoint reports stale after this many missed cycles.
	staleCycles = 3
)

var errFailedToLoadConfig = fmt.Errorf("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log.Printf("Starting Solana monitoring agent...")

	configPath := flag.String("config", "/etc/solana-agent/agent.json", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshot := metrics.NewSnapshot(cfg.NodeName)
	client := solana.NewCLIClient(cfg.LocalRPCPort, cfg.ReferenceRPCURL)

	pusher := push.New(push.Config{
		Enabled:       cfg.Push.Enabled,
		URL:           cfg.Push.URL,
		APIKey:        cfg.Push.APIKey,
		RetryAttempts: cfg.Push.RetryAttempts,
	})

	coll := collector.New(cfg.NodeName, cfg.NodeIdentity, client, snapshot, pusher,
		time.Duration(cfg.CheckInterval))

	exporters := []prometheus.Collector{metrics.NewExporter(snapshot)}

	var feed *slotfeed.Feed

	if cfg.WSURL != "" {
		feed = slotfeed.New(cfg.WSURL)
		exporters = append(exporters, slotfeed.NewExporter(feed, cfg.NodeName))

		if err := feed.Start(ctx); err != nil {
			log.Printf("Warning: failed to start slot feed: %v", err)
		}
	}

	server := api.NewServer(cfg.ListenAddr, exporters...)

	errChan := make(chan error, 1)

	go func() {
		if err := coll.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Collection loop stopped: %v", err)
		}
	}()

	var grpcServer *grpc.Server

	if cfg.GRPCListenAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCListenAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCListenAddr, err)
		}

		grpcServer = grpc.NewServer()

		staleAfter := staleCycles * time.Duration(cfg.CheckInterval)
		healthpb.RegisterHealthServer(grpcServer, health.NewServer(snapshot, staleAfter))

		go func() {
			log.Printf("Starting gRPC health server on %s", cfg.GRPCListenAddr)

			if err := grpcServer.Serve(lis); err != nil {
				select {
				case errChan <- err:
				default:
					log.Printf("gRPC server error: %v", err)
				}
			}
		}()
	}

	go func() {
		if err := server.Start(); err != nil {
			select {
			case errChan <- err:
			default:
				log.Printf("Metrics server error: %v", err)
			}
		}
	}()

	log.Printf("Agent ready, metrics at http://%s/metrics", cfg.ListenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	cancel()

	if err := coll.Stop(); err != nil {
		log.Printf("Error stopping collector: %v", err)
	}

	if feed != nil {
		if err := feed.Stop(); err != nil {
			log.Printf("Error stopping slot feed: %v", err)
		}
	}

	if grpcServer != nil {
		grpcServer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Printf("Shutdown complete")

	return nil
}
