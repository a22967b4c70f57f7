// Package slotfeed tracks slot progress over the local node's pubsub
// websocket. It is an optional, low-latency supplement to the catchup poll;
// failures here never affect the collection loop or the snapshot.
package slotfeed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	historySize      = 100
	handshakeTimeout = 10 * time.Second
	reconnectDelay   = 5 * time.Second
)

// SlotObservation is one slot notification received from the node.
type SlotObservation struct {
	Slot   uint64    `json:"slot"`
	Parent uint64    `json:"parent"`
	Root   uint64    `json:"root"`
	SeenAt time.Time `json:"seen_at"`
}

// Feed subscribes to slot notifications and keeps the most recent
// observation plus a bounded history.
type Feed struct {
	url       string
	mu        sync.RWMutex
	last      SlotObservation
	history   []SlotObservation
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a feed for the node's websocket endpoint (ws://host:port).
func New(url string) *Feed {
	return &Feed{
		url:  url,
		done: make(chan struct{}),
	}
}

func (f *Feed) Name() string {
	return "slotfeed"
}

// Start launches the subscription loop in the background. Connection
// failures are logged and retried; Start itself never fails.
func (f *Feed) Start(ctx context.Context) error {
	log.Printf("Starting slot feed for %s", f.url)

	go f.run(ctx)

	return nil
}

// Stop terminates the reconnect loop. An in-flight blocking read finishes
// with the process.
func (f *Feed) Stop() error {
	f.closeOnce.Do(func() {
		close(f.done)
	})

	return nil
}

// Last returns the most recent observation and whether one has been seen.
func (f *Feed) Last() (SlotObservation, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.last, !f.last.SeenAt.IsZero()
}

// History returns a copy of the retained observations, oldest first.
func (f *Feed) History() []SlotObservation {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]SlotObservation, len(f.history))
	copy(out, f.history)

	return out
}

func (f *Feed) run(ctx context.Context) {
	for {
		if err := f.subscribe(ctx); err != nil {
			log.Printf("Slot feed disconnected: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-f.done:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *Feed) subscribe(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial failed: %w", err)
	}

	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Error closing websocket connection: %v", err)
		}
	}()

	subscribe := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "slotSubscribe",
	}

	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("slot subscribe failed: %w", err)
	}

	log.Printf("Subscribed to slot notifications at %s", f.url)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		var frame struct {
			Method string `json:"method"`
			Params struct {
				Result struct {
					Parent uint64 `json:"parent"`
					Root   uint64 `json:"root"`
					Slot   uint64 `json:"slot"`
				} `json:"result"`
			} `json:"params"`
		}

		if err := conn.ReadJSON(&frame); err != nil {
			return fmt.Errorf("websocket read failed: %w", err)
		}

		// Subscription confirmations and unrelated frames carry no method.
		if frame.Method != "slotNotification" {
			continue
		}

		f.observe(SlotObservation{
			Slot:   frame.Params.Result.Slot,
			Parent: frame.Params.Result.Parent,
			Root:   frame.Params.Result.Root,
			SeenAt: time.Now(),
		})
	}
}

func (f *Feed) observe(obs SlotObservation) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.last = obs

	if len(f.history) >= historySize {
		f.history = f.history[1:]
	}

	f.history = append(f.history, obs)
}
