package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/xandmon/solana-agent/pkg/metrics"
	"github.com/xandmon/solana-agent/pkg/solana"
)

func newTestCollector(t *testing.T) (*Collector, *solana.MockNodeClient, *metrics.Snapshot) {
	t.Helper()

	ctrl := gomock.NewController(t)
	client := solana.NewMockNodeClient(ctrl)
	snapshot := metrics.NewSnapshot("node-1")

	return New("node-1", "", client, snapshot, nil, 30*time.Second), client, snapshot
}

func TestRunOnceSuccess(t *testing.T) {
	c, client, snapshot := newTestCollector(t)
	ctx := context.Background()

	client.EXPECT().CatchupOutput(ctx).Return("Validator is behind by 7 slots. Processed slot 500", nil)
	client.EXPECT().CheckHealth(ctx).Return(nil)
	client.EXPECT().Version(ctx).Return("solana-cli 1.18.26", nil)

	before := time.Now()
	fresh := c.RunOnce(ctx)

	require.True(t, fresh)

	m := snapshot.Read()
	require.NotNil(t, m.Catchup)
	assert.Equal(t, uint64(500), m.Catchup.LocalSlot)
	assert.Equal(t, uint64(507), m.Catchup.ReferenceSlot)
	assert.Equal(t, uint64(7), m.Catchup.SlotLag)
	assert.True(t, m.Healthy)
	assert.False(t, m.RPCError)
	assert.Equal(t, "solana-cli 1.18.26", m.Version)
	assert.False(t, m.LastUpdate.Before(before))
}

func TestRunOnceSourceUnavailable(t *testing.T) {
	c, client, snapshot := newTestCollector(t)
	ctx := context.Background()

	client.EXPECT().CatchupOutput(ctx).Return("", assert.AnError)

	fresh := c.RunOnce(ctx)

	assert.False(t, fresh)

	m := snapshot.Read()
	assert.Nil(t, m.Catchup)
	assert.False(t, m.Healthy)
	assert.True(t, m.RPCError)
	assert.True(t, m.LastUpdate.IsZero())
}

func TestRunOnceParseFailureKeepsPriorData(t *testing.T) {
	c, client, snapshot := newTestCollector(t)
	ctx := context.Background()

	prior := metrics.NodeMetrics{
		NodeName:   "node-1",
		Catchup:    &solana.CatchupResult{LocalSlot: 400, ReferenceSlot: 400, SlotLag: 0},
		Healthy:    true,
		Version:    "solana-cli 1.18.25",
		LastUpdate: time.Unix(1700000000, 0),
	}
	snapshot.Replace(prior)

	client.EXPECT().CatchupOutput(ctx).Return("garbage output", nil)

	fresh := c.RunOnce(ctx)

	assert.False(t, fresh)

	m := snapshot.Read()
	require.NotNil(t, m.Catchup, "prior catchup result must survive a failed cycle")
	assert.Equal(t, uint64(400), m.Catchup.LocalSlot)
	assert.Equal(t, prior.LastUpdate, m.LastUpdate, "last_update must not advance on failure")
	assert.Equal(t, "solana-cli 1.18.25", m.Version)
	assert.False(t, m.Healthy)
	assert.True(t, m.RPCError)
}

func TestRunOnceUnhealthyProbe(t *testing.T) {
	c, client, snapshot := newTestCollector(t)
	ctx := context.Background()

	client.EXPECT().CatchupOutput(ctx).Return("caught up (us:100 them:100)", nil)
	client.EXPECT().CheckHealth(ctx).Return(assert.AnError)
	client.EXPECT().Version(ctx).Return("solana-cli 1.18.26", nil)

	fresh := c.RunOnce(ctx)

	// The cycle still produced fresh catchup data even though the node
	// failed its liveness probe.
	assert.True(t, fresh)

	m := snapshot.Read()
	assert.False(t, m.Healthy)
	assert.False(t, m.RPCError)
	assert.False(t, m.LastUpdate.IsZero())
}

func TestRunOnceVersionCarryOver(t *testing.T) {
	c, client, snapshot := newTestCollector(t)
	ctx := context.Background()

	snapshot.Replace(metrics.NodeMetrics{
		NodeName: "node-1",
		Version:  "solana-cli 1.18.25",
	})

	client.EXPECT().CatchupOutput(ctx).Return("caught up (us:100 them:100)", nil)
	client.EXPECT().CheckHealth(ctx).Return(nil)
	client.EXPECT().Version(ctx).Return("", assert.AnError)

	require.True(t, c.RunOnce(ctx))

	m := snapshot.Read()
	assert.Equal(t, "solana-cli 1.18.25", m.Version, "failed version query must carry the prior value")
}

func TestStartStopsOnStop(t *testing.T) {
	c, client, _ := newTestCollector(t)

	client.EXPECT().CatchupOutput(gomock.Any()).Return("", assert.AnError).AnyTimes()

	errChan := make(chan error, 1)

	go func() {
		errChan <- c.Start(context.Background())
	}()

	// Give the initial cycle a moment to run, then stop the loop.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Stop())

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	c, client, _ := newTestCollector(t)

	client.EXPECT().CatchupOutput(gomock.Any()).Return("", assert.AnError).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())

	errChan := make(chan error, 1)

	go func() {
		errChan <- c.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errChan:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
