package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xandmon/solana-agent/pkg/solana"
)

func TestSnapshotReadReturnsCopy(t *testing.T) {
	s := NewSnapshot("node-1")

	first := s.Read()
	assert.Equal(t, "node-1", first.NodeName)
	assert.Nil(t, first.Catchup)
	assert.True(t, first.LastUpdate.IsZero())

	s.Replace(NodeMetrics{
		NodeName:   "node-1",
		Catchup:    &solana.CatchupResult{LocalSlot: 10, ReferenceSlot: 12, SlotLag: 2},
		Healthy:    true,
		LastUpdate: time.Now(),
	})

	// The earlier copy must be unaffected by the replace.
	assert.Nil(t, first.Catchup)

	second := s.Read()
	require.NotNil(t, second.Catchup)
	assert.Equal(t, uint64(10), second.Catchup.LocalSlot)
	assert.True(t, second.Healthy)
}

// TestSnapshotAtomicity hammers the snapshot with concurrent readers while a
// single writer replaces it. Every read must observe LastUpdate and the
// catchup slot from the same cycle, never a hybrid of two cycles.
func TestSnapshotAtomicity(t *testing.T) {
	const (
		cycles  = 2000
		readers = 8
	)

	s := NewSnapshot("node-1")
	base := time.Unix(1700000000, 0)

	var wg sync.WaitGroup

	stop := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-stop:
					return
				default:
				}

				m := s.Read()
				if m.Catchup == nil {
					assert.True(t, m.LastUpdate.IsZero())
					continue
				}

				// Cycle i writes LocalSlot=i and LastUpdate=base+i seconds.
				wantUpdate := base.Add(time.Duration(m.Catchup.LocalSlot) * time.Second)
				assert.True(t, m.LastUpdate.Equal(wantUpdate),
					"torn snapshot: slot=%d last_update=%v", m.Catchup.LocalSlot, m.LastUpdate)
			}
		}()
	}

	for i := 1; i <= cycles; i++ {
		s.Replace(NodeMetrics{
			NodeName:   "node-1",
			Catchup:    &solana.CatchupResult{LocalSlot: uint64(i), ReferenceSlot: uint64(i), SlotLag: 0},
			Healthy:    true,
			LastUpdate: base.Add(time.Duration(i) * time.Second),
		})
	}

	close(stop)
	wg.Wait()

	final := s.Read()
	require.NotNil(t, final.Catchup)
	assert.Equal(t, uint64(cycles), final.Catchup.LocalSlot)
}
