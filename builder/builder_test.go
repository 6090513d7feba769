// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"context"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/stretchr/testify/require"
)

type testMempool struct {
	len int
}

func (m *testMempool) Len(context.Context) int { return m.len }

// testTimer never fires on its own. Tests call [fire].
type testTimer struct {
	handler  func()
	armed    bool
	timeouts []time.Duration
	cancels  int
}

func (t *testTimer) SetTimeoutIn(d time.Duration) {
	t.armed = true
	t.timeouts = append(t.timeouts, d)
}

func (t *testTimer) Cancel() {
	t.armed = false
	t.cancels++
}

func (*testTimer) Dispatch() {}

func (*testTimer) Stop() {}

func (t *testTimer) fire() {
	if t.armed {
		t.armed = false
		t.handler()
	}
}

func newTestBuilder(mempool Mempool, interval time.Duration) (*Builder, *testTimer, chan common.Message) {
	toEngine := make(chan common.Message, 1)
	tt := &testTimer{}
	b := newBuilder(mempool, toEngine, interval, func(handler func()) Timer {
		tt.handler = handler
		return tt
	})
	return b, tt, toEngine
}

func requireNoMessage(t *testing.T, toEngine <-chan common.Message) {
	select {
	case msg := <-toEngine:
		require.FailNow(t, "unexpected message", "%s", msg)
	default:
	}
}

func TestBuilderTimerTransitions(t *testing.T) {
	require := require.New(t)

	mempool := &testMempool{len: 1}
	b, tt, toEngine := newTestBuilder(mempool, DefaultBuildInterval)
	require.Equal(DontBuild, b.Status())

	b.HandleGenerateBlock()
	require.Equal(MayBuild, b.Status())
	require.Equal([]time.Duration{DefaultBuildInterval}, tt.timeouts)
	requireNoMessage(t, toEngine)

	tt.fire()
	require.Equal(Building, b.Status())
	require.Equal(common.PendingTxs, <-toEngine)

	// Ticks while building are ignored
	b.BuildBlockParseStatus()
	requireNoMessage(t, toEngine)

	// An empty mempool after the build disarms the timer
	mempool.len = 0
	b.HandleGenerateBlock()
	require.Equal(DontBuild, b.Status())
	require.Equal(1, tt.cancels)
	require.False(tt.armed)

	b.BuildBlockParseStatus()
	require.Equal(DontBuild, b.Status())
	requireNoMessage(t, toEngine)
}

func TestBuilderSignalTxsReady(t *testing.T) {
	require := require.New(t)

	b, _, toEngine := newTestBuilder(&testMempool{}, DefaultBuildInterval)
	b.SignalTxsReady()
	require.Equal(Building, b.Status())
	require.Equal(common.PendingTxs, <-toEngine)

	// A full engine channel drops the message
	b.SignalTxsReady()
	b.SignalTxsReady()
	require.Equal(Building, b.Status())
	require.Equal(common.PendingTxs, <-toEngine)
	requireNoMessage(t, toEngine)
}

func TestBuilderRealTimer(t *testing.T) {
	require := require.New(t)

	toEngine := make(chan common.Message, 1)
	b := New(&testMempool{len: 1}, toEngine, 10*time.Millisecond)
	go b.Run()
	defer b.Stop()

	b.HandleGenerateBlock()
	select {
	case msg := <-toEngine:
		require.Equal(common.PendingTxs, msg)
	case <-time.After(5 * time.Second):
		require.FailNow("timer never fired")
	}
	require.Equal(Building, b.Status())
}

func TestStatusString(t *testing.T) {
	require := require.New(t)

	require.Equal("dontBuild", DontBuild.String())
	require.Equal("mayBuild", MayBuild.String())
	require.Equal("building", Building.String())
	require.Equal("unknown", Status(9).String())
}
