// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package builder

import (
	"context"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ava-labs/avalanchego/utils/timer"

	log "github.com/inconshreveable/log15"
)

const DefaultBuildInterval = 500 * time.Millisecond

// Status is the block building state.
type Status uint8

const (
	// DontBuild means there is nothing to build.
	DontBuild Status = iota
	// MayBuild means the mempool is non-empty and the build timer is armed.
	MayBuild
	// Building means the engine has been told there are pending txs.
	Building
)

func (s Status) String() string {
	switch s {
	case DontBuild:
		return "dontBuild"
	case MayBuild:
		return "mayBuild"
	case Building:
		return "building"
	default:
		return "unknown"
	}
}

// Timer is satisfied by [*timer.Timer].
type Timer interface {
	SetTimeoutIn(time.Duration)
	Cancel()
	Dispatch()
	Stop()
}

type Mempool interface {
	Len(context.Context) int
}

// Builder tells the engine when to build blocks.
type Builder struct {
	mempool  Mempool
	toEngine chan<- common.Message
	interval time.Duration
	timer    Timer

	lock   sync.Mutex
	status Status
}

func New(mempool Mempool, toEngine chan<- common.Message, interval time.Duration) *Builder {
	return newBuilder(mempool, toEngine, interval, func(handler func()) Timer {
		return timer.NewTimer(handler)
	})
}

func newBuilder(
	mempool Mempool,
	toEngine chan<- common.Message,
	interval time.Duration,
	newTimer func(func()) Timer,
) *Builder {
	b := &Builder{
		mempool:  mempool,
		toEngine: toEngine,
		interval: interval,
	}
	b.timer = newTimer(b.BuildBlockParseStatus)
	return b
}

func (b *Builder) Status() Status {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.status
}

// SignalTxsReady is called when the mempool reports new transactions.
func (b *Builder) SignalTxsReady() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.markBuilding()
}

// HandleGenerateBlock must be called after every block build attempt.
func (b *Builder) HandleGenerateBlock() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.mempool.Len(context.TODO()) > 0 {
		b.status = MayBuild
		b.timer.SetTimeoutIn(b.interval)
		return
	}
	b.status = DontBuild
	b.timer.Cancel()
}

// BuildBlockParseStatus is invoked when the build timer fires.
func (b *Builder) BuildBlockParseStatus() {
	b.lock.Lock()
	defer b.lock.Unlock()

	if b.status == MayBuild {
		b.markBuilding()
	}
}

// markBuilding assumes [b.lock] is held.
func (b *Builder) markBuilding() {
	select {
	case b.toEngine <- common.PendingTxs:
	default:
		log.Debug("dropping message to consensus engine")
	}
	b.status = Building
}

// Run dispatches the build timer. It blocks until [Stop] is called.
func (b *Builder) Run() {
	b.timer.Dispatch()
}

func (b *Builder) Stop() {
	b.timer.Stop()
}
