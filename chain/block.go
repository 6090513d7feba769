// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/set"
	"golang.org/x/sync/errgroup"

	log "github.com/inconshreveable/log15"
)

// FutureBound is how far ahead of the local clock a block timestamp may be.
const FutureBound = 10 * time.Second

var errNotVerified = errors.New("block has not been verified")

// StatelessBlock is a block on the chain. The exported fields are the
// canonical encoding; everything else is derived.
type StatelessBlock struct {
	Prnt    ids.ID         `serialize:"true" json:"parent"`
	Hght    uint64         `serialize:"true" json:"height"`
	Tmstmp  uint64         `serialize:"true" json:"timestamp"`
	Payload []byte         `serialize:"true" json:"payload"`
	Txs     []*Transaction `serialize:"true" json:"txs"`

	id    ids.ID
	bytes []byte
	vm    VM

	// stateLock guards [st] and [onAcceptDB], which are read concurrently
	// with the engine deciding the block.
	stateLock  sync.RWMutex
	st         choices.Status
	onAcceptDB *versiondb.Database
}

// NewGenesisBlock returns the unprocessed height 0 block.
func NewGenesisBlock(payload []byte) *StatelessBlock {
	return &StatelessBlock{
		Payload: payload,
		st:      choices.Processing,
	}
}

// NewBlock returns a child of [parent]. Callers must call [Init] after the
// transactions are final.
func NewBlock(vm VM, parent *StatelessBlock, tmstmp uint64, txs []*Transaction) *StatelessBlock {
	return &StatelessBlock{
		Prnt:   parent.ID(),
		Hght:   parent.Hght + 1,
		Tmstmp: tmstmp,
		Txs:    txs,
		st:     choices.Processing,
		vm:     vm,
	}
}

// ParseBlock decodes [source] and initializes every transaction in it.
func ParseBlock(ctx context.Context, source []byte, status choices.Status, vm VM) (*StatelessBlock, error) {
	_, span := vm.Tracer().Start(ctx, "chain.ParseBlock")
	defer span.End()

	blk := new(StatelessBlock)
	if _, err := Codec.Unmarshal(source, blk); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal block: %w", ErrInvalidData, err)
	}
	blk.vm = vm
	blk.st = status
	blk.bytes = source
	blk.id = hashing.ComputeHash256Array(source)

	for i, tx := range blk.Txs {
		if tx == nil {
			return nil, fmt.Errorf("%w: nil transaction %d in block %s", ErrInvalidData, i, blk.id)
		}
	}

	magic := vm.Genesis().Magic
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, tx := range blk.Txs {
		tx := tx
		g.Go(func() error {
			return tx.Init(magic)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return blk, nil
}

// Init computes the canonical bytes and id of a locally built block.
func (b *StatelessBlock) Init(vm VM) error {
	b.vm = vm
	bytes, err := Codec.Marshal(CodecVersion, b)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}
	b.bytes = bytes
	b.id = hashing.ComputeHash256Array(bytes)
	return nil
}

func (b *StatelessBlock) ID() ids.ID { return b.id }

func (b *StatelessBlock) Parent() ids.ID { return b.Prnt }

func (b *StatelessBlock) Height() uint64 { return b.Hght }

func (b *StatelessBlock) Timestamp() time.Time { return time.Unix(int64(b.Tmstmp), 0) }

func (b *StatelessBlock) Bytes() []byte { return b.bytes }

func (b *StatelessBlock) Status() choices.Status {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()

	return b.st
}

func (b *StatelessBlock) SetStatus(st choices.Status) {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()

	b.st = st
}

// TxIDs lists the ids of the transactions in [b].
func (b *StatelessBlock) TxIDs() []ids.ID {
	txIDs := make([]ids.ID, len(b.Txs))
	for i, tx := range b.Txs {
		txIDs[i] = tx.ID()
	}
	return txIDs
}

// OnAccept is the state a child of [b] executes on top of.
func (b *StatelessBlock) OnAccept() (database.Database, error) {
	b.stateLock.RLock()
	defer b.stateLock.RUnlock()

	if b.st == choices.Accepted {
		return b.vm.State(), nil
	}
	if b.onAcceptDB == nil {
		return nil, fmt.Errorf("%w: %s", errNotVerified, b.id)
	}
	return b.onAcceptDB, nil
}

// Verify returns nil iff [b] is a valid child of its parent.
func (b *StatelessBlock) Verify(ctx context.Context) error {
	ctx, span := b.vm.Tracer().Start(ctx, "chain.Verify")
	defer span.End()

	parent, err := b.vm.GetBlock(ctx, b.Prnt)
	if err != nil {
		return fmt.Errorf("failed to get parent %s of %s: %w", b.Prnt, b.id, err)
	}
	onAcceptDB, err := b.verify(ctx, parent)
	if err != nil {
		log.Debug("block verification failed", "blkID", b.id, "height", b.Hght, "error", err)
		return err
	}
	b.stateLock.Lock()
	b.onAcceptDB = onAcceptDB
	b.stateLock.Unlock()
	return b.vm.Verified(ctx, b)
}

func (b *StatelessBlock) verify(ctx context.Context, parent *StatelessBlock) (*versiondb.Database, error) {
	if b.Hght != parent.Hght+1 {
		return nil, fmt.Errorf(
			"%w: %w: expected %d, got %d",
			ErrInvalidData,
			ErrInvalidHeight,
			parent.Hght+1,
			b.Hght,
		)
	}
	if b.Tmstmp < parent.Tmstmp {
		return nil, fmt.Errorf(
			"%w: %w: %d < %d",
			ErrInvalidData,
			ErrTimestampTooEarly,
			b.Tmstmp,
			parent.Tmstmp,
		)
	}
	if limit := uint64(b.vm.Now().Add(FutureBound).Unix()); b.Tmstmp > limit {
		return nil, fmt.Errorf(
			"%w: %w: %d > %d",
			ErrInvalidData,
			ErrTimestampTooLate,
			b.Tmstmp,
			limit,
		)
	}

	window, err := NewWindow(ctx, b.vm, parent)
	if err != nil {
		return nil, err
	}
	parentState, err := parent.OnAccept()
	if err != nil {
		return nil, err
	}

	onAcceptDB := versiondb.New(parentState)
	var seen set.Set[ids.ID]
	for _, tx := range b.Txs {
		if err := window.Check(tx); err != nil {
			onAcceptDB.Abort()
			return nil, err
		}
		if seen.Contains(tx.ID()) {
			onAcceptDB.Abort()
			return nil, fmt.Errorf("%w: %w: %s repeated in block", ErrAlreadyExists, ErrDuplicateTx, tx.ID())
		}
		seen.Add(tx.ID())
		if err := tx.Execute(onAcceptDB, b.Tmstmp); err != nil {
			onAcceptDB.Abort()
			return nil, fmt.Errorf("failed to execute tx %s: %w", tx.ID(), err)
		}
	}
	return onAcceptDB, nil
}

// Accept commits the state changes of [b] into the chain state.
func (b *StatelessBlock) Accept(ctx context.Context) error {
	ctx, span := b.vm.Tracer().Start(ctx, "chain.Accept")
	defer span.End()

	if err := b.commit(); err != nil {
		return err
	}
	return b.vm.Accepted(ctx, b)
}

// Reject drops the pending state changes of [b].
func (b *StatelessBlock) Reject(ctx context.Context) error {
	ctx, span := b.vm.Tracer().Start(ctx, "chain.Reject")
	defer span.End()

	b.stateLock.Lock()
	if b.onAcceptDB != nil {
		b.onAcceptDB.Abort()
		b.onAcceptDB = nil
	}
	b.st = choices.Rejected
	b.stateLock.Unlock()
	return b.vm.Rejected(ctx, b)
}

func (b *StatelessBlock) commit() error {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()

	if b.onAcceptDB == nil {
		return fmt.Errorf("%w: %s", errNotVerified, b.id)
	}
	if err := b.onAcceptDB.SetDatabase(b.vm.State()); err != nil {
		return fmt.Errorf("failed to rebase block state: %w", err)
	}
	if err := b.onAcceptDB.Commit(); err != nil {
		return fmt.Errorf("failed to commit block state: %w", err)
	}
	b.st = choices.Accepted
	b.onAcceptDB = nil
	return nil
}
