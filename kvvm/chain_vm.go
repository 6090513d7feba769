// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"

	"github.com/ava-labs/kvvm/chain"

	log "github.com/inconshreveable/log15"
)

// BuildBlock assembles a block on top of the preferred block from the
// newest mempool transactions that still execute.
func (vm *VM) BuildBlock(ctx context.Context) (*chain.StatelessBlock, error) {
	ctx, span := vm.tracer.Start(ctx, "VM.BuildBlock")
	defer span.End()

	// Let the builder decide when to notify the engine again
	defer vm.builder.HandleGenerateBlock()

	parent, err := vm.GetBlock(ctx, vm.Preferred())
	if err != nil {
		return nil, fmt.Errorf("failed to get preferred block: %w", err)
	}
	window, err := chain.NewWindow(ctx, vm, parent)
	if err != nil {
		return nil, err
	}
	parentState, err := parent.OnAccept()
	if err != nil {
		return nil, err
	}

	tmstmp := uint64(vm.clock.Unix())
	if tmstmp < parent.Tmstmp {
		tmstmp = parent.Tmstmp
	}

	view := versiondb.New(parentState)
	defer view.Abort()

	txs := make([]*chain.Transaction, 0, vm.config.MaxBlockTxs)
	for len(txs) < vm.config.MaxBlockTxs {
		tx, ok := vm.mempool.PopBack(ctx)
		if !ok {
			break
		}
		if err := window.Check(tx); err != nil {
			log.Debug("dropping tx", "txID", tx.ID(), "error", err)
			continue
		}

		txView := versiondb.New(view)
		if err := tx.Execute(txView, tmstmp); err != nil {
			txView.Abort()
			log.Debug("dropping tx", "txID", tx.ID(), "error", err)
			continue
		}
		if err := txView.Commit(); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	vm.metrics.mempoolSize.Set(float64(vm.mempool.Len(ctx)))
	if len(txs) == 0 {
		return nil, errNoPendingTxs
	}

	blk := chain.NewBlock(vm, parent, tmstmp, txs)
	if err := blk.Init(vm); err != nil {
		// The block can't be built, so leave the txs for a later attempt
		for i := len(txs) - 1; i >= 0; i-- {
			vm.mempool.Add(ctx, txs[i])
		}
		return nil, err
	}
	vm.metrics.blocksBuilt.Inc()
	log.Debug("built block", "blkID", blk.ID(), "height", blk.Hght, "txs", len(txs))
	return blk, nil
}

func (vm *VM) Verified(_ context.Context, blk *chain.StatelessBlock) error {
	vm.state.AddVerified(blk)
	vm.metrics.blocksVerified.Inc()
	log.Debug("verified block", "blkID", blk.ID(), "height", blk.Hght)
	return nil
}

func (vm *VM) Accepted(ctx context.Context, blk *chain.StatelessBlock) error {
	if err := vm.state.Decide(blk); err != nil {
		return err
	}
	if err := vm.state.SetLastAccepted(blk.ID()); err != nil {
		return err
	}
	if err := vm.state.Commit(); err != nil {
		return fmt.Errorf("failed to commit accepted block %s: %w", blk.ID(), err)
	}

	vm.lock.Lock()
	vm.lastAccepted = blk
	vm.lock.Unlock()

	vm.mempool.RemoveAll(ctx, blk.TxIDs())

	// Drop txs that can never be included again
	window, err := chain.NewWindow(ctx, vm, blk)
	if err != nil {
		return err
	}
	pruned := vm.mempool.PruneFunc(ctx, func(tx *chain.Transaction) bool {
		if window.ContainsTx(tx.ID()) {
			return false
		}
		if window.ContainsBlock(tx.GetBlockID()) {
			return true
		}
		_, processing := vm.state.GetVerified(tx.GetBlockID())
		return processing
	})

	vm.metrics.blocksAccepted.Inc()
	vm.metrics.txsAccepted.Add(float64(len(blk.Txs)))
	vm.metrics.mempoolPruned.Add(float64(pruned))
	vm.metrics.mempoolSize.Set(float64(vm.mempool.Len(ctx)))
	log.Info("accepted block", "blkID", blk.ID(), "height", blk.Hght, "txs", len(blk.Txs), "pruned", pruned)
	return nil
}

func (vm *VM) Rejected(ctx context.Context, blk *chain.StatelessBlock) error {
	if err := vm.state.Decide(blk); err != nil {
		return err
	}
	if err := vm.state.Commit(); err != nil {
		return fmt.Errorf("failed to commit rejected block %s: %w", blk.ID(), err)
	}
	vm.metrics.blocksRejected.Inc()

	// Give the txs another chance in a later block
	readded := 0
	for _, err := range vm.Submit(ctx, blk.Txs) {
		if err == nil {
			readded++
		}
	}
	log.Info("rejected block", "blkID", blk.ID(), "height", blk.Hght, "txs", len(blk.Txs), "readded", readded)
	return nil
}

// Submit validates initialized transactions against the preferred state and
// adds the valid ones to the mempool. The returned errors line up with
// [txs].
func (vm *VM) Submit(ctx context.Context, txs []*chain.Transaction) []error {
	ctx, span := vm.tracer.Start(ctx, "VM.Submit")
	defer span.End()

	errs := make([]error, len(txs))
	fail := func(err error) []error {
		for i := range errs {
			errs[i] = err
		}
		vm.metrics.txsRejected.Add(float64(len(txs)))
		return errs
	}

	preferred, err := vm.GetBlock(ctx, vm.Preferred())
	if err != nil {
		return fail(fmt.Errorf("failed to get preferred block: %w", err))
	}
	window, err := chain.NewWindow(ctx, vm, preferred)
	if err != nil {
		return fail(err)
	}
	preferredState, err := preferred.OnAccept()
	if err != nil {
		return fail(err)
	}

	now := uint64(vm.clock.Unix())
	if now < preferred.Tmstmp {
		now = preferred.Tmstmp
	}
	added := make([]*chain.Transaction, 0, len(txs))
	for i, tx := range txs {
		errs[i] = vm.submit(ctx, window, preferredState, now, tx)
		if errs[i] != nil {
			vm.metrics.txsRejected.Inc()
			log.Debug("rejected tx", "txID", tx.ID(), "error", errs[i])
			continue
		}
		added = append(added, tx)
	}
	vm.metrics.txsSubmitted.Add(float64(len(added)))
	vm.metrics.mempoolSize.Set(float64(vm.mempool.Len(ctx)))

	if len(added) > 0 {
		if err := vm.gossiper.GossipNewTxs(ctx, added); err != nil {
			log.Warn("failed to gossip new txs", "error", err)
		}
	}
	return errs
}

func (vm *VM) submit(
	ctx context.Context,
	window *chain.Window,
	preferredState database.Database,
	now uint64,
	tx *chain.Transaction,
) error {
	if vm.mempool.Has(ctx, tx.ID()) {
		return fmt.Errorf("%w: %w: %s in mempool", chain.ErrAlreadyExists, chain.ErrDuplicateTx, tx.ID())
	}
	if err := window.Check(tx); err != nil {
		return err
	}

	// Execute on a throwaway view
	view := versiondb.New(preferredState)
	defer view.Abort()
	if err := tx.Execute(view, now); err != nil {
		return err
	}

	if !vm.mempool.Add(ctx, tx) {
		return fmt.Errorf("%w: %w: %s in mempool", chain.ErrAlreadyExists, chain.ErrDuplicateTx, tx.ID())
	}
	return nil
}

// SubmitTx parses, initializes and submits a single signed transaction.
func (vm *VM) SubmitTx(ctx context.Context, txBytes []byte) (ids.ID, error) {
	tx, err := chain.ParseTx(txBytes, vm.genesis.Magic)
	if err != nil {
		return ids.Empty, err
	}
	if err := vm.Submit(ctx, []*chain.Transaction{tx})[0]; err != nil {
		return ids.Empty, err
	}
	return tx.ID(), nil
}
