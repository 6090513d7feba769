// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/set"
)

// Window holds the block and transaction ids of [tip] and every ancestor
// whose timestamp is within the lookback window of [tip].
type Window struct {
	tip      ids.ID
	blockIDs set.Set[ids.ID]
	txIDs    set.Set[ids.ID]
}

func NewWindow(ctx context.Context, vm VM, tip *StatelessBlock) (*Window, error) {
	lookback := vm.Genesis().LookbackWindow
	var earliest uint64
	if tip.Tmstmp > lookback {
		earliest = tip.Tmstmp - lookback
	}

	w := &Window{tip: tip.ID()}
	cur := tip
	for {
		w.blockIDs.Add(cur.ID())
		for _, tx := range cur.Txs {
			w.txIDs.Add(tx.ID())
		}
		if cur.Hght == 0 {
			return w, nil
		}
		parent, err := vm.GetBlock(ctx, cur.Prnt)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestor %s: %w", cur.Prnt, err)
		}
		if parent.Tmstmp < earliest {
			return w, nil
		}
		cur = parent
	}
}

func (w *Window) Tip() ids.ID { return w.tip }

func (w *Window) ContainsBlock(blkID ids.ID) bool { return w.blockIDs.Contains(blkID) }

func (w *Window) ContainsTx(txID ids.ID) bool { return w.txIDs.Contains(txID) }

// Check reports whether [tx] may be included on top of the window tip.
func (w *Window) Check(tx *Transaction) error {
	// Replays are reported as duplicates whatever block they are bound to
	if w.txIDs.Contains(tx.ID()) {
		return fmt.Errorf("%w: %w: %s", ErrAlreadyExists, ErrDuplicateTx, tx.ID())
	}
	if !w.blockIDs.Contains(tx.GetBlockID()) {
		return fmt.Errorf("%w: %w: %s is outside the lookback window", ErrInvalidData, ErrInvalidBlockID, tx.GetBlockID())
	}
	return nil
}
