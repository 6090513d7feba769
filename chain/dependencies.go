// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/trace"
)

// VM is what a block needs from the chain that holds it.
type VM interface {
	Genesis() *Genesis
	Tracer() trace.Tracer
	Now() time.Time

	// State is the database of the last accepted block.
	State() database.Database

	// GetBlock returns a verified or stored block.
	GetBlock(ctx context.Context, blkID ids.ID) (*StatelessBlock, error)

	Verified(ctx context.Context, blk *StatelessBlock) error
	Accepted(ctx context.Context, blk *StatelessBlock) error
	Rejected(ctx context.Context, blk *StatelessBlock) error
}
