// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossiper

import (
	"context"

	"github.com/ava-labs/avalanchego/trace"

	"github.com/ava-labs/kvvm/chain"
)

//go:generate go run go.uber.org/mock/mockgen -package=gossiper -destination=mock_sender.go . Sender

// Sender broadcasts gossip to connected peers.
type Sender interface {
	SendAppGossip(ctx context.Context, msg []byte) error
}

type Mempool interface {
	// Newest returns up to n pending transactions, newest first, and leaves
	// them in place.
	Newest(ctx context.Context, n int) []*chain.Transaction
}

type VM interface {
	Tracer() trace.Tracer
	Genesis() *chain.Genesis
	Mempool() Mempool

	// Submit validates initialized transactions and adds them to the
	// mempool.
	Submit(ctx context.Context, txs []*chain.Transaction) []error
}
