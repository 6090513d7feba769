// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossiper

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/version"

	"github.com/ava-labs/kvvm/chain"

	log "github.com/inconshreveable/log15"
)

type Config struct {
	GossipInterval    time.Duration
	RegossipBatchSize int
	CacheSize         int
	MaxGossipTxs      int
}

func DefaultConfig() *Config {
	return &Config{
		GossipInterval:    time.Second,
		RegossipBatchSize: 32,
		CacheSize:         512,
		MaxGossipTxs:      1_024,
	}
}

// Gossiper pushes new transactions to peers, periodically re-sends pending
// ones and feeds transactions received from peers into the VM.
type Gossiper struct {
	vm     VM
	cfg    *Config
	sender Sender
	peers  *peerTracker

	// ids of transactions already sent or received
	gossiped *cache.LRU[ids.ID, struct{}]

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(vm VM, cfg *Config, sender Sender) *Gossiper {
	return &Gossiper{
		vm:       vm,
		cfg:      cfg,
		sender:   sender,
		peers:    newPeerTracker(),
		gossiped: &cache.LRU[ids.ID, struct{}]{Size: cfg.CacheSize},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (g *Gossiper) AlreadyGossiped(txID ids.ID) bool {
	_, ok := g.gossiped.Get(txID)
	return ok
}

func (g *Gossiper) MarkGossiped(txID ids.ID) {
	g.gossiped.Put(txID, struct{}{})
}

func (g *Gossiper) Connected(ctx context.Context, nodeID ids.NodeID, nodeVersion *version.Application) error {
	log.Debug("peer connected", "nodeID", nodeID, "version", nodeVersion)
	return g.peers.Connected(ctx, nodeID, nodeVersion)
}

func (g *Gossiper) Disconnected(ctx context.Context, nodeID ids.NodeID) error {
	log.Debug("peer disconnected", "nodeID", nodeID)
	return g.peers.Disconnected(ctx, nodeID)
}

func (g *Gossiper) Peers() int {
	return g.peers.Len()
}

func (g *Gossiper) sendTxs(ctx context.Context, txs []*chain.Transaction) error {
	b, err := chain.MarshalTxs(txs)
	if err != nil {
		return err
	}
	return g.sender.SendAppGossip(ctx, b)
}

// GossipNewTxs sends the transactions in [txs] that have not been gossiped
// yet.
func (g *Gossiper) GossipNewTxs(ctx context.Context, txs []*chain.Transaction) error {
	ctx, span := g.vm.Tracer().Start(ctx, "Gossiper.GossipNewTxs")
	defer span.End()

	if g.peers.Len() == 0 {
		log.Debug("no peers to gossip to", "txs", len(txs))
		return nil
	}

	toGossip := make([]*chain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if g.AlreadyGossiped(tx.ID()) {
			continue
		}
		g.MarkGossiped(tx.ID())
		toGossip = append(toGossip, tx)
	}
	if len(toGossip) == 0 {
		return nil
	}
	log.Debug("gossiping new transactions", "txs", len(toGossip))
	return g.sendTxs(ctx, toGossip)
}

// RegossipTxs re-sends up to a batch of the newest pending transactions,
// whether or not they were gossiped before.
func (g *Gossiper) RegossipTxs(ctx context.Context) error {
	ctx, span := g.vm.Tracer().Start(ctx, "Gossiper.RegossipTxs")
	defer span.End()

	if g.peers.Len() == 0 {
		return nil
	}

	txs := g.vm.Mempool().Newest(ctx, g.cfg.RegossipBatchSize)
	if len(txs) == 0 {
		return nil
	}
	for _, tx := range txs {
		g.MarkGossiped(tx.ID())
	}

	log.Debug("regossiping transactions", "txs", len(txs))
	return g.sendTxs(ctx, txs)
}

// HandleAppGossip submits the transactions gossiped by [nodeID]. Invalid
// gossip is logged and dropped.
func (g *Gossiper) HandleAppGossip(ctx context.Context, nodeID ids.NodeID, msg []byte) error {
	ctx, span := g.vm.Tracer().Start(ctx, "Gossiper.HandleAppGossip")
	defer span.End()

	txs, err := chain.UnmarshalTxs(msg, g.cfg.MaxGossipTxs)
	if err != nil {
		log.Warn("received invalid txs", "peerID", nodeID, "error", err)
		return nil
	}

	magic := g.vm.Genesis().Magic
	valid := make([]*chain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if err := tx.Init(magic); err != nil {
			log.Debug("dropping invalid gossiped tx", "peerID", nodeID, "error", err)
			continue
		}
		// Don't echo what we were sent
		g.MarkGossiped(tx.ID())
		valid = append(valid, tx)
	}

	for _, err := range g.vm.Submit(ctx, valid) {
		if err == nil || errors.Is(err, chain.ErrAlreadyExists) {
			continue
		}
		log.Debug("failed to submit gossiped tx", "peerID", nodeID, "error", err)
	}
	log.Debug("submitted gossiped transactions", "peerID", nodeID, "txs", len(valid))
	return nil
}

// Run regossips pending transactions until [Stop] is called.
func (g *Gossiper) Run() {
	log.Info("starting gossiper", "interval", g.cfg.GossipInterval)
	defer close(g.done)

	t := time.NewTicker(g.cfg.GossipInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if err := g.RegossipTxs(context.Background()); err != nil {
				log.Warn("regossip failed", "error", err)
			}
		case <-g.stop:
			log.Info("stopping gossip loop")
			return
		}
	}
}

// Stop terminates [Run] and waits for it to return. It must only be called
// after [Run] was started.
func (g *Gossiper) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
	<-g.done
}
