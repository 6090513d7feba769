// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package gossiper

import (
	"context"
	"sync"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/version"
)

type peer struct {
	version *version.Application
}

// peerTracker records the peers we can currently gossip to.
type peerTracker struct {
	lock  sync.RWMutex
	peers map[ids.NodeID]*peer
}

func newPeerTracker() *peerTracker {
	return &peerTracker{
		peers: make(map[ids.NodeID]*peer),
	}
}

func (p *peerTracker) Connected(_ context.Context, nodeID ids.NodeID, nodeVersion *version.Application) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.peers[nodeID] = &peer{
		version: nodeVersion,
	}
	return nil
}

func (p *peerTracker) Disconnected(_ context.Context, nodeID ids.NodeID) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	delete(p.peers, nodeID)
	return nil
}

func (p *peerTracker) Len() int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return len(p.peers)
}

func (p *peerTracker) Version(nodeID ids.NodeID) (*version.Application, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	peer, ok := p.peers[nodeID]
	if !ok {
		return nil, false
	}
	return peer.version, true
}
