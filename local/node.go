// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package local runs a single kvvm node in process. Blocks are decided as
// soon as they are built.
package local

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/snow"
	"github.com/ava-labs/avalanchego/snow/engine/common"

	"github.com/ava-labs/kvvm/kvvm"

	log "github.com/inconshreveable/log15"
)

// EndpointPrefix is where the VM handlers are mounted.
const EndpointPrefix = "/ext/bc/" + kvvm.Name

type Config struct {
	Genesis     []byte
	ChainConfig []byte

	// Address to listen on. A random local port is used if empty.
	Address string
}

type Node struct {
	vm       *kvvm.VM
	server   *http.Server
	listener net.Listener
	toEngine chan common.Message

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// Start initializes the VM and starts serving its handlers.
func Start(ctx context.Context, cfg *Config) (*Node, error) {
	n := &Node{
		vm:       &kvvm.VM{},
		toEngine: make(chan common.Message, 1),
		stop:     make(chan struct{}),
	}
	if err := n.vm.Initialize(ctx, memdb.New(), cfg.Genesis, cfg.ChainConfig, n.toEngine, noopSender{}); err != nil {
		return nil, err
	}
	if err := n.vm.SetState(ctx, snow.NormalOp); err != nil {
		return nil, errors.Join(err, n.vm.Shutdown(ctx))
	}

	handlers, err := n.vm.CreateHandlers(ctx)
	if err != nil {
		return nil, errors.Join(err, n.vm.Shutdown(ctx))
	}
	mux := http.NewServeMux()
	for path, handler := range handlers {
		mux.Handle(EndpointPrefix+path, handler)
	}

	addr := cfg.Address
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	n.listener, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to listen on %s: %w", addr, err), n.vm.Shutdown(ctx))
	}
	n.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	n.wg.Add(2)
	go func() {
		defer n.wg.Done()
		if err := n.server.Serve(n.listener); !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", "error", err)
		}
	}()
	go func() {
		defer n.wg.Done()
		n.engineLoop()
	}()
	log.Info("started local node", "uri", n.URI())
	return n, nil
}

func (n *Node) VM() *kvvm.VM { return n.vm }

// URI is the JSON-RPC endpoint of the node.
func (n *Node) URI() string {
	return "http://" + n.listener.Addr().String() + EndpointPrefix + "/rpc"
}

// Stop shuts down the server and the VM.
func (n *Node) Stop(ctx context.Context) error {
	n.stopOnce.Do(func() {
		close(n.stop)
		n.stopErr = n.server.Shutdown(ctx)
		n.wg.Wait()
		n.stopErr = errors.Join(n.stopErr, n.vm.Shutdown(ctx))
	})
	return n.stopErr
}

func (n *Node) engineLoop() {
	for {
		select {
		case msg := <-n.toEngine:
			if msg == common.PendingTxs {
				n.buildBlock(context.Background())
			}
		case <-n.stop:
			return
		}
	}
}

// buildBlock runs the engine steps for one block.
func (n *Node) buildBlock(ctx context.Context) {
	blk, err := n.vm.BuildBlock(ctx)
	if err != nil {
		log.Debug("failed to build block", "error", err)
		return
	}
	if err := blk.Verify(ctx); err != nil {
		log.Warn("built block failed verification", "blkID", blk.ID(), "error", err)
		if err := blk.Reject(ctx); err != nil {
			log.Error("failed to reject block", "blkID", blk.ID(), "error", err)
		}
		return
	}
	if err := n.vm.SetPreference(ctx, blk.ID()); err != nil {
		log.Error("failed to set preference", "blkID", blk.ID(), "error", err)
		return
	}
	if err := blk.Accept(ctx); err != nil {
		log.Error("failed to accept block", "blkID", blk.ID(), "error", err)
	}
}

// noopSender drops gossip; a local node has no peers.
type noopSender struct{}

func (noopSender) SendAppGossip(context.Context, []byte) error { return nil }
