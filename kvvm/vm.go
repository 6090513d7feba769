// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ava-labs/avalanchego/utils"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ava-labs/avalanchego/utils/timer/mockable"
	"github.com/ava-labs/avalanchego/version"
	"github.com/gorilla/rpc/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ava-labs/kvvm/builder"
	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/gossiper"
	"github.com/ava-labs/kvvm/mempool"

	log "github.com/inconshreveable/log15"

	cjson "github.com/ava-labs/avalanchego/utils/json"
)

const Name = "kvvm"

var (
	// ID is the VM id: [Name] zero padded to 32 bytes.
	ID = ids.ID{'k', 'v', 'v', 'm'}

	Version = &version.Semantic{
		Major: 0,
		Minor: 1,
		Patch: 0,
	}

	errNoPendingTxs = errors.New("no pending txs")

	_ chain.VM    = (*VM)(nil)
	_ gossiper.VM = (*VM)(nil)
)

type VM struct {
	config  *Config
	genesis *chain.Genesis

	tracer   trace.Tracer
	clock    mockable.Clock
	metrics  *metrics
	gatherer *prometheus.Registry

	state    State
	mempool  *mempool.Mempool[*chain.Transaction]
	builder  *builder.Builder
	gossiper *gossiper.Gossiper
	toEngine chan<- common.Message

	lock         sync.RWMutex
	preferred    ids.ID
	lastAccepted *chain.StatelessBlock

	bootstrapped utils.Atomic[bool]

	// started is set once the background loops are running
	started  bool
	stop     chan struct{}
	shutdown sync.Once
	wg       sync.WaitGroup
}

// Initialize sets up the VM on top of [db]. [toEngine] receives a
// [common.PendingTxs] whenever a block should be built and [sender]
// broadcasts transaction gossip.
func (vm *VM) Initialize(
	ctx context.Context,
	db database.Database,
	genesisBytes []byte,
	configBytes []byte,
	toEngine chan<- common.Message,
	sender gossiper.Sender,
) error {
	log.Info("initializing kvvm", "version", Version)

	genesis, err := chain.ParseGenesis(genesisBytes)
	if err != nil {
		log.Error("error parsing genesis", "error", err)
		return err
	}
	vm.genesis = genesis

	config, err := ParseConfig(configBytes, genesis)
	if err != nil {
		log.Error("error parsing config", "error", err)
		return err
	}
	vm.config = config
	if err := setLogLevel(config.LogLevel); err != nil {
		return err
	}

	vm.tracer = trace.Noop
	vm.gatherer = prometheus.NewRegistry()
	vm.metrics, err = newMetrics(vm.gatherer)
	if err != nil {
		return err
	}
	vm.state, err = NewState(db, vm, config.BlockCacheSize, vm.gatherer)
	if err != nil {
		return err
	}
	vm.toEngine = toEngine
	vm.mempool = mempool.New[*chain.Transaction](vm.tracer, config.MempoolSize)
	vm.builder = builder.New(vm.mempool, toEngine, config.BuildInterval)
	vm.gossiper = gossiper.New(vm, config.GossiperConfig(), sender)
	vm.stop = make(chan struct{})

	has, err := vm.state.HasLastAccepted()
	if err != nil {
		return fmt.Errorf("failed to check last accepted: %w", err)
	}
	if !has {
		if err := vm.initGenesis(genesisBytes); err != nil {
			log.Error("error initializing genesis", "error", err)
			return err
		}
	}

	lastAcceptedID, err := vm.state.GetLastAccepted()
	if err != nil {
		return err
	}
	lastAccepted, err := vm.state.GetBlock(ctx, lastAcceptedID)
	if err != nil {
		return fmt.Errorf("failed to load last accepted block %s: %w", lastAcceptedID, err)
	}
	vm.lastAccepted = lastAccepted
	vm.preferred = lastAcceptedID
	log.Info("initialized kvvm from last accepted", "blkID", lastAcceptedID, "height", lastAccepted.Hght)

	vm.started = true
	vm.wg.Add(3)
	go func() {
		defer vm.wg.Done()
		vm.builder.Run()
	}()
	go func() {
		defer vm.wg.Done()
		vm.gossiper.Run()
	}()
	go func() {
		defer vm.wg.Done()
		vm.signalLoop()
	}()
	return nil
}

func (vm *VM) initGenesis(genesisBytes []byte) error {
	if err := vm.genesis.Load(vm.state.Database()); err != nil {
		return err
	}

	blk := chain.NewGenesisBlock(genesisBytes)
	if err := blk.Init(vm); err != nil {
		return fmt.Errorf("failed to initialize genesis block: %w", err)
	}
	blk.SetStatus(choices.Accepted)
	if err := vm.state.PutBlock(blk); err != nil {
		return fmt.Errorf("failed to save genesis block: %w", err)
	}
	if err := vm.state.SetLastAccepted(blk.ID()); err != nil {
		return err
	}
	if err := vm.state.SetInitialized(); err != nil {
		return fmt.Errorf("failed to set db to initialized: %w", err)
	}
	if err := vm.state.Commit(); err != nil {
		return err
	}
	log.Info("initialized genesis", "blkID", blk.ID(), "allocations", len(vm.genesis.Allocations))
	return nil
}

func setLogLevel(level string) error {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("%w: %w", chain.ErrInvalidData, err)
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stderr, log.TerminalFormat())))
	return nil
}

// signalLoop forwards mempool signals to the builder.
func (vm *VM) signalLoop() {
	for {
		select {
		case <-vm.mempool.Pending():
			vm.builder.SignalTxsReady()
		case <-vm.stop:
			return
		}
	}
}

func (vm *VM) Genesis() *chain.Genesis { return vm.genesis }

func (vm *VM) Tracer() trace.Tracer { return vm.tracer }

func (vm *VM) Now() time.Time { return vm.clock.Time() }

func (vm *VM) State() database.Database { return vm.state.Database() }

func (vm *VM) Mempool() gossiper.Mempool { return vm.mempool }

func (vm *VM) Config() *Config { return vm.config }

func (vm *VM) Version(context.Context) (string, error) {
	return Version.String(), nil
}

// SetState is called by the engine when it changes phases.
func (vm *VM) SetState(_ context.Context, state snow.State) error {
	switch state {
	case snow.Bootstrapping:
		vm.bootstrapped.Set(false)
	case snow.NormalOp:
		vm.bootstrapped.Set(true)
	default:
		return fmt.Errorf("%w: state %s", chain.ErrUnsupported, state)
	}
	log.Info("vm state changed", "state", state)
	return nil
}

func (vm *VM) HealthCheck(context.Context) (interface{}, error) {
	vm.lock.RLock()
	lastAccepted := vm.lastAccepted
	vm.lock.RUnlock()

	return map[string]interface{}{
		"lastAccepted": lastAccepted.ID(),
		"height":       lastAccepted.Hght,
		"mempool":      vm.mempool.Len(context.Background()),
		"verified":     vm.state.NumVerified(),
		"peers":        vm.gossiper.Peers(),
		"bootstrapped": vm.bootstrapped.Get(),
	}, nil
}

// CreateHandlers returns the JSON-RPC service and the metrics endpoint.
func (vm *VM) CreateHandlers(context.Context) (map[string]http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(cjson.NewCodec(), "application/json")
	server.RegisterCodec(cjson.NewCodec(), "application/json;charset=UTF-8")
	if err := server.RegisterService(&Service{vm: vm}, Name); err != nil {
		return nil, err
	}
	return map[string]http.Handler{
		"/rpc":     server,
		"/metrics": promhttp.HandlerFor(vm.gatherer, promhttp.HandlerOpts{}),
	}, nil
}

// Shutdown stops the background loops and closes the database.
func (vm *VM) Shutdown(context.Context) error {
	if vm.state == nil {
		return nil
	}
	var err error
	vm.shutdown.Do(func() {
		if vm.started {
			close(vm.stop)
			vm.builder.Stop()
			vm.gossiper.Stop()
			vm.wg.Wait()
		}
		err = vm.state.Close()
	})
	return err
}

func (vm *VM) Connected(ctx context.Context, nodeID ids.NodeID, nodeVersion *version.Application) error {
	return vm.gossiper.Connected(ctx, nodeID, nodeVersion)
}

func (vm *VM) Disconnected(ctx context.Context, nodeID ids.NodeID) error {
	return vm.gossiper.Disconnected(ctx, nodeID)
}

func (vm *VM) AppGossip(ctx context.Context, nodeID ids.NodeID, msg []byte) error {
	return vm.gossiper.HandleAppGossip(ctx, nodeID, msg)
}

// App requests are not used: transactions only travel by gossip.

func (*VM) AppRequest(context.Context, ids.NodeID, uint32, time.Time, []byte) error {
	return fmt.Errorf("%w: app request", chain.ErrUnsupported)
}

func (*VM) AppResponse(context.Context, ids.NodeID, uint32, []byte) error {
	return fmt.Errorf("%w: app response", chain.ErrUnsupported)
}

func (*VM) AppRequestFailed(context.Context, ids.NodeID, uint32, *common.AppError) error {
	return fmt.Errorf("%w: app request failed", chain.ErrUnsupported)
}

// GetBlock returns a verified block or a decided block from storage.
func (vm *VM) GetBlock(ctx context.Context, blkID ids.ID) (*chain.StatelessBlock, error) {
	if blk, ok := vm.state.GetVerified(blkID); ok {
		return blk, nil
	}
	return vm.state.GetBlock(ctx, blkID)
}

func (vm *VM) ParseBlock(ctx context.Context, source []byte) (*chain.StatelessBlock, error) {
	blkID := hashing.ComputeHash256Array(source)
	if blk, err := vm.GetBlock(ctx, blkID); err == nil {
		return blk, nil
	}
	return chain.ParseBlock(ctx, source, choices.Processing, vm)
}

func (vm *VM) LastAccepted(context.Context) (ids.ID, error) {
	return vm.state.GetLastAccepted()
}

func (vm *VM) SetPreference(_ context.Context, blkID ids.ID) error {
	vm.lock.Lock()
	defer vm.lock.Unlock()

	vm.preferred = blkID
	return nil
}

func (vm *VM) Preferred() ids.ID {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.preferred
}

func (vm *VM) LastAcceptedBlock() *chain.StatelessBlock {
	vm.lock.RLock()
	defer vm.lock.RUnlock()

	return vm.lastAccepted
}
