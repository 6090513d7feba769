// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/kvvm/chain"
)

var _ State = (*state)(nil)

// State is the block state, the initialized flag and the chain state, all
// written through one versioned database so an accepted block is flushed
// atomically.
type State interface {
	InitializedState
	BlockState

	// Database holds the state of the last accepted block.
	Database() database.Database

	Commit() error
	Close() error
}

type state struct {
	InitializedState
	BlockState

	baseDB *versiondb.Database
}

func NewState(
	db database.Database,
	vm chain.VM,
	blockCacheSize int,
	registerer prometheus.Registerer,
) (State, error) {
	baseDB := versiondb.New(db)
	blockState, err := NewBlockState(baseDB, vm, blockCacheSize, registerer)
	if err != nil {
		return nil, err
	}
	return &state{
		InitializedState: NewInitializedState(baseDB),
		BlockState:       blockState,
		baseDB:           baseDB,
	}, nil
}

func (s *state) Database() database.Database { return s.baseDB }

// Commit flushes pending writes to the underlying database.
func (s *state) Commit() error {
	return s.baseDB.Commit()
}

func (s *state) Close() error {
	return s.baseDB.Close()
}
