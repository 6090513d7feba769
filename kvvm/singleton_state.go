// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"github.com/ava-labs/avalanchego/database"
)

var (
	isInitializedKey = []byte("initialized")

	_ InitializedState = (*initializedState)(nil)
)

// InitializedState records whether the genesis state has been written.
type InitializedState interface {
	IsInitialized() (bool, error)
	SetInitialized() error
}

type initializedState struct {
	singletonDB database.KeyValueReaderWriter
}

func NewInitializedState(db database.KeyValueReaderWriter) InitializedState {
	return &initializedState{
		singletonDB: db,
	}
}

func (s *initializedState) IsInitialized() (bool, error) {
	return s.singletonDB.Has(isInitializedKey)
}

func (s *initializedState) SetInitialized() error {
	return s.singletonDB.Put(isInitializedKey, nil)
}
