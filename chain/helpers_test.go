// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/database/versiondb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/ava-labs/avalanchego/trace"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const testMagic = 1337

var _ VM = (*testVM)(nil)

// testVM keeps every verified block in memory and commits on accept.
type testVM struct {
	genesis *Genesis
	base    *versiondb.Database
	now     time.Time
	blocks  map[ids.ID]*StatelessBlock

	lastAccepted *StatelessBlock
}

func newTestVM(t *testing.T) *testVM {
	require := require.New(t)

	vm := &testVM{
		genesis: &Genesis{
			Magic:           testMagic,
			TargetBlockRate: 1,
			LookbackWindow:  60,
		},
		base:   versiondb.New(memdb.New()),
		now:    time.Unix(1_000, 0),
		blocks: make(map[ids.ID]*StatelessBlock),
	}
	genesis := NewGenesisBlock([]byte("genesis"))
	genesis.Tmstmp = uint64(vm.now.Unix())
	require.NoError(genesis.Init(vm))
	genesis.SetStatus(choices.Accepted)
	vm.blocks[genesis.ID()] = genesis
	vm.lastAccepted = genesis
	return vm
}

func (vm *testVM) Genesis() *Genesis { return vm.genesis }

func (*testVM) Tracer() trace.Tracer { return trace.Noop }

func (vm *testVM) Now() time.Time { return vm.now }

func (vm *testVM) State() database.Database { return vm.base }

func (vm *testVM) GetBlock(_ context.Context, blkID ids.ID) (*StatelessBlock, error) {
	blk, ok := vm.blocks[blkID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return blk, nil
}

func (vm *testVM) Verified(_ context.Context, blk *StatelessBlock) error {
	vm.blocks[blk.ID()] = blk
	return nil
}

func (vm *testVM) Accepted(_ context.Context, blk *StatelessBlock) error {
	vm.lastAccepted = blk
	return vm.base.Commit()
}

func (vm *testVM) Rejected(_ context.Context, blk *StatelessBlock) error {
	delete(vm.blocks, blk.ID())
	return nil
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return priv
}

func signTx(t *testing.T, utx UnsignedTransaction, priv *ecdsa.PrivateKey) *Transaction {
	require := require.New(t)

	sig, err := Sign(utx, testMagic, priv)
	require.NoError(err)
	tx := NewTx(utx, sig)
	require.NoError(tx.Init(testMagic))
	return tx
}

func createNamespace(blkID ids.ID, namespace string) *CreateNamespaceTx {
	return &CreateNamespaceTx{
		BaseTx:    &BaseTx{BlockID: blkID, Magic: testMagic},
		Namespace: namespace,
	}
}

func setKeyValue(blkID ids.ID, namespace, key string, value []byte) *SetKeyValueTx {
	return &SetKeyValueTx{
		BaseTx:    &BaseTx{BlockID: blkID, Magic: testMagic},
		Namespace: namespace,
		Key:       key,
		Value:     value,
	}
}

func deleteKey(blkID ids.ID, namespace, key string) *DeleteKeyTx {
	return &DeleteKeyTx{
		BaseTx:    &BaseTx{BlockID: blkID, Magic: testMagic},
		Namespace: namespace,
		Key:       key,
	}
}
