// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ava-labs/kvvm/chain"
)

// Reads below see the state of the last accepted block.

func (vm *VM) Resolve(namespace string, key string) ([]byte, *chain.ValueMeta, bool, error) {
	db := vm.State()
	meta, ok, err := chain.GetValueMeta(db, namespace, key)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	value, ok, err := chain.GetValue(db, namespace, key)
	if err != nil || !ok {
		return nil, nil, ok, err
	}
	return value, meta, true, nil
}

func (vm *VM) NamespaceInfo(namespace string) (*chain.NamespaceInfo, bool, error) {
	return chain.GetNamespaceInfo(vm.State(), namespace)
}

func (vm *VM) Balance(addr common.Address) (uint64, error) {
	return chain.GetBalance(vm.State(), addr)
}

func (vm *VM) GetTransaction(txID ids.ID) (*chain.Transaction, bool, error) {
	return chain.GetTransaction(vm.State(), txID, vm.genesis.Magic)
}
