// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/kvvm/chain"
)

func TestService(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, toEngine, _ := newTestVM(t, memdb.New(), testGenesisBytes(t))
	s := &Service{vm: vm}
	r := httptest.NewRequest("POST", "/rpc", nil)
	priv := newKey(t)
	owner := crypto.PubkeyToAddress(priv.PublicKey)

	var ping PingReply
	require.NoError(s.Ping(r, nil, &ping))
	require.True(ping.Success)

	var genesis GenesisReply
	require.NoError(s.Genesis(r, nil, &genesis))
	require.Equal(uint64(testMagic), genesis.Genesis.Magic)

	// Submit over the API
	tx := signTx(t, createNamespace(vm.Preferred(), "foo"), priv)
	encoded, err := formatting.Encode(formatting.Hex, tx.Bytes())
	require.NoError(err)
	var submit SubmitTxReply
	require.NoError(s.SubmitTx(r, &SubmitTxArgs{Tx: encoded}, &submit))
	require.Equal(tx.ID(), submit.TxID)

	var pending TxReply
	require.NoError(s.Tx(r, &TxArgs{TxID: tx.ID()}, &pending))
	require.True(pending.Pending)
	require.False(pending.Accepted)
	require.Equal(owner, pending.Sender)
	require.Equal(tx.Bytes(), pending.Tx)

	waitForPendingTxs(t, toEngine)
	vm.clock.Set(testStart.Add(time.Second))
	blk := buildAndAccept(t, vm)

	var last LastAcceptedReply
	require.NoError(s.LastAccepted(r, nil, &last))
	require.Equal(blk.ID(), last.BlockID)
	require.EqualValues(1, last.Height)

	var block GetBlockReply
	require.NoError(s.GetBlock(r, &GetBlockArgs{}, &block))
	require.Equal(blk.ID(), block.ID)
	require.Equal([]ids.ID{tx.ID()}, block.TxIDs)
	require.Equal("Accepted", block.Status)

	var accepted TxReply
	require.NoError(s.Tx(r, &TxArgs{TxID: tx.ID()}, &accepted))
	require.True(accepted.Accepted)
	require.False(accepted.Pending)

	var ns NamespaceReply
	require.NoError(s.Namespace(r, &NamespaceArgs{Namespace: "foo"}, &ns))
	require.True(ns.Exists)
	require.Equal(owner, ns.Info.Owner)

	var resolve ResolveReply
	require.NoError(s.Resolve(r, &ResolveArgs{Namespace: "foo", Key: "bar"}, &resolve))
	require.False(resolve.Exists)

	var balance BalanceReply
	require.NoError(s.Balance(r, &BalanceArgs{Address: owner}, &balance))
	require.Zero(balance.Balance)

	handlers, err := vm.CreateHandlers(ctx)
	require.NoError(err)
	require.Contains(handlers, "/rpc")
	require.Contains(handlers, "/metrics")
}

func TestServiceErrors(t *testing.T) {
	require := require.New(t)

	vm, _, _ := newTestVM(t, memdb.New(), testGenesisBytes(t))
	s := &Service{vm: vm}
	r := httptest.NewRequest("POST", "/rpc", nil)

	err := s.SubmitTx(r, &SubmitTxArgs{Tx: "not hex"}, &SubmitTxReply{})
	var rpcErr *json2.Error
	require.ErrorAs(err, &rpcErr)
	require.Equal(json2.E_BAD_PARAMS, rpcErr.Code)
	require.Equal(chain.KindInvalidData, rpcErr.Data)

	err = s.Tx(r, &TxArgs{TxID: ids.GenerateTestID()}, &TxReply{})
	require.ErrorAs(err, &rpcErr)
	require.Equal(json2.E_SERVER, rpcErr.Code)
	require.Equal(chain.KindNotFound, rpcErr.Data)

	priv := newKey(t)
	tx := signTx(t, setKeyValue(vm.Preferred(), "foo", "bar", []byte("baz")), priv)
	encoded, err := formatting.Encode(formatting.Hex, tx.Bytes())
	require.NoError(err)
	err = s.SubmitTx(r, &SubmitTxArgs{Tx: encoded}, &SubmitTxReply{})
	require.ErrorAs(err, &rpcErr)
	require.Equal(chain.KindNotFound, rpcErr.Data)
}
