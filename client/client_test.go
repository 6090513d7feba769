// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ava-labs/avalanchego/database/memdb"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/engine/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/kvvm"
)

type noopSender struct{}

func (noopSender) SendAppGossip(context.Context, []byte) error { return nil }

func newTestServer(t *testing.T) (*kvvm.VM, <-chan common.Message, Client) {
	require := require.New(t)
	ctx := context.Background()

	genesis := chain.DefaultGenesis()
	genesis.Magic = 7
	genesisBytes, err := json.Marshal(genesis)
	require.NoError(err)

	toEngine := make(chan common.Message, 1)
	vm := &kvvm.VM{}
	require.NoError(vm.Initialize(ctx, memdb.New(), genesisBytes, []byte(`{"logLevel":"error"}`), toEngine, noopSender{}))
	t.Cleanup(func() {
		require.NoError(vm.Shutdown(context.Background()))
	})

	handlers, err := vm.CreateHandlers(ctx)
	require.NoError(err)
	server := httptest.NewServer(handlers["/rpc"])
	t.Cleanup(server.Close)
	return vm, toEngine, New(server.URL)
}

func TestClient(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	vm, toEngine, cli := newTestServer(t)

	ok, err := cli.Ping(ctx)
	require.NoError(err)
	require.True(ok)

	g, err := cli.Genesis(ctx)
	require.NoError(err)
	require.Equal(uint64(7), g.Magic)

	priv, err := crypto.GenerateKey()
	require.NoError(err)
	txID, err := cli.SignAndSubmit(ctx, &chain.TransactionData{
		Type:      chain.TxTypeCreateNamespace,
		Namespace: "foo",
	}, priv)
	require.NoError(err)

	reply, err := cli.Tx(ctx, txID)
	require.NoError(err)
	require.True(reply.Pending)
	require.Equal(crypto.PubkeyToAddress(priv.PublicKey), reply.Sender)

	select {
	case <-toEngine:
	case <-time.After(5 * time.Second):
		require.FailNow("timed out waiting for PendingTxs")
	}
	blk, err := vm.BuildBlock(ctx)
	require.NoError(err)
	require.NoError(blk.Verify(ctx))
	require.NoError(vm.SetPreference(ctx, blk.ID()))
	require.NoError(blk.Accept(ctx))

	blkID, height, _, err := cli.LastAccepted(ctx)
	require.NoError(err)
	require.Equal(blk.ID(), blkID)
	require.Equal(uint64(1), height)

	block, err := cli.GetBlock(ctx, ids.Empty)
	require.NoError(err)
	require.Equal([]ids.ID{txID}, block.TxIDs)

	exists, info, err := cli.Namespace(ctx, "foo")
	require.NoError(err)
	require.True(exists)
	require.Equal(crypto.PubkeyToAddress(priv.PublicKey), info.Owner)

	txID, err = cli.SignAndSubmit(ctx, &chain.TransactionData{
		Type:      chain.TxTypeSetKeyValue,
		Namespace: "foo",
		Key:       "bar",
		Value:     []byte("baz"),
	}, priv)
	require.NoError(err)
	<-toEngine
	blk, err = vm.BuildBlock(ctx)
	require.NoError(err)
	require.NoError(blk.Verify(ctx))
	require.NoError(vm.SetPreference(ctx, blk.ID()))
	require.NoError(blk.Accept(ctx))

	exists, value, meta, err := cli.Resolve(ctx, "foo", "bar")
	require.NoError(err)
	require.True(exists)
	require.Equal([]byte("baz"), value)
	require.Equal(txID, meta.TxID)

	bal, err := cli.Balance(ctx, crypto.PubkeyToAddress(priv.PublicKey))
	require.NoError(err)
	require.Zero(bal)
}

func TestClientErrors(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	_, _, cli := newTestServer(t)

	priv, err := crypto.GenerateKey()
	require.NoError(err)
	_, err = cli.SignAndSubmit(ctx, &chain.TransactionData{
		Type:      chain.TxTypeSetKeyValue,
		Namespace: "missing",
		Key:       "bar",
		Value:     []byte("baz"),
	}, priv)
	require.ErrorContains(err, chain.ErrNamespaceMissing.Error())

	_, err = cli.SignAndSubmit(ctx, &chain.TransactionData{Type: "bogus", Namespace: "foo"}, priv)
	require.ErrorIs(err, chain.ErrUnknownTransactionType)

	_, err = cli.Tx(ctx, ids.GenerateTestID())
	require.Error(err)
}
