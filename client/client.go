// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package client

import (
	"context"
	"crypto/ecdsa"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/rpc"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/kvvm"
)

// Client defines kvvm client operations.
type Client interface {
	// Ping returns true if the node is ready to serve requests
	Ping(ctx context.Context) (bool, error)
	// Genesis returns the genesis of the chain
	Genesis(ctx context.Context) (*chain.Genesis, error)
	// LastAccepted returns the id, height and timestamp of the last accepted block
	LastAccepted(ctx context.Context) (ids.ID, uint64, uint64, error)
	// GetBlock fetches a block; the last accepted one if [blkID] is empty
	GetBlock(ctx context.Context, blkID ids.ID) (*kvvm.GetBlockReply, error)

	// SubmitTx issues a signed transaction
	SubmitTx(ctx context.Context, txBytes []byte) (ids.ID, error)
	// SignAndSubmit fills in the chain fields of [data], signs it with
	// [priv] and issues it
	SignAndSubmit(ctx context.Context, data *chain.TransactionData, priv *ecdsa.PrivateKey) (ids.ID, error)
	// Tx reports whether a transaction is accepted or pending
	Tx(ctx context.Context, txID ids.ID) (*kvvm.TxReply, error)

	Resolve(ctx context.Context, namespace string, key string) (bool, []byte, *chain.ValueMeta, error)
	Namespace(ctx context.Context, namespace string) (bool, *chain.NamespaceInfo, error)
	Balance(ctx context.Context, addr common.Address) (uint64, error)
}

// New creates a new client object. [uri] is the rpc endpoint of the chain.
func New(uri string) Client {
	req := rpc.NewEndpointRequester(uri)
	return &client{req: req}
}

type client struct {
	req rpc.EndpointRequester
}

func (cli *client) Ping(ctx context.Context) (bool, error) {
	resp := new(kvvm.PingReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.ping",
		struct{}{},
		resp,
	)
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (cli *client) Genesis(ctx context.Context) (*chain.Genesis, error) {
	resp := new(kvvm.GenesisReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.genesis",
		struct{}{},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp.Genesis, nil
}

func (cli *client) LastAccepted(ctx context.Context) (ids.ID, uint64, uint64, error) {
	resp := new(kvvm.LastAcceptedReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.lastAccepted",
		struct{}{},
		resp,
	)
	if err != nil {
		return ids.Empty, 0, 0, err
	}
	return resp.BlockID, uint64(resp.Height), uint64(resp.Timestamp), nil
}

func (cli *client) GetBlock(ctx context.Context, blkID ids.ID) (*kvvm.GetBlockReply, error) {
	resp := new(kvvm.GetBlockReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.getBlock",
		&kvvm.GetBlockArgs{ID: blkID},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) SubmitTx(ctx context.Context, txBytes []byte) (ids.ID, error) {
	encoded, err := formatting.Encode(formatting.Hex, txBytes)
	if err != nil {
		return ids.Empty, err
	}

	resp := new(kvvm.SubmitTxReply)
	err = cli.req.SendRequest(ctx,
		"kvvm.submitTx",
		&kvvm.SubmitTxArgs{Tx: encoded},
		resp,
	)
	if err != nil {
		return ids.Empty, err
	}
	return resp.TxID, nil
}

func (cli *client) SignAndSubmit(ctx context.Context, data *chain.TransactionData, priv *ecdsa.PrivateKey) (ids.ID, error) {
	g, err := cli.Genesis(ctx)
	if err != nil {
		return ids.Empty, err
	}
	if data.BlockID == ids.Empty {
		blkID, _, _, err := cli.LastAccepted(ctx)
		if err != nil {
			return ids.Empty, err
		}
		data.BlockID = blkID
	}
	data.Magic = g.Magic

	utx, err := data.Decode()
	if err != nil {
		return ids.Empty, err
	}
	sig, err := chain.Sign(utx, g.Magic, priv)
	if err != nil {
		return ids.Empty, err
	}
	tx := chain.NewTx(utx, sig)
	if err := tx.Init(g.Magic); err != nil {
		return ids.Empty, err
	}
	return cli.SubmitTx(ctx, tx.Bytes())
}

func (cli *client) Tx(ctx context.Context, txID ids.ID) (*kvvm.TxReply, error) {
	resp := new(kvvm.TxReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.tx",
		&kvvm.TxArgs{TxID: txID},
		resp,
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *client) Resolve(ctx context.Context, namespace string, key string) (bool, []byte, *chain.ValueMeta, error) {
	resp := new(kvvm.ResolveReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.resolve",
		&kvvm.ResolveArgs{Namespace: namespace, Key: key},
		resp,
	)
	if err != nil {
		return false, nil, nil, err
	}
	return resp.Exists, resp.Value, resp.Meta, nil
}

func (cli *client) Namespace(ctx context.Context, namespace string) (bool, *chain.NamespaceInfo, error) {
	resp := new(kvvm.NamespaceReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.namespace",
		&kvvm.NamespaceArgs{Namespace: namespace},
		resp,
	)
	if err != nil {
		return false, nil, err
	}
	return resp.Exists, resp.Info, nil
}

func (cli *client) Balance(ctx context.Context, addr common.Address) (uint64, error) {
	resp := new(kvvm.BalanceReply)
	err := cli.req.SendRequest(ctx,
		"kvvm.balance",
		&kvvm.BalanceArgs{Address: addr},
		resp,
	)
	if err != nil {
		return 0, err
	}
	return uint64(resp.Balance), nil
}
