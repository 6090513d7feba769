// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"fmt"
	"net/http"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/formatting"
	"github.com/ava-labs/avalanchego/utils/json"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/ava-labs/kvvm/chain"
)

// Service is the JSON-RPC API of the VM.
type Service struct{ vm *VM }

// apiError carries the kind of [err] so clients can tell failures apart.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	kind := chain.ErrorKind(err)
	code := json2.E_SERVER
	switch kind {
	case chain.KindInvalidData, chain.KindInvalidSignature:
		code = json2.E_BAD_PARAMS
	}
	return &json2.Error{
		Code:    code,
		Message: err.Error(),
		Data:    kind,
	}
}

type PingReply struct {
	Success bool `json:"success"`
}

func (*Service) Ping(_ *http.Request, _ *struct{}, reply *PingReply) error {
	reply.Success = true
	return nil
}

type GenesisReply struct {
	Genesis *chain.Genesis `json:"genesis"`
}

func (s *Service) Genesis(_ *http.Request, _ *struct{}, reply *GenesisReply) error {
	reply.Genesis = s.vm.Genesis()
	return nil
}

type LastAcceptedReply struct {
	Height    json.Uint64 `json:"height"`
	BlockID   ids.ID      `json:"blockId"`
	Timestamp json.Uint64 `json:"timestamp"`
}

func (s *Service) LastAccepted(_ *http.Request, _ *struct{}, reply *LastAcceptedReply) error {
	blk := s.vm.LastAcceptedBlock()
	reply.Height = json.Uint64(blk.Hght)
	reply.BlockID = blk.ID()
	reply.Timestamp = json.Uint64(blk.Tmstmp)
	return nil
}

type GetBlockArgs struct {
	// ID of the block. The last accepted block if empty.
	ID ids.ID `json:"id"`
}

type GetBlockReply struct {
	ID        ids.ID      `json:"id"`
	ParentID  ids.ID      `json:"parentId"`
	Height    json.Uint64 `json:"height"`
	Timestamp json.Uint64 `json:"timestamp"`
	Status    string      `json:"status"`
	TxIDs     []ids.ID    `json:"txIds"`
}

func (s *Service) GetBlock(r *http.Request, args *GetBlockArgs, reply *GetBlockReply) error {
	blkID := args.ID
	if blkID == ids.Empty {
		blkID = s.vm.LastAcceptedBlock().ID()
	}
	blk, err := s.vm.GetBlock(r.Context(), blkID)
	if err != nil {
		return apiError(err)
	}
	reply.ID = blk.ID()
	reply.ParentID = blk.Parent()
	reply.Height = json.Uint64(blk.Hght)
	reply.Timestamp = json.Uint64(blk.Tmstmp)
	reply.Status = blk.Status().String()
	reply.TxIDs = blk.TxIDs()
	return nil
}

type SubmitTxArgs struct {
	// Hex encoded signed transaction
	Tx string `json:"tx"`
}

type SubmitTxReply struct {
	TxID ids.ID `json:"txId"`
}

func (s *Service) SubmitTx(r *http.Request, args *SubmitTxArgs, reply *SubmitTxReply) error {
	txBytes, err := formatting.Decode(formatting.Hex, args.Tx)
	if err != nil {
		return apiError(fmt.Errorf("%w: failed to decode tx: %w", chain.ErrInvalidData, err))
	}
	txID, err := s.vm.SubmitTx(r.Context(), txBytes)
	if err != nil {
		return apiError(err)
	}
	reply.TxID = txID
	return nil
}

type ResolveArgs struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
}

type ResolveReply struct {
	Exists bool             `json:"exists"`
	Value  []byte           `json:"value"`
	Meta   *chain.ValueMeta `json:"meta"`
}

func (s *Service) Resolve(_ *http.Request, args *ResolveArgs, reply *ResolveReply) error {
	value, meta, exists, err := s.vm.Resolve(args.Namespace, args.Key)
	if err != nil {
		return apiError(err)
	}
	reply.Exists = exists
	reply.Value = value
	reply.Meta = meta
	return nil
}

type NamespaceArgs struct {
	Namespace string `json:"namespace"`
}

type NamespaceReply struct {
	Exists bool                 `json:"exists"`
	Info   *chain.NamespaceInfo `json:"info"`
}

func (s *Service) Namespace(_ *http.Request, args *NamespaceArgs, reply *NamespaceReply) error {
	info, exists, err := s.vm.NamespaceInfo(args.Namespace)
	if err != nil {
		return apiError(err)
	}
	reply.Exists = exists
	reply.Info = info
	return nil
}

type BalanceArgs struct {
	Address common.Address `json:"address"`
}

type BalanceReply struct {
	Balance json.Uint64 `json:"balance"`
}

func (s *Service) Balance(_ *http.Request, args *BalanceArgs, reply *BalanceReply) error {
	bal, err := s.vm.Balance(args.Address)
	if err != nil {
		return apiError(err)
	}
	reply.Balance = json.Uint64(bal)
	return nil
}

type TxArgs struct {
	TxID ids.ID `json:"txId"`
}

type TxReply struct {
	Accepted bool           `json:"accepted"`
	Pending  bool           `json:"pending"`
	Sender   common.Address `json:"sender"`

	// Signed transaction bytes, see [chain.ParseTx]
	Tx []byte `json:"tx"`
}

// Tx reports whether [TxID] is accepted or still in the mempool.
func (s *Service) Tx(r *http.Request, args *TxArgs, reply *TxReply) error {
	tx, accepted, err := s.vm.GetTransaction(args.TxID)
	if err != nil {
		return apiError(err)
	}
	if !accepted {
		tx, reply.Pending = s.vm.mempool.Get(r.Context(), args.TxID)
	}
	if !accepted && !reply.Pending {
		return apiError(database.ErrNotFound)
	}
	reply.Accepted = accepted
	reply.Sender = tx.Sender()
	reply.Tx = tx.Bytes()
	return nil
}
