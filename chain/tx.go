// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/hashing"
	"github.com/ethereum/go-ethereum/common"
)

type Transaction struct {
	UnsignedTransaction `serialize:"true" json:"unsignedTransaction"`
	Signature           []byte `serialize:"true" json:"signature"`

	digestHash []byte
	bytes      []byte
	id         ids.ID
	size       uint64
	sender     common.Address
}

func NewTx(utx UnsignedTransaction, sig []byte) *Transaction {
	return &Transaction{
		UnsignedTransaction: utx,
		Signature:           sig,
	}
}

// Init runs the stateless checks of the payload, recovers the sender and
// computes the canonical bytes and id.
func (t *Transaction) Init(magic uint64) error {
	if t.UnsignedTransaction == nil {
		return fmt.Errorf("%w: missing unsigned transaction", ErrInvalidData)
	}
	if err := t.ExecuteBase(); err != nil {
		return err
	}
	if m := t.GetMagic(); m != magic {
		return fmt.Errorf("%w: %w: expected %d, got %d", ErrInvalidData, ErrInvalidMagic, magic, m)
	}

	dh, err := DigestHash(t.UnsignedTransaction, magic)
	if err != nil {
		return err
	}
	t.digestHash = dh

	sender, err := RecoverAddress(dh, t.Signature)
	if err != nil {
		return err
	}
	t.sender = sender

	stx, err := Codec.Marshal(CodecVersion, t)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}
	t.bytes = stx
	t.id = hashing.ComputeHash256Array(stx)
	t.size = uint64(len(stx))
	return nil
}

func (t *Transaction) Bytes() []byte { return t.bytes }

func (t *Transaction) Size() uint64 { return t.size }

func (t *Transaction) ID() ids.ID { return t.id }

func (t *Transaction) DigestHash() []byte { return t.digestHash }

func (t *Transaction) Sender() common.Address { return t.sender }

// ParseTx unmarshals and initializes a single transaction.
func ParseTx(b []byte, magic uint64) (*Transaction, error) {
	tx := new(Transaction)
	if _, err := Codec.Unmarshal(b, tx); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal transaction: %w", ErrInvalidData, err)
	}
	if err := tx.Init(magic); err != nil {
		return nil, err
	}
	return tx, nil
}

// MarshalTxs encodes a batch of signed transactions for gossip.
func MarshalTxs(txs []*Transaction) ([]byte, error) {
	return Codec.Marshal(CodecVersion, txs)
}

// UnmarshalTxs decodes (but does not initialize) a gossip batch of at most
// [maxCount] transactions.
func UnmarshalTxs(b []byte, maxCount int) ([]*Transaction, error) {
	var txs []*Transaction
	if _, err := Codec.Unmarshal(b, &txs); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal txs: %w", ErrInvalidData, err)
	}
	if len(txs) > maxCount {
		return nil, fmt.Errorf("%w: %w: %d > %d", ErrInvalidData, ErrTooManyTxs, len(txs), maxCount)
	}
	for i, tx := range txs {
		if tx == nil {
			return nil, fmt.Errorf("%w: nil transaction at index %d", ErrInvalidData, i)
		}
	}
	return txs, nil
}
