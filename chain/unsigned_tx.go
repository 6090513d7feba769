// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	MaxNamespaceSize = 256
	MaxKeySize       = 256
	MaxValueSize     = 128 * units.KiB
)

var (
	_ UnsignedTransaction = (*CreateNamespaceTx)(nil)
	_ UnsignedTransaction = (*SetKeyValueTx)(nil)
	_ UnsignedTransaction = (*DeleteKeyTx)(nil)
)

// UnsignedTransaction is the closed set of transaction payloads:
// [*CreateNamespaceTx], [*SetKeyValueTx] and [*DeleteKeyTx].
type UnsignedTransaction interface {
	GetBlockID() ids.ID
	SetBlockID(ids.ID)
	GetMagic() uint64
	SetMagic(uint64)

	// TypedData is the EIP-712 message signed by the sender.
	TypedData(magic uint64) *apitypes.TypedData

	// ExecuteBase performs the stateless checks of the payload.
	ExecuteBase() error

	unsigned()
}

type BaseTx struct {
	// BlockID is a recently accepted block. A transaction is only valid while
	// this block is inside the lookback window.
	BlockID ids.ID `serialize:"true" json:"blockId"`

	// Magic is the id of the chain the transaction was signed for.
	Magic uint64 `serialize:"true" json:"magic"`
}

func (b *BaseTx) GetBlockID() ids.ID { return b.BlockID }

func (b *BaseTx) SetBlockID(blkID ids.ID) { b.BlockID = blkID }

func (b *BaseTx) GetMagic() uint64 { return b.Magic }

func (b *BaseTx) SetMagic(magic uint64) { b.Magic = magic }

func (*BaseTx) unsigned() {}

func (b *BaseTx) ExecuteBase() error {
	if b.BlockID == ids.Empty {
		return fmt.Errorf("%w: %w", ErrInvalidData, ErrInvalidBlockID)
	}
	if b.Magic == 0 {
		return fmt.Errorf("%w: %w: zero", ErrInvalidData, ErrInvalidMagic)
	}
	return nil
}

func verifyNamespace(namespace string) error {
	if len(namespace) == 0 || len(namespace) > MaxNamespaceSize {
		return fmt.Errorf("%w: %w: length %d", ErrInvalidData, ErrInvalidNamespace, len(namespace))
	}
	for i := 0; i < len(namespace); i++ {
		c := namespace[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return fmt.Errorf("%w: %w: %q contains %q", ErrInvalidData, ErrInvalidNamespace, namespace, c)
		}
	}
	return nil
}

func verifyKey(key string) error {
	if len(key) == 0 || len(key) > MaxKeySize {
		return fmt.Errorf("%w: %w: length %d", ErrInvalidData, ErrInvalidKey, len(key))
	}
	return nil
}

// CreateNamespaceTx claims [Namespace] for the sender.
type CreateNamespaceTx struct {
	*BaseTx   `serialize:"true" json:"baseTx"`
	Namespace string `serialize:"true" json:"namespace"`
}

func (utx *CreateNamespaceTx) ExecuteBase() error {
	if err := utx.BaseTx.ExecuteBase(); err != nil {
		return err
	}
	return verifyNamespace(utx.Namespace)
}

func (utx *CreateNamespaceTx) TypedData(magic uint64) *apitypes.TypedData {
	return createTypedData(
		magic,
		"CreateNamespace",
		[]apitypes.Type{
			{Name: tdNamespace, Type: tdString},
			{Name: tdBlockID, Type: tdString},
		},
		apitypes.TypedDataMessage{
			tdNamespace: utx.Namespace,
			tdBlockID:   utx.BlockID.String(),
		},
	)
}

// SetKeyValueTx writes [Value] at [Key] inside an existing namespace.
type SetKeyValueTx struct {
	*BaseTx   `serialize:"true" json:"baseTx"`
	Namespace string `serialize:"true" json:"namespace"`
	Key       string `serialize:"true" json:"key"`
	Value     []byte `serialize:"true" json:"value"`
}

func (utx *SetKeyValueTx) ExecuteBase() error {
	if err := utx.BaseTx.ExecuteBase(); err != nil {
		return err
	}
	if err := verifyNamespace(utx.Namespace); err != nil {
		return err
	}
	if err := verifyKey(utx.Key); err != nil {
		return err
	}
	if len(utx.Value) > MaxValueSize {
		return fmt.Errorf("%w: %w: %d > %d", ErrInvalidData, ErrValueTooBig, len(utx.Value), MaxValueSize)
	}
	return nil
}

func (utx *SetKeyValueTx) TypedData(magic uint64) *apitypes.TypedData {
	return createTypedData(
		magic,
		"SetKeyValue",
		[]apitypes.Type{
			{Name: tdNamespace, Type: tdString},
			{Name: tdKey, Type: tdString},
			{Name: tdValue, Type: tdBytes},
			{Name: tdBlockID, Type: tdString},
		},
		apitypes.TypedDataMessage{
			tdNamespace: utx.Namespace,
			tdKey:       utx.Key,
			tdValue:     hexutil.Bytes(utx.Value),
			tdBlockID:   utx.BlockID.String(),
		},
	)
}

// DeleteKeyTx removes [Key] from a namespace.
type DeleteKeyTx struct {
	*BaseTx   `serialize:"true" json:"baseTx"`
	Namespace string `serialize:"true" json:"namespace"`
	Key       string `serialize:"true" json:"key"`
}

func (utx *DeleteKeyTx) ExecuteBase() error {
	if err := utx.BaseTx.ExecuteBase(); err != nil {
		return err
	}
	if err := verifyNamespace(utx.Namespace); err != nil {
		return err
	}
	return verifyKey(utx.Key)
}

func (utx *DeleteKeyTx) TypedData(magic uint64) *apitypes.TypedData {
	return createTypedData(
		magic,
		"DeleteKey",
		[]apitypes.Type{
			{Name: tdNamespace, Type: tdString},
			{Name: tdKey, Type: tdString},
			{Name: tdBlockID, Type: tdString},
		},
		apitypes.TypedDataMessage{
			tdNamespace: utx.Namespace,
			tdKey:       utx.Key,
			tdBlockID:   utx.BlockID.String(),
		},
	)
}
