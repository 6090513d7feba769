// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/go-playground/validator/v10"
)

const (
	TxTypeCreateNamespace = "createNamespace"
	TxTypeSetKeyValue     = "setKeyValue"
	TxTypeDeleteKey       = "deleteKey"
)

var validate = validator.New()

// TransactionData is the loosely typed form of a transaction used by
// clients before signing.
type TransactionData struct {
	Type      string `json:"type" validate:"required"`
	Namespace string `json:"namespace" validate:"required,max=256"`
	Key       string `json:"key,omitempty" validate:"required_unless=Type createNamespace,max=256"`
	Value     []byte `json:"value,omitempty"`
	BlockID   ids.ID `json:"blockId"`
	Magic     uint64 `json:"magic" validate:"required"`
}

// Decode converts [d] into its concrete payload.
func (d *TransactionData) Decode() (UnsignedTransaction, error) {
	switch d.Type {
	case TxTypeCreateNamespace, TxTypeSetKeyValue, TxTypeDeleteKey:
	default:
		return nil, fmt.Errorf("%w: %w: %q", ErrInvalidData, ErrUnknownTransactionType, d.Type)
	}
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	base := &BaseTx{BlockID: d.BlockID, Magic: d.Magic}
	switch d.Type {
	case TxTypeCreateNamespace:
		return &CreateNamespaceTx{BaseTx: base, Namespace: d.Namespace}, nil
	case TxTypeSetKeyValue:
		return &SetKeyValueTx{BaseTx: base, Namespace: d.Namespace, Key: d.Key, Value: d.Value}, nil
	default:
		return &DeleteKeyTx{BaseTx: base, Namespace: d.Namespace, Key: d.Key}, nil
	}
}
