// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/common"
)

// TransactionContext is everything execution may read besides the payload.
type TransactionContext struct {
	Database  database.KeyValueReaderWriterDeleter
	BlockTime uint64
	TxID      ids.ID
	Sender    common.Address
}

// Execute applies [t] on top of [db] and records it in the transaction
// index. [t] must have been initialized.
func (t *Transaction) Execute(db database.KeyValueReaderWriterDeleter, blockTime uint64) error {
	tc := &TransactionContext{
		Database:  db,
		BlockTime: blockTime,
		TxID:      t.id,
		Sender:    t.sender,
	}
	if err := execute(tc, t.UnsignedTransaction); err != nil {
		return err
	}
	return SetTransaction(db, t)
}

func execute(tc *TransactionContext, utx UnsignedTransaction) error {
	switch utx := utx.(type) {
	case *CreateNamespaceTx:
		return executeCreateNamespace(tc, utx)
	case *SetKeyValueTx:
		return executeSetKeyValue(tc, utx)
	case *DeleteKeyTx:
		return executeDeleteKey(tc, utx)
	default:
		return fmt.Errorf("%w: %w: %T", ErrInvalidData, ErrUnknownTransactionType, utx)
	}
}

func executeCreateNamespace(tc *TransactionContext, utx *CreateNamespaceTx) error {
	_, exists, err := GetNamespaceInfo(tc.Database, utx.Namespace)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %w: %q", ErrAlreadyExists, ErrNamespaceExists, utx.Namespace)
	}
	return PutNamespaceInfo(tc.Database, utx.Namespace, &NamespaceInfo{
		Owner:   tc.Sender,
		Created: tc.BlockTime,
		Updated: tc.BlockTime,
	})
}

// ownedNamespace loads the namespace and enforces that the sender owns it.
// Ownership is enforced for every write into a namespace.
func ownedNamespace(tc *TransactionContext, namespace string) (*NamespaceInfo, error) {
	info, exists, err := GetNamespaceInfo(tc.Database, namespace)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %w: %q", ErrNotFound, ErrNamespaceMissing, namespace)
	}
	if info.Owner != tc.Sender {
		return nil, fmt.Errorf(
			"%w: %w: %q is owned by %s, not %s",
			ErrPermissionDenied,
			ErrNotOwner,
			namespace,
			info.Owner,
			tc.Sender,
		)
	}
	return info, nil
}

func executeSetKeyValue(tc *TransactionContext, utx *SetKeyValueTx) error {
	info, err := ownedNamespace(tc, utx.Namespace)
	if err != nil {
		return err
	}

	meta := &ValueMeta{
		Size:    uint64(len(utx.Value)),
		TxID:    tc.TxID,
		Created: tc.BlockTime,
		Updated: tc.BlockTime,
	}
	prev, exists, err := GetValueMeta(tc.Database, utx.Namespace, utx.Key)
	if err != nil {
		return err
	}
	if exists {
		meta.Created = prev.Created
		if prev.TxID != tc.TxID {
			if err := tc.Database.Delete(PrefixTxValueKey(prev.TxID)); err != nil {
				return err
			}
		}
	}
	if err := PutValue(tc.Database, utx.Namespace, utx.Key, meta, utx.Value); err != nil {
		return err
	}

	info.Updated = tc.BlockTime
	return PutNamespaceInfo(tc.Database, utx.Namespace, info)
}

func executeDeleteKey(tc *TransactionContext, utx *DeleteKeyTx) error {
	meta, exists, err := GetValueMeta(tc.Database, utx.Namespace, utx.Key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	info, err := ownedNamespace(tc, utx.Namespace)
	if err != nil {
		return err
	}
	if err := DeleteValue(tc.Database, utx.Namespace, utx.Key, meta); err != nil {
		return err
	}

	info.Updated = tc.BlockTime
	return PutNamespaceInfo(tc.Database, utx.Namespace, info)
}
