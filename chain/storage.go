// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/ethereum/go-ethereum/common"
)

// Key layout: [prefix] + [ByteDelimiter] + [id or key bytes].
//
//	0x0/<blockID>           -> block record
//	0x1/<txID>              -> transaction bytes
//	0x2/<txID>              -> raw value written by that transaction
//	0x3/<namespace>         -> namespace info
//	0x3/<namespace>/<key>   -> value metadata
//	0x4/<address>           -> balance
const (
	blockPrefix     byte = 0x0
	txPrefix        byte = 0x1
	txValuePrefix   byte = 0x2
	namespacePrefix byte = 0x3
	balancePrefix   byte = 0x4

	ByteDelimiter byte = '/'
)

// NamespaceInfo is the metadata stored for every claimed namespace.
type NamespaceInfo struct {
	Owner   common.Address `serialize:"true" json:"owner"`
	Created uint64         `serialize:"true" json:"created"`
	Updated uint64         `serialize:"true" json:"updated"`
}

// ValueMeta is the metadata stored for every key in a namespace. The value
// itself lives under the id of the transaction that wrote it.
type ValueMeta struct {
	Size    uint64 `serialize:"true" json:"size"`
	TxID    ids.ID `serialize:"true" json:"txId"`
	Created uint64 `serialize:"true" json:"created"`
	Updated uint64 `serialize:"true" json:"updated"`
}

func prefixed(prefix byte, parts ...[]byte) []byte {
	l := 1
	for _, p := range parts {
		l += 1 + len(p)
	}
	k := make([]byte, 0, l)
	k = append(k, prefix)
	for _, p := range parts {
		k = append(k, ByteDelimiter)
		k = append(k, p...)
	}
	return k
}

func PrefixBlockKey(blkID ids.ID) []byte { return prefixed(blockPrefix, blkID[:]) }

func PrefixTxKey(txID ids.ID) []byte { return prefixed(txPrefix, txID[:]) }

func PrefixTxValueKey(txID ids.ID) []byte { return prefixed(txValuePrefix, txID[:]) }

func PrefixNamespaceKey(namespace string) []byte {
	return prefixed(namespacePrefix, []byte(namespace))
}

func PrefixValueKey(namespace string, key string) []byte {
	return prefixed(namespacePrefix, []byte(namespace), []byte(key))
}

func PrefixBalanceKey(addr common.Address) []byte { return prefixed(balancePrefix, addr[:]) }

// get returns (nil, false, nil) when [k] is missing.
func get(db database.KeyValueReader, k []byte) ([]byte, bool, error) {
	v, err := db.Get(k)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return v, true, nil
}

func GetNamespaceInfo(db database.KeyValueReader, namespace string) (*NamespaceInfo, bool, error) {
	b, ok, err := get(db, PrefixNamespaceKey(namespace))
	if err != nil || !ok {
		return nil, ok, err
	}
	info := new(NamespaceInfo)
	if _, err := Codec.Unmarshal(b, info); err != nil {
		return nil, false, fmt.Errorf("failed to parse namespace %q: %w", namespace, err)
	}
	return info, true, nil
}

func PutNamespaceInfo(db database.KeyValueWriter, namespace string, info *NamespaceInfo) error {
	b, err := Codec.Marshal(CodecVersion, info)
	if err != nil {
		return err
	}
	return db.Put(PrefixNamespaceKey(namespace), b)
}

func GetValueMeta(db database.KeyValueReader, namespace string, key string) (*ValueMeta, bool, error) {
	b, ok, err := get(db, PrefixValueKey(namespace, key))
	if err != nil || !ok {
		return nil, ok, err
	}
	meta := new(ValueMeta)
	if _, err := Codec.Unmarshal(b, meta); err != nil {
		return nil, false, fmt.Errorf("failed to parse value meta %q/%q: %w", namespace, key, err)
	}
	return meta, true, nil
}

// PutValue stores [meta] under the namespace key and [value] under the
// writing transaction.
func PutValue(db database.KeyValueWriter, namespace string, key string, meta *ValueMeta, value []byte) error {
	b, err := Codec.Marshal(CodecVersion, meta)
	if err != nil {
		return err
	}
	if err := db.Put(PrefixValueKey(namespace, key), b); err != nil {
		return err
	}
	return db.Put(PrefixTxValueKey(meta.TxID), value)
}

func DeleteValue(db database.KeyValueDeleter, namespace string, key string, meta *ValueMeta) error {
	if err := db.Delete(PrefixValueKey(namespace, key)); err != nil {
		return err
	}
	return db.Delete(PrefixTxValueKey(meta.TxID))
}

// GetValue resolves [namespace]/[key] to the stored value.
func GetValue(db database.KeyValueReader, namespace string, key string) ([]byte, bool, error) {
	meta, ok, err := GetValueMeta(db, namespace, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return get(db, PrefixTxValueKey(meta.TxID))
}

func SetTransaction(db database.KeyValueWriter, tx *Transaction) error {
	return db.Put(PrefixTxKey(tx.ID()), tx.Bytes())
}

func HasTransaction(db database.KeyValueReader, txID ids.ID) (bool, error) {
	return db.Has(PrefixTxKey(txID))
}

// GetTransaction loads and initializes the accepted transaction [txID].
func GetTransaction(db database.KeyValueReader, txID ids.ID, magic uint64) (*Transaction, bool, error) {
	b, ok, err := get(db, PrefixTxKey(txID))
	if err != nil || !ok {
		return nil, ok, err
	}
	tx, err := ParseTx(b, magic)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse transaction %s: %w", txID, err)
	}
	return tx, true, nil
}

func SetBalance(db database.KeyValueWriter, addr common.Address, bal uint64) error {
	b := make([]byte, wrappers.LongLen)
	binary.BigEndian.PutUint64(b, bal)
	return db.Put(PrefixBalanceKey(addr), b)
}

func GetBalance(db database.KeyValueReader, addr common.Address) (uint64, error) {
	b, ok, err := get(db, PrefixBalanceKey(addr))
	if err != nil || !ok {
		return 0, err
	}
	if len(b) != wrappers.LongLen {
		return 0, fmt.Errorf("%w: balance of %s has length %d", ErrInvalidData, addr, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
