// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/ava-labs/avalanchego/ids"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestTransactionInit(t *testing.T) {
	require := require.New(t)

	priv := newKey(t)
	tx := signTx(t, setKeyValue(ids.GenerateTestID(), "kvs", "foo", []byte("bar")), priv)
	require.NotEqual(ids.Empty, tx.ID())
	require.Equal(crypto.PubkeyToAddress(priv.PublicKey), tx.Sender())
	require.Equal(uint64(len(tx.Bytes())), tx.Size())
	require.NotEmpty(tx.DigestHash())

	parsed, err := ParseTx(tx.Bytes(), testMagic)
	require.NoError(err)
	require.Equal(tx.ID(), parsed.ID())
	require.Equal(tx.Sender(), parsed.Sender())
	require.Equal(tx.UnsignedTransaction, parsed.UnsignedTransaction)
}

func TestTransactionInitErrors(t *testing.T) {
	priv := newKey(t)
	blkID := ids.GenerateTestID()

	tests := []struct {
		name  string
		tx    func() *Transaction
		err   error
		magic uint64
	}{
		{
			name: "wrong magic",
			tx: func() *Transaction {
				utx := createNamespace(blkID, "kvs")
				sig, err := Sign(utx, testMagic, priv)
				require.NoError(t, err)
				return NewTx(utx, sig)
			},
			magic: testMagic + 1,
			err:   ErrInvalidMagic,
		},
		{
			name: "empty block id",
			tx: func() *Transaction {
				return NewTx(createNamespace(ids.Empty, "kvs"), make([]byte, crypto.SignatureLength))
			},
			magic: testMagic,
			err:   ErrInvalidBlockID,
		},
		{
			name: "invalid namespace",
			tx: func() *Transaction {
				return NewTx(createNamespace(blkID, "KVS/"), make([]byte, crypto.SignatureLength))
			},
			magic: testMagic,
			err:   ErrInvalidNamespace,
		},
		{
			name: "empty key",
			tx: func() *Transaction {
				return NewTx(setKeyValue(blkID, "kvs", "", nil), make([]byte, crypto.SignatureLength))
			},
			magic: testMagic,
			err:   ErrInvalidKey,
		},
		{
			name: "value too big",
			tx: func() *Transaction {
				return NewTx(setKeyValue(blkID, "kvs", "foo", make([]byte, MaxValueSize+1)), make([]byte, crypto.SignatureLength))
			},
			magic: testMagic,
			err:   ErrValueTooBig,
		},
		{
			name: "short signature",
			tx: func() *Transaction {
				return NewTx(createNamespace(blkID, "kvs"), []byte{1})
			},
			magic: testMagic,
			err:   ErrInvalidSignature,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.tx().Init(test.magic)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestMarshalTxs(t *testing.T) {
	require := require.New(t)

	priv := newKey(t)
	blkID := ids.GenerateTestID()
	txs := []*Transaction{
		signTx(t, createNamespace(blkID, "kvs"), priv),
		signTx(t, setKeyValue(blkID, "kvs", "foo", []byte("bar")), priv),
		signTx(t, deleteKey(blkID, "kvs", "foo"), priv),
	}
	b, err := MarshalTxs(txs)
	require.NoError(err)

	parsed, err := UnmarshalTxs(b, len(txs))
	require.NoError(err)
	require.Len(parsed, len(txs))
	for i, tx := range parsed {
		require.NoError(tx.Init(testMagic))
		require.Equal(txs[i].ID(), tx.ID())
	}

	_, err = UnmarshalTxs(b, len(txs)-1)
	require.ErrorIs(err, ErrTooManyTxs)

	_, err = UnmarshalTxs([]byte{0xff}, 10)
	require.ErrorIs(err, ErrInvalidData)
}

func TestTransactionDataDecode(t *testing.T) {
	require := require.New(t)
	blkID := ids.GenerateTestID()

	utx, err := (&TransactionData{
		Type:      TxTypeSetKeyValue,
		Namespace: "kvs",
		Key:       "foo",
		Value:     []byte("bar"),
		BlockID:   blkID,
		Magic:     testMagic,
	}).Decode()
	require.NoError(err)
	require.Equal(setKeyValue(blkID, "kvs", "foo", []byte("bar")), utx)

	utx, err = (&TransactionData{
		Type:      TxTypeCreateNamespace,
		Namespace: "kvs",
		BlockID:   blkID,
		Magic:     testMagic,
	}).Decode()
	require.NoError(err)
	require.IsType(&CreateNamespaceTx{}, utx)

	_, err = (&TransactionData{
		Type:      "transfer",
		Namespace: "kvs",
		Magic:     testMagic,
	}).Decode()
	require.ErrorIs(err, ErrUnknownTransactionType)
	require.Equal(KindInvalidData, ErrorKind(err))

	// Key is required outside of namespace creation
	_, err = (&TransactionData{
		Type:      TxTypeDeleteKey,
		Namespace: "kvs",
		Magic:     testMagic,
	}).Decode()
	require.ErrorIs(err, ErrInvalidData)
}
