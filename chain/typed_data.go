// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	domainName = "kvvm"

	tdString  = "string"
	tdBytes   = "bytes"
	tdUint256 = "uint256"

	tdNamespace = "namespace"
	tdKey       = "key"
	tdValue     = "value"
	tdBlockID   = "blockID"

	eip712Domain = "EIP712Domain"
)

// createTypedData wraps [message] in the EIP-712 envelope shared by every
// transaction variant. The chain magic is the domain chainId, so a
// signature is only valid on the chain it was produced for.
func createTypedData(
	magic uint64,
	primaryType string,
	fields []apitypes.Type,
	message apitypes.TypedDataMessage,
) *apitypes.TypedData {
	return &apitypes.TypedData{
		Types: apitypes.Types{
			primaryType: fields,
			eip712Domain: {
				{Name: "name", Type: tdString},
				{Name: "chainId", Type: tdUint256},
			},
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    domainName,
			ChainId: (*math.HexOrDecimal256)(new(big.Int).SetUint64(magic)),
		},
		Message: message,
	}
}

// DigestHash computes the structured-data hash that is signed by the sender.
func DigestHash(utx UnsignedTransaction, magic uint64) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(*utx.TypedData(magic))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to hash typed data: %w", ErrInvalidData, err)
	}
	return hash, nil
}
