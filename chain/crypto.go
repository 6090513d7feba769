// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// legacyRecoveryOffset is added to the recovery id by Ethereum's legacy
// signature encoding ([R || S || V] with V in {27, 28}).
const legacyRecoveryOffset = 27

// Recover returns the public key that produced [sig] over [hash].
// Recovery ids carrying the legacy offset are normalized first.
func Recover(hash []byte, sig []byte) (*ecdsa.PublicKey, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf(
			"%w: %w: signature has length %d, expected %d",
			ErrInvalidSignature,
			ErrInvalidData,
			len(sig),
			crypto.SignatureLength,
		)
	}

	// Don't mutate the caller's signature
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if v := normalized[crypto.RecoveryIDOffset]; v >= legacyRecoveryOffset {
		normalized[crypto.RecoveryIDOffset] = v - legacyRecoveryOffset
	}

	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return pub, nil
}

// RecoverAddress is [Recover] followed by [PublicKeyToAddress].
func RecoverAddress(hash []byte, sig []byte) (common.Address, error) {
	pub, err := Recover(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return PublicKeyToAddress(pub), nil
}

func PublicKeyToAddress(pub *ecdsa.PublicKey) common.Address {
	return crypto.PubkeyToAddress(*pub)
}

// Sign produces a recoverable signature over the digest hash of [utx].
func Sign(utx UnsignedTransaction, magic uint64, priv *ecdsa.PrivateKey) ([]byte, error) {
	hash, err := DigestHash(utx, magic)
	if err != nil {
		return nil, err
	}
	return crypto.Sign(hash, priv)
}
