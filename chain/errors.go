// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"

	"github.com/ava-labs/avalanchego/database"
)

// Error kinds. Errors returned by this package wrap one of these (or none,
// in which case the kind is [KindOther]).
var (
	ErrNotFound         = database.ErrNotFound
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidData      = errors.New("invalid data")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnsupported      = errors.New("unsupported")
)

var (
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrInvalidMagic           = errors.New("invalid magic")
	ErrInvalidBlockID         = errors.New("invalid block id")
	ErrDuplicateTx            = errors.New("duplicate transaction")
	ErrInvalidNamespace       = errors.New("invalid namespace")
	ErrInvalidKey             = errors.New("invalid key")
	ErrValueTooBig            = errors.New("value too big")
	ErrNamespaceMissing       = errors.New("namespace missing")
	ErrNamespaceExists        = errors.New("namespace already claimed")
	ErrNotOwner               = errors.New("sender is not namespace owner")
	ErrTimestampTooEarly      = errors.New("block timestamp earlier than parent")
	ErrTimestampTooLate       = errors.New("block timestamp too far in the future")
	ErrInvalidHeight          = errors.New("invalid block height")
	ErrTooManyTxs             = errors.New("too many transactions")
)

const (
	KindNotFound         = "NotFound"
	KindAlreadyExists    = "AlreadyExists"
	KindInvalidData      = "InvalidData"
	KindInvalidSignature = "InvalidSignature"
	KindPermissionDenied = "PermissionDenied"
	KindUnsupported      = "Unsupported"
	KindOther            = "Other"
)

// ErrorKind maps [err] to the name of its kind.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrInvalidSignature):
		return KindInvalidSignature
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrInvalidData):
		return KindInvalidData
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	default:
		return KindOther
	}
}
