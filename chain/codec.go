// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"github.com/ava-labs/avalanchego/codec"
	"github.com/ava-labs/avalanchego/codec/linearcodec"
	"github.com/ava-labs/avalanchego/utils/units"
	"github.com/ava-labs/avalanchego/utils/wrappers"
)

const (
	// CodecVersion is the current default codec version
	CodecVersion = 0

	maxCodecSize = 2 * units.MiB
)

// Codecs do serialization and deserialization
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewManager(maxCodecSize)

	// Registration order assigns the type tag of each transaction variant.
	// New variants must only ever be appended.
	errs := wrappers.Errs{}
	errs.Add(
		c.RegisterType(&CreateNamespaceTx{}),
		c.RegisterType(&SetKeyValueTx{}),
		c.RegisterType(&DeleteKeyTx{}),
	)
	errs.Add(
		Codec.RegisterCodec(CodecVersion, c),
	)
	if errs.Errored() {
		panic(errs.Err)
	}
}
