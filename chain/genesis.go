// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ava-labs/avalanchego/database"
	"github.com/ethereum/go-ethereum/common"
)

type Allocation struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

type Genesis struct {
	// Magic is the chain id used in the EIP-712 domain.
	Magic uint64 `json:"magic" validate:"required"`

	// TargetBlockRate is in seconds.
	TargetBlockRate uint64 `json:"target_block_rate" validate:"required"`

	// LookbackWindow bounds, in seconds, how far back a transaction's block
	// id may point and how far back replays are detected.
	LookbackWindow uint64 `json:"lookback_window" validate:"required"`

	Allocations []*Allocation `json:"allocations,omitempty" validate:"dive,required"`
}

func DefaultGenesis() *Genesis {
	return &Genesis{
		Magic:           1,
		TargetBlockRate: 1,
		LookbackWindow:  60,
	}
}

// ParseGenesis decodes and verifies the genesis JSON.
func ParseGenesis(b []byte) (*Genesis, error) {
	g := new(Genesis)
	if err := json.Unmarshal(b, g); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal genesis: %w", ErrInvalidData, err)
	}
	if err := g.Verify(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Genesis) Verify() error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("%w: invalid genesis: %w", ErrInvalidData, err)
	}
	return nil
}

func (g *Genesis) Lookback() time.Duration {
	return time.Duration(g.LookbackWindow) * time.Second
}

func (g *Genesis) BlockRate() time.Duration {
	return time.Duration(g.TargetBlockRate) * time.Second
}

// Load writes the genesis allocations into [db].
func (g *Genesis) Load(db database.KeyValueWriter) error {
	for _, alloc := range g.Allocations {
		if err := SetBalance(db, alloc.Address, alloc.Balance); err != nil {
			return fmt.Errorf("failed to allocate %s: %w", alloc.Address, err)
		}
	}
	return nil
}
