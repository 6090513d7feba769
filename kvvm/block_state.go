// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/cache/metercacher"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
	"github.com/ava-labs/avalanchego/snow/choices"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ava-labs/kvvm/chain"
)

const defaultBlockCacheSize = 8192

var (
	lastAcceptedKey = []byte("last_accepted")

	_ BlockState = (*blockState)(nil)
)

// BlockState persists decided blocks and tracks verified blocks that the
// engine has not decided yet.
type BlockState interface {
	GetBlock(ctx context.Context, blkID ids.ID) (*chain.StatelessBlock, error)
	PutBlock(blk *chain.StatelessBlock) error

	GetLastAccepted() (ids.ID, error)
	SetLastAccepted(ids.ID) error
	HasLastAccepted() (bool, error)

	AddVerified(blk *chain.StatelessBlock)
	GetVerified(blkID ids.ID) (*chain.StatelessBlock, bool)
	NumVerified() int

	// Decide persists [blk] with its final status and forgets it as
	// verified.
	Decide(blk *chain.StatelessBlock) error

	ClearCache()
}

// blockWrapper is the stored form of a block.
type blockWrapper struct {
	Blk    []byte         `serialize:"true"`
	Status choices.Status `serialize:"true"`
}

type blockState struct {
	vm chain.VM

	// lock is always acquired before [verifiedLock]
	lock     sync.Mutex
	blkCache cache.Cacher[ids.ID, *chain.StatelessBlock]
	blockDB  database.KeyValueReaderWriter

	verifiedLock sync.RWMutex
	verified     map[ids.ID]*chain.StatelessBlock
}

func NewBlockState(
	db database.KeyValueReaderWriter,
	vm chain.VM,
	cacheSize int,
	registerer prometheus.Registerer,
) (BlockState, error) {
	blkCache, err := metercacher.New[ids.ID, *chain.StatelessBlock](
		"block_cache",
		registerer,
		&cache.LRU[ids.ID, *chain.StatelessBlock]{Size: cacheSize},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cache: %w", err)
	}
	return &blockState{
		vm:       vm,
		blkCache: blkCache,
		blockDB:  db,
		verified: make(map[ids.ID]*chain.StatelessBlock),
	}, nil
}

func (s *blockState) GetBlock(ctx context.Context, blkID ids.ID) (*chain.StatelessBlock, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if blk, ok := s.blkCache.Get(blkID); ok {
		return blk, nil
	}

	wrappedBytes, err := s.blockDB.Get(chain.PrefixBlockKey(blkID))
	if err != nil {
		return nil, err
	}
	var wrapper blockWrapper
	if _, err := chain.Codec.Unmarshal(wrappedBytes, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stored block %s: %w", blkID, err)
	}
	blk, err := chain.ParseBlock(ctx, wrapper.Blk, wrapper.Status, s.vm)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored block %s: %w", blkID, err)
	}
	if blk.ID() != blkID {
		return nil, fmt.Errorf("%w: stored block %s has id %s", chain.ErrInvalidData, blkID, blk.ID())
	}

	s.blkCache.Put(blkID, blk)
	return blk, nil
}

func (s *blockState) PutBlock(blk *chain.StatelessBlock) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.putBlock(blk)
}

func (s *blockState) putBlock(blk *chain.StatelessBlock) error {
	wrappedBytes, err := chain.Codec.Marshal(chain.CodecVersion, &blockWrapper{
		Blk:    blk.Bytes(),
		Status: blk.Status(),
	})
	if err != nil {
		return err
	}

	blkID := blk.ID()
	if err := s.blockDB.Put(chain.PrefixBlockKey(blkID), wrappedBytes); err != nil {
		return err
	}
	s.blkCache.Put(blkID, blk)
	return nil
}

func (s *blockState) Decide(blk *chain.StatelessBlock) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.putBlock(blk); err != nil {
		return err
	}

	s.verifiedLock.Lock()
	delete(s.verified, blk.ID())
	s.verifiedLock.Unlock()
	return nil
}

func (s *blockState) GetLastAccepted() (ids.ID, error) {
	b, err := s.blockDB.Get(lastAcceptedKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ids.Empty, nil
	case err != nil:
		return ids.Empty, err
	}
	return ids.ToID(b)
}

func (s *blockState) SetLastAccepted(blkID ids.ID) error {
	return s.blockDB.Put(lastAcceptedKey, blkID[:])
}

func (s *blockState) HasLastAccepted() (bool, error) {
	return s.blockDB.Has(lastAcceptedKey)
}

func (s *blockState) AddVerified(blk *chain.StatelessBlock) {
	s.verifiedLock.Lock()
	defer s.verifiedLock.Unlock()

	s.verified[blk.ID()] = blk
}

func (s *blockState) GetVerified(blkID ids.ID) (*chain.StatelessBlock, bool) {
	s.verifiedLock.RLock()
	defer s.verifiedLock.RUnlock()

	blk, ok := s.verified[blkID]
	return blk, ok
}

func (s *blockState) NumVerified() int {
	s.verifiedLock.RLock()
	defer s.verifiedLock.RUnlock()

	return len(s.verified)
}

func (s *blockState) ClearCache() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.blkCache.Flush()
}
