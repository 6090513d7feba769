// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/kvvm/builder"
	"github.com/ava-labs/kvvm/chain"
)

func TestParseConfigDefaults(t *testing.T) {
	require := require.New(t)

	genesis := chain.DefaultGenesis()
	genesis.TargetBlockRate = 2

	c, err := ParseConfig(nil, genesis)
	require.NoError(err)
	require.Equal(builder.DefaultBuildInterval, c.BuildInterval)
	require.Equal(2*time.Second, c.GossipInterval)
	require.Equal(2_048, c.MempoolSize)
	require.Equal(defaultBlockCacheSize, c.BlockCacheSize)
	require.Equal(256, c.MaxBlockTxs)
	require.Equal("info", c.LogLevel)

	gc := c.GossiperConfig()
	require.Equal(c.GossipInterval, gc.GossipInterval)
	require.Equal(c.MaxBlockTxs, gc.MaxGossipTxs)
}

func TestParseConfigOverrides(t *testing.T) {
	require := require.New(t)

	c, err := ParseConfig([]byte(`{
		"buildInterval": "250ms",
		"mempoolSize": 10,
		"maxBlockTxs": 5,
		"logLevel": "debug"
	}`), chain.DefaultGenesis())
	require.NoError(err)
	require.Equal(250*time.Millisecond, c.BuildInterval)
	require.Equal(10, c.MempoolSize)
	require.Equal(5, c.MaxBlockTxs)
	require.Equal("debug", c.LogLevel)
	require.Equal(time.Second, c.GossipInterval)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{
			name:   "malformed json",
			config: `{"mempoolSize":`,
		},
		{
			name:   "zero mempool",
			config: `{"mempoolSize": 0}`,
		},
		{
			name:   "negative block txs",
			config: `{"maxBlockTxs": -1}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(test.config), chain.DefaultGenesis())
			require.ErrorIs(t, err, chain.ErrInvalidData)
		})
	}
}
