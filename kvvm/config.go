// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/ava-labs/kvvm/builder"
	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/gossiper"
)

const (
	BuildIntervalKey     = "buildInterval"
	GossipIntervalKey    = "gossipInterval"
	RegossipBatchSizeKey = "regossipBatchSize"
	GossipCacheSizeKey   = "gossipCacheSize"
	MempoolSizeKey       = "mempoolSize"
	BlockCacheSizeKey    = "blockCacheSize"
	MaxBlockTxsKey       = "maxBlockTxs"
	LogLevelKey          = "logLevel"
)

// Config is the chain config of the VM.
type Config struct {
	BuildInterval     time.Duration `mapstructure:"buildInterval"`
	GossipInterval    time.Duration `mapstructure:"gossipInterval"`
	RegossipBatchSize int           `mapstructure:"regossipBatchSize"`
	GossipCacheSize   int           `mapstructure:"gossipCacheSize"`
	MempoolSize       int           `mapstructure:"mempoolSize"`
	BlockCacheSize    int           `mapstructure:"blockCacheSize"`
	MaxBlockTxs       int           `mapstructure:"maxBlockTxs"`
	LogLevel          string        `mapstructure:"logLevel"`
}

func setDefaults(v *viper.Viper, genesis *chain.Genesis) {
	gossipCfg := gossiper.DefaultConfig()
	v.SetDefault(BuildIntervalKey, builder.DefaultBuildInterval)
	v.SetDefault(GossipIntervalKey, genesis.BlockRate())
	v.SetDefault(RegossipBatchSizeKey, gossipCfg.RegossipBatchSize)
	v.SetDefault(GossipCacheSizeKey, gossipCfg.CacheSize)
	v.SetDefault(MempoolSizeKey, 2_048)
	v.SetDefault(BlockCacheSizeKey, defaultBlockCacheSize)
	v.SetDefault(MaxBlockTxsKey, 256)
	v.SetDefault(LogLevelKey, "info")
}

// ParseConfig reads the JSON chain config in [b]. Missing keys take their
// defaults; the gossip interval defaults to the target block rate.
func ParseConfig(b []byte, genesis *chain.Genesis) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, genesis)
	if len(b) > 0 {
		if err := v.ReadConfig(bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("%w: failed to read config: %w", chain.ErrInvalidData, err)
		}
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %w", chain.ErrInvalidData, err)
	}
	if err := c.Verify(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Verify() error {
	switch {
	case c.BuildInterval <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, BuildIntervalKey)
	case c.GossipInterval <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, GossipIntervalKey)
	case c.RegossipBatchSize <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, RegossipBatchSizeKey)
	case c.GossipCacheSize <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, GossipCacheSizeKey)
	case c.MempoolSize <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, MempoolSizeKey)
	case c.BlockCacheSize <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, BlockCacheSizeKey)
	case c.MaxBlockTxs <= 0:
		return fmt.Errorf("%w: %s must be positive", chain.ErrInvalidData, MaxBlockTxsKey)
	}
	return nil
}

func (c *Config) GossiperConfig() *gossiper.Config {
	return &gossiper.Config{
		GossipInterval:    c.GossipInterval,
		RegossipBatchSize: c.RegossipBatchSize,
		CacheSize:         c.GossipCacheSize,
		MaxGossipTxs:      c.MaxBlockTxs,
	}
}
