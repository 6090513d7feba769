// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/kvvm"
	"github.com/ava-labs/kvvm/local"

	log "github.com/inconshreveable/log15"
)

func main() {
	v, err := getViper()
	if err != nil {
		fmt.Printf("couldn't get config: %s\n", err)
		os.Exit(1)
	}
	switch {
	case v.GetBool(versionKey):
		fmt.Printf("%s@%s\n", kvvm.Name, kvvm.Version)
		os.Exit(0)
	case v.GetBool(vmIDKey):
		fmt.Println(kvvm.ID)
		os.Exit(0)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, v); err != nil {
		log.Error("kvvm exited", "error", err)
		os.Exit(1)
	}
}

// run serves a single node chain until [ctx] is done.
func run(ctx context.Context, v *viper.Viper) error {
	genesisBytes, err := readGenesis(v.GetString(genesisFileKey))
	if err != nil {
		return err
	}
	var configBytes []byte
	if path := v.GetString(configFileKey); path != "" {
		configBytes, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	node, err := local.Start(ctx, &local.Config{
		Genesis:     genesisBytes,
		ChainConfig: configBytes,
		Address:     net.JoinHostPort(v.GetString(httpHostKey), strconv.FormatUint(uint64(v.GetUint(httpPortKey)), 10)),
	})
	if err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return node.Stop(shutdownCtx)
}

func readGenesis(path string) ([]byte, error) {
	if path == "" {
		return json.Marshal(chain.DefaultGenesis())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis: %w", err)
	}
	return b, nil
}
