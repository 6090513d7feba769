// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"flag"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	versionKey     = "version"
	vmIDKey        = "vmID"
	genesisFileKey = "genesis-file"
	configFileKey  = "config-file"
	httpHostKey    = "http-host"
	httpPortKey    = "http-port"
)

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("kvvm", flag.ContinueOnError)

	fs.Bool(versionKey, false, "If true, prints Version and quit")
	fs.Bool(vmIDKey, false, "If true, prints vmID and quit")
	fs.String(genesisFileKey, "", "Path to the genesis JSON. The default genesis is used if empty")
	fs.String(configFileKey, "", "Path to the chain config JSON")
	fs.String(httpHostKey, "127.0.0.1", "Address of the HTTP server")
	fs.Uint(httpPortKey, 9650, "Port of the HTTP server")

	return fs
}

// getViper returns the viper environment for the binary
func getViper() (*viper.Viper, error) {
	v := viper.New()

	fs := buildFlagSet()
	pflag.CommandLine.AddGoFlagSet(fs)
	pflag.Parse()
	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	return v, nil
}
