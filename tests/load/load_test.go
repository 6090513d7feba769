// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// load implements the load tests.
package load_test

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"flag"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/onsi/ginkgo/v2/formatter"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/kvvm/chain"
	"github.com/ava-labs/kvvm/client"
	"github.com/ava-labs/kvvm/local"

	log "github.com/inconshreveable/log15"
	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestLoad(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "kvvm load test suites")
}

var (
	requestTimeout time.Duration
	workers        int
	txsPerWorker   int
)

func init() {
	flag.DurationVar(
		&requestTimeout,
		"request-timeout",
		2*time.Minute,
		"timeout for the whole load run",
	)
	flag.IntVar(
		&workers,
		"workers",
		8,
		"number of concurrent submitters",
	)
	flag.IntVar(
		&txsPerWorker,
		"txs-per-worker",
		50,
		"namespaces each submitter claims",
	)
}

var (
	node *local.Node
	cli  client.Client
)

var _ = ginkgo.BeforeSuite(func() {
	genesisBytes, err := json.Marshal(chain.DefaultGenesis())
	gomega.Ω(err).Should(gomega.BeNil())

	node, err = local.Start(context.Background(), &local.Config{
		Genesis:     genesisBytes,
		ChainConfig: []byte(`{"buildInterval":"20ms","mempoolSize":100000,"logLevel":"warn"}`),
	})
	gomega.Ω(err).Should(gomega.BeNil())
	cli = client.New(node.URI())
	outf("{{blue}}kvvm RPC:{{/}} %q\n", node.URI())
})

var _ = ginkgo.AfterSuite(func() {
	outf("{{red}}shutting down local node{{/}}\n")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gomega.Expect(node.Stop(ctx)).Should(gomega.BeNil())
})

var _ = ginkgo.Describe("[CreateNamespace]", func() {
	ginkgo.It("accepts every claimed namespace", func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < workers; w++ {
			w := w
			g.Go(func() error {
				defer ginkgo.GinkgoRecover()

				priv, err := crypto.GenerateKey()
				if err != nil {
					return err
				}
				return submitWorker(gctx, w, priv)
			})
		}
		gomega.Ω(g.Wait()).Should(gomega.BeNil())

		total := workers * txsPerWorker
		gomega.Eventually(func() bool {
			for w := 0; w < workers; w++ {
				for i := 0; i < txsPerWorker; i++ {
					exists, _, err := cli.Namespace(ctx, namespaceName(w, i))
					if err != nil || !exists {
						return false
					}
				}
			}
			return true
		}).WithContext(ctx).WithPolling(time.Second).Should(gomega.BeTrue())

		_, height, _, err := cli.LastAccepted(ctx)
		gomega.Ω(err).Should(gomega.BeNil())
		elapsed := time.Since(start)
		log.Info("performance",
			"txs", total,
			"height", height,
			"elapsed", elapsed,
			"tps", float64(total)/elapsed.Seconds(),
		)
	})
})

func submitWorker(ctx context.Context, w int, priv *ecdsa.PrivateKey) error {
	for i := 0; i < txsPerWorker; i++ {
		if _, err := cli.SignAndSubmit(ctx, &chain.TransactionData{
			Type:      chain.TxTypeCreateNamespace,
			Namespace: namespaceName(w, i),
		}, priv); err != nil {
			return fmt.Errorf("worker %d failed to submit tx %d: %w", w, i, err)
		}
	}
	return nil
}

func namespaceName(w, i int) string {
	return fmt.Sprintf("load-%d-%d", w, i)
}

// Outputs to stdout.
//
// e.g.,
//
//	Out("{{green}}{{bold}}hi there %q{{/}}", "aa")
//	Out("{{magenta}}{{bold}}hi therea{{/}} {{cyan}}{{underline}}b{{/}}")
//
// ref.
// https://github.com/onsi/ginkgo/blob/v2.0.0/formatter/formatter.go#L52-L73
func outf(format string, args ...interface{}) {
	s := formatter.F(format, args...)
	fmt.Fprint(formatter.ColorableStdOut, s)
}
