// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package kvvm

import (
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "kvvm"

type metrics struct {
	txsSubmitted   prometheus.Counter
	txsRejected    prometheus.Counter
	txsAccepted    prometheus.Counter
	blocksBuilt    prometheus.Counter
	blocksVerified prometheus.Counter
	blocksAccepted prometheus.Counter
	blocksRejected prometheus.Counter
	mempoolSize    prometheus.Gauge
	mempoolPruned  prometheus.Counter
}

func newMetrics(r prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		txsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs_submitted",
			Help:      "number of txs added to the mempool (includes gossip)",
		}),
		txsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs_rejected",
			Help:      "number of submitted txs that failed validation",
		}),
		txsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "txs_accepted",
			Help:      "number of txs accepted",
		}),
		blocksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_built",
			Help:      "number of blocks built",
		}),
		blocksVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_verified",
			Help:      "number of blocks verified",
		}),
		blocksAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_accepted",
			Help:      "number of blocks accepted",
		}),
		blocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocks_rejected",
			Help:      "number of blocks rejected",
		}),
		mempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "mempool_size",
			Help:      "number of txs in the mempool",
		}),
		mempoolPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "mempool_pruned",
			Help:      "number of txs pruned from the mempool after leaving the lookback window",
		}),
	}
	errs := wrappers.Errs{}
	errs.Add(
		r.Register(m.txsSubmitted),
		r.Register(m.txsRejected),
		r.Register(m.txsAccepted),
		r.Register(m.blocksBuilt),
		r.Register(m.blocksVerified),
		r.Register(m.blocksAccepted),
		r.Register(m.blocksRejected),
		r.Register(m.mempoolSize),
		r.Register(m.mempoolPruned),
	)
	return m, errs.Err
}
