package state

import (
	"time"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/indexer"
	"github.com/lunfardo314/utxobatch/ledger/utxopool"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// TxHandler owns the pool of unspent outputs and applies batches of transactions to it.
	// It is not thread safe, except Stats
	TxHandler struct {
		pool     *utxopool.Pool
		verifier ledger.SignatureVerifier
		log      *zap.SugaredLogger
		indexer  *indexer.Indexer
		metrics  bool

		numAccepted atomic.Uint64
		numRejected atomic.Uint64
		numBatches  atomic.Uint64
	}

	Option func(h *TxHandler)
)

func WithVerifier(v ledger.SignatureVerifier) Option {
	return func(h *TxHandler) {
		h.verifier = v
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(h *TxHandler) {
		h.log = log
	}
}

// WithIndexer keeps the owner index up to date with the pool. The index is initialized from the pool
func WithIndexer(inr *indexer.Indexer) Option {
	return func(h *TxHandler) {
		h.indexer = inr
	}
}

// WithMetrics enables collection of Prometheus metrics
func WithMetrics(enable bool) Option {
	return func(h *TxHandler) {
		h.metrics = enable
	}
}

// NewTxHandler creates the handler with a deep copy of the pool. The pool passed by
// the caller is never changed by the handler
func NewTxHandler(pool *utxopool.Pool, opts ...Option) (*TxHandler, error) {
	ret := &TxHandler{
		verifier: ledger.ED25519Verifier,
		log:      zap.NewNop().Sugar(),
	}
	if pool != nil {
		ret.pool = pool.Clone()
	} else {
		ret.pool = utxopool.NewEmpty()
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.verifier == nil {
		ret.verifier = ledger.ED25519Verifier
	}
	if ret.indexer != nil {
		if err := ret.indexer.IndexPool(ret.pool.IDs(), ret.pool); err != nil {
			return nil, err
		}
	}
	if ret.metrics {
		initPrometheusMetrics()
		prometheusPoolSize.Set(float64(ret.pool.Len()))
	}
	return ret, nil
}

// UTXOPool returns a copy of the current pool
func (h *TxHandler) UTXOPool() *utxopool.Pool {
	return h.pool.Clone()
}

func (h *TxHandler) GetUTXO(oid ledger.OutputID) (*ledger.Output, bool) {
	return h.pool.GetUTXO(oid)
}

func (h *TxHandler) Verifier() ledger.SignatureVerifier {
	return h.verifier
}

func (h *TxHandler) Indexer() *indexer.Indexer {
	return h.indexer
}

// IsValidTx checks the transaction against the current pool
func (h *TxHandler) IsValidTx(tx *ledger.Transaction) bool {
	return IsValidTx(h.pool, tx, h.verifier)
}

// CheckTransaction is IsValidTx with the reasons of rejection
func (h *TxHandler) CheckTransaction(tx *ledger.Transaction) error {
	return CheckTransaction(h.pool, tx, h.verifier)
}

// HandleTxs processes candidates in the given order. Each valid transaction is accepted and
// applied to the pool before the next one is checked, so from the conflicting transactions
// the first one wins. Accepted transactions are finalized and returned in the order of acceptance.
// Invalid transactions are skipped
func (h *TxHandler) HandleTxs(txs []*ledger.Transaction) []*ledger.Transaction {
	return h.HandleTxsWithVerifier(txs, h.verifier)
}

// HandleTxsWithVerifier is HandleTxs with the verifier for this batch only. The verifier
// must give the same results as the handler's verifier
func (h *TxHandler) HandleTxsWithVerifier(txs []*ledger.Transaction, verifier ledger.SignatureVerifier) []*ledger.Transaction {
	start := time.Now()
	ret := make([]*ledger.Transaction, 0, len(txs))

	for i, tx := range txs {
		if err := CheckTransaction(h.pool, tx, verifier); err != nil {
			h.log.Debugf("candidate #%d rejected: %v", i, err)
			h.reject(err)
			continue
		}
		tx.Finalize()
		h.apply(tx)
		ret = append(ret, tx)
		h.log.Debugf("candidate #%d accepted: %s", i, idString(tx))
	}

	h.numBatches.Inc()
	h.log.Infof("batch of %d candidates: accepted %d, rejected %d, pool size %d",
		len(txs), len(ret), len(txs)-len(ret), h.pool.Len())
	if h.metrics {
		prometheusBatchSize.Observe(float64(len(txs)))
		prometheusHandleTxs.Observe(time.Since(start).Seconds())
		prometheusPoolSize.Set(float64(h.pool.Len()))
	}
	return ret
}

// apply updates the pool and the index by the valid transaction
func (h *TxHandler) apply(tx *ledger.Transaction) {
	var consumed []*ledger.Output
	if h.indexer != nil {
		consumed = make([]*ledger.Output, 0, tx.NumInputs())
		tx.ForEachInput(func(_ int, in *ledger.Input) bool {
			o, _ := h.pool.GetUTXO(in.SourceID)
			consumed = append(consumed, o)
			return true
		})
	}
	h.pool.Consume(tx)
	h.numAccepted.Inc()
	if h.metrics {
		prometheusAcceptedTransactions.Inc()
	}
	if h.indexer != nil {
		if err := h.indexer.Update(indexer.CommandsForTransaction(tx, consumed)); err != nil {
			// the pool is already updated, the index can be rebuilt from it
			h.log.Errorf("pool was updated by %s but index update failed: %v", idString(tx), err)
		}
	}
}

func (h *TxHandler) reject(err error) {
	h.numRejected.Inc()
	if h.metrics {
		errs := multierr.Errors(err)
		prometheusRejectedTransactions.WithLabelValues(ledger.ReasonLabel(errs[0])).Inc()
	}
}

// Balance returns the sum and the number of outputs owned by the public key.
// Without the indexer the whole pool is scanned
func (h *TxHandler) Balance(owner []byte) (ledger.Amount, int, error) {
	if h.indexer == nil {
		return h.balanceByScan(owner)
	}
	return h.indexer.Balance(owner, h.pool)
}

func (h *TxHandler) balanceByScan(owner []byte) (ledger.Amount, int, error) {
	var sum ledger.Amount
	var n int
	var err error
	h.pool.ForEach(func(_ ledger.OutputID, o *ledger.Output) bool {
		if !o.IsOwnedBy(owner) {
			return true
		}
		if sum, err = sum.Add(o.Amount()); err != nil {
			return false
		}
		n++
		return true
	})
	if err != nil {
		return 0, 0, err
	}
	return sum, n, nil
}

// Stats returns number of accepted and rejected transactions and number of processed batches.
// It can be called concurrently with HandleTxs
func (h *TxHandler) Stats() (accepted, rejected, batches uint64) {
	return h.numAccepted.Load(), h.numRejected.Load(), h.numBatches.Load()
}

func idString(tx *ledger.Transaction) string {
	txid := tx.ID()
	return txid.String()
}
