package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch/lazyslice"
	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/state"
	"github.com/lunfardo314/utxobatch/util/fifoqueue"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type (
	// Pipeline verifies signatures of the batch in parallel and then commits the batch
	// with the serial fold of the handler. Not thread safe, same as the handler
	Pipeline struct {
		handler     *state.TxHandler
		log         *zap.SugaredLogger
		numWorkers  int
		cacheHits   atomic.Uint64
		cacheMisses atomic.Uint64
	}

	Option func(p *Pipeline)

	signatureKey [32]byte

	signatureJob struct {
		key    signatureKey
		pubKey []byte
		msg    []byte
		sig    []byte
	}

	signatureCache struct {
		mutex   sync.RWMutex
		results map[signatureKey]bool
	}
)

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n < 1 {
			n = 1
		}
		p.numWorkers = n
	}
}

func WithLogger(log *zap.SugaredLogger) Option {
	return func(p *Pipeline) {
		p.log = log.Named("pipeline")
	}
}

func New(handler *state.TxHandler, opts ...Option) *Pipeline {
	ret := &Pipeline{
		handler:    handler,
		log:        zap.NewNop().Sugar(),
		numWorkers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// HandleTxs runs the batch through a new pipeline with default options
func HandleTxs(ctx context.Context, handler *state.TxHandler, txs []*ledger.Transaction) []*ledger.Transaction {
	return New(handler).HandleTxs(ctx, txs)
}

// HandleTxs accepts the same transactions and leaves the handler's pool in the same state as
// handler.HandleTxs(txs). Cancelling the context stops pre-verification only: signatures
// not verified in advance are verified during the commit
func (p *Pipeline) HandleTxs(ctx context.Context, txs []*ledger.Transaction) []*ledger.Transaction {
	start := time.Now()
	cache := p.preVerify(ctx, txs)
	if err := ctx.Err(); err != nil {
		p.log.Warnf("pre-verification interrupted: %v", err)
	}
	p.log.Debugf("pre-verified %d signatures of %d candidates in %v", cache.len(), len(txs), time.Since(start))

	return p.handler.HandleTxsWithVerifier(txs, p.cachedVerifier(cache))
}

// Stats returns number of signature checks answered by the cache and verified during the commit
func (p *Pipeline) Stats() (hits, misses uint64) {
	return p.cacheHits.Load(), p.cacheMisses.Load()
}

func (p *Pipeline) cachedVerifier(cache *signatureCache) ledger.SignatureVerifier {
	verifier := p.handler.Verifier()
	return ledger.VerifierFunc(func(pubKey, msg, sig []byte) bool {
		if res, found := cache.get(makeSignatureKey(pubKey, msg, sig)); found {
			p.cacheHits.Inc()
			return res
		}
		p.cacheMisses.Inc()
		return verifier.Verify(pubKey, msg, sig)
	})
}

// preVerify verifies every signature the serial fold may need to verify. Consumed outputs are
// resolved from the current pool or from outputs of earlier candidates. Unresolved inputs
// are left for the fold, which rejects them anyway
func (p *Pipeline) preVerify(ctx context.Context, txs []*ledger.Transaction) *signatureCache {
	cache := newSignatureCache()
	jobs := fifoqueue.New[*signatureJob]()
	verifier := p.handler.Verifier()

	var wg sync.WaitGroup
	wg.Add(p.numWorkers)
	for i := 0; i < p.numWorkers; i++ {
		log := p.log.Named(fmt.Sprintf("worker%d", i))
		go func() {
			defer wg.Done()

			n := 0
			jobs.Consume(func(job *signatureJob) {
				if ctx.Err() != nil {
					return
				}
				var res bool
				err := easyfl.CatchPanicOrError(func() error {
					res = verifier.Verify(job.pubKey, job.msg, job.sig)
					return nil
				})
				if err != nil {
					// not cached, the fold will run into the same panic and reject the candidate
					log.Debugf("verifier failed: %v", err)
					return
				}
				cache.put(job.key, res)
				n++
			})
			log.Debugf("verified %d signatures", n)
		}()
	}

	produced := make(map[ledger.OutputID]*ledger.Output)
	queued := make(map[signatureKey]struct{})
	for i, tx := range txs {
		if ctx.Err() != nil {
			break
		}
		if tx == nil {
			continue
		}
		err := easyfl.CatchPanicOrError(func() error {
			tx.ForEachInput(func(idx int, in *ledger.Input) bool {
				out, found := p.handler.GetUTXO(in.SourceID)
				if !found {
					out, found = produced[in.SourceID]
				}
				if !found || out == nil {
					return true
				}
				job := &signatureJob{
					pubKey: out.Recipient(),
					msg:    tx.SigningPayload(idx),
					sig:    in.Signature,
				}
				job.key = makeSignatureKey(job.pubKey, job.msg, job.sig)
				if _, already := queued[job.key]; !already {
					queued[job.key] = struct{}{}
					jobs.Write(job)
				}
				return true
			})
			tx.ForEachProducedOutput(func(oid ledger.OutputID, o *ledger.Output) bool {
				produced[oid] = o
				return true
			})
			return nil
		})
		if err != nil {
			p.log.Debugf("candidate #%d skipped by pre-verification: %v", i, err)
		}
	}
	jobs.Close()
	wg.Wait()
	return cache
}

func makeSignatureKey(pubKey, msg, sig []byte) signatureKey {
	return blake2b.Sum256(lazyslice.MakeArray(pubKey, msg, sig).Bytes())
}

func newSignatureCache() *signatureCache {
	return &signatureCache{
		results: make(map[signatureKey]bool),
	}
}

func (c *signatureCache) get(key signatureKey) (bool, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	ret, found := c.results[key]
	return ret, found
}

func (c *signatureCache) put(key signatureKey, res bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.results[key] = res
}

func (c *signatureCache) len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.results)
}
