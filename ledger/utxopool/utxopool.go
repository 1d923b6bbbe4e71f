package utxopool

import (
	"bytes"
	"sort"

	"github.com/lunfardo314/utxobatch/ledger"
)

// Pool is the set of currently spendable outputs.
// It is not thread safe: it is owned by exactly one user at a time
type Pool struct {
	utxos map[ledger.OutputID]*ledger.Output
}

func NewEmpty() *Pool {
	return &Pool{
		utxos: make(map[ledger.OutputID]*ledger.Output),
	}
}

// New creates a pool from the snapshot. The snapshot is deep-copied, so later changes
// of the pool never affect the snapshot and vice versa
func New(snapshot map[ledger.OutputID]*ledger.Output) *Pool {
	ret := &Pool{
		utxos: make(map[ledger.OutputID]*ledger.Output, len(snapshot)),
	}
	for oid, o := range snapshot {
		if o == nil {
			continue
		}
		ret.utxos[oid] = o.Clone()
	}
	return ret
}

// Clone is a deep copy of the pool
func (p *Pool) Clone() *Pool {
	return New(p.utxos)
}

func (p *Pool) Contains(oid ledger.OutputID) bool {
	_, ok := p.utxos[oid]
	return ok
}

// GetUTXO returns the output or nil if it is not in the pool
func (p *Pool) GetUTXO(oid ledger.OutputID) (*ledger.Output, bool) {
	ret, ok := p.utxos[oid]
	return ret, ok
}

func (p *Pool) Add(oid ledger.OutputID, o *ledger.Output) {
	p.utxos[oid] = o
}

func (p *Pool) Remove(oid ledger.OutputID) {
	delete(p.utxos, oid)
}

func (p *Pool) Len() int {
	return len(p.utxos)
}

// IDs returns all output IDs of the pool in lexicographical order
func (p *Pool) IDs() []ledger.OutputID {
	ret := make([]ledger.OutputID, 0, len(p.utxos))
	for oid := range p.utxos {
		ret = append(ret, oid)
	}
	sort.Slice(ret, func(i, j int) bool {
		return bytes.Compare(ret[i][:], ret[j][:]) < 0
	})
	return ret
}

// ForEach iterates the pool in deterministic order
func (p *Pool) ForEach(fun func(oid ledger.OutputID, o *ledger.Output) bool) {
	for _, oid := range p.IDs() {
		if !fun(oid, p.utxos[oid]) {
			return
		}
	}
}

// Snapshot returns a deep copy of the pool content
func (p *Pool) Snapshot() map[ledger.OutputID]*ledger.Output {
	return p.Clone().utxos
}

// Total sums all amounts in the pool
func (p *Pool) Total() (ledger.Amount, error) {
	var ret ledger.Amount
	var err error
	for _, o := range p.utxos {
		if ret, err = ret.Add(o.Amount()); err != nil {
			return 0, err
		}
	}
	return ret, nil
}

// Consume removes outputs consumed by the transaction and adds outputs produced by it,
// keyed by the ID of the transaction. The transaction must be valid against the pool
func (p *Pool) Consume(tx *ledger.Transaction) {
	tx.ForEachInput(func(_ int, in *ledger.Input) bool {
		p.Remove(in.SourceID)
		return true
	})
	tx.ForEachProducedOutput(func(oid ledger.OutputID, o *ledger.Output) bool {
		p.Add(oid, o)
		return true
	})
}
