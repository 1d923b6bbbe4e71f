package indexer

import (
	"sync"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/unitrie/common"
	"github.com/lunfardo314/utxobatch/ledger"
	"golang.org/x/crypto/blake2b"
)

// Indexer maps owners to output IDs. Lookups resolve IDs against the pool and skip
// entries which are not in the pool anymore
type Indexer struct {
	mutex *sync.RWMutex
	store Store
}

type (
	Store interface {
		common.BatchedUpdatable
		common.Traversable
		common.KVReader
	}

	Command struct {
		AccountID AccountID
		OutputID  ledger.OutputID
		Delete    bool
	}

	// AccountID is the hash of the owner's public key
	AccountID [32]byte
)

var presentMark = []byte{0xff}

func NewIndexer(store Store) *Indexer {
	return &Indexer{
		mutex: &sync.RWMutex{},
		store: store,
	}
}

// NewInMemory mostly for testing
func NewInMemory() *Indexer {
	return NewIndexer(common.NewInMemoryKVStore())
}

func AccountIDFromOwner(owner []byte) AccountID {
	return blake2b.Sum256(owner)
}

// CommandsForTransaction makes index update for the transaction. The consumed outputs
// must be in the order of inputs
func CommandsForTransaction(tx *ledger.Transaction, consumed []*ledger.Output) []*Command {
	easyfl.Assert(len(consumed) == tx.NumInputs(), "number of consumed outputs must be equal to the number of inputs")

	ret := make([]*Command, 0, tx.NumInputs()+tx.NumOutputs())
	tx.ForEachInput(func(i int, in *ledger.Input) bool {
		ret = append(ret, &Command{
			AccountID: AccountIDFromOwner(consumed[i].Recipient()),
			OutputID:  in.SourceID,
			Delete:    true,
		})
		return true
	})
	tx.ForEachProducedOutput(func(oid ledger.OutputID, o *ledger.Output) bool {
		ret = append(ret, &Command{
			AccountID: AccountIDFromOwner(o.Recipient()),
			OutputID:  oid,
		})
		return true
	})
	return ret
}

func (inr *Indexer) Update(cmds []*Command) error {
	inr.mutex.Lock()
	defer inr.mutex.Unlock()

	w := inr.store.BatchedWriter()
	for _, c := range cmds {
		if c.Delete {
			w.Set(common.Concat(c.AccountID[:], c.OutputID[:]), nil)
		} else {
			w.Set(common.Concat(c.AccountID[:], c.OutputID[:]), presentMark)
		}
	}
	return w.Commit()
}

// IndexPool puts all outputs of the pool into the index
func (inr *Indexer) IndexPool(ids []ledger.OutputID, state ledger.StateReader) error {
	cmds := make([]*Command, 0, len(ids))
	for _, oid := range ids {
		o, ok := state.GetUTXO(oid)
		if !ok {
			continue
		}
		cmds = append(cmds, &Command{
			AccountID: AccountIDFromOwner(o.Recipient()),
			OutputID:  oid,
		})
	}
	return inr.Update(cmds)
}

func (inr *Indexer) GetUTXOsForOwner(owner []byte, state ledger.StateReader) ([]*ledger.OutputWithID, error) {
	inr.mutex.RLock()
	defer inr.mutex.RUnlock()

	accountID := AccountIDFromOwner(owner)
	ret := make([]*ledger.OutputWithID, 0)
	var err error
	inr.store.Iterator(accountID[:]).Iterate(func(k, v []byte) bool {
		o := &ledger.OutputWithID{}
		o.ID, err = ledger.OutputIDFromBytes(k[len(accountID):])
		if err != nil {
			return false
		}
		var found bool
		if o.Output, found = state.GetUTXO(o.ID); !found {
			// stale entry
			return true
		}
		ret = append(ret, o)
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Balance sums all outputs of the owner
func (inr *Indexer) Balance(owner []byte, state ledger.StateReader) (ledger.Amount, int, error) {
	outs, err := inr.GetUTXOsForOwner(owner, state)
	if err != nil {
		return 0, 0, err
	}
	var ret ledger.Amount
	for _, o := range outs {
		if ret, err = ret.Add(o.Output.Amount()); err != nil {
			return 0, 0, err
		}
	}
	return ret, len(outs), nil
}
