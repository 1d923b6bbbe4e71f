package indexer

import (
	"testing"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/utxopool"
	"github.com/stretchr/testify/require"
)

func TestIndexer(t *testing.T) {
	var src ledger.TransactionID
	src[5] = 5
	ownerA := []byte("owner A public key")
	ownerB := []byte("owner B public key")

	pool := utxopool.NewEmpty()
	pool.Add(ledger.NewOutputID(src, 0), ledger.NewOutput(100, ownerA))
	pool.Add(ledger.NewOutputID(src, 1), ledger.NewOutput(7, ownerA))

	t.Run("index pool", func(t *testing.T) {
		inr := NewInMemory()
		require.NoError(t, inr.IndexPool(pool.IDs(), pool))
		bal, n, err := inr.Balance(ownerA, pool)
		require.NoError(t, err)
		require.EqualValues(t, 107, bal)
		require.EqualValues(t, 2, n)

		bal, n, err = inr.Balance(ownerB, pool)
		require.NoError(t, err)
		require.EqualValues(t, 0, bal)
		require.EqualValues(t, 0, n)
	})
	t.Run("transaction update", func(t *testing.T) {
		p := pool.Clone()
		inr := NewInMemory()
		require.NoError(t, inr.IndexPool(p.IDs(), p))

		tx := ledger.NewTransaction()
		tx.AddInput(ledger.NewOutputID(src, 0))
		tx.AddOutput(ledger.NewOutput(60, ownerB))
		tx.AddOutput(ledger.NewOutput(40, ownerA))
		tx.Finalize()

		consumed, _ := p.GetUTXO(ledger.NewOutputID(src, 0))
		cmds := CommandsForTransaction(tx, []*ledger.Output{consumed})
		require.EqualValues(t, 3, len(cmds))
		require.True(t, cmds[0].Delete)

		p.Consume(tx)
		require.NoError(t, inr.Update(cmds))

		bal, n, err := inr.Balance(ownerA, p)
		require.NoError(t, err)
		require.EqualValues(t, 47, bal)
		require.EqualValues(t, 2, n)

		outs, err := inr.GetUTXOsForOwner(ownerB, p)
		require.NoError(t, err)
		require.EqualValues(t, 1, len(outs))
		require.EqualValues(t, ledger.NewOutputID(tx.ID(), 0), outs[0].ID)
		require.EqualValues(t, 60, outs[0].Output.Amount())
	})
	t.Run("stale entries skipped", func(t *testing.T) {
		p := pool.Clone()
		inr := NewInMemory()
		require.NoError(t, inr.IndexPool(p.IDs(), p))
		p.Remove(ledger.NewOutputID(src, 1))
		bal, n, err := inr.Balance(ownerA, p)
		require.NoError(t, err)
		require.EqualValues(t, 100, bal)
		require.EqualValues(t, 1, n)
	})
	t.Run("wrong number of consumed", func(t *testing.T) {
		tx := ledger.NewTransaction()
		tx.AddInput(ledger.NewOutputID(src, 0))
		require.Panics(t, func() {
			CommandsForTransaction(tx, nil)
		})
	})
}
