package utxopool

import (
	"testing"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/stretchr/testify/require"
)

func oidN(n byte, idx uint16) ledger.OutputID {
	var txid ledger.TransactionID
	txid[0] = n
	return ledger.NewOutputID(txid, idx)
}

func TestPool(t *testing.T) {
	t.Run("copy on construct", func(t *testing.T) {
		snapshot := map[ledger.OutputID]*ledger.Output{
			oidN(1, 0): ledger.NewOutput(10, []byte("pub1")),
			oidN(2, 0): ledger.NewOutput(20, []byte("pub2")),
		}
		p := New(snapshot)
		require.EqualValues(t, 2, p.Len())
		p.Remove(oidN(1, 0))
		p.Add(oidN(3, 0), ledger.NewOutput(30, []byte("pub3")))
		require.EqualValues(t, 2, len(snapshot))
		_, ok := snapshot[oidN(3, 0)]
		require.False(t, ok)
		_, ok = snapshot[oidN(1, 0)]
		require.True(t, ok)

		delete(snapshot, oidN(2, 0))
		require.True(t, p.Contains(oidN(2, 0)))
	})
	t.Run("clone", func(t *testing.T) {
		p := NewEmpty()
		p.Add(oidN(1, 0), ledger.NewOutput(10, []byte("pub1")))
		c := p.Clone()
		c.Remove(oidN(1, 0))
		require.True(t, p.Contains(oidN(1, 0)))
		require.False(t, c.Contains(oidN(1, 0)))
		require.EqualValues(t, 1, len(p.Snapshot()))
	})
	t.Run("nil outputs skipped", func(t *testing.T) {
		p := New(map[ledger.OutputID]*ledger.Output{oidN(1, 0): nil})
		require.EqualValues(t, 0, p.Len())
	})
	t.Run("deterministic order", func(t *testing.T) {
		p := NewEmpty()
		for i := byte(10); i > 0; i-- {
			p.Add(oidN(i, uint16(i)), ledger.NewOutput(ledger.Amount(i), nil))
		}
		ids := p.IDs()
		require.EqualValues(t, 10, len(ids))
		for i := range ids {
			require.EqualValues(t, i+1, ids[i][0])
		}
		count := 0
		p.ForEach(func(oid ledger.OutputID, o *ledger.Output) bool {
			count++
			return count < 3
		})
		require.EqualValues(t, 3, count)
		total, err := p.Total()
		require.NoError(t, err)
		require.EqualValues(t, 55, total)
	})
	t.Run("consume", func(t *testing.T) {
		p := NewEmpty()
		p.Add(oidN(1, 0), ledger.NewOutput(100, []byte("A")))
		tx := ledger.NewTransaction()
		tx.AddInput(oidN(1, 0))
		tx.AddOutput(ledger.NewOutput(40, []byte("B")))
		tx.AddOutput(ledger.NewOutput(55, []byte("C")))
		tx.Finalize()
		p.Consume(tx)
		require.False(t, p.Contains(oidN(1, 0)))
		require.EqualValues(t, 2, p.Len())
		o, ok := p.GetUTXO(ledger.NewOutputID(tx.ID(), 1))
		require.True(t, ok)
		require.EqualValues(t, 55, o.Amount())
	})
}
