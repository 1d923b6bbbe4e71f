package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lunfardo314/utxobatch/ledger/state"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) string {
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	require.NoError(t, a.Run(append([]string{"utxobatch", "--log-level", "warn"}, args...)))
	return out.String()
}

func TestGenerateAndCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	runApp(t, "generate", "--out", path, "--accounts", "3")

	batch, err := LoadBatchFile(path)
	require.NoError(t, err)
	require.EqualValues(t, 6, len(batch.Transactions))
	pool, err := batch.UTXOPool()
	require.NoError(t, err)
	txs, err := batch.ParseTransactions()
	require.NoError(t, err)

	h, err := state.NewTxHandler(pool)
	require.NoError(t, err)
	expected := h.HandleTxs(txs)
	require.EqualValues(t, 4, len(expected))

	for _, workers := range []string{"0", "3"} {
		out := runApp(t, "check", "-f", path, "--workers", workers, "--metrics")
		require.True(t, strings.HasPrefix(out, "accepted 4 of 6 transactions:"), out)
		for _, tx := range expected {
			txid := tx.ID()
			require.Contains(t, out, txid.StringHex())
		}
		require.Contains(t, out, "utxobatch_handler_accepted_transactions")
	}
}

func TestBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	runApp(t, "generate", "-o", path)
	batch, err := LoadBatchFile(path)
	require.NoError(t, err)
	pool, err := batch.UTXOPool()
	require.NoError(t, err)
	txs, err := batch.ParseTransactions()
	require.NoError(t, err)

	back := NewBatchFile(pool, txs)
	require.EqualValues(t, batch, back)

	batch.Transactions = append(batch.Transactions, "0102zz")
	_, err = batch.ParseTransactions()
	require.Error(t, err)

	batch.Pool = append(batch.Pool, batch.Pool[0])
	_, err = batch.UTXOPool()
	require.Error(t, err)
}

func TestVersionAndLogger(t *testing.T) {
	require.EqualValues(t, version+"\n", runApp(t, "version"))

	_, err := newLogger("nonsense", false)
	require.Error(t, err)
	log, err := newLogger("debug", true)
	require.NoError(t, err)
	log.Debugf("test %d", 1)
}
