package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/indexer"
	"github.com/lunfardo314/utxobatch/ledger/pipeline"
	"github.com/lunfardo314/utxobatch/ledger/state"
	"github.com/lunfardo314/utxobatch/ledger/txbuilder"
	"github.com/lunfardo314/utxobatch/ledger/utxodb"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/urfave/cli/v2"
)

func (a *app) check(c *cli.Context) error {
	batch, err := LoadBatchFile(c.Path("file"))
	if err != nil {
		return err
	}
	pool, err := batch.UTXOPool()
	if err != nil {
		return err
	}
	txs, err := batch.ParseTransactions()
	if err != nil {
		return err
	}
	handler, err := state.NewTxHandler(pool,
		state.WithLogger(a.log.Named("handler")),
		state.WithIndexer(indexer.NewInMemory()),
		state.WithMetrics(c.Bool("metrics")),
	)
	if err != nil {
		return err
	}
	for i, tx := range txs {
		if err = handler.CheckTransaction(tx); err != nil {
			a.log.Infof("candidate #%d is not valid against the initial pool: %v", i, err)
		}
	}

	var accepted []*ledger.Transaction
	if workers := c.Int("workers"); workers > 0 {
		pipe := pipeline.New(handler, pipeline.WithWorkers(workers), pipeline.WithLogger(a.log))
		accepted = pipe.HandleTxs(c.Context, txs)
		hits, misses := pipe.Stats()
		a.log.Debugf("signature cache: hits %d, misses %d", hits, misses)
	} else {
		accepted = handler.HandleTxs(txs)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "accepted %d of %d transactions:\n", len(accepted), len(txs))
	for _, tx := range accepted {
		txid := tx.ID()
		fmt.Fprintf(w, "  %s\n", txid.StringHex())
	}
	result := handler.UTXOPool()
	fmt.Fprintf(w, "pool (%d outputs):\n", result.Len())
	for _, oid := range result.IDs() {
		o, _ := result.GetUTXO(oid)
		fmt.Fprintf(w, "  %s: %s\n", oid.String(), o.String())
	}
	if c.Bool("metrics") {
		return writeMetrics(w)
	}
	return nil
}

// generate funds accounts from the test ledger and writes a batch with transfers,
// a chained spend, a double spend and an overspend
func (a *app) generate(c *cli.Context) error {
	numAccounts := c.Int("accounts")
	if numAccounts < 2 {
		return cli.Exit("at least 2 accounts are needed", 1)
	}
	u := utxodb.NewUTXODB(a.log)
	for i := 0; i < numAccounts; i++ {
		_, addr := u.GenerateAddress(uint16(i))
		if err := u.TokensFromFaucet(addr, ledger.Amount(100*(i+1))); err != nil {
			return err
		}
	}
	txs := make([]*ledger.Transaction, 0)
	for i := 0; i < numAccounts; i++ {
		priv, _ := u.GenerateAddress(uint16(i))
		_, target := u.GenerateAddress(uint16((i + 1) % numAccounts))
		tx, err := u.MakeTransferTransaction(priv, target, 50, 1)
		if err != nil {
			return err
		}
		txs = append(txs, tx)
	}

	// spends the remainder of the first transfer
	priv0, pub0 := u.GenerateAddress(0)
	_, pub1 := u.GenerateAddress(1)
	first := txs[0]
	ctx := txbuilder.NewTransactionBuilder()
	if _, err := ctx.ConsumeOutput(ledger.NewOutputID(first.ID(), 1), first.Output(1)); err != nil {
		return err
	}
	if _, err := ctx.ProduceOutput(ledger.NewOutput(first.Output(1).Amount(), pub1)); err != nil {
		return err
	}
	if err := ctx.SignED25519(priv0); err != nil {
		return err
	}
	txs = append(txs, ctx.Finalize())

	// conflicts with the first transfer
	doubleSpend, err := u.MakeTransferTransaction(priv0, pub1, 10)
	if err != nil {
		return err
	}
	txs = append(txs, doubleSpend)

	// overspends outputs of the first account
	outs, err := u.OutputsOf(pub0)
	if err != nil {
		return err
	}
	ctx = txbuilder.NewTransactionBuilder()
	for _, o := range outs {
		if _, err = ctx.ConsumeOutput(o.ID, o.Output); err != nil {
			return err
		}
	}
	if _, err = ctx.ProduceOutput(ledger.NewOutput(u.Balance(pub0)+1, pub1)); err != nil {
		return err
	}
	if err = ctx.SignED25519(priv0); err != nil {
		return err
	}
	txs = append(txs, ctx.Finalize())

	batch := NewBatchFile(u.Handler().UTXOPool(), txs)
	if err = batch.Save(c.Path("out")); err != nil {
		return err
	}
	a.log.Infof("batch of %d transactions over pool of %d outputs written to %s",
		len(batch.Transactions), len(batch.Pool), c.Path("out"))
	return nil
}

func writeMetrics(w io.Writer) error {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "metrics:")
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "utxobatch_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "  %s%s %s\n", mf.GetName(), labelsString(m.GetLabel()), metricValue(mf.GetType(), m))
		}
	}
	return nil
}

func labelsString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	ret := make([]string, 0, len(labels))
	for _, l := range labels {
		ret = append(ret, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(ret)
	return "{" + strings.Join(ret, ",") + "}"
}

func metricValue(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return "?"
	}
}
