package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/utxopool"
	"gopkg.in/yaml.v3"
)

type (
	// BatchFile is the YAML form of the pool snapshot and the candidate transactions
	BatchFile struct {
		Pool         []PoolEntry `yaml:"pool"`
		Transactions []string    `yaml:"transactions"`
	}

	PoolEntry struct {
		TxID      string `yaml:"txid"`
		Index     uint16 `yaml:"index"`
		Amount    int64  `yaml:"amount"`
		Recipient string `yaml:"recipient"`
	}
)

func NewBatchFile(pool *utxopool.Pool, txs []*ledger.Transaction) *BatchFile {
	ret := &BatchFile{
		Pool:         make([]PoolEntry, 0, pool.Len()),
		Transactions: make([]string, 0, len(txs)),
	}
	for _, oid := range pool.IDs() {
		o, _ := pool.GetUTXO(oid)
		txid := oid.TransactionID()
		ret.Pool = append(ret.Pool, PoolEntry{
			TxID:      txid.StringHex(),
			Index:     oid.Index(),
			Amount:    int64(o.Amount()),
			Recipient: hex.EncodeToString(o.Recipient()),
		})
	}
	for _, tx := range txs {
		ret.Transactions = append(ret.Transactions, hex.EncodeToString(tx.Bytes()))
	}
	return ret
}

func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ret := &BatchFile{}
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("can't parse batch file %s: %w", path, err)
	}
	return ret, nil
}

func (b *BatchFile) Save(path string) error {
	data, err := yaml.Marshal(b)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (b *BatchFile) UTXOPool() (*utxopool.Pool, error) {
	ret := utxopool.NewEmpty()
	for i, e := range b.Pool {
		txid, err := ledger.TransactionIDFromHexString(e.TxID)
		if err != nil {
			return nil, fmt.Errorf("pool entry #%d: %w", i, err)
		}
		recipient, err := hex.DecodeString(e.Recipient)
		if err != nil {
			return nil, fmt.Errorf("pool entry #%d: %w", i, err)
		}
		oid := ledger.NewOutputID(txid, e.Index)
		if ret.Contains(oid) {
			return nil, fmt.Errorf("pool entry #%d: repeating output %s", i, oid.String())
		}
		ret.Add(oid, ledger.NewOutput(ledger.Amount(e.Amount), recipient))
	}
	return ret, nil
}

// ParseTransactions decodes candidates. Undecodable entries are reported as errors, not skipped
func (b *BatchFile) ParseTransactions() ([]*ledger.Transaction, error) {
	ret := make([]*ledger.Transaction, 0, len(b.Transactions))
	for i, s := range b.Transactions {
		data, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("transaction #%d: %w", i, err)
		}
		tx, err := ledger.TransactionFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("transaction #%d: %w", i, err)
		}
		ret = append(ret, tx)
	}
	return ret, nil
}
