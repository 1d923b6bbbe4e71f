package utxodb

import (
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/lunfardo314/unitrie/common"
	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/lunfardo314/utxobatch/ledger/indexer"
	"github.com/lunfardo314/utxobatch/ledger/state"
	"github.com/lunfardo314/utxobatch/ledger/txbuilder"
	"github.com/lunfardo314/utxobatch/ledger/utxopool"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

// UTXODB is an in-memory ledger with the genesis output and a faucet, mostly for testing
type UTXODB struct {
	handler           *state.TxHandler
	supply            ledger.Amount
	genesisPrivateKey ed25519.PrivateKey
	genesisPublicKey  ed25519.PublicKey
}

const (
	// for determinism
	originPrivateKey        = "8ec47313c15c3a4443c41619735109b56bc818f4a6b71d6a1f186ec96d15f28f14117899305d99fb4775de9223ce9886cfaa3195da1e40c5db47c61266f04dd2"
	deterministicSeed       = "1234567890987654321"
	supplyForTesting        = ledger.Amount(1_000_000_000_000)
	TokensFromFaucetDefault = ledger.Amount(1_000_000)
)

// GenesisOutputID is all-0
var GenesisOutputID = ledger.OutputID{}

func NewUTXODB(log ...*zap.SugaredLogger) *UTXODB {
	originPrivateKeyBin, err := hex.DecodeString(originPrivateKey)
	if err != nil {
		panic(err)
	}
	priv := ed25519.NewKeyFromSeed(originPrivateKeyBin[:ed25519.SeedSize])
	pub := priv.Public().(ed25519.PublicKey)

	genesis := utxopool.NewEmpty()
	genesis.Add(GenesisOutputID, ledger.NewOutput(supplyForTesting, pub))

	opts := []state.Option{state.WithIndexer(indexer.NewInMemory())}
	if len(log) > 0 && log[0] != nil {
		opts = append(opts, state.WithLogger(log[0].Named("utxodb")))
	}
	handler, err := state.NewTxHandler(genesis, opts...)
	if err != nil {
		panic(err)
	}
	return &UTXODB{
		handler:           handler,
		supply:            supplyForTesting,
		genesisPrivateKey: priv,
		genesisPublicKey:  pub,
	}
}

func (u *UTXODB) Supply() ledger.Amount {
	return u.supply
}

func (u *UTXODB) Handler() *state.TxHandler {
	return u.handler
}

func (u *UTXODB) GenesisKeys() (ed25519.PrivateKey, ed25519.PublicKey) {
	return u.genesisPrivateKey, u.genesisPublicKey
}

// GenerateAddress returns deterministic key pair number n
func (u *UTXODB) GenerateAddress(n uint16) (ed25519.PrivateKey, ed25519.PublicKey) {
	return GenerateKey(n)
}

// GenerateKey derives the n-th ed25519 key pair from the fixed seed
func GenerateKey(n uint16) (ed25519.PrivateKey, ed25519.PublicKey) {
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], n)
	seed := blake2b.Sum256(common.Concat([]byte(deterministicSeed), u16[:]))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, priv.Public().(ed25519.PublicKey)
}

// AddTransaction processes batch of one transaction
func (u *UTXODB) AddTransaction(tx *ledger.Transaction) error {
	if err := u.handler.CheckTransaction(tx); err != nil {
		return err
	}
	if len(u.handler.HandleTxs([]*ledger.Transaction{tx})) != 1 {
		return fmt.Errorf("transaction %s was not accepted", idString(tx))
	}
	return nil
}

// AddTransactions processes the batch and returns accepted transactions
func (u *UTXODB) AddTransactions(txs ...*ledger.Transaction) []*ledger.Transaction {
	return u.handler.HandleTxs(txs)
}

func (u *UTXODB) OutputsOf(owner []byte, desc ...bool) ([]*ledger.OutputWithID, error) {
	outs, err := u.handler.Indexer().GetUTXOsForOwner(owner, u.handler)
	if err != nil {
		return nil, err
	}
	return txbuilder.SortOutputsByAmount(outs, desc...), nil
}

func (u *UTXODB) MakeED25519TransferInputs(privKey ed25519.PrivateKey, desc ...bool) (*txbuilder.ED25519TransferInputs, error) {
	ret := txbuilder.NewED25519TransferInputs(privKey)
	outs, err := u.OutputsOf(ret.SenderPublicKey, desc...)
	if err != nil {
		return nil, err
	}
	return ret.WithOutputs(outs), nil
}

func (u *UTXODB) TokensFromFaucet(target []byte, howMany ...ledger.Amount) error {
	amount := TokensFromFaucetDefault
	if len(howMany) > 0 && howMany[0] > 0 {
		amount = howMany[0]
	}
	par, err := u.MakeED25519TransferInputs(u.genesisPrivateKey)
	if err != nil {
		return err
	}
	tx, err := txbuilder.MakeTransferTransaction(par.WithAmount(amount).WithTarget(target))
	if err != nil {
		return fmt.Errorf("UTXODB faucet: %v", err)
	}
	return u.AddTransaction(tx)
}

func (u *UTXODB) TransferTokens(privKey ed25519.PrivateKey, target []byte, amount ledger.Amount, fee ...ledger.Amount) error {
	tx, err := u.MakeTransferTransaction(privKey, target, amount, fee...)
	if err != nil {
		return err
	}
	return u.AddTransaction(tx)
}

// MakeTransferTransaction builds and signs the transfer without applying it
func (u *UTXODB) MakeTransferTransaction(privKey ed25519.PrivateKey, target []byte, amount ledger.Amount, fee ...ledger.Amount) (*ledger.Transaction, error) {
	par, err := u.MakeED25519TransferInputs(privKey)
	if err != nil {
		return nil, err
	}
	par.WithAmount(amount).WithTarget(target)
	if len(fee) > 0 {
		par.WithFee(fee[0])
	}
	return txbuilder.MakeTransferTransaction(par)
}

func (u *UTXODB) Balance(owner []byte) ledger.Amount {
	ret, _, err := u.handler.Balance(owner)
	if err != nil {
		panic(err)
	}
	return ret
}

func (u *UTXODB) NumUTXOs(owner []byte) int {
	_, ret, err := u.handler.Balance(owner)
	if err != nil {
		panic(err)
	}
	return ret
}

func idString(tx *ledger.Transaction) string {
	txid := tx.ID()
	return txid.String()
}
