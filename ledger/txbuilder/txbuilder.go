package txbuilder

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch/ledger"
)

// TransactionBuilder assembles the transaction together with the outputs it consumes,
// which are needed to sign it
type TransactionBuilder struct {
	ConsumedOutputs []*ledger.Output
	Transaction     *ledger.Transaction
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		ConsumedOutputs: make([]*ledger.Output, 0),
		Transaction:     ledger.NewTransaction(),
	}
}

func (ctx *TransactionBuilder) NumInputs() int {
	ret := len(ctx.ConsumedOutputs)
	easyfl.Assert(ret == ctx.Transaction.NumInputs(), "ret==ctx.Transaction.NumInputs()")
	return ret
}

func (ctx *TransactionBuilder) NumOutputs() int {
	return ctx.Transaction.NumOutputs()
}

func (ctx *TransactionBuilder) ConsumeOutput(oid ledger.OutputID, out *ledger.Output) (int, error) {
	if ctx.NumInputs() >= ledger.MaxInputs {
		return 0, fmt.Errorf("too many consumed outputs")
	}
	ctx.ConsumedOutputs = append(ctx.ConsumedOutputs, out)
	return ctx.Transaction.AddInput(oid), nil
}

func (ctx *TransactionBuilder) ProduceOutput(out *ledger.Output) (int, error) {
	if ctx.NumOutputs() >= ledger.MaxOutputs {
		return 0, fmt.Errorf("too many produced outputs")
	}
	return ctx.Transaction.AddOutput(out), nil
}

// InputTotal sums amounts of consumed outputs
func (ctx *TransactionBuilder) InputTotal() (ledger.Amount, error) {
	amounts := make([]ledger.Amount, len(ctx.ConsumedOutputs))
	for i, o := range ctx.ConsumedOutputs {
		amounts[i] = o.Amount()
	}
	return ledger.SumAmounts(amounts...)
}

// SignED25519 signs each input with the key of the owner of the consumed output
func (ctx *TransactionBuilder) SignED25519(keys ...ed25519.PrivateKey) error {
	for i, o := range ctx.ConsumedOutputs {
		key := findKey(o.Recipient(), keys)
		if key == nil {
			return fmt.Errorf("SignED25519: no private key for input #%d owned by %s", i, easyfl.Fmt(o.Recipient()))
		}
		ctx.Transaction.AddSignature(i, ed25519.Sign(key, ctx.Transaction.SigningPayload(i)))
	}
	return nil
}

func findKey(pubKey []byte, keys []ed25519.PrivateKey) ed25519.PrivateKey {
	for _, k := range keys {
		if bytes.Equal(k.Public().(ed25519.PublicKey), pubKey) {
			return k
		}
	}
	return nil
}

// Finalize returns the finalized transaction. The builder can't be used after
func (ctx *TransactionBuilder) Finalize() *ledger.Transaction {
	ctx.Transaction.Finalize()
	return ctx.Transaction
}

type ED25519TransferInputs struct {
	SenderPrivateKey ed25519.PrivateKey
	SenderPublicKey  ed25519.PublicKey
	Outputs          []*ledger.OutputWithID
	Target           []byte
	Amount           ledger.Amount
	Fee              ledger.Amount
}

func NewED25519TransferInputs(senderKey ed25519.PrivateKey) *ED25519TransferInputs {
	return &ED25519TransferInputs{
		SenderPrivateKey: senderKey,
		SenderPublicKey:  senderKey.Public().(ed25519.PublicKey),
		Outputs:          make([]*ledger.OutputWithID, 0),
	}
}

func (t *ED25519TransferInputs) WithTarget(pubKey []byte) *ED25519TransferInputs {
	t.Target = pubKey
	return t
}

func (t *ED25519TransferInputs) WithAmount(amount ledger.Amount) *ED25519TransferInputs {
	t.Amount = amount
	return t
}

// WithFee leaves the fee unclaimed: it is consumed but not produced
func (t *ED25519TransferInputs) WithFee(fee ledger.Amount) *ED25519TransferInputs {
	t.Fee = fee
	return t
}

func (t *ED25519TransferInputs) WithOutputs(outs []*ledger.OutputWithID) *ED25519TransferInputs {
	t.Outputs = outs
	return t
}

// MakeTransferTransaction consumes sender's outputs in the given order until there are enough tokens,
// produces the target output and, if needed, the remainder output back to the sender
func MakeTransferTransaction(par *ED25519TransferInputs) (*ledger.Transaction, error) {
	if par.Amount < 0 || par.Fee < 0 {
		return nil, fmt.Errorf("amount and fee can't be negative")
	}
	need, err := par.Amount.Add(par.Fee)
	if err != nil {
		return nil, err
	}
	ctx := NewTransactionBuilder()
	var available ledger.Amount

	for _, o := range par.Outputs {
		if available >= need && ctx.NumInputs() > 0 {
			break
		}
		if !o.Output.IsOwnedBy(par.SenderPublicKey) {
			continue
		}
		if _, err = ctx.ConsumeOutput(o.ID, o.Output); err != nil {
			return nil, err
		}
		if available, err = available.Add(o.Output.Amount()); err != nil {
			return nil, err
		}
	}
	if available < need {
		return nil, fmt.Errorf("not enough tokens owned by %s: needed %d, got %d",
			easyfl.Fmt(par.SenderPublicKey), need, available)
	}
	if _, err = ctx.ProduceOutput(ledger.NewOutput(par.Amount, par.Target)); err != nil {
		return nil, err
	}
	if available > need {
		if _, err = ctx.ProduceOutput(ledger.NewOutput(available-need, par.SenderPublicKey)); err != nil {
			return nil, err
		}
	}
	if err = ctx.SignED25519(par.SenderPrivateKey); err != nil {
		return nil, err
	}
	return ctx.Finalize(), nil
}
