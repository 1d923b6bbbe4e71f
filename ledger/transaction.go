package ledger

import (
	"bytes"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch"
	"github.com/lunfardo314/utxobatch/lazyslice"
	"golang.org/x/crypto/blake2b"
)

type (
	// Input references consumed output and carries the signature of its owner
	Input struct {
		SourceID  OutputID
		Signature []byte
	}

	// Transaction is an ordered list of inputs and an ordered list of outputs.
	// The ID is blake2b-256 hash of the serialized form, signatures included.
	// It is cached after Finalize and the transaction can't be changed anymore
	Transaction struct {
		inputs    []*Input
		outputs   []*Output
		finalized bool
		txid      TransactionID
	}
)

// serialized transaction is the array [inputs, outputs], each input is the array [outputID, signature]
const (
	txBranchInputs = iota
	txBranchOutputs
	txNumBranches
)

func NewTransaction() *Transaction {
	return &Transaction{
		inputs:  make([]*Input, 0),
		outputs: make([]*Output, 0),
	}
}

// TransactionFromBytes parses the transaction and finalizes it
func TransactionFromBytes(data []byte) (*Transaction, error) {
	arr, err := lazyslice.ParseArray(data, txNumBranches)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: %w", err)
	}
	if arr.NumElements() != txNumBranches {
		return nil, fmt.Errorf("TransactionFromBytes: %d elements expected", txNumBranches)
	}
	inputs, err := lazyslice.ParseArray(arr.At(txBranchInputs), MaxInputs)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: inputs: %w", err)
	}
	outputs, err := lazyslice.ParseArray(arr.At(txBranchOutputs), MaxOutputs)
	if err != nil {
		return nil, fmt.Errorf("TransactionFromBytes: outputs: %w", err)
	}
	ret := NewTransaction()
	inputs.ForEach(func(i int, inData []byte) bool {
		var inp *Input
		if inp, err = inputFromBytes(inData); err != nil {
			err = fmt.Errorf("TransactionFromBytes: input #%d: %w", i, err)
			return false
		}
		ret.inputs = append(ret.inputs, inp)
		return true
	})
	if err != nil {
		return nil, err
	}
	outputs.ForEach(func(i int, outData []byte) bool {
		var o *Output
		if o, err = OutputFromBytes(outData); err != nil {
			err = fmt.Errorf("TransactionFromBytes: output #%d: %w", i, err)
			return false
		}
		ret.outputs = append(ret.outputs, o)
		return true
	})
	if err != nil {
		return nil, err
	}
	ret.Finalize()
	return ret, nil
}

func inputFromBytes(data []byte) (*Input, error) {
	arr, err := lazyslice.ParseArray(data, 2)
	if err != nil {
		return nil, err
	}
	if arr.NumElements() != 2 {
		return nil, fmt.Errorf("2 elements expected, got %d", arr.NumElements())
	}
	oid, err := OutputIDFromBytes(arr.At(0))
	if err != nil {
		return nil, err
	}
	return &Input{
		SourceID:  oid,
		Signature: bytes.Clone(arr.At(1)),
	}, nil
}

func (in *Input) Bytes() []byte {
	return lazyslice.MakeArray(in.SourceID[:], in.Signature).Bytes()
}

func (tx *Transaction) mustNotBeFinal() {
	easyfl.Assert(!tx.finalized, "transaction %s is already finalized", tx.txid.String())
}

// AddInput appends input without signature. Returns index of the input
func (tx *Transaction) AddInput(oid OutputID) int {
	tx.mustNotBeFinal()
	easyfl.Assert(len(tx.inputs) < MaxInputs, "too many inputs")
	tx.inputs = append(tx.inputs, &Input{SourceID: oid})
	return len(tx.inputs) - 1
}

// AddOutput appends output. Returns index of the output
func (tx *Transaction) AddOutput(o *Output) int {
	tx.mustNotBeFinal()
	easyfl.Assert(len(tx.outputs) < MaxOutputs, "too many outputs")
	tx.outputs = append(tx.outputs, o)
	return len(tx.outputs) - 1
}

// AddSignature sets the signature of the input. Signatures do not affect SigningPayload
func (tx *Transaction) AddSignature(idx int, sig []byte) {
	tx.mustNotBeFinal()
	tx.inputs[idx].Signature = bytes.Clone(sig)
}

// Finalize computes and caches the ID. After this the transaction is read-only
func (tx *Transaction) Finalize() {
	if tx.finalized {
		return
	}
	tx.txid = blake2b.Sum256(tx.Bytes())
	tx.finalized = true
}

func (tx *Transaction) IsFinalized() bool {
	return tx.finalized
}

// ID returns the cached ID of the finalized transaction, otherwise the hash of the current content
func (tx *Transaction) ID() TransactionID {
	if tx.finalized {
		return tx.txid
	}
	return blake2b.Sum256(tx.Bytes())
}

func (tx *Transaction) NumInputs() int {
	return len(tx.inputs)
}

func (tx *Transaction) NumOutputs() int {
	return len(tx.outputs)
}

func (tx *Transaction) Input(idx int) *Input {
	return tx.inputs[idx]
}

func (tx *Transaction) Output(idx int) *Output {
	return tx.outputs[idx]
}

func (tx *Transaction) Inputs() []*Input {
	return append([]*Input(nil), tx.inputs...)
}

func (tx *Transaction) Outputs() []*Output {
	return append([]*Output(nil), tx.outputs...)
}

func (tx *Transaction) ForEachInput(fun func(idx int, in *Input) bool) {
	for i, in := range tx.inputs {
		if !fun(i, in) {
			return
		}
	}
}

// ForEachProducedOutput iterates outputs with the IDs they will have in the ledger
func (tx *Transaction) ForEachProducedOutput(fun func(oid OutputID, o *Output) bool) {
	txid := tx.ID()
	for i, o := range tx.outputs {
		if !fun(NewOutputID(txid, uint16(i)), o) {
			return
		}
	}
}

func (tx *Transaction) inputIDsArray() *lazyslice.Array {
	ret := lazyslice.EmptyArray(MaxInputs)
	for _, in := range tx.inputs {
		ret.Push(in.SourceID[:])
	}
	return ret
}

func (tx *Transaction) outputsArray() *lazyslice.Array {
	ret := lazyslice.EmptyArray(MaxOutputs)
	for _, o := range tx.outputs {
		ret.Push(o.Bytes())
	}
	return ret
}

// SigningPayload is the message the owner of the output consumed by input idx signs.
// It commits to the index, all input IDs and all outputs, but never to signatures
func (tx *Transaction) SigningPayload(idx int) []byte {
	return lazyslice.MakeArray(
		utxobatch.EncodeInteger(uint16(idx)),
		tx.inputIDsArray(),
		tx.outputsArray(),
	).Bytes()
}

func (tx *Transaction) Bytes() []byte {
	inputs := lazyslice.EmptyArray(MaxInputs)
	for _, in := range tx.inputs {
		inputs.Push(in.Bytes())
	}
	return lazyslice.MakeArray(inputs, tx.outputsArray()).Bytes()
}

func (tx *Transaction) String() string {
	txid := tx.ID()
	ret := fmt.Sprintf("tx %s\n", txid.String())
	for i, in := range tx.inputs {
		ret += fmt.Sprintf("  in #%d: %s\n", i, in.SourceID.String())
	}
	for i, o := range tx.outputs {
		ret += fmt.Sprintf("  out #%d: %s\n", i, o.String())
	}
	return ret
}
