package ledger

import (
	"bytes"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch"
	"github.com/lunfardo314/utxobatch/lazyslice"
)

// Output is an immutable pair of amount and the public key of the owner
type Output struct {
	amount    Amount
	recipient []byte
}

func NewOutput(amount Amount, recipient []byte) *Output {
	return &Output{
		amount:    amount,
		recipient: bytes.Clone(recipient),
	}
}

// OutputFromBytes parses output serialized as array [amount, recipient]
func OutputFromBytes(data []byte) (*Output, error) {
	arr, err := lazyslice.ParseArray(data, 2)
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: %w", err)
	}
	if arr.NumElements() != 2 {
		return nil, fmt.Errorf("OutputFromBytes: 2 elements expected, got %d", arr.NumElements())
	}
	amount, err := utxobatch.IntegerFromBytes[int64](arr.At(0))
	if err != nil {
		return nil, fmt.Errorf("OutputFromBytes: amount: %w", err)
	}
	return &Output{
		amount:    Amount(amount),
		recipient: bytes.Clone(arr.At(1)),
	}, nil
}

func (o *Output) Amount() Amount {
	return o.amount
}

func (o *Output) Recipient() []byte {
	return bytes.Clone(o.recipient)
}

func (o *Output) IsOwnedBy(pubKey []byte) bool {
	return bytes.Equal(o.recipient, pubKey)
}

// Clone is a deep copy. Outputs are immutable, the copy only breaks aliasing of the key bytes
func (o *Output) Clone() *Output {
	return NewOutput(o.amount, o.recipient)
}

func (o *Output) Bytes() []byte {
	return lazyslice.MakeArray(utxobatch.EncodeInteger(int64(o.amount)), o.recipient).Bytes()
}

func (o *Output) String() string {
	return fmt.Sprintf("%d -> %s", o.amount, easyfl.Fmt(o.recipient))
}
