package ledger

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch"
	"github.com/lunfardo314/utxobatch/lazyslice"
)

const (
	TransactionIDLength = 32
	OutputIDLength      = TransactionIDLength + 2

	// MaxInputs and MaxOutputs are limited by the serialization format
	MaxInputs  = lazyslice.MaxArrayLen
	MaxOutputs = lazyslice.MaxArrayLen
)

type (
	TransactionID [TransactionIDLength]byte

	// OutputID identifies an unspent output by the ID of the producing transaction
	// and the index of the output in it. It is a comparable value type and is used as a map key
	OutputID [OutputIDLength]byte

	OutputWithID struct {
		ID     OutputID
		Output *Output
	}

	// StateReader is read access to the set of unspent outputs
	StateReader interface {
		GetUTXO(oid OutputID) (*Output, bool)
	}
)

func TransactionIDFromBytes(data []byte) (ret TransactionID, err error) {
	if len(data) != TransactionIDLength {
		err = errors.New("TransactionIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func TransactionIDFromHexString(s string) (TransactionID, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return TransactionID{}, err
	}
	return TransactionIDFromBytes(data)
}

func (txid *TransactionID) Bytes() []byte {
	return txid[:]
}

func (txid *TransactionID) String() string {
	return easyfl.Fmt(txid[:])
}

func (txid *TransactionID) StringHex() string {
	return hex.EncodeToString(txid[:])
}

func NewOutputID(id TransactionID, idx uint16) (ret OutputID) {
	copy(ret[:TransactionIDLength], id[:])
	copy(ret[TransactionIDLength:], utxobatch.EncodeInteger(idx))
	return
}

func OutputIDFromBytes(data []byte) (ret OutputID, err error) {
	if len(data) != OutputIDLength {
		err = errors.New("OutputIDFromBytes: wrong data length")
		return
	}
	copy(ret[:], data)
	return
}

func (oid *OutputID) String() string {
	txid := oid.TransactionID()
	return fmt.Sprintf("[%d]%s", oid.Index(), txid.String())
}

func (oid *OutputID) TransactionID() (ret TransactionID) {
	copy(ret[:], oid[:TransactionIDLength])
	return
}

func (oid *OutputID) Index() uint16 {
	return utxobatch.DecodeInteger[uint16](oid[TransactionIDLength:])
}

func (oid *OutputID) Bytes() []byte {
	return oid[:]
}
