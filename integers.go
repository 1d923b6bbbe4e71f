package utxobatch

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/lunfardo314/easyfl"
)

// Integer is a fixed size integer. All integers in serialized data are big-endian
type Integer interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64
}

func sizeOfInteger[T Integer]() int {
	var v T
	return binary.Size(v)
}

func ReadInteger[T Integer](r io.Reader, pval *T) error {
	return binary.Read(r, binary.BigEndian, pval)
}

func WriteInteger[T Integer](w io.Writer, val T) error {
	return binary.Write(w, binary.BigEndian, val)
}

func EncodeInteger[T Integer](v T) []byte {
	ret := make([]byte, sizeOfInteger[T]())
	switch len(ret) {
	case 1:
		ret[0] = byte(v)
	case 2:
		binary.BigEndian.PutUint16(ret, uint16(v))
	case 4:
		binary.BigEndian.PutUint32(ret, uint32(v))
	default:
		binary.BigEndian.PutUint64(ret, uint64(v))
	}
	return ret
}

// IntegerFromBytes decodes the integer. The data must be exactly of the size of the type
func IntegerFromBytes[T Integer](data []byte) (T, error) {
	var ret T
	if len(data) != sizeOfInteger[T]() {
		return ret, fmt.Errorf("IntegerFromBytes: %d bytes expected, got %d", sizeOfInteger[T](), len(data))
	}
	switch len(data) {
	case 1:
		ret = T(data[0])
	case 2:
		ret = T(binary.BigEndian.Uint16(data))
	case 4:
		ret = T(binary.BigEndian.Uint32(data))
	default:
		ret = T(binary.BigEndian.Uint64(data))
	}
	return ret, nil
}

// DecodeInteger is IntegerFromBytes for data of known size. Panics otherwise
func DecodeInteger[T Integer](data []byte) T {
	ret, err := IntegerFromBytes[T](data)
	easyfl.AssertNoError(err)
	return ret
}
