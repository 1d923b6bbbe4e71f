package lazyslice

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/lunfardo314/utxobatch"
)

// Array can be interpreted two ways:
// - as byte slice
// - as serialized append-only array of byte slices
// Serialization is optimized by analyzing maximum length of the data element
type Array struct {
	bytes          []byte
	parsed         [][]byte
	maxNumElements int
}

type lenPrefixType uint16

// prefix of the serialized array are two bytes interpreted as uint16.
// The highest 2 bits encode the number of bytes used for each element length (0, 1, 2 or 4),
// the rest is the number of elements
const (
	DataLenBytes0  = uint16(0x00) << 14
	DataLenBytes8  = uint16(0x01) << 14
	DataLenBytes16 = uint16(0x02) << 14
	DataLenBytes32 = uint16(0x03) << 14

	DataLenMask  = uint16(0x03) << 14
	ArrayLenMask = ^DataLenMask
	MaxArrayLen  = int(ArrayLenMask) // 16383

	emptyArrayPrefix = lenPrefixType(0)
)

func (dl lenPrefixType) DataLenBytes() int {
	switch uint16(dl) & DataLenMask {
	case DataLenBytes0:
		return 0
	case DataLenBytes8:
		return 1
	case DataLenBytes16:
		return 2
	default:
		return 4
	}
}

func (dl lenPrefixType) NumElements() int {
	return int(uint16(dl) & ArrayLenMask)
}

func (dl lenPrefixType) Bytes() []byte {
	return utxobatch.EncodeInteger(uint16(dl))
}

// ArrayFromBytes wraps serialized array. Data is parsed lazily, on first access
func ArrayFromBytes(data []byte, maxNumElements ...int) *Array {
	mx := MaxArrayLen
	if len(maxNumElements) > 0 {
		mx = maxNumElements[0]
	}
	return &Array{
		bytes:          data,
		maxNumElements: mx,
	}
}

// ParseArray is ArrayFromBytes with eager parsing. Suitable for untrusted data
func ParseArray(data []byte, maxNumElements ...int) (*Array, error) {
	ret := ArrayFromBytes(data, maxNumElements...)
	var err error
	if ret.parsed, err = parseArray(data, ret.maxNumElements); err != nil {
		return nil, err
	}
	return ret, nil
}

func EmptyArray(maxNumElements ...int) *Array {
	return ArrayFromBytes(emptyArrayPrefix.Bytes(), maxNumElements...)
}

// MakeArray creates array from elements. Each element must be []byte, *Array or nil
func MakeArray(elems ...interface{}) *Array {
	ret := EmptyArray(len(elems))
	for _, e := range elems {
		switch d := e.(type) {
		case nil:
			ret.Push(nil)
		case []byte:
			ret.Push(d)
		case *Array:
			ret.Push(d.Bytes())
		default:
			panic(fmt.Sprintf("MakeArray: unsupported element type %T", e))
		}
	}
	return ret
}

func (a *Array) IsEmpty() bool {
	return a.NumElements() == 0
}

func (a *Array) Push(data []byte) int {
	a.ensureParsed()
	if len(a.parsed) >= a.maxNumElements {
		panic("Array.Push: too many elements")
	}
	a.parsed = append(a.parsed, data)
	a.bytes = nil
	return len(a.parsed) - 1
}

func (a *Array) ForEach(fun func(i int, data []byte) bool) {
	for i := 0; i < a.NumElements(); i++ {
		if !fun(i, a.At(i)) {
			break
		}
	}
}

func (a *Array) At(idx int) []byte {
	a.ensureParsed()
	return a.parsed[idx]
}

func (a *Array) NumElements() int {
	a.ensureParsed()
	return len(a.parsed)
}

func (a *Array) Bytes() []byte {
	a.ensureBytes()
	return a.bytes
}

func (a *Array) ensureParsed() {
	if a.parsed != nil {
		return
	}
	var err error
	if a.parsed, err = parseArray(a.bytes, a.maxNumElements); err != nil {
		panic(err)
	}
}

func (a *Array) ensureBytes() {
	if a.bytes != nil {
		return
	}
	var buf bytes.Buffer
	if err := encodeArray(a.parsed, &buf); err != nil {
		panic(err)
	}
	a.bytes = buf.Bytes()
}

func calcLenPrefix(data [][]byte) (lenPrefixType, error) {
	if len(data) > MaxArrayLen {
		return 0, errors.New("too long data")
	}
	var dl uint16
	for _, d := range data {
		t := DataLenBytes0
		switch {
		case len(d) > math.MaxUint32:
			return 0, errors.New("data can't be longer than MaxUint32")
		case len(d) > math.MaxUint16:
			t = DataLenBytes32
		case len(d) > math.MaxUint8:
			t = DataLenBytes16
		case len(d) > 0:
			t = DataLenBytes8
		}
		if dl < t {
			dl = t
		}
	}
	return lenPrefixType(dl | uint16(len(data))), nil
}

func encodeArray(data [][]byte, w io.Writer) error {
	prefix, err := calcLenPrefix(data)
	if err != nil {
		return err
	}
	if _, err = w.Write(prefix.Bytes()); err != nil {
		return err
	}
	numDataLenBytes := prefix.DataLenBytes()
	if numDataLenBytes == 0 {
		return nil
	}
	for _, d := range data {
		switch numDataLenBytes {
		case 1:
			err = utxobatch.WriteInteger(w, byte(len(d)))
		case 2:
			err = utxobatch.WriteInteger(w, uint16(len(d)))
		case 4:
			err = utxobatch.WriteInteger(w, uint32(len(d)))
		}
		if err != nil {
			return err
		}
		if _, err = w.Write(d); err != nil {
			return err
		}
	}
	return nil
}

// decodeElement cuts the element from the buffer without copying
func decodeElement(buf []byte, numDataLenBytes int) ([]byte, []byte, error) {
	if len(buf) < numDataLenBytes {
		return nil, nil, io.ErrUnexpectedEOF
	}
	var sz int
	switch numDataLenBytes {
	case 0:
	case 1:
		sz = int(buf[0])
	case 2:
		sz = int(utxobatch.DecodeInteger[uint16](buf[:2]))
	case 4:
		sz = int(utxobatch.DecodeInteger[uint32](buf[:4]))
	}
	if len(buf) < numDataLenBytes+sz {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return buf[numDataLenBytes+sz:], buf[numDataLenBytes : numDataLenBytes+sz], nil
}

func parseArray(data []byte, maxNumElements int) ([][]byte, error) {
	if len(data) < 2 {
		return nil, io.ErrUnexpectedEOF
	}
	prefix := lenPrefixType(utxobatch.DecodeInteger[uint16](data[:2]))
	n := prefix.NumElements()
	if n > maxNumElements {
		return nil, fmt.Errorf("parseArray: number of elements in the prefix %d is larger than maxNumElements %d",
			n, maxNumElements)
	}
	ret := make([][]byte, n)
	buf := data[2:]
	var err error
	for i := 0; i < n; i++ {
		if buf, ret[i], err = decodeElement(buf, prefix.DataLenBytes()); err != nil {
			return nil, err
		}
	}
	if len(buf) != 0 {
		return nil, errors.New("serialization error: not all bytes were consumed")
	}
	return ret, nil
}
