package utxobatch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegers(t *testing.T) {
	t.Run("encode", func(t *testing.T) {
		require.EqualValues(t, []byte{0x07}, EncodeInteger(uint8(7)))
		require.EqualValues(t, []byte{0x01, 0x02}, EncodeInteger(uint16(0x0102)))
		require.EqualValues(t, []byte{0xff, 0xff, 0xff, 0xfe}, EncodeInteger(int32(-2)))
		require.EqualValues(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfe}, EncodeInteger(int64(-2)))
	})
	t.Run("decode", func(t *testing.T) {
		require.EqualValues(t, 1337, DecodeInteger[uint32](EncodeInteger(uint32(1337))))
		require.EqualValues(t, -42, DecodeInteger[int64](EncodeInteger(int64(-42))))
		require.EqualValues(t, -1, DecodeInteger[int8]([]byte{0xff}))
		require.EqualValues(t, -300, DecodeInteger[int16](EncodeInteger(int16(-300))))
		require.Panics(t, func() {
			DecodeInteger[uint32]([]byte{1})
		})
		_, err := IntegerFromBytes[uint16]([]byte{1, 2, 3})
		require.Error(t, err)
	})
	t.Run("read write", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteInteger(&buf, uint16(7)))
		require.EqualValues(t, EncodeInteger(uint16(7)), buf.Bytes())
		var v uint16
		require.NoError(t, ReadInteger(&buf, &v))
		require.EqualValues(t, 7, v)
	})
}
