package ledger_test

import (
	"crypto/ed25519"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/stretchr/testify/require"
)

func genKey(t *testing.T) (ed25519.PrivateKey, ed25519.PublicKey) {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	pub, priv, err := ed25519.GenerateKey(rnd)
	require.NoError(t, err)
	return priv, pub
}

func TestOutputID(t *testing.T) {
	var txid ledger.TransactionID
	for i := range txid {
		txid[i] = byte(i)
	}
	t.Run("index", func(t *testing.T) {
		oid := ledger.NewOutputID(txid, 1337)
		require.EqualValues(t, 1337, oid.Index())
		require.EqualValues(t, txid, oid.TransactionID())
		back, err := ledger.OutputIDFromBytes(oid.Bytes())
		require.NoError(t, err)
		require.True(t, back == oid)
		t.Logf("output ID: %s", oid.String())
	})
	t.Run("equality", func(t *testing.T) {
		m := map[ledger.OutputID]int{}
		m[ledger.NewOutputID(txid, 0)] = 1
		m[ledger.NewOutputID(txid, 1)] = 2
		require.EqualValues(t, 1, m[ledger.NewOutputID(txid, 0)])
		require.EqualValues(t, 2, m[ledger.NewOutputID(txid, 1)])
		require.EqualValues(t, 2, len(m))
	})
	t.Run("wrong length", func(t *testing.T) {
		_, err := ledger.OutputIDFromBytes([]byte{1, 2, 3})
		require.Error(t, err)
		_, err = ledger.TransactionIDFromBytes([]byte{1, 2, 3})
		require.Error(t, err)
	})
	t.Run("hex", func(t *testing.T) {
		back, err := ledger.TransactionIDFromHexString(txid.StringHex())
		require.NoError(t, err)
		require.EqualValues(t, txid, back)
		_, err = ledger.TransactionIDFromHexString("zz")
		require.Error(t, err)
	})
}

func TestAmount(t *testing.T) {
	s, err := ledger.SumAmounts(1, 2, 3)
	require.NoError(t, err)
	require.EqualValues(t, 6, s)

	_, err = ledger.SumAmounts(math.MaxInt64, 1)
	require.Error(t, err)
	_, err = ledger.Amount(math.MinInt64).Add(-1)
	require.Error(t, err)
	s, err = ledger.SumAmounts(math.MaxInt64, -1, 1)
	require.NoError(t, err)
	require.EqualValues(t, math.MaxInt64, s)
	require.True(t, ledger.Amount(-1).IsNegative())
}

func TestOutput(t *testing.T) {
	_, pub := genKey(t)
	t.Run("basic", func(t *testing.T) {
		out := ledger.NewOutput(1337, pub)
		outBack, err := ledger.OutputFromBytes(out.Bytes())
		require.NoError(t, err)
		require.EqualValues(t, out.Bytes(), outBack.Bytes())
		require.EqualValues(t, 1337, outBack.Amount())
		require.True(t, outBack.IsOwnedBy(pub))
		t.Logf("output: %s, %d bytes", out.String(), len(out.Bytes()))
	})
	t.Run("negative", func(t *testing.T) {
		out := ledger.NewOutput(-5, pub)
		outBack, err := ledger.OutputFromBytes(out.Bytes())
		require.NoError(t, err)
		require.EqualValues(t, -5, outBack.Amount())
	})
	t.Run("immutable", func(t *testing.T) {
		key := append([]byte(nil), pub...)
		out := ledger.NewOutput(10, key)
		key[0] ^= 0xff
		require.True(t, out.IsOwnedBy(pub))
		r := out.Recipient()
		r[0] ^= 0xff
		require.True(t, out.IsOwnedBy(pub))
	})
	t.Run("rubbish", func(t *testing.T) {
		_, err := ledger.OutputFromBytes([]byte("abc"))
		require.Error(t, err)
	})
}

func makeTx(pub ed25519.PublicKey) *ledger.Transaction {
	var src ledger.TransactionID
	src[0] = 0xaa
	tx := ledger.NewTransaction()
	tx.AddInput(ledger.NewOutputID(src, 0))
	tx.AddInput(ledger.NewOutputID(src, 1))
	tx.AddOutput(ledger.NewOutput(40, pub))
	tx.AddOutput(ledger.NewOutput(55, pub))
	return tx
}

func TestTransaction(t *testing.T) {
	priv, pub := genKey(t)
	t.Run("signing payload excludes signatures", func(t *testing.T) {
		tx := makeTx(pub)
		p0 := tx.SigningPayload(0)
		p1 := tx.SigningPayload(1)
		require.NotEqualValues(t, p0, p1)
		idBefore := tx.ID()

		tx.AddSignature(0, ed25519.Sign(priv, p0))
		tx.AddSignature(1, ed25519.Sign(priv, p1))
		require.EqualValues(t, p0, tx.SigningPayload(0))
		require.EqualValues(t, p1, tx.SigningPayload(1))
		require.NotEqualValues(t, idBefore, tx.ID())
		require.True(t, ledger.ED25519Verifier.Verify(pub, tx.SigningPayload(1), tx.Input(1).Signature))
	})
	t.Run("serialization", func(t *testing.T) {
		tx := makeTx(pub)
		tx.AddSignature(0, ed25519.Sign(priv, tx.SigningPayload(0)))
		tx.Finalize()
		txBack, err := ledger.TransactionFromBytes(tx.Bytes())
		require.NoError(t, err)
		require.True(t, txBack.IsFinalized())
		require.EqualValues(t, tx.ID(), txBack.ID())
		require.EqualValues(t, 2, txBack.NumInputs())
		require.EqualValues(t, 2, txBack.NumOutputs())
		require.EqualValues(t, tx.Input(0).Signature, txBack.Input(0).Signature)
		require.EqualValues(t, 0, len(txBack.Input(1).Signature))
		require.EqualValues(t, 55, txBack.Output(1).Amount())
		t.Logf("%s", txBack.String())
	})
	t.Run("finalized is read only", func(t *testing.T) {
		tx := makeTx(pub)
		tx.Finalize()
		id := tx.ID()
		require.Panics(t, func() {
			tx.AddOutput(ledger.NewOutput(1, pub))
		})
		require.Panics(t, func() {
			tx.AddSignature(0, []byte{1})
		})
		require.EqualValues(t, id, tx.ID())
	})
	t.Run("produced output IDs", func(t *testing.T) {
		tx := makeTx(pub)
		tx.Finalize()
		n := 0
		tx.ForEachProducedOutput(func(oid ledger.OutputID, o *ledger.Output) bool {
			require.EqualValues(t, tx.ID(), oid.TransactionID())
			require.EqualValues(t, n, oid.Index())
			n++
			return true
		})
		require.EqualValues(t, 2, n)
	})
	t.Run("rubbish", func(t *testing.T) {
		_, err := ledger.TransactionFromBytes(nil)
		require.Error(t, err)
		_, err = ledger.TransactionFromBytes([]byte{0, 0})
		require.Error(t, err)
	})
}

func TestED25519Verifier(t *testing.T) {
	priv, pub := genKey(t)
	msg := []byte("message to be signed")
	sig := ed25519.Sign(priv, msg)
	require.True(t, ledger.ED25519Verifier.Verify(pub, msg, sig))

	sig[3] ^= 0x01
	require.False(t, ledger.ED25519Verifier.Verify(pub, msg, sig))
	require.False(t, ledger.ED25519Verifier.Verify(nil, msg, sig))
	require.False(t, ledger.ED25519Verifier.Verify(pub, msg, nil))
	require.False(t, ledger.ED25519Verifier.Verify([]byte{1, 2}, msg, []byte{3}))
}

func TestReasonLabel(t *testing.T) {
	for _, r := range ledger.RejectReasons {
		require.NotEqual(t, "other", ledger.ReasonLabel(r))
	}
	require.EqualValues(t, "other", ledger.ReasonLabel(nil))
}
