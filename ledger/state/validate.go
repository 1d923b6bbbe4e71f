package state

import (
	"fmt"
	"math/big"

	"github.com/lunfardo314/easyfl"
	"github.com/lunfardo314/utxobatch/ledger"
	"go.uber.org/multierr"
)

// IsValidTx returns true if the transaction can be applied to the pool as it is now
func IsValidTx(pool ledger.StateReader, tx *ledger.Transaction, verifier ledger.SignatureVerifier) bool {
	return CheckTransaction(pool, tx, verifier) == nil
}

// CheckTransaction checks the transaction against the pool without changing it. Returns nil
// if the transaction is valid, otherwise all found violations combined. Each violation wraps
// one of ledger.ErrUnknownInput, ErrBadSignature, ErrDuplicateClaim, ErrNegativeOutput,
// ErrValueNotConserved or ErrMalformed.
// Other transactions are not taken into account
func CheckTransaction(pool ledger.StateReader, tx *ledger.Transaction, verifier ledger.SignatureVerifier) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ledger.ErrMalformed)
	}
	if pool == nil {
		return fmt.Errorf("%w: nil pool", ledger.ErrMalformed)
	}
	if verifier == nil {
		verifier = ledger.ED25519Verifier
	}
	var ret error
	err := easyfl.CatchPanicOrError(func() error {
		ret = checkTransaction(pool, tx, verifier)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrMalformed, err)
	}
	return ret
}

func checkTransaction(pool ledger.StateReader, tx *ledger.Transaction, verifier ledger.SignatureVerifier) error {
	var err error
	inSum, allResolved, e := checkInputs(pool, tx, verifier)
	err = multierr.Append(err, e)
	outSum, e := checkOutputs(tx)
	err = multierr.Append(err, e)
	// the sum of inputs is only known when all of them are in the pool
	if allResolved && inSum.Cmp(outSum) < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: inputs %s, outputs %s", ledger.ErrValueNotConserved, inSum, outSum))
	}
	return err
}

// checkInputs checks existence, signatures and uniqueness of inputs. Returns sum of consumed amounts
// and false if some inputs are nil or not in the pool
func checkInputs(pool ledger.StateReader, tx *ledger.Transaction, verifier ledger.SignatureVerifier) (*big.Int, bool, error) {
	var err error
	sum := new(big.Int)
	allResolved := true
	seen := make(map[ledger.OutputID]struct{}, tx.NumInputs())

	tx.ForEachInput(func(i int, in *ledger.Input) bool {
		if in == nil {
			err = multierr.Append(err, fmt.Errorf("%w: input #%d is nil", ledger.ErrMalformed, i))
			allResolved = false
			return true
		}
		if _, already := seen[in.SourceID]; already {
			err = multierr.Append(err, fmt.Errorf("%w: input #%d repeats %s", ledger.ErrDuplicateClaim, i, in.SourceID.String()))
		}
		seen[in.SourceID] = struct{}{}

		out, found := pool.GetUTXO(in.SourceID)
		if !found || out == nil {
			// signature can't be checked either. The input is reported only as unknown
			err = multierr.Append(err, fmt.Errorf("%w: input #%d consumes %s", ledger.ErrUnknownInput, i, in.SourceID.String()))
			allResolved = false
			return true
		}
		if !verifier.Verify(out.Recipient(), tx.SigningPayload(i), in.Signature) {
			err = multierr.Append(err, fmt.Errorf("%w: input #%d", ledger.ErrBadSignature, i))
		}
		sum.Add(sum, big.NewInt(int64(out.Amount())))
		return true
	})
	return sum, allResolved, err
}

// checkOutputs checks that output values are non-negative. Returns sum of produced amounts
func checkOutputs(tx *ledger.Transaction) (*big.Int, error) {
	var err error
	sum := new(big.Int)
	for i, o := range tx.Outputs() {
		if o == nil {
			err = multierr.Append(err, fmt.Errorf("%w: output #%d is nil", ledger.ErrMalformed, i))
			continue
		}
		if o.Amount().IsNegative() {
			err = multierr.Append(err, fmt.Errorf("%w: output #%d has value %d", ledger.ErrNegativeOutput, i, o.Amount()))
		}
		sum.Add(sum, big.NewInt(int64(o.Amount())))
	}
	return sum, err
}
