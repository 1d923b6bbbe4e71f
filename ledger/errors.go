package ledger

import "errors"

// Reasons for rejecting a transaction. Validation errors wrap one of these
var (
	ErrUnknownInput      = errors.New("unknown input")
	ErrBadSignature      = errors.New("bad signature")
	ErrDuplicateClaim    = errors.New("output claimed more than once")
	ErrNegativeOutput    = errors.New("negative output value")
	ErrValueNotConserved = errors.New("value not conserved")
	ErrMalformed         = errors.New("malformed transaction")
)

// RejectReasons lists all reasons, in the order they are reported
var RejectReasons = []error{
	ErrMalformed,
	ErrUnknownInput,
	ErrBadSignature,
	ErrDuplicateClaim,
	ErrNegativeOutput,
	ErrValueNotConserved,
}

// ReasonLabel is a short name of the reason, used as a metrics label
func ReasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrUnknownInput):
		return "unknown_input"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrDuplicateClaim):
		return "duplicate_claim"
	case errors.Is(err, ErrNegativeOutput):
		return "negative_output"
	case errors.Is(err, ErrValueNotConserved):
		return "value_not_conserved"
	}
	return "other"
}
