package ledger

import (
	"fmt"
	"math"
)

// Amount is a signed integer number of tokens. It is signed only so that
// negative output values can be represented and rejected
type Amount int64

// Add returns a+b or an error on int64 overflow
func (a Amount) Add(b Amount) (Amount, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, fmt.Errorf("amount arithmetic overflow: %d + %d", a, b)
	}
	return a + b, nil
}

func (a Amount) IsNegative() bool {
	return a < 0
}

// SumAmounts sums amounts with overflow check
func SumAmounts(amounts ...Amount) (Amount, error) {
	var sum Amount
	var err error
	for _, a := range amounts {
		if sum, err = sum.Add(a); err != nil {
			return 0, err
		}
	}
	return sum, nil
}
