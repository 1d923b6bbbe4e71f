package txbuilder

import (
	"sort"

	"github.com/lunfardo314/utxobatch/ledger"
)

// SortOutputsByAmount sorts outputs by amount, ascending or descending. Ties are broken by output ID
func SortOutputsByAmount(outs []*ledger.OutputWithID, desc ...bool) []*ledger.OutputWithID {
	descending := len(desc) > 0 && desc[0]
	sort.Slice(outs, func(i, j int) bool {
		ai, aj := outs[i].Output.Amount(), outs[j].Output.Amount()
		if ai == aj {
			return string(outs[i].ID[:]) < string(outs[j].ID[:])
		}
		if descending {
			return ai > aj
		}
		return ai < aj
	})
	return outs
}
