package pipeline

import (
	"strings"
)

// simulation failure classes
const (
	simGeneric int = 0
	simArity   int = 1
	simStorage int = 2
)

// marker substrings observed in runtime diagnostics, lowercased
var (
	storageMarkers = []string{
		"missingvalue",
		"storage",
		"not initialized",
		"uninitialized",
	}
	arityMarkers = []string{
		"arity",
		"unexpected number of arguments",
		"invalid number of arguments",
		"wrong number of arguments",
		"parameter count",
		"unexpectedsize",
	}
)

// classifySim maps a raw simulation diagnostic to a failure class. Storage errors mean the contract was never initialized and are never retried; arity mismatches trigger the alternate-signature fallback; everything else is generic.
func classifySim(diag string) int {
	d := strings.ToLower(diag)
	for _, m := range storageMarkers {
		if strings.Contains(d, m) {
			return simStorage
		}
	}
	for _, m := range arityMarkers {
		if strings.Contains(d, m) {
			return simArity
		}
	}
	return simGeneric
}
