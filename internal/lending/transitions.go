package lending

import "github.com/erazemk/izposoja/internal/model"

// transitions lists the legal item status edges. old is terminal.
var transitions = map[string]map[string]struct{}{
	model.ItemStatusAvailable: {
		model.ItemStatusUnavailable: {},
		model.ItemStatusOld:         {},
	},
	model.ItemStatusUnavailable: {
		model.ItemStatusAvailable: {},
		model.ItemStatusOld:       {},
	},
	model.ItemStatusOld: {},
}

// CanTransition reports whether an item may move from one status to another.
// Self-edges are not transitions.
func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}
