package call

import (
	"slices"

	"github.com/matheus3301/chatsync/internal/model"
)

// validTransitions defines allowed call status transitions. Rejected and
// ended are terminal.
var validTransitions = map[model.CallStatus][]model.CallStatus{
	model.CallPending:  {model.CallAccepted, model.CallRejected, model.CallEnded},
	model.CallAccepted: {model.CallEnded},
}

// CanTransition reports whether a session in from may move to to.
func CanTransition(from, to model.CallStatus) bool {
	return slices.Contains(validTransitions[from], to)
}
