// Package job drives the lifecycle of an escrow-backed job: a guarded
// state machine, approval with fund release, and disputes.
package job

import "servifix/models"

// transitions is the legal status graph. Approval and disputes are
// side-channel operations, not entries in this table; completed, cancelled
// and disputed are terminal for status moves.
var transitions = map[string]map[string]struct{}{
	models.JobScheduled: {
		models.JobEnRoute:   {},
		models.JobCancelled: {},
	},
	models.JobEnRoute: {
		models.JobInProgress: {},
		models.JobCancelled:  {},
	},
	models.JobInProgress: {
		models.JobCompleted: {},
	},
	models.JobCompleted: {},
	models.JobCancelled: {},
	models.JobDisputed:  {},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to string) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = next[to]
	return ok
}

// forwardTransitions are the moves only the assigned technician may drive.
var forwardTransitions = map[string]struct{}{
	models.JobEnRoute:    {},
	models.JobInProgress: {},
	models.JobCompleted:  {},
}

// IsForward reports whether a status move is technician-driven progress.
func IsForward(to string) bool {
	_, ok := forwardTransitions[to]
	return ok
}
