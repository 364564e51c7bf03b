package tracker

import (
	"fmt"
)

// validTransitions is the allowed-moves table for issue status. The engine
// only consults it when Options.StrictTransitions is set; board drag-and-drop
// otherwise permits any move.
var validTransitions = map[Status]map[Status]bool{
	StatusBacklog: {
		StatusSelected:   true,
		StatusInProgress: true,
	},
	StatusSelected: {
		StatusBacklog:    true,
		StatusInProgress: true,
	},
	StatusInProgress: {
		StatusSelected: true,
		StatusInReview: true,
		StatusDone:     true,
		StatusBacklog:  true,
	},
	StatusInReview: {
		StatusInProgress: true,
		StatusDone:       true,
	},
	StatusDone: {
		StatusInProgress: true,
		StatusBacklog:    true,
	},
}

var sprintTransitions = map[SprintStatus]SprintStatus{
	SprintPlanned: SprintActive,
	SprintActive:  SprintCompleted,
}

func IsValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

func IsValidSprintStatus(s SprintStatus) bool {
	switch s {
	case SprintPlanned, SprintActive, SprintCompleted:
		return true
	default:
		return false
	}
}

func ValidateTransition(from, to Status) error {
	if from == to {
		return nil
	}
	next, ok := validTransitions[from]
	if !ok || !next[to] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return nil
}

// ValidateSprintTransition enforces PLANNED -> ACTIVE -> COMPLETED.
func ValidateSprintTransition(from, to SprintStatus) error {
	if sprintTransitions[from] != to {
		return fmt.Errorf("%w: sprint %s -> %s", ErrInvalidStateTransition, from, to)
	}
	return nil
}
