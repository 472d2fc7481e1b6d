package models

// Action is an admin-side operation on a booking's status.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

var statusTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

var actionTargets = map[Action]string{
	ActionConfirm:  StatusConfirmed,
	ActionComplete: StatusCompleted,
	ActionCancel:   StatusCancelled,
}

// CanTransition reports whether a booking may move from one status to
// another. Completed and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminalStatus(status string) bool {
	return len(statusTransitions[status]) == 0
}

// ActionTarget resolves an admin action to its target status.
func ActionTarget(action Action) (string, bool) {
	target, ok := actionTargets[action]
	return target, ok
}

// AvailableActions lists the admin actions that are legal for a booking in
// the given status. Terminal statuses offer none.
func AvailableActions(status string) []Action {
	switch status {
	case StatusPending:
		return []Action{ActionConfirm, ActionCancel}
	case StatusConfirmed:
		return []Action{ActionComplete, ActionCancel}
	default:
		return nil
	}
}
