package domain

import "dispatch/pkg/apperror"

// RouteStatus tracks a Route's progress through execution.
type RouteStatus string

const (
	RouteDraft      RouteStatus = "draft"
	RouteActive     RouteStatus = "active"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
	RouteCancelled  RouteStatus = "cancelled"
)

// IsTerminal reports whether s is a final status a Route cannot leave.
func (s RouteStatus) IsTerminal() bool {
	return s == RouteCompleted || s == RouteCancelled
}

var routeTransitions = map[RouteStatus]map[RouteStatus]bool{
	RouteDraft: {
		RouteActive:    true,
		RouteCancelled: true,
	},
	RouteActive: {
		RouteInProgress: true,
		RouteCancelled:  true,
	},
	RouteInProgress: {
		RouteCompleted: true,
		RouteCancelled: true,
	},
}

// CanTransitionRoute reports whether a Route may move from `from` to `to`.
func CanTransitionRoute(from, to RouteStatus) bool {
	allowed, ok := routeTransitions[from]
	return ok && allowed[to]
}

// TransitionRoute validates and applies a RouteStatus transition.
func TransitionRoute(from, to RouteStatus) (RouteStatus, error) {
	if !CanTransitionRoute(from, to) {
		return from, apperror.InvalidTransition(string(from), string(to), "route")
	}
	return to, nil
}
