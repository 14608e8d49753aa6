package workflow

import (
	"slices"
	"time"

	"github.com/corray333/backend-labs/serviceorder/internal/service/apperrors"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/order"
	"github.com/corray333/backend-labs/serviceorder/internal/service/models/orderstatus"
)

// Initial is the status assigned to new orders when the caller does not pick one.
const Initial = orderstatus.Scheduled

type rule struct {
	next  []orderstatus.Status
	enter func(o *order.Order, now time.Time)
}

// rules is keyed by the target status for enter effects and by the source status for next.
var rules = map[orderstatus.Status]rule{
	orderstatus.Scheduled: {
		next: []orderstatus.Status{orderstatus.InProgress, orderstatus.Cancelled},
	},
	orderstatus.InProgress: {
		next: []orderstatus.Status{orderstatus.Completed, orderstatus.Cancelled},
		enter: func(o *order.Order, now time.Time) {
			o.StartedAt = &now
		},
	},
	orderstatus.Completed: {
		enter: func(o *order.Order, now time.Time) {
			o.CompletedAt = &now
		},
	},
	orderstatus.Cancelled: {},
}

// Known reports whether s is a status the workflow understands.
func Known(s orderstatus.Status) bool {
	_, ok := rules[s]

	return ok
}

// Allowed lists the statuses reachable from current.
func Allowed(current orderstatus.Status) []orderstatus.Status {
	return slices.Clone(rules[current].next)
}

// CanTransition reports whether current -> target is legal.
func CanTransition(current, target orderstatus.Status) bool {
	return slices.Contains(rules[current].next, target)
}

// Terminal reports whether no transition leaves s.
func Terminal(s orderstatus.Status) bool {
	return Known(s) && len(rules[s].next) == 0
}

// Transition returns a copy of o moved to target with its enter effects applied.
// The input order is never modified.
func Transition(o order.Order, target orderstatus.Status, targetID int64, now time.Time) (order.Order, error) {
	if !Known(target) {
		return o, apperrors.Validation("unknown status %q", target)
	}
	if !CanTransition(o.Status, target) {
		return o, apperrors.InvalidTransition("order %d cannot move from %s to %s", o.ID, o.Status, target)
	}

	next := o
	next.Status = target
	next.StatusID = targetID
	next.UpdatedAt = now
	if enter := rules[target].enter; enter != nil {
		enter(&next, now)
	}

	return next, nil
}

// NeedsVehicleSync reports whether entering target should push the order mileage to its vehicle.
func NeedsVehicleSync(o order.Order, target orderstatus.Status) bool {
	return target == orderstatus.Completed && o.Mileage != nil && o.VehicleID != 0
}

// Enter applies the entry effects of s to o without checking the transition.
// It is used when an order is created directly in a non-initial status.
func Enter(o order.Order, s orderstatus.Status, statusID int64, now time.Time) (order.Order, error) {
	if !Known(s) {
		return o, apperrors.Validation("unknown status %q", s)
	}

	o.Status = s
	o.StatusID = statusID
	if enter := rules[s].enter; enter != nil {
		enter(&o, now)
	}

	return o, nil
}
