// Package lifecycle holds the single source of truth for package
// status transitions. Every handler path that mutates a package status
// must go through Next; nothing else is allowed to compute a status.
package lifecycle

import (
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
)

// Action is a requested package transition.
type Action string

const (
	// Customer actions.
	ActionRequestRelease Action = "request_release"
	ActionRequestDispose Action = "request_dispose"
	ActionRequestScan    Action = "request_scan"
	ActionCancelRequest  Action = "cancel_request"
	ActionConfirmReceipt Action = "confirm_receipt"

	// Admin actions.
	ActionApproveRelease Action = "approve_release"
	ActionApproveDispose Action = "approve_dispose"
	ActionCompleteScan   Action = "complete_scan"
	ActionRejectRequest  Action = "reject_request"
)

// Actor identifies who is attempting the transition.
type Actor int

const (
	ActorCustomer Actor = iota
	ActorAdmin
)

type transition struct {
	from  models.PackageStatus
	actor Actor
}

var transitions = map[Action]map[transition]models.PackageStatus{
	ActionRequestRelease: {
		{models.StatusStored, ActorCustomer}: models.StatusRequestToRelease,
	},
	ActionRequestDispose: {
		{models.StatusStored, ActorCustomer}: models.StatusRequestToDispose,
	},
	ActionRequestScan: {
		{models.StatusStored, ActorCustomer}: models.StatusRequestToScan,
	},
	ActionCancelRequest: {
		{models.StatusRequestToRelease, ActorCustomer}: models.StatusStored,
		{models.StatusRequestToDispose, ActorCustomer}: models.StatusStored,
		{models.StatusRequestToScan, ActorCustomer}:    models.StatusStored,
	},
	ActionConfirmReceipt: {
		{models.StatusReleased, ActorCustomer}: models.StatusRetrieved,
	},
	ActionApproveRelease: {
		{models.StatusRequestToRelease, ActorAdmin}: models.StatusReleased,
	},
	ActionApproveDispose: {
		{models.StatusRequestToDispose, ActorAdmin}: models.StatusDisposed,
	},
	ActionCompleteScan: {
		{models.StatusRequestToScan, ActorAdmin}: models.StatusStored,
	},
	ActionRejectRequest: {
		{models.StatusRequestToRelease, ActorAdmin}: models.StatusStored,
		{models.StatusRequestToDispose, ActorAdmin}: models.StatusStored,
		{models.StatusRequestToScan, ActorAdmin}:    models.StatusStored,
	},
}

// Known reports whether the action name is recognised at all.
func Known(action Action) bool {
	_, ok := transitions[action]
	return ok
}

// AdminOnly reports whether the action requires an admin actor.
func AdminOnly(action Action) bool {
	switch action {
	case ActionApproveRelease, ActionApproveDispose, ActionCompleteScan, ActionRejectRequest:
		return true
	}
	return false
}

// Next validates the requested transition and returns the resulting
// status. Terminal states refuse everything with a conflict; unknown
// actions and wrong actor/state combinations fail validation.
func Next(current models.PackageStatus, action Action, actor Actor) (models.PackageStatus, error) {
	table, ok := transitions[action]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown package action")
	}
	if current.IsTerminal() {
		return "", appErrors.Clone(appErrors.ErrFinalized, "package is in a terminal state")
	}
	next, ok := table[transition{from: current, actor: actor}]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition,
			"action "+string(action)+" not allowed from status "+string(current))
	}
	return next, nil
}
