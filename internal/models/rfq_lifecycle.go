package models

import (
	"fmt"
	"time"
)

type Action string

const (
	ActionQuote  Action = "quote"
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionExpire Action = "expire"
)

type transitionKey struct {
	from   RFQStatus
	action Action
}

var transitions = map[transitionKey]RFQStatus{
	{RFQPending, ActionQuote}:  RFQQuoted,
	{RFQPending, ActionExpire}: RFQExpired,
	{RFQQuoted, ActionAccept}:  RFQAccepted,
	{RFQQuoted, ActionReject}:  RFQRejected,
	{RFQQuoted, ActionExpire}:  RFQExpired,
}

// ActionTarget is the status an action moves an RFQ to when it is permitted.
func ActionTarget(a Action) RFQStatus {
	switch a {
	case ActionQuote:
		return RFQQuoted
	case ActionAccept:
		return RFQAccepted
	case ActionReject:
		return RFQRejected
	case ActionExpire:
		return RFQExpired
	default:
		return ""
	}
}

// DecisionAction maps a buyer decision onto the lifecycle action.
func DecisionAction(d Decision) Action {
	if d == DecisionAccept {
		return ActionAccept
	}
	return ActionReject
}

// TransitionError describes a status change the lifecycle does not allow.
type TransitionError struct {
	From   RFQStatus
	To     RFQStatus
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move rfq from %q to %q: %s", e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// NextStatus is the only place the RFQ transition graph is encoded.
func NextStatus(from RFQStatus, action Action) (RFQStatus, error) {
	if to, ok := transitions[transitionKey{from, action}]; ok {
		return to, nil
	}

	to := ActionTarget(action)
	reason := fmt.Sprintf("action %q is not allowed from status %q", action, from)
	switch {
	case !ValidRFQStatus(from):
		reason = fmt.Sprintf("unknown status %q", from)
	case to == "":
		reason = fmt.Sprintf("unknown action %q", action)
	case from.Terminal():
		reason = fmt.Sprintf("status %q is terminal", from)
	}
	return "", &TransitionError{From: from, To: to, Reason: reason}
}

// Transition is a status change conditioned on From still being the stored status.
type Transition struct {
	RFQId   string
	From    RFQStatus
	To      RFQStatus
	ActorId string
	At      time.Time
	// Quote is attached to the RFQ together with the status change when set.
	Quote *Quote
}
