package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUser       = errors.New("provided user does not exist")
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("requested entity does not exist")
	ErrInvalidTransition = errors.New("status transition is not permitted")
	ErrForbidden         = errors.New("provided user does not have permission for this operation")
	ErrConflict          = errors.New("rfq was modified concurrently, retry with refreshed state")
)

// RFQError binds one of the error kinds above to the RFQ it happened on.
type RFQError struct {
	Kind  error
	RFQId string
	Err   error
}

func NewRFQError(kind error, rfqId string, err error) *RFQError {
	return &RFQError{Kind: kind, RFQId: rfqId, Err: err}
}

func (e *RFQError) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil && e.Err != e.Kind {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}
	if e.RFQId != "" {
		return fmt.Sprintf("rfq %s: %s", e.RFQId, msg)
	}
	return msg
}

func (e *RFQError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorKind returns the sentinel kind carried by err, or nil for unclassified errors.
func ErrorKind(err error) error {
	for _, kind := range []error{ErrValidation, ErrInvalidUser, ErrForbidden, ErrNotFound, ErrInvalidTransition, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// ErrorRFQId returns the id of the RFQ err refers to, if any.
func ErrorRFQId(err error) string {
	var rfqErr *RFQError
	if errors.As(err, &rfqErr) {
		return rfqErr.RFQId
	}
	return ""
}
