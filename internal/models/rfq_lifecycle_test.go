package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []RFQStatus{RFQPending, RFQQuoted, RFQAccepted, RFQRejected, RFQExpired}
var allActions = []Action{ActionQuote, ActionAccept, ActionReject, ActionExpire}

func TestNextStatusAllowed(t *testing.T) {
	cases := []struct {
		from   RFQStatus
		action Action
		to     RFQStatus
	}{
		{RFQPending, ActionQuote, RFQQuoted},
		{RFQPending, ActionExpire, RFQExpired},
		{RFQQuoted, ActionAccept, RFQAccepted},
		{RFQQuoted, ActionReject, RFQRejected},
		{RFQQuoted, ActionExpire, RFQExpired},
	}

	for _, c := range cases {
		to, err := NextStatus(c.from, c.action)
		require.NoError(t, err, "%s -> %s", c.from, c.action)
		assert.Equal(t, c.to, to)
	}
}

func TestNextStatusExhaustive(t *testing.T) {
	allowed := 0
	for _, from := range allStatuses {
		for _, action := range allActions {
			to, err := NextStatus(from, action)
			if err == nil {
				allowed++
				assert.False(t, from.Terminal(), "transition out of terminal status %s", from)
				assert.True(t, ValidRFQStatus(to))
				continue
			}

			assert.True(t, errors.Is(err, ErrInvalidTransition))
			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, from, te.From)
			assert.Equal(t, ActionTarget(action), te.To)
			assert.NotEmpty(t, te.Reason)
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestNextStatusTerminalReason(t *testing.T) {
	_, err := NextStatus(RFQAccepted, ActionReject)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Reason, "terminal")

	_, err = NextStatus(RFQStatus("archived"), ActionQuote)
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Reason, "unknown status")

	_, err = NextStatus(RFQPending, Action("cancel"))
	require.True(t, errors.As(err, &te))
	assert.Contains(t, te.Reason, "unknown action")
}

func TestRFQExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, RFQ{}.Expired(now))

	deadline := now
	assert.True(t, RFQ{ExpiresAt: &deadline}.Expired(now), "deadline equal to now is expired")

	later := now.Add(time.Second)
	assert.False(t, RFQ{ExpiresAt: &later}.Expired(now))
}

func TestRFQErrorKinds(t *testing.T) {
	err := NewRFQError(ErrConflict, "abc", nil)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, ErrConflict, ErrorKind(err))
	assert.Equal(t, "abc", ErrorRFQId(err))
	assert.Equal(t, "rfq abc: "+ErrConflict.Error(), err.Error())

	_, terr := NextStatus(RFQExpired, ActionQuote)
	wrapped := NewRFQError(ErrInvalidTransition, "abc", terr)
	assert.True(t, errors.Is(wrapped, ErrInvalidTransition))
	var te *TransitionError
	assert.True(t, errors.As(wrapped, &te))

	assert.Nil(t, ErrorKind(errors.New("boom")))
	assert.Empty(t, ErrorRFQId(errors.New("boom")))
}
