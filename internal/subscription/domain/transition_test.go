package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_PaymentSettled(t *testing.T) {
	for _, from := range []State{StateTrialing, StatePastDue, StateSuspended} {
		next, changed, err := Apply(from, EventPaymentSettled)
		require.NoError(t, err)
		assert.True(t, changed, "from %s", from)
		assert.Equal(t, StateActive, next)
	}

	// Settling while already active extends nothing twice.
	next, changed, err := Apply(StateActive, EventPaymentSettled)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StateActive, next)
}

func TestApply_Idempotent(t *testing.T) {
	cases := []struct {
		state State
		event Event
	}{
		{StateActive, EventTrialEnded},
		{StatePastDue, EventTrialEnded},
		{StatePastDue, EventPeriodEnded},
		{StateSuspended, EventGraceExpired},
		{StateActive, EventGraceExpired},
	}
	for _, tc := range cases {
		next, changed, err := Apply(tc.state, tc.event)
		require.NoError(t, err)
		assert.False(t, changed, "%s on %s", tc.event, tc.state)
		assert.Equal(t, tc.state, next)
	}
}

func TestApply_LapseEvents(t *testing.T) {
	next, changed, err := Apply(StateTrialing, EventTrialEnded)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatePastDue, next)

	next, changed, err = Apply(StateActive, EventPeriodEnded)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatePastDue, next)

	next, changed, err = Apply(StatePastDue, EventGraceExpired)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateSuspended, next)
}

func TestApply_Cancelled(t *testing.T) {
	for _, from := range []State{StateTrialing, StateActive, StatePastDue, StateSuspended} {
		next, changed, err := Apply(from, EventCancelRequested)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, StateCancelled, next)
	}

	// Cancelling twice is a no-op.
	next, changed, err := Apply(StateCancelled, EventCancelRequested)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StateCancelled, next)

	// Cancelled is terminal for everything else.
	_, _, err = Apply(StateCancelled, EventPaymentSettled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestEffectiveState(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trialEnd := base.AddDate(0, 0, 14)
	grace := 5 * 24 * time.Hour

	sub := &Subscription{
		State:              StateTrialing,
		TrialEnd:           &trialEnd,
		CurrentPeriodStart: base,
		CurrentPeriodEnd:   trialEnd,
	}

	assert.Equal(t, StateTrialing, EffectiveState(sub, base.AddDate(0, 0, 13), grace))
	assert.Equal(t, StatePastDue, EffectiveState(sub, trialEnd, grace))
	assert.Equal(t, StatePastDue, EffectiveState(sub, trialEnd.Add(grace-time.Second), grace))
	assert.Equal(t, StateSuspended, EffectiveState(sub, trialEnd.Add(grace), grace))
}

func TestEffectiveState_ActivePeriodLapse(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	grace := 5 * 24 * time.Hour

	sub := &Subscription{
		State:              StateActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	}

	assert.Equal(t, StateActive, EffectiveState(sub, end.Add(-time.Hour), grace))
	assert.Equal(t, StatePastDue, EffectiveState(sub, end, grace))
	assert.Equal(t, StateSuspended, EffectiveState(sub, end.Add(grace), grace))
}
