package domain

import "time"

// Event is a lifecycle trigger. Payment events come from the ledger, the time
// events from scheduled sweeps, cancellation from the shop administrator.
type Event string

const (
	// EventPaymentSettled fires when a successful payment leaves no open
	// invoice on the subscription.
	EventPaymentSettled Event = "payment_settled"
	// EventTrialEnded fires when the trial expires without the first period
	// being settled.
	EventTrialEnded Event = "trial_ended"
	// EventPeriodEnded fires when a period ends with its renewal unsettled.
	EventPeriodEnded Event = "period_ended"
	// EventGraceExpired fires when the grace window lapses while past due.
	EventGraceExpired Event = "grace_expired"
	EventCancelRequested Event = "cancel_requested"
)

// Apply is the pure transition function. It returns the next state and
// whether anything changed. Reapplying an event that already took effect is a
// no-op, so replays and redundant sweeps cannot move the state twice. The only
// illegal combination is reviving a cancelled subscription.
func Apply(state State, event Event) (State, bool, error) {
	if state == StateCancelled {
		if event == EventCancelRequested {
			return state, false, nil
		}
		return state, false, ErrInvalidTransition
	}

	switch event {
	case EventPaymentSettled:
		if state == StateActive {
			return state, false, nil
		}
		return StateActive, true, nil
	case EventTrialEnded:
		if state != StateTrialing {
			return state, false, nil
		}
		return StatePastDue, true, nil
	case EventPeriodEnded:
		if state != StateActive {
			return state, false, nil
		}
		return StatePastDue, true, nil
	case EventGraceExpired:
		if state != StatePastDue {
			return state, false, nil
		}
		return StateSuspended, true, nil
	case EventCancelRequested:
		return StateCancelled, true, nil
	default:
		return state, false, ErrInvalidTransition
	}
}

// EffectiveState derives the state a subscription would hold at the given
// instant, assuming no settlement has happened since its timestamps were
// written. Reads use it so a due transition is visible before the sweep that
// persists it has run. grace is the window a past-due subscription gets
// before suspension.
func EffectiveState(sub *Subscription, now time.Time, grace time.Duration) State {
	state := sub.State
	deadline := sub.GraceUntil

	switch state {
	case StateTrialing:
		if sub.TrialEnd != nil && !now.Before(*sub.TrialEnd) {
			state = StatePastDue
			d := sub.TrialEnd.Add(grace)
			deadline = &d
		}
	case StateActive:
		if !now.Before(sub.CurrentPeriodEnd) {
			state = StatePastDue
			d := sub.CurrentPeriodEnd.Add(grace)
			deadline = &d
		}
	}
	if state == StatePastDue && deadline != nil && !now.Before(*deadline) {
		state = StateSuspended
	}
	return state
}
