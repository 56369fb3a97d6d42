package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSweep_Success(t *testing.T) {
	before := testutil.ToFloat64(sweepRuns.WithLabelValues("trial_end"))
	transitionsBefore := testutil.ToFloat64(sweepTransitions.WithLabelValues("trial_end"))

	ObserveSweep("trial_end", 3, 50*time.Millisecond, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(sweepRuns.WithLabelValues("trial_end")))
	assert.Equal(t, transitionsBefore+3, testutil.ToFloat64(sweepTransitions.WithLabelValues("trial_end")))
	assert.Equal(t, float64(0), testutil.ToFloat64(sweepErrors.WithLabelValues("trial_end")))
}

func TestObserveSweep_Error(t *testing.T) {
	before := testutil.ToFloat64(sweepErrors.WithLabelValues("grace_expiry"))
	transitionsBefore := testutil.ToFloat64(sweepTransitions.WithLabelValues("grace_expiry"))

	ObserveSweep("grace_expiry", 2, time.Millisecond, errors.New("boom"))

	assert.Equal(t, before+1, testutil.ToFloat64(sweepErrors.WithLabelValues("grace_expiry")))
	// Transitions from a failed run are not trusted.
	assert.Equal(t, transitionsBefore, testutil.ToFloat64(sweepTransitions.WithLabelValues("grace_expiry")))
}
