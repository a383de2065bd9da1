package resiliency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolateReturnsStepError(t *testing.T) {
	log := testr.New(t)
	boom := errors.New("boom")

	err := Isolate(log, "entity.stop", func() error { return boom })

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "entity.stop", se.Step)
}

func TestIsolateConvertsPanic(t *testing.T) {
	log := testr.New(t)

	err := Isolate(log, "hub.cancel", func() error { panic("bad state") })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad state")
	assert.Equal(t, []string{"hub.cancel"}, FailedSteps(err))
}

func TestIsolateSuccess(t *testing.T) {
	assert.NoError(t, Isolate(testr.New(t), "noop", func() error { return nil }))
}

func TestRunStepsRunsAllSteps(t *testing.T) {
	log := testr.New(t)
	var ran []string

	err := RunSteps(log,
		Step{Name: "first", Fn: func() error { ran = append(ran, "first"); return errors.New("x") }},
		Step{Name: "second", Fn: func() error { ran = append(ran, "second"); panic("y") }},
		Step{Name: "third", Fn: func() error { ran = append(ran, "third"); return nil }},
	)

	assert.Equal(t, []string{"first", "second", "third"}, ran)
	require.Error(t, err)
	assert.ElementsMatch(t, []string{"first", "second"}, FailedSteps(err))
}

func TestRetryGetEventuallySucceeds(t *testing.T) {
	attempts := 0
	b := backoff.NewExponentialBackOff(backoff.WithInitialInterval(time.Millisecond), backoff.WithMaxInterval(5*time.Millisecond))

	v, err := RetryGet(context.Background(), b, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, attempts)
}

func TestRetryGetTimeoutKeepsLastError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	b := backoff.NewExponentialBackOff(backoff.WithInitialInterval(time.Millisecond), backoff.WithMaxInterval(5*time.Millisecond))
	lastErr := errors.New("port busy")

	_, err := RetryGet(ctx, b, func() (int, error) { return 0, lastErr })

	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
}
