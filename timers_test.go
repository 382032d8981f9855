package strata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimedMachine(t *testing.T) *Machine {
	t.Helper()
	b := NewGraph()
	idle := b.State("idle").Initial()
	idle.To("running").On("start")
	running := b.State("running")
	running.To("idle").On("timeout")
	return mustStart(t, mustBuild(t, b))
}

func TestTimerFires(t *testing.T) {
	m := newTimedMachine(t)
	mustDispatch(t, m, "start")

	m.Timers().After(10*time.Millisecond, "timeout", nil)
	require.Eventually(t, func() bool {
		return m.IsActive("idle")
	}, time.Second, 5*time.Millisecond, "timer event should move the machine back to idle")
	assert.Equal(t, 0, m.Timers().Active())
}

func TestTimerCancel(t *testing.T) {
	m := newTimedMachine(t)
	mustDispatch(t, m, "start")

	id := m.Timers().After(50*time.Millisecond, "timeout", nil)
	require.NoError(t, m.Timers().Cancel(id))
	assert.Equal(t, 0, m.Timers().Active())

	time.Sleep(80 * time.Millisecond)
	assert.True(t, m.IsActive("running"), "cancelled timer must not fire")
}

func TestTimerCancelUnknown(t *testing.T) {
	m := newTimedMachine(t)

	err := m.Timers().Cancel("no-such-timer")
	require.Error(t, err)
	assert.IsType(t, &TimerError{}, err)
	assert.Equal(t, ErrCodeTimer, GetErrorCode(err))
}

func TestStopCancelsTimers(t *testing.T) {
	m := newTimedMachine(t)
	mustDispatch(t, m, "start")

	m.Timers().After(time.Minute, "timeout", nil)
	m.Timers().After(time.Minute, "timeout", nil)
	assert.Equal(t, 2, m.Timers().Active())

	require.NoError(t, m.Stop())
	assert.Equal(t, 0, m.Timers().Active())
}

func TestTimerPayloadDelivered(t *testing.T) {
	var got any
	b := NewGraph()
	idle := b.State("idle").Initial()
	idle.To("done").On("timeout").DoFunc(func(ctx Context) error {
		got = ctx.Event().Payload
		return nil
	})
	b.State("done")
	m := mustStart(t, mustBuild(t, b))

	m.Timers().After(10*time.Millisecond, "timeout", "late mail")
	require.Eventually(t, func() bool {
		return m.IsActive("done")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "late mail", got)
}
