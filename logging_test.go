package strata

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggingObserverLevels(t *testing.T) {
	var buf bytes.Buffer
	lo := NewLoggingObserver().WithWriter(&buf).WithLevel(LogInfo)
	m := mustStart(t, newToggleGraph(t), WithObserver(lo))

	mustDispatch(t, m, "start")
	out := buf.String()
	if !strings.Contains(out, "transition idle -> running on 'start'") {
		t.Errorf("missing transition line in:\n%s", out)
	}
	if strings.Contains(out, "enter running") {
		t.Error("state entries are debug-level and should be suppressed at info")
	}

	buf.Reset()
	lo.WithLevel(LogDebug)
	mustDispatch(t, m, "pause")
	out = buf.String()
	if !strings.Contains(out, "exit running") || !strings.Contains(out, "enter paused") {
		t.Errorf("missing debug lines in:\n%s", out)
	}
}

func TestLoggingObserverUnhandled(t *testing.T) {
	var buf bytes.Buffer
	lo := NewLoggingObserver().WithWriter(&buf).WithLevel(LogWarning)
	m := mustStart(t, newToggleGraph(t), WithObserver(lo))

	if _, err := m.Dispatch(NewEvent("bogus", nil)); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !strings.Contains(buf.String(), "unhandled event 'bogus'") {
		t.Errorf("missing warning in:\n%s", buf.String())
	}
}

func TestLoggingObserverCustomFormatter(t *testing.T) {
	var buf bytes.Buffer
	lo := NewLoggingObserver().
		WithWriter(&buf).
		WithLevel(LogInfo).
		WithFormatter(func(level LogLevel, message string) string {
			return level.String() + "|" + message
		})
	m := mustStart(t, newToggleGraph(t), WithObserver(lo))

	mustDispatch(t, m, "start")
	if !strings.Contains(buf.String(), "INFO|transition idle -> running on 'start'") {
		t.Errorf("formatter not applied:\n%s", buf.String())
	}
}
