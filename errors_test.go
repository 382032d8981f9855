package strata

import (
	"errors"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	cases := []struct {
		err  error
		code ErrorCode
		is   func(error) bool
	}{
		{NewGraphError("s", "bad"), ErrCodeInvalidGraph, IsGraphError},
		{NewUnknownStateError("s"), ErrCodeUnknownState, IsGraphError},
		{NewAmbiguousTransitionError("s", "e", nil), ErrCodeAmbiguousTransition, IsAmbiguousTransitionError},
		{NewRegionConflictError("s", "e", nil), ErrCodeRegionConflict, IsAmbiguousTransitionError},
		{NewInvalidStateError("dispatch", "stopped"), ErrCodeInvalidState, IsInvalidStateError},
		{NewGuardError("s", "e", errors.New("boom")), ErrCodeGuardFailed, IsGuardError},
		{NewActionError("entry", "s", "e", errors.New("boom")), ErrCodeActionFailed, IsActionError},
	}
	for _, c := range cases {
		if !c.is(c.err) {
			t.Errorf("predicate rejected %T", c.err)
		}
		if GetErrorCode(c.err) != c.code {
			t.Errorf("code for %T = %v, want %v", c.err, GetErrorCode(c.err), c.code)
		}
	}
	if GetErrorCode(errors.New("plain")) != ErrCodeNone {
		t.Error("plain errors should map to ErrCodeNone")
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("root cause")
	if !errors.Is(NewGuardError("s", "e", cause), cause) {
		t.Error("guard error should unwrap to its cause")
	}
	if !errors.Is(NewActionError("exit", "s", "e", cause), cause) {
		t.Error("action error should unwrap to its cause")
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewAmbiguousTransitionError("running", "stop", []string{"a", "b"})
	msg := err.Error()
	if msg == "" || len(err.Candidates) != 2 {
		t.Errorf("unexpected ambiguity error: %q", msg)
	}

	ge := NewGraphError("", "graph has no states")
	if ge.Error() != "graph error: graph has no states" {
		t.Errorf("unexpected message: %q", ge.Error())
	}
}
