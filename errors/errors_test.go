package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := InvalidHandle("node", 999)

	msg := err.Error()
	if !strings.Contains(msg, "invalid node handle 999") {
		t.Fatalf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, string(PhaseValidate)) {
		t.Fatalf("expected phase in message, got: %s", msg)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("queue exhausted")
	err := EngineFault("sim_run", cause)

	if !stderrors.Is(err, cause) {
		t.Fatal("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "queue exhausted") {
		t.Fatalf("cause missing from message: %s", err.Error())
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := NilArgument("outNodes")

	if !stderrors.Is(err, &Error{Phase: PhaseValidate, Kind: KindNilArgument}) {
		t.Fatal("expected match on phase+kind")
	}
	if !stderrors.Is(err, &Error{Kind: KindNilArgument}) {
		t.Fatal("expected match on kind alone")
	}
	if stderrors.Is(err, &Error{Kind: KindEmptyArray}) {
		t.Fatal("unexpected match on different kind")
	}
}

func TestAs(t *testing.T) {
	var target *Error
	err := EmptyArray("devices")

	if !stderrors.As(err, &target) {
		t.Fatal("expected errors.As to succeed")
	}
	if target.Kind != KindEmptyArray {
		t.Fatalf("wrong kind: %s", target.Kind)
	}
}
