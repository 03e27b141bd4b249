package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(KindType, "cannot add STRING and INT")
	if got := e.Error(); got != "TypeError: cannot add STRING and INT" {
		t.Fatalf("unexpected message %q", got)
	}

	e.At(3, 5)
	if got := e.Error(); got != "TypeError at line 3, column 5: cannot add STRING and INT" {
		t.Fatalf("unexpected message %q", got)
	}

	// The first location wins.
	e.At(9, 1)
	if e.Line != 3 {
		t.Fatalf("location was overwritten: %d", e.Line)
	}
}

func TestFrom(t *testing.T) {
	if From(nil) != nil {
		t.Fatalf("From(nil) should be nil")
	}

	orig := Newf(KindArity, "LENGTH expects %d argument(s)", 1)
	wrapped := fmt.Errorf("calling: %w", orig)
	if got := From(wrapped); got != orig {
		t.Fatalf("expected the wrapped script error back, got %v", got)
	}

	cancelled := From(fmt.Errorf("await: %w", context.Canceled))
	if cancelled.Kind != KindCancelled || cancelled.Catchable() {
		t.Fatalf("expected uncatchable cancellation, got %v", cancelled)
	}
	if !errors.Is(cancelled, context.Canceled) {
		t.Fatalf("cancellation should unwrap to context.Canceled")
	}

	bridge := From(errors.New("no such table: t"))
	if bridge.Kind != KindExternalBridge {
		t.Fatalf("expected bridge error, got %s", bridge.Kind)
	}
	if bridge.Error() != "ExternalBridgeError: no such table: t" {
		t.Fatalf("unexpected message %q", bridge.Error())
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("plain errors have no kind")
	}
	if !Is(fmt.Errorf("x: %w", New(KindUser, "boom")), KindUser) {
		t.Fatalf("expected UserError through wrapping")
	}
}
