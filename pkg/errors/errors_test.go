package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseAndCode(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("socket closed")
	err := Wrap(CodeDependency, cause, "call provider")

	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if err.Error() != "DEPENDENCY_ERROR: call provider" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeStateConflict, "intent not confirmable")
	wrapped := fmt.Errorf("confirm: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatalf("expected typed error")
	}
	if typed.Code() != CodeStateConflict {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
}

func TestStateConflictMapsToBadRequest(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(CodeStateConflict)
	if meta.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeValidation, stdErrors.New("bad stop order"), "validate stops")
	dump := Dump(err)

	if dump.Code != CodeValidation {
		t.Fatalf("unexpected code: %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}
