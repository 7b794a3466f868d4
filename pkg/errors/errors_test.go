package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestAppErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("boom")
	err := New(CodeInternal, "failed to do thing", cause)

	if !Is(err, cause) {
		t.Fatalf("expected Is(err, cause) to be true")
	}

	var app *AppError
	if !As(err, &app) {
		t.Fatalf("expected As to find the AppError")
	}
	if app.Code != CodeInternal {
		t.Fatalf("expected code %s, got %s", CodeInternal, app.Code)
	}
}

func TestSequenceMismatchCarriesCurrentSeq(t *testing.T) {
	err := SequenceMismatch(3)
	if err.Code != CodeSequenceMismatch {
		t.Fatalf("expected code %s, got %s", CodeSequenceMismatch, err.Code)
	}
	if !strings.Contains(err.Error(), "current is 3") {
		t.Fatalf("expected the message to carry current seq 3, got %q", err.Error())
	}
}

func TestValueAlreadyProposed(t *testing.T) {
	err := ValueAlreadyProposed()
	if err.Code != CodeValueAlreadyProposed {
		t.Fatalf("expected code %s, got %s", CodeValueAlreadyProposed, err.Code)
	}
}
