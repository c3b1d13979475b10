package common

import (
	"errors"
	"os"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	if !IsNotFound(ErrFileNotFound) {
		t.Fatal("file not found should be a not-found error")
	}
	if !IsNotFound(WrapNotFound("glb", os.ErrNotExist)) {
		t.Fatal("wrapped not-found should classify as not found")
	}
	if !errors.Is(WrapNotFound("glb", os.ErrNotExist), os.ErrNotExist) {
		t.Fatal("wrapped cause should be preserved")
	}
	if !IsBadRequest(ErrInvalidJobID) {
		t.Fatal("invalid job id should be a bad request")
	}
	if IsNotFound(WrapInternal("copy", errors.New("disk full"))) {
		t.Fatal("internal error must not classify as not found")
	}
	if got := (ValidationError{Field: "file", Message: "missing"}).Error(); got != "file: missing" {
		t.Fatalf("unexpected validation message %q", got)
	}
}
