package worker

import (
	"errors"
	"strings"
	"testing"
)

func TestPanicErrorCarriesValue(t *testing.T) {
	err := errFromRecover("runtime error: index out of range [3]")
	if !strings.Contains(err.Error(), "index out of range [3]") {
		t.Fatalf("panic message = %q, want the recovered value in it", err.Error())
	}

	wrapped := errFromRecover(errors.New("nil pointer dereference"))
	if !strings.Contains(wrapped.Error(), "nil pointer dereference") {
		t.Fatalf("panic message = %q, want the recovered error in it", wrapped.Error())
	}
}
