package vulkan

import (
	"errors"
	"io"
	"strings"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
)

func TestErrorScopesCapture(t *testing.T) {
	es := NewErrorScopes()
	es.Push(ErrorFilterValidation)

	if !es.Report(ErrorFilterValidation, "first") {
		t.Fatal("Report() not captured by open validation scope")
	}
	es.Report(ErrorFilterValidation, "second")

	err := es.Pop()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Pop() = %v, want *ValidationError", err)
	}
	if len(verr.Messages) != 2 || verr.Messages[0] != "first" {
		t.Errorf("Messages = %v, want [first second]", verr.Messages)
	}
	if got, want := verr.Error(), "validation error: first (and 1 more)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if es.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", es.Depth())
	}
}

func TestErrorScopesNesting(t *testing.T) {
	es := NewErrorScopes()
	es.Push(ErrorFilterValidation)
	es.Push(ErrorFilterOutOfMemory)

	// Skips the out of memory scope and lands in the outer one.
	es.Report(ErrorFilterValidation, "bad pipeline")

	if err := es.Pop(); err != nil {
		t.Errorf("inner Pop() = %v, want nil", err)
	}
	err := es.Pop()
	if err == nil || !strings.Contains(err.Error(), "bad pipeline") {
		t.Errorf("outer Pop() = %v, want bad pipeline", err)
	}
}

func TestErrorScopesEmpty(t *testing.T) {
	es := NewErrorScopes()
	if err := es.Pop(); !errors.Is(err, core.ErrErrorScopeEmpty) {
		t.Errorf("Pop() on empty stack = %v, want ErrErrorScopeEmpty", err)
	}

	es.Push(ErrorFilterValidation)
	if err := es.Pop(); err != nil {
		t.Errorf("Pop() with nothing captured = %v, want nil", err)
	}
}

func TestErrorScopesUncaptured(t *testing.T) {
	var buf strings.Builder
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(io.Discard) })

	es := NewErrorScopes()
	if es.Report(ErrorFilterOutOfMemory, "device memory exhausted") {
		t.Fatal("Report() captured without an open scope")
	}
	if !strings.Contains(buf.String(), "uncaptured out-of-memory error: device memory exhausted") {
		t.Errorf("log = %q, want uncaptured error line", buf.String())
	}
}

func TestDebugReportCallback(t *testing.T) {
	es := NewErrorScopes()
	es.Push(ErrorFilterValidation)

	warning := vk.DebugReportFlags(vk.DebugReportWarningBit)
	es.debugReportCallback(warning, 0, 0, 0, 1, "Validation", "just a warning", nil)
	if err := es.Pop(); err != nil {
		t.Fatalf("warning was captured: %v", err)
	}

	es.Push(ErrorFilterValidation)
	errorBit := vk.DebugReportFlags(vk.DebugReportErrorBit)
	if ret := es.debugReportCallback(errorBit, 0, 0, 0, 42, "Validation", "vertex stride mismatch", nil); ret != vk.Bool32(vk.False) {
		t.Errorf("callback returned %d, want VK_FALSE", ret)
	}
	err := es.Pop()
	if err == nil || !strings.Contains(err.Error(), "[Validation] Code 42 : vertex stride mismatch") {
		t.Errorf("Pop() = %v, want captured validation message", err)
	}
}
