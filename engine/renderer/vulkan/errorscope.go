package vulkan

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
)

// ErrorFilter selects which kind of device error a scope captures.
type ErrorFilter int

const (
	ErrorFilterValidation ErrorFilter = iota
	ErrorFilterOutOfMemory
)

func (f ErrorFilter) String() string {
	switch f {
	case ErrorFilterValidation:
		return "validation"
	case ErrorFilterOutOfMemory:
		return "out-of-memory"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// ValidationError holds every message captured by one error scope.
type ValidationError struct {
	Filter   ErrorFilter
	Messages []string
}

func (e *ValidationError) Error() string {
	switch len(e.Messages) {
	case 0:
		return fmt.Sprintf("%s error", e.Filter)
	case 1:
		return fmt.Sprintf("%s error: %s", e.Filter, e.Messages[0])
	default:
		return fmt.Sprintf("%s error: %s (and %d more)", e.Filter, e.Messages[0], len(e.Messages)-1)
	}
}

// Details joins all captured messages, one per line.
func (e *ValidationError) Details() string {
	return strings.Join(e.Messages, "\n")
}

type errorScope struct {
	filter   ErrorFilter
	messages []string
}

// ErrorScopes is a stack of error scopes. Errors reported while a scope with a
// matching filter is open are kept by the innermost such scope; the rest are
// logged as uncaptured.
type ErrorScopes struct {
	mutex  sync.Mutex
	scopes []*errorScope
}

func NewErrorScopes() *ErrorScopes {
	return &ErrorScopes{}
}

func (es *ErrorScopes) Push(filter ErrorFilter) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	es.scopes = append(es.scopes, &errorScope{filter: filter})
}

// Pop closes the innermost scope and returns the errors it captured, or nil.
func (es *ErrorScopes) Pop() error {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if len(es.scopes) == 0 {
		return core.ErrErrorScopeEmpty
	}
	scope := es.scopes[len(es.scopes)-1]
	es.scopes = es.scopes[:len(es.scopes)-1]

	if len(scope.messages) == 0 {
		return nil
	}
	return &ValidationError{Filter: scope.filter, Messages: scope.messages}
}

func (es *ErrorScopes) Depth() int {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	return len(es.scopes)
}

// Report hands a device error to the innermost open scope with the same
// filter. It returns false when no scope captured it.
func (es *ErrorScopes) Report(filter ErrorFilter, message string) bool {
	es.mutex.Lock()
	for i := len(es.scopes) - 1; i >= 0; i-- {
		if es.scopes[i].filter == filter {
			es.scopes[i].messages = append(es.scopes[i].messages, message)
			es.mutex.Unlock()
			return true
		}
	}
	es.mutex.Unlock()

	core.LogError("uncaptured %s error: %s", filter, message)
	return false
}

// debugReportCallback receives the messages of VK_EXT_debug_report. It may be
// called from a driver thread.
func (es *ErrorScopes) debugReportCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		es.Report(ErrorFilterValidation, fmt.Sprintf("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage))
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
