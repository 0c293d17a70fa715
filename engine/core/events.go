package core

import "fmt"

// System event codes delivered by the platform layer.
type SystemEventCode int

const (
	// Window framebuffer changed size.
	/* Context usage:
	 * u32 width = data.U32[0];
	 * u32 height = data.U32[1];
	 */
	EVENT_CODE_RESIZED SystemEventCode = 0x01

	// The user asked to close the window. Stops the loop.
	EVENT_CODE_CLOSE_REQUESTED SystemEventCode = 0x02

	// The window contents must be repainted.
	EVENT_CODE_REDRAW_REQUESTED SystemEventCode = 0x03
)

func (c SystemEventCode) String() string {
	switch c {
	case EVENT_CODE_RESIZED:
		return "resized"
	case EVENT_CODE_CLOSE_REQUESTED:
		return "close-requested"
	case EVENT_CODE_REDRAW_REQUESTED:
		return "redraw-requested"
	default:
		return fmt.Sprintf("event(%d)", int(c))
	}
}

type EventContext struct {
	Type SystemEventCode
	Data struct {
		U32 [2]uint32
	}
}

func NewResizedEvent(width, height uint32) EventContext {
	e := EventContext{Type: EVENT_CODE_RESIZED}
	e.Data.U32[0] = width
	e.Data.U32[1] = height
	return e
}

func NewCloseRequestedEvent() EventContext {
	return EventContext{Type: EVENT_CODE_CLOSE_REQUESTED}
}

func NewRedrawRequestedEvent() EventContext {
	return EventContext{Type: EVENT_CODE_REDRAW_REQUESTED}
}

// Size returns the width and height carried by a resized event.
func (e EventContext) Size() (uint32, uint32) {
	return e.Data.U32[0], e.Data.U32[1]
}

// CoalesceRedraws folds every redraw request of a batch into a single one
// placed after all the other events, keeping their relative order.
func CoalesceRedraws(events []EventContext) []EventContext {
	out := make([]EventContext, 0, len(events))
	redraw := false
	for _, e := range events {
		if e.Type == EVENT_CODE_REDRAW_REQUESTED {
			redraw = true
			continue
		}
		out = append(out, e)
	}
	if redraw {
		out = append(out, NewRedrawRequestedEvent())
	}
	return out
}
