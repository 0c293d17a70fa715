package core

import "testing"

func TestResizedEventSize(t *testing.T) {
	e := NewResizedEvent(400, 300)
	if e.Type != EVENT_CODE_RESIZED {
		t.Fatalf("Type = %v, want %v", e.Type, EVENT_CODE_RESIZED)
	}
	w, h := e.Size()
	if w != 400 || h != 300 {
		t.Fatalf("Size() = %dx%d, want 400x300", w, h)
	}
}

func TestCoalesceRedraws(t *testing.T) {
	tests := []struct {
		name string
		in   []EventContext
		want []SystemEventCode
	}{
		{
			name: "empty",
			in:   nil,
			want: []SystemEventCode{},
		},
		{
			name: "single redraw",
			in:   []EventContext{NewRedrawRequestedEvent()},
			want: []SystemEventCode{EVENT_CODE_REDRAW_REQUESTED},
		},
		{
			name: "redraws folded after resize",
			in: []EventContext{
				NewRedrawRequestedEvent(),
				NewResizedEvent(1, 1),
				NewRedrawRequestedEvent(),
			},
			want: []SystemEventCode{EVENT_CODE_RESIZED, EVENT_CODE_REDRAW_REQUESTED},
		},
		{
			name: "close keeps its position",
			in: []EventContext{
				NewResizedEvent(1, 1),
				NewCloseRequestedEvent(),
				NewRedrawRequestedEvent(),
			},
			want: []SystemEventCode{EVENT_CODE_RESIZED, EVENT_CODE_CLOSE_REQUESTED, EVENT_CODE_REDRAW_REQUESTED},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoalesceRedraws(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("CoalesceRedraws() returned %d events, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Type != tt.want[i] {
					t.Errorf("event %d = %v, want %v", i, got[i].Type, tt.want[i])
				}
			}
		})
	}
}

func TestSystemEventCodeString(t *testing.T) {
	if got := EVENT_CODE_CLOSE_REQUESTED.String(); got != "close-requested" {
		t.Fatalf("String() = %q", got)
	}
	if got := SystemEventCode(42).String(); got != "event(42)" {
		t.Fatalf("String() = %q", got)
	}
}
