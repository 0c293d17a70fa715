package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRunIDIsStableUUID(t *testing.T) {
	id := RunID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("RunID() = %q is not a uuid: %v", id, err)
	}
	if RunID() != id {
		t.Fatal("RunID() changed between calls")
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() {
		_ = SetLogLevel(InfoLevel)
	})

	if err := SetLogLevel(ErrorLevel); err != nil {
		t.Fatalf("SetLogLevel(error) = %v", err)
	}
	LogInfo("hidden %d", 1)
	if buf.Len() != 0 {
		t.Fatalf("info record written at error level: %q", buf.String())
	}
	LogError("draw: %s", "boom")
	out := buf.String()
	if !strings.Contains(out, "draw: boom") {
		t.Fatalf("error record missing, got %q", out)
	}
	if !strings.Contains(out, RunID()) {
		t.Fatalf("record does not carry the run id, got %q", out)
	}

	if err := SetLogLevel("loud"); err == nil {
		t.Fatal("SetLogLevel accepted an unknown level")
	}
}

func TestMetricsAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.010, 0.010)
	}
	if got := m.FrameTime(); got < 9.99 || got > 10.01 {
		t.Fatalf("FrameTime() = %f ms, want 10", got)
	}
	if m.TotalFrames != uint64(AVG_COUNT) {
		t.Fatalf("TotalFrames = %d, want %d", m.TotalFrames, AVG_COUNT)
	}
	// 30 frames of 10ms = 300ms, not a full second yet
	if fps, _ := m.Frame(); fps != 0 {
		t.Fatalf("FPS = %f before a full second elapsed", fps)
	}
	for i := 0; i < 80; i++ {
		m.Update(0.010, 0.010)
	}
	if fps, _ := m.Frame(); fps < 99 || fps > 101 {
		t.Fatalf("FPS = %f, want ~100", fps)
	}
}

func TestMetricsFPSFollowsWallClock(t *testing.T) {
	tests := []struct {
		name     string
		draw     float64
		interval float64
		frames   int
		want     float64
	}{
		// Fast draws spread over idle time: 10 frames a second, not 500.
		{"event driven", 0.002, 0.100, 40, 10},
		{"busy loop", 0.016, 0.016, 130, 62},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetrics()
			for i := 0; i < tt.frames; i++ {
				m.Update(tt.draw, tt.interval)
			}
			if fps, _ := m.Frame(); fps < tt.want-1 || fps > tt.want+1 {
				t.Errorf("FPS = %f, want ~%.0f", fps, tt.want)
			}
			if avg := m.FrameTime(); avg < tt.draw*1000-0.01 || avg > tt.draw*1000+0.01 {
				t.Errorf("FrameTime() = %f ms, want %f", avg, tt.draw*1000)
			}
		})
	}
}

func TestLogKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(io.Discard) })

	LogError("%s", errors.New("allocation failed at 100% of heap"))
	if !strings.Contains(buf.String(), "allocation failed at 100% of heap") {
		t.Fatalf("message mangled, got %q", buf.String())
	}
}

func TestClock(t *testing.T) {
	base := time.Unix(100, 0)
	now := base
	c := &Clock{now: func() time.Time { return now }}

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatal("non-started clock must not advance")
	}
	c.Start()
	now = base.Add(1500 * time.Millisecond)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Fatalf("Elapsed() = %f, want 1.5", c.Elapsed())
	}
	c.Stop()
	now = base.Add(5 * time.Second)
	c.Update()
	if c.Elapsed() != 1.5 {
		t.Fatalf("stopped clock moved to %f", c.Elapsed())
	}
}
