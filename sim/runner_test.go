package sim

import (
	"testing"
)

func TestRunner_HeadlessAdvances(t *testing.T) {
	eng := testEngine(t)
	r := NewRunner(eng, testConfig(), nil, nil)

	r.RunHeadless(50)

	if got := eng.TickCount(); got != 50 {
		t.Errorf("TickCount = %d, want 50", got)
	}
}

func TestRunner_BroadcastCadence(t *testing.T) {
	eng := testEngine(t)
	cfg := testConfig()
	cfg.Server.BroadcastEvery = 3

	var ticks []uint64
	r := NewRunner(eng, cfg, nil, func(f *Frame, paused bool) {
		if paused {
			t.Errorf("unexpected paused frame at tick %d", f.Tick)
		}
		ticks = append(ticks, f.Tick)
	})

	for i := 0; i < 9; i++ {
		r.step()
	}

	want := []uint64{3, 6, 9}
	if len(ticks) != len(want) {
		t.Fatalf("got %d frames (%v), want %d", len(ticks), ticks, len(want))
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Errorf("frame %d at tick %d, want %d", i, ticks[i], want[i])
		}
	}
}

func TestRunner_PauseStopsTicks(t *testing.T) {
	eng := testEngine(t)

	var pausedFrames, liveFrames int
	r := NewRunner(eng, testConfig(), nil, func(f *Frame, paused bool) {
		if paused {
			pausedFrames++
		} else {
			liveFrames++
		}
	})

	r.step()
	r.step()

	r.Pause()
	if !r.Paused() {
		t.Fatal("Paused() = false after Pause")
	}
	r.Pause() // repeated pause is a no-op

	r.step()
	r.step()
	if got := eng.TickCount(); got != 2 {
		t.Errorf("TickCount = %d while paused, want 2", got)
	}
	if pausedFrames != 1 {
		t.Errorf("paused frames = %d, want exactly 1 on transition", pausedFrames)
	}

	r.Resume()
	if r.Paused() {
		t.Fatal("Paused() = true after Resume")
	}
	r.step()
	if got := eng.TickCount(); got != 3 {
		t.Errorf("TickCount = %d after resume, want 3", got)
	}
	if liveFrames != 3 {
		t.Errorf("live frames = %d, want 3", liveFrames)
	}
}

func TestRunner_TelemetryFlushCadence(t *testing.T) {
	eng := testEngine(t)
	cfg := testConfig()
	cfg.Telemetry.StatsWindow = 0.05 // 5 ticks at DT = 0.01

	r := NewRunner(eng, cfg, nil, nil)
	if got := r.Collector().WindowDurationTicks(); got != 5 {
		t.Fatalf("WindowDurationTicks = %d, want 5", got)
	}

	r.RunHeadless(5)

	// The window flushed inside the run, so the collector is mid-window.
	if r.Collector().ShouldFlush(5) {
		t.Error("collector still pending after flush tick")
	}
	if !r.Collector().ShouldFlush(10) {
		t.Error("collector should be due again a window later")
	}
}
