package health

import (
	"testing"
	"time"
)

func TestUnknownModelIsAvailable(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	if !tr.IsAvailable("anthropic/claude-haiku-4-5") {
		t.Error("unknown model should be available")
	}
}

func TestDegradedAfterConsecutiveErrors(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.RecordError("m", "boom")
	if got := tr.GetStats("m").State; got != StateHealthy {
		t.Errorf("state after 1 error = %s", got)
	}
	tr.RecordError("m", "boom")
	if got := tr.GetStats("m").State; got != StateDegraded {
		t.Errorf("state after 2 errors = %s", got)
	}
	// Degraded still receives traffic.
	if !tr.IsAvailable("m") {
		t.Error("degraded model should stay available")
	}
}

func TestDownWithCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CooldownDuration = 50 * time.Millisecond
	tr := NewTracker(cfg)
	for i := 0; i < cfg.ConsecErrorsForDown; i++ {
		tr.RecordError("m", "boom")
	}
	if got := tr.GetStats("m").State; got != StateDown {
		t.Fatalf("state = %s", got)
	}
	if tr.IsAvailable("m") {
		t.Error("down model should be unavailable during cooldown")
	}
	time.Sleep(60 * time.Millisecond)
	if !tr.IsAvailable("m") {
		t.Error("model should be available after cooldown")
	}
}

func TestSuccessResetsStreak(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.RecordError("m", "boom")
	tr.RecordError("m", "boom")
	tr.RecordSuccess("m")

	s := tr.GetStats("m")
	if s.State != StateHealthy || s.ConsecErrors != 0 {
		t.Errorf("stats after success = %+v", s)
	}
	if s.TotalRequests != 3 || s.TotalErrors != 2 {
		t.Errorf("totals = %d/%d", s.TotalRequests, s.TotalErrors)
	}
}

func TestAllStats(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.RecordSuccess("a")
	tr.RecordError("b", "boom")
	all := tr.AllStats()
	if len(all) != 2 {
		t.Fatalf("len = %d", len(all))
	}
}

func TestGetStatsReturnsCopy(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.RecordSuccess("m")
	s := tr.GetStats("m")
	s.TotalRequests = 99
	if tr.GetStats("m").TotalRequests != 1 {
		t.Error("GetStats leaked internal state")
	}
}
