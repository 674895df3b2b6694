package jobs_test

import (
	"testing"

	"lathe/internal/jobs"
)

func TestValidTransitionEdges(t *testing.T) {
	cases := []struct {
		from, to jobs.Status
		ok       bool
	}{
		{jobs.StatusPending, jobs.StatusProcessing, true},
		{jobs.StatusPending, jobs.StatusFailed, true},
		{jobs.StatusPending, jobs.StatusCompleted, false},
		{jobs.StatusProcessing, jobs.StatusCompleted, true},
		{jobs.StatusProcessing, jobs.StatusFailed, true},
		{jobs.StatusProcessing, jobs.StatusPending, false},
		{jobs.StatusCompleted, jobs.StatusProcessing, false},
		{jobs.StatusCompleted, jobs.StatusFailed, false},
		{jobs.StatusFailed, jobs.StatusProcessing, false},
		{jobs.StatusFailed, jobs.StatusCompleted, false},
		{jobs.StatusPending, jobs.StatusPending, true},
		{jobs.StatusProcessing, jobs.StatusProcessing, true},
	}
	for _, tc := range cases {
		if got := jobs.ValidTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]jobs.Mode{
		"area":    jobs.ModeArea,
		"AREA":    jobs.ModeArea,
		" area ":  jobs.ModeArea,
		"object":  jobs.ModeObject,
		"":        jobs.ModeObject,
		"unknown": jobs.ModeObject,
	}
	for input, want := range cases {
		if got := jobs.ParseMode(input); got != want {
			t.Errorf("ParseMode(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestAdvanceHeartbeatCapsAtCeiling(t *testing.T) {
	job := jobs.New("j", jobs.ModeObject, "")
	job.SetProcessing("Processing images...", 0.2)

	for i := 0; i < 200; i++ {
		prev := job.Progress
		job.AdvanceHeartbeat(0.01, 0.9)
		if job.Progress < prev {
			t.Fatalf("heartbeat regressed: %v -> %v", prev, job.Progress)
		}
	}
	if job.Progress != 0.9 {
		t.Fatalf("progress = %v, want ceiling 0.9", job.Progress)
	}
}

func TestSetFailedResetsProgressAndArtifact(t *testing.T) {
	job := jobs.New("j", jobs.ModeArea, "")
	job.SetProcessing("Processing images...", 0.6)
	job.SetFailed("Processing failed: exit status 1")

	if job.Status != jobs.StatusFailed {
		t.Fatalf("status = %s", job.Status)
	}
	if job.Progress != 0 {
		t.Fatalf("progress = %v, want 0", job.Progress)
	}
	if job.ArtifactPath != "" {
		t.Fatalf("artifact = %q, want empty", job.ArtifactPath)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := jobs.ParseStatus("  Completed "); !ok || status != jobs.StatusCompleted {
		t.Fatalf("ParseStatus = %s, %v", status, ok)
	}
	if _, ok := jobs.ParseStatus("bogus"); ok {
		t.Fatal("expected bogus status to be rejected")
	}
}
