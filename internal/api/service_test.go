package api_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lathe/internal/api"
	"lathe/internal/jobs"
	"lathe/internal/logging"
	"lathe/internal/services"
	"lathe/internal/storage"
	"lathe/internal/testsupport"
)

type recordingScheduler struct {
	dispatched []*jobs.Job
	err        error
}

func (r *recordingScheduler) Dispatch(ctx context.Context, job *jobs.Job) error {
	if r.err != nil {
		return r.err
	}
	r.dispatched = append(r.dispatched, job)
	return nil
}

func newService(t *testing.T, sched api.Scheduler) (*api.JobService, *jobs.Store, *storage.Layout) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	layout := storage.NewLayout(cfg)
	return api.NewJobService(store, layout, sched, logging.NewNop()), store, layout
}

func TestSubmitRegistersPendingJobAndDispatches(t *testing.T) {
	sched := &recordingScheduler{}
	svc, store, _ := newService(t, sched)

	uploads := []api.Upload{
		{Filename: "front.jpg", Content: strings.NewReader("img-a")},
		{Filename: "back.jpg", Content: strings.NewReader("img-b")},
	}
	jobID, err := svc.Submit(context.Background(), "object", uploads)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if jobID == "" {
		t.Fatal("empty job id")
	}

	job, err := store.GetByID(context.Background(), jobID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.Progress != 0 {
		t.Fatalf("progress = %v, want 0", job.Progress)
	}
	if len(sched.dispatched) != 1 || sched.dispatched[0].ID != jobID {
		t.Fatalf("dispatched = %+v", sched.dispatched)
	}

	for _, name := range []string{"front.jpg", "back.jpg"} {
		if _, err := os.Stat(filepath.Join(job.InputDir, name)); err != nil {
			t.Fatalf("upload %s not persisted: %v", name, err)
		}
	}
}

func TestSubmitRejectsEmptyBatchWithoutCreatingState(t *testing.T) {
	sched := &recordingScheduler{}
	svc, store, _ := newService(t, sched)

	_, err := svc.Submit(context.Background(), "object", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("rejected submission created %d jobs", len(all))
	}
	if len(sched.dispatched) != 0 {
		t.Fatal("rejected submission was dispatched")
	}
}

func TestSubmitDefaultsUnknownModeToObject(t *testing.T) {
	sched := &recordingScheduler{}
	svc, store, _ := newService(t, sched)

	jobID, err := svc.Submit(context.Background(), "panorama", []api.Upload{
		{Filename: "a.jpg", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatal(err)
	}
	job, err := store.GetByID(context.Background(), jobID)
	if err != nil {
		t.Fatal(err)
	}
	if job.Mode != jobs.ModeObject {
		t.Fatalf("mode = %s, want object", job.Mode)
	}
}

func TestSubmitFailsJobWhenDispatchFails(t *testing.T) {
	sched := &recordingScheduler{err: errors.New("workflow manager not running")}
	svc, store, _ := newService(t, sched)

	_, err := svc.Submit(context.Background(), "object", []api.Upload{
		{Filename: "a.jpg", Content: strings.NewReader("x")},
	})
	if err == nil {
		t.Fatal("expected dispatch error")
	}

	all, lerr := store.List(context.Background())
	if lerr != nil {
		t.Fatal(lerr)
	}
	if len(all) != 1 || all[0].Status != jobs.StatusFailed {
		t.Fatalf("expected one failed job, got %+v", all)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	svc, _, _ := newService(t, &recordingScheduler{})

	_, err := svc.Status(context.Background(), "no-such-job")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestArtifactStates(t *testing.T) {
	sched := &recordingScheduler{}
	svc, store, layout := newService(t, sched)
	ctx := context.Background()

	jobID, err := svc.Submit(ctx, "object", []api.Upload{
		{Filename: "a.jpg", Content: strings.NewReader("x")},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Pending job: artifact not ready yet.
	if _, err := svc.Artifact(ctx, jobID); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("pending artifact err = %v, want not ready", err)
	}

	// Complete the job with a real artifact on disk.
	if err := layout.EnsureResultsRoot(); err != nil {
		t.Fatal(err)
	}
	artifact := layout.ResultPath(jobID)
	if err := os.WriteFile(artifact, []byte("usdz"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, jobID, func(j *jobs.Job) error {
		j.SetProcessing("Processing images...", 0.2)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, jobID, func(j *jobs.Job) error {
		j.SetCompleted("Processing complete", artifact)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	path, err := svc.Artifact(ctx, jobID)
	if err != nil {
		t.Fatalf("completed artifact: %v", err)
	}
	if path != artifact {
		t.Fatalf("path = %q, want %q", path, artifact)
	}

	// Vanished artifact reads as not found even though the row says completed.
	if err := os.Remove(artifact); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Artifact(ctx, jobID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("vanished artifact err = %v, want not found", err)
	}
}
