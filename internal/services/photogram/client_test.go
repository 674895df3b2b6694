package photogram_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lathe/internal/services"
	"lathe/internal/services/photogram"
	"lathe/internal/testsupport"
)

type fakeExecutor struct {
	binary string
	args   []string
	stderr string
	err    error
	run    func(outputPath string)
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) (string, error) {
	f.binary = binary
	f.args = args
	if f.run != nil && len(args) >= 2 {
		f.run(args[1])
	}
	return f.stderr, f.err
}

func newClient(t *testing.T, areaFlag string, exec photogram.Executor) *photogram.Client {
	t.Helper()
	client, err := photogram.New("photogrammetry", areaFlag, 2*time.Second, 0, photogram.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestReconstructPassesInputAndOutput(t *testing.T) {
	exec := &fakeExecutor{run: func(outputPath string) {
		if err := os.WriteFile(outputPath, []byte("usdz"), 0o644); err != nil {
			t.Fatal(err)
		}
	}}
	client := newClient(t, "", exec)

	out := filepath.Join(t.TempDir(), "job.usdz")
	if err := client.Reconstruct(context.Background(), "/tmp/in", out, false); err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if exec.binary != "photogrammetry" {
		t.Fatalf("binary = %q", exec.binary)
	}
	if len(exec.args) != 2 || exec.args[0] != "/tmp/in" || exec.args[1] != out {
		t.Fatalf("args = %v", exec.args)
	}
}

func TestReconstructForwardsAreaFlagWhenConfigured(t *testing.T) {
	exec := &fakeExecutor{run: func(outputPath string) {
		_ = os.WriteFile(outputPath, []byte("usdz"), 0o644)
	}}
	client := newClient(t, "--no-object-masking", exec)

	out := filepath.Join(t.TempDir(), "job.usdz")
	if err := client.Reconstruct(context.Background(), "/tmp/in", out, true); err != nil {
		t.Fatal(err)
	}
	if len(exec.args) != 3 || exec.args[2] != "--no-object-masking" {
		t.Fatalf("args = %v", exec.args)
	}
}

func TestReconstructOmitsAreaFlagWithoutConfig(t *testing.T) {
	exec := &fakeExecutor{run: func(outputPath string) {
		_ = os.WriteFile(outputPath, []byte("usdz"), 0o644)
	}}
	client := newClient(t, "", exec)

	out := filepath.Join(t.TempDir(), "job.usdz")
	if err := client.Reconstruct(context.Background(), "/tmp/in", out, true); err != nil {
		t.Fatal(err)
	}
	if len(exec.args) != 2 {
		t.Fatalf("area mode without a configured flag must not add arguments: %v", exec.args)
	}
}

func TestReconstructReportsExitFailureWithStderr(t *testing.T) {
	exec := &fakeExecutor{stderr: "feature matching failed", err: errors.New("exit status 1")}
	client := newClient(t, "", exec)

	err := client.Reconstruct(context.Background(), "/tmp/in", filepath.Join(t.TempDir(), "out.usdz"), false)
	if err == nil {
		t.Fatal("expected error")
	}
	var execErr *photogram.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %T", err)
	}
	if execErr.Stderr != "feature matching failed" {
		t.Fatalf("stderr = %q", execErr.Stderr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("missing external tool marker: %v", err)
	}
}

func TestReconstructFailsWhenArtifactMissing(t *testing.T) {
	// Tool exits zero but never writes the artifact.
	exec := &fakeExecutor{}
	client := newClient(t, "", exec)

	err := client.Reconstruct(context.Background(), "/tmp/in", filepath.Join(t.TempDir(), "out.usdz"), false)
	if err == nil {
		t.Fatal("expected error for missing artifact")
	}
	var execErr *photogram.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got %T", err)
	}
}

func TestAvailableFindsStubbedBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithToolBinary("fake-recon"),
		testsupport.WithStubbedTool("#!/bin/sh\nexit 0\n"),
	)
	client, err := photogram.New(cfg.Tool.Binary, "", cfg.ProbeTimeout(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Available(context.Background()); err != nil {
		t.Fatalf("Available: %v", err)
	}
}

func TestAvailableReportsMissingBinary(t *testing.T) {
	client, err := photogram.New("definitely-not-installed-tool", "", time.Second, 0)
	if err != nil {
		t.Fatal(err)
	}
	err = client.Available(context.Background())
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}
