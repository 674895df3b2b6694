package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatProgress(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "  0%"},
		{0.2, " 20%"},
		{0.905, " 91%"},
		{1.0, "100%"},
		{1.4, "100%"},
		{-0.1, "  0%"},
	}
	for _, tc := range cases {
		if got := formatProgress(tc.in); got != tc.want {
			t.Errorf("formatProgress(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeServerURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:1100":         "http://127.0.0.1:1100",
		"http://host:1100/":      "http://host:1100",
		"https://host":           "https://host",
		"  10.0.0.5:1100  ":      "http://10.0.0.5:1100",
		"":                       "",
	}
	for in, want := range cases {
		if got := normalizeServerURL(in); got != want {
			t.Errorf("normalizeServerURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCollectImagePathsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt", "c.HEIC"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	extra := filepath.Join(dir, "explicit.bin")
	if err := os.WriteFile(extra, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := collectImagePaths([]string{dir, extra})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
		filepath.Join(dir, "c.HEIC"),
		extra,
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths = %v, want %v", paths, want)
		}
	}
}
