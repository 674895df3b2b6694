package storage_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lathe/internal/storage"
	"lathe/internal/testsupport"
)

func TestAllocateUploadAreaIsLazyAndDisjoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := storage.NewLayout(cfg)

	dirA, err := layout.AllocateUploadArea("job-a")
	if err != nil {
		t.Fatalf("AllocateUploadArea: %v", err)
	}
	dirB, err := layout.AllocateUploadArea("job-b")
	if err != nil {
		t.Fatalf("AllocateUploadArea: %v", err)
	}
	if dirA == dirB {
		t.Fatal("upload areas must be disjoint")
	}
	if info, err := os.Stat(dirA); err != nil || !info.IsDir() {
		t.Fatalf("upload area not created: %v", err)
	}
}

func TestAllocateUploadAreaRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := storage.NewLayout(cfg)

	if _, err := layout.AllocateUploadArea("dup"); err != nil {
		t.Fatal(err)
	}
	_, err := layout.AllocateUploadArea("dup")
	if !errors.Is(err, storage.ErrStorage) {
		t.Fatalf("expected ErrStorage for duplicate id, got %v", err)
	}
}

func TestSaveUploadPreservesNameAndBytes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := storage.NewLayout(cfg)

	dir, err := layout.AllocateUploadArea("job")
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte{0xFF, 0xD8, 0xFF, 0x00, 0x01} // arbitrary binary content
	path, err := layout.SaveUpload(dir, "IMG_0001.jpeg", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if filepath.Base(path) != "IMG_0001.jpeg" {
		t.Fatalf("saved name = %q", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("upload bytes were not preserved verbatim")
	}
}

func TestSaveUploadStripsDirectoryComponents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := storage.NewLayout(cfg)

	dir, err := layout.AllocateUploadArea("job")
	if err != nil {
		t.Fatal(err)
	}

	path, err := layout.SaveUpload(dir, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("upload escaped its area: %q", path)
	}
	if filepath.Base(path) != "passwd" {
		t.Fatalf("saved name = %q", filepath.Base(path))
	}
}

func TestResultPathIsDeterministic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	layout := storage.NewLayout(cfg)

	first := layout.ResultPath("abc-123")
	second := layout.ResultPath("abc-123")
	if first != second {
		t.Fatal("result path must be deterministic")
	}
	if filepath.Base(first) != "abc-123"+storage.ArtifactExt {
		t.Fatalf("result path = %q", first)
	}
	if filepath.Dir(first) != cfg.Paths.ResultsDir {
		t.Fatalf("result path outside results root: %q", first)
	}
}
