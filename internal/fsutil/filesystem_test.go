package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOSFileSystem_Exists(t *testing.T) {
	fs := OSFileSystem{}

	if !fs.Exists("filesystem.go") {
		t.Error("expected filesystem.go to exist")
	}

	if fs.Exists("nonexistent_file_xyz.go") {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestOSFileSystem_ReadFile(t *testing.T) {
	fs := OSFileSystem{}

	data, err := fs.ReadFile("filesystem.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	if len(data) == 0 {
		t.Error("expected non-empty file content")
	}
}

func TestOSFileSystem_MkdirAllAndWrite(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "a", "b")

	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, "f.txt")
	if err := osfs.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !osfs.Exists(path) {
		t.Error("expected written file to exist")
	}
}

func TestMemoryFileSystem_WriteAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()

	testData := []byte("hello, world")
	if err := mfs.WriteFile("/test.txt", testData, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := mfs.ReadFile("/test.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != string(testData) {
		t.Errorf("expected %q, got %q", testData, data)
	}
}

func TestMemoryFileSystem_ReadNonExistent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/missing.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_WriteNeedsParent(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/out/report.json", []byte("{}"), 0644); err == nil {
		t.Error("expected error writing into a missing directory")
	}
	if err := mfs.MkdirAll("/out", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := mfs.WriteFile("/out/report.json", []byte("{}"), 0644); err != nil {
		t.Errorf("WriteFile after MkdirAll failed: %v", err)
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}

func TestMemoryFileSystem_PathCleaning(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.WriteFile("/foo/../test.txt", []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if !mfs.Exists("/test.txt") {
		t.Error("expected cleaned path to exist")
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	mfs := NewMemoryFileSystem()

	original := []byte("original")
	if err := mfs.WriteFile("/test.txt", original, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	original[0] = 'X'

	data, _ := mfs.ReadFile("/test.txt")
	if string(data) != "original" {
		t.Errorf("stored data changed with the caller's slice: %q", data)
	}
	data[0] = 'Y'
	again, _ := mfs.ReadFile("/test.txt")
	if string(again) != "original" {
		t.Errorf("stored data changed with the returned slice: %q", again)
	}
}

type report struct {
	Flagged int    `json:"flagged"`
	Tier    string `json:"tier"`
}

func TestWriteJSON_ReadJSON(t *testing.T) {
	mfs := NewMemoryFileSystem()

	in := report{Flagged: 42, Tier: "lanes8"}
	if err := WriteJSON(mfs, "/reports/run.json", in); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if got := mfs.Files(); len(got) != 1 || got[0] != "/reports/run.json" {
		t.Errorf("Files() = %v", got)
	}
	raw, _ := mfs.ReadFile("/reports/run.json")
	if !strings.Contains(string(raw), `"flagged": 42`) {
		t.Errorf("expected indented JSON, got %s", raw)
	}

	var out report
	if err := ReadJSON(mfs, "/reports/run.json", &out); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if out != in {
		t.Errorf("ReadJSON = %+v, want %+v", out, in)
	}
}

func TestReadJSON_Errors(t *testing.T) {
	mfs := NewMemoryFileSystem()
	_ = mfs.WriteFile("/bad.json", []byte("{"), 0644)
	_ = mfs.WriteFile("/cfg.yaml", []byte("{}"), 0644)

	var v map[string]any
	if err := ReadJSON(mfs, "/cfg.yaml", &v); err == nil {
		t.Error("expected extension error")
	}
	if err := ReadJSON(mfs, "/bad.json", &v); err == nil {
		t.Error("expected decode error")
	}
	if err := ReadJSON(mfs, "/none.json", &v); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
