package osfilesystem

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystem_WriteAndReadFile(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "alice.txt")

	if err := fs.WriteFile(path, []byte("10, 20\n30, -1\n")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "10, 20\n30, -1\n" {
		t.Errorf("unexpected contents %q", data)
	}
}

func TestFileSystem_WriteFileReplaces(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.txt")

	if err := os.WriteFile(path, []byte("old contents that are longer"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(path, []byte("new")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("expected replaced contents, got %q", data)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0600 {
		t.Errorf("expected permissions to be kept, got %v", st.Mode().Perm())
	}

	// no temporary files are left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestFileSystem_WriteFileCreatesParentDirs(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "a", "b", "c", "frame.png")

	if err := fs.WriteFile(path, []byte("test")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err := fs.Exists(path)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected file to exist")
	}
}

func TestFileSystem_WriteFileOverDirectory(t *testing.T) {
	fs := New()
	dir := t.TempDir()

	if err := fs.WriteFile(dir, []byte("x")); err == nil {
		t.Error("expected error when writing over a directory")
	}
}

func TestFileSystem_Size(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mkv")
	os.WriteFile(path, make([]byte, 1234), 0644)

	size, err := fs.Size(path)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if size != 1234 {
		t.Errorf("expected 1234, got %d", size)
	}

	if _, err := fs.Size(dir); err == nil {
		t.Error("expected error for a directory")
	}
	if _, err := fs.Size(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestFileSystem_MkdirAllAndExists(t *testing.T) {
	fs := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b")

	if err := fs.MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	exists, err := fs.Exists(path)
	if err != nil || !exists {
		t.Errorf("expected directory to exist, got %v, %v", exists, err)
	}

	exists, err = fs.Exists(filepath.Join(dir, "nonexistent.txt"))
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("expected file to not exist")
	}
}

func TestFileSystem_Remove(t *testing.T) {
	fs := New()
	path := filepath.Join(t.TempDir(), "test.txt")
	os.WriteFile(path, []byte("test"), 0644)

	if err := fs.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := fs.Exists(path); exists {
		t.Error("expected file to be removed")
	}
}
