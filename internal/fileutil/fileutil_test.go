package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.xus")

	if err := WriteFileAtomic(path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want %q", got, "second")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
	assertOnlyFiles(t, dir, "menu.xus")
}

func TestWriteFileAtomic_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "menu.xus")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("WriteFileAtomic should fail when the directory does not exist")
	}
}

func TestWriteFileAtomic_WriteError(t *testing.T) {
	orig := tempFileWrite
	defer func() { tempFileWrite = orig }()
	tempFileWrite = func(f *os.File, data []byte) (int, error) {
		return 0, errors.New("disk full")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "menu.xus")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Fatal("WriteFileAtomic should fail")
	}
	assertOnlyFiles(t, dir)
}

func TestWriteFileAtomic_CloseError(t *testing.T) {
	orig := tempFileClose
	defer func() { tempFileClose = orig }()
	tempFileClose = func(f io.Closer) error {
		f.Close()
		return errors.New("close failed")
	}

	dir := t.TempDir()
	if err := WriteFileAtomic(filepath.Join(dir, "menu.xus"), []byte("x"), 0644); err == nil {
		t.Fatal("WriteFileAtomic should fail")
	}
	assertOnlyFiles(t, dir)
}

func TestWriteFileAtomic_RenameErrorKeepsOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.xus")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	orig := osRename
	defer func() { osRename = orig }()
	osRename = func(oldpath, newpath string) error {
		return errors.New("rename failed")
	}

	if err := WriteFileAtomic(path, []byte("new"), 0644); err == nil {
		t.Fatal("WriteFileAtomic should fail")
	}
	got, _ := os.ReadFile(path)
	if string(got) != "old" {
		t.Errorf("content = %q, want the old content", got)
	}
	assertOnlyFiles(t, dir, "menu.xus")
}

func TestReplaceExt(t *testing.T) {
	tests := []struct {
		path, ext, want string
	}{
		{"menu.xml", ".xus", "menu.xus"},
		{"dir/menu.xus", ".xml", "dir/menu.xml"},
		{"menu", ".xml", "menu.xml"},
		{"archive.v2.xml", ".xus", "archive.v2.xus"},
	}
	for _, tt := range tests {
		if got := ReplaceExt(tt.path, tt.ext); got != tt.want {
			t.Errorf("ReplaceExt(%q, %q) = %q, want %q", tt.path, tt.ext, got, tt.want)
		}
	}
}

func TestSuffixedPath(t *testing.T) {
	if got := SuffixedPath("dir/menu.xml", "_novo", ".xus"); got != "dir/menu_novo.xus" {
		t.Errorf("SuffixedPath() = %q", got)
	}
}

func assertOnlyFiles(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != len(want) {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Fatalf("directory holds %v, want %v", names, want)
	}
	for i, e := range entries {
		if e.Name() != want[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Name(), want[i])
		}
	}
}
