package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

// both runs a test against the OS and in-memory implementations.
func both(t *testing.T, fn func(t *testing.T, fsys FileSystem, dir string)) {
	t.Run("os", func(t *testing.T) {
		fn(t, OSFileSystem{}, t.TempDir())
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryFileSystem(), "/data")
	})
}

func writeFile(t *testing.T, fsys FileSystem, name, body string) {
	t.Helper()
	w, err := fsys.Create(name)
	if err != nil {
		t.Fatalf("Create(%s): %v", name, err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCreateReadStat(t *testing.T) {
	both(t, func(t *testing.T, fsys FileSystem, dir string) {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		name := filepath.Join(dir, "clip.mp4")
		writeFile(t, fsys, name, "frames")

		data, err := fsys.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(data) != "frames" {
			t.Errorf("ReadFile = %q, want frames", data)
		}

		info, err := fsys.Stat(name)
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if info.Size() != 6 || info.IsDir() {
			t.Errorf("Stat = size %d dir %v", info.Size(), info.IsDir())
		}

		dirInfo, err := fsys.Stat(dir)
		if err != nil || !dirInfo.IsDir() {
			t.Errorf("Stat(dir) = %v, %v", dirInfo, err)
		}
	})
}

func TestRename(t *testing.T) {
	both(t, func(t *testing.T, fsys FileSystem, dir string) {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		from := filepath.Join(dir, "temp.mp4")
		to := filepath.Join(dir, "kept.mp4")
		writeFile(t, fsys, from, "x")

		if err := fsys.Rename(from, to); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		if fsys.Exists(from) {
			t.Error("source still exists after rename")
		}
		if !fsys.Exists(to) {
			t.Error("target missing after rename")
		}

		err := fsys.Rename(from, to)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Rename missing = %v, want ErrNotExist", err)
		}
	})
}

func TestRemove(t *testing.T) {
	both(t, func(t *testing.T, fsys FileSystem, dir string) {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		name := filepath.Join(dir, "temp.mp4")
		writeFile(t, fsys, name, "x")

		if err := fsys.Remove(name); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		if fsys.Exists(name) {
			t.Error("file still exists")
		}
		if err := fsys.Remove(name); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Remove missing = %v, want ErrNotExist", err)
		}
	})
}

func TestMemoryFileSystem_MkdirAllParents(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for _, d := range []string{"/a", "/a/b", "/a/b/c"} {
		if !m.Exists(d) {
			t.Errorf("expected %s to exist", d)
		}
	}
}

func TestMemoryFileSystem_RemoveNonEmptyDir(t *testing.T) {
	m := NewMemoryFileSystem()
	_ = m.MkdirAll("/v", 0755)
	writeFile(t, m, "/v/a.mp4", "x")
	if err := m.Remove("/v"); err == nil {
		t.Error("expected error removing non-empty directory")
	}
}

func TestMemoryFileSystem_DataIsolation(t *testing.T) {
	m := NewMemoryFileSystem()
	writeFile(t, m, "/f", "abc")
	data, _ := m.ReadFile("/f")
	data[0] = 'z'
	again, _ := m.ReadFile("/f")
	if string(again) != "abc" {
		t.Errorf("ReadFile result aliases storage: %q", again)
	}
}

func TestMemoryFileSystem_Files(t *testing.T) {
	m := NewMemoryFileSystem()
	writeFile(t, m, "/a", "1")
	writeFile(t, m, "/b", "2")
	if got := len(m.Files()); got != 2 {
		t.Errorf("Files() len = %d, want 2", got)
	}
}
