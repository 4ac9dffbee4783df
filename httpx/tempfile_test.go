package httpx

import (
	"io"
	"os"
	"testing"
)

func TestDefaultTempFileManager(t *testing.T) {
	dir := t.TempDir()
	m := NewDefaultTempFileManager(dir, nil)
	var names []string
	for i := 0; i < 2; i++ {
		f, err := m.CreateTempFile("upload.bin")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := f.Write([]byte("payload")); err != nil {
			t.Fatalf("write: %v", err)
		}
		buf := make([]byte, 3)
		if _, err := f.ReadAt(buf, 4); err != nil || string(buf) != "oad" {
			t.Fatalf("ReadAt=%q err=%v", buf, err)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			t.Fatalf("seek: %v", err)
		}
		names = append(names, f.Name())
	}
	if names[0] == names[1] {
		t.Fatalf("temp file names collide: %s", names[0])
	}
	m.Clear()
	for _, n := range names {
		if _, err := os.Stat(n); !os.IsNotExist(err) {
			t.Fatalf("%s survived Clear: %v", n, err)
		}
	}
	m.Clear()
}

func TestDefaultTempFile_DeleteAfterClose(t *testing.T) {
	m := NewDefaultTempFileManager(t.TempDir(), nil)
	f, err := m.CreateTempFile("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.(*DefaultTempFile).Close()
	if err := f.Delete(); err != nil {
		t.Fatalf("delete after close: %v", err)
	}
}
