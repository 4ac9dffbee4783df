package httpx

import (
	"errors"
	"io"
	"os"

	"dqx0.com/go/nanoweb/internal/obs"
)

// TempFile is on-disk backing storage for one large body or uploaded part.
type TempFile interface {
	io.ReadWriteSeeker
	io.ReaderAt
	Name() string
	Delete() error
}

// TempFileManager allocates the temp files of a single request and removes
// them all when that request is finished. It is never shared between
// requests.
type TempFileManager interface {
	CreateTempFile(filenameHint string) (TempFile, error)
	Clear()
}

// TempFileManagerFactory returns a fresh manager for every request.
type TempFileManagerFactory func() TempFileManager

// DefaultTempFile is an *os.File that removes itself on Delete.
type DefaultTempFile struct {
	*os.File
}

func (f *DefaultTempFile) Delete() error {
	if err := f.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return os.Remove(f.Name())
}

// DefaultTempFileManager creates uniquely named files in Dir (os.TempDir
// when empty). The filename hint is not used for naming.
type DefaultTempFileManager struct {
	Dir    string
	Logger obs.Logger
	files  []TempFile
}

func NewDefaultTempFileManager(dir string, logger obs.Logger) *DefaultTempFileManager {
	return &DefaultTempFileManager{Dir: dir, Logger: obs.OrNop(logger)}
}

func (m *DefaultTempFileManager) CreateTempFile(filenameHint string) (TempFile, error) {
	dir := m.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "nanoweb-*")
	if err != nil {
		return nil, err
	}
	tf := &DefaultTempFile{File: f}
	m.files = append(m.files, tf)
	return tf, nil
}

// Clear deletes every file created by m. Failures are logged, not returned.
func (m *DefaultTempFileManager) Clear() {
	for _, f := range m.files {
		if err := f.Delete(); err != nil {
			obs.OrNop(m.Logger).Logf(obs.Warn, "failed to remove temp file %s: %v", f.Name(), err)
		}
	}
	m.files = nil
}
