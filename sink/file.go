package sink

import (
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
)

const (
	// FilePerm is the permission of trace log files.
	FilePerm fs.FileMode = 0o644

	// FileExtension is appended to every trace log file name.
	FileExtension = ".log"
)

// File appends lines to a per-process log file. The file is created on the first write as
// "<base>-<pid>.log"; when that name is taken, "<base>0.log", "<base>1.log"... are tried in
// turn. Every line is synced to disk before WriteLine returns so the log survives a crash.
type File struct {
	mu     sync.Mutex
	base   string
	pid    int
	f      *os.File
	path   string
	closed bool
}

// NewFile creates a file sink. Nothing touches the filesystem until the first write.
func NewFile(base string) *File {
	return &File{base: base, pid: os.Getpid()}
}

// Path returns the file being written, or "" before the first write.
func (s *File) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// WriteLine appends line to the file, opening it first if needed.
func (s *File) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if s.f == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.f.WriteString(line + "\n"); err != nil {
		return errors.Wrapf(err, "writing %s", s.path)
	}
	return errors.Wrapf(s.f.Sync(), "syncing %s", s.path)
}

// Close closes the file. Later writes fail with ErrSinkClosed.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return errors.Wrapf(err, "closing %s", s.path)
}

func (s *File) open() error {
	path := s.freePath()
	//nolint:gosec // path is chosen by the user
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, FilePerm)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "opening %s", path), ErrSinkOpen)
	}
	s.f = f
	s.path = path
	return nil
}

// freePath picks the first candidate name that does not exist yet.
func (s *File) freePath() string {
	name := s.base + "-" + strconv.Itoa(s.pid)
	for i := 0; exists(name + FileExtension); i++ {
		name = s.base + strconv.Itoa(i)
	}
	return name + FileExtension
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
