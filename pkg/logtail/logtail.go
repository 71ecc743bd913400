// Package logtail follows a growing log file.
package logtail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const readSize = 32 * 1024

// Tailer reads data appended to a file. It survives truncation and
// rotation by watching the parent directory for the file's name.
type Tailer struct {
	path    string
	watcher *fsnotify.Watcher
	f       *os.File
	offset  int64
	logger  *zap.Logger
}

type Option func(*Tailer)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tailer) { t.logger = l }
}

// Open starts watching path. With fromStart the existing content is reported
// by the first Run, otherwise only data written after Open.
func Open(path string, fromStart bool, opts ...Option) (*Tailer, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	t := &Tailer{path: abs, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if !fromStart {
		off, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("seeking %s: %w", path, err)
		}
		t.offset = off
	}
	t.f = f

	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		f.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	t.watcher = w
	return t, nil
}

// Path returns the absolute path being followed.
func (t *Tailer) Path() string {
	return t.path
}

// Run calls fn with every chunk appended to the file until ctx is done or the
// watcher fails. fn runs on the calling goroutine and may block.
func (t *Tailer) Run(ctx context.Context, fn func([]byte)) error {
	if err := t.drain(fn); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != t.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				t.logger.Debug("log file recreated", zap.String("path", t.path))
				t.closeFile()
				if err := t.reopen(); err != nil {
					return err
				}
				if err := t.drain(fn); err != nil {
					return err
				}
			case ev.Has(fsnotify.Write):
				if err := t.drain(fn); err != nil {
					return err
				}
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				t.logger.Debug("log file moved away", zap.String("path", t.path))
				t.closeFile()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (t *Tailer) reopen() error {
	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reopening %s: %w", t.path, err)
	}
	t.f = f
	t.offset = 0
	return nil
}

// drain reads everything between the last offset and the end of the file.
func (t *Tailer) drain(fn func([]byte)) error {
	if t.f == nil {
		return nil
	}
	info, err := t.f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	if info.Size() < t.offset {
		t.logger.Debug("log file truncated", zap.String("path", t.path))
		t.offset = 0
	}
	if _, err := t.f.Seek(t.offset, io.SeekStart); err != nil {
		return fmt.Errorf("seeking %s: %w", t.path, err)
	}

	buf := make([]byte, readSize)
	for {
		n, err := t.f.Read(buf)
		if n > 0 {
			t.offset += int64(n)
			fn(append([]byte(nil), buf[:n]...))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", t.path, err)
		}
	}
}

func (t *Tailer) closeFile() {
	if t.f != nil {
		t.f.Close()
		t.f = nil
	}
}

// Close stops watching and releases the file.
func (t *Tailer) Close() error {
	t.closeFile()
	return t.watcher.Close()
}
