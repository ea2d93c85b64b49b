package persistence

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"
)

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// FilePort stores each key as a JSON file in a directory. Files are replaced atomically,
// so a crash during Save leaves either the old or the new document, never a torn one.
type FilePort struct {
	dir    string
	logger *zap.Logger
}

// NewFilePort creates the directory if needed and returns a port rooted at it.
func NewFilePort(dir string, logger *zap.Logger) (*FilePort, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}

	return &FilePort{dir: dir, logger: logger}, nil
}

// Dir returns the storage directory.
func (p *FilePort) Dir() string {
	return p.dir
}

func (p *FilePort) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: unsupported key %q", ErrInvalidValue, key)
	}
	return filepath.Join(p.dir, key+".json"), nil
}

// Load reads the file for key.
func (p *FilePort) Load(_ context.Context, key string) ([]byte, error) {
	path, err := p.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// Save atomically replaces the file for key.
func (p *FilePort) Save(_ context.Context, key string, value []byte) error {
	if err := Validate(key, value); err != nil {
		return err
	}

	path, err := p.path(key)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	p.logger.Debug("value saved", zap.String("key", key), zap.Int("bytes", len(value)))

	return nil
}

// Close is a no-op; files are closed after every operation.
func (p *FilePort) Close() error {
	return nil
}
