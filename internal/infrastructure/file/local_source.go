package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrOutsideBaseDir    = errors.New("path escapes the import directory")
	ErrUnsupportedFile   = errors.New("only .csv files can be imported")
	ErrSourceIsDirectory = errors.New("import source is a directory")
)

// LocalSource opens CSV files below BaseDir.
type LocalSource struct {
	BaseDir string
}

func NewLocalSource(baseDir string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir}
}

func (s *LocalSource) Open(ctx context.Context, sourcePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(sourcePath), ".csv") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, sourcePath)
	}

	path, err := s.resolve(sourcePath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceIsDirectory, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}

func (s *LocalSource) resolve(sourcePath string) (string, error) {
	base, err := filepath.Abs(s.BaseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base dir: %w", err)
	}

	path := sourcePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, sourcePath)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideBaseDir, sourcePath)
	}
	return path, nil
}
