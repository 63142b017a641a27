// Package storage keeps raw intake documents on the local filesystem, laid
// out per case.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dkrause/garnishflow/internal/application/port"
)

// LocalFileStorage implements port.FileStorage on a local directory
type LocalFileStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalFileStorage creates storage rooted at baseDir
func NewLocalFileStorage(baseDir string, logger *zap.Logger) (*LocalFileStorage, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &LocalFileStorage{
		baseDir: abs,
		logger:  logger,
	}, nil
}

// Save writes one intake document under the case's directory and returns the
// stored path
func (s *LocalFileStorage) Save(caseID, filename string, content []byte) (string, error) {
	if caseID == "" {
		return "", fmt.Errorf("case ID is required")
	}
	// Strip any client-supplied directory components.
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		return "", fmt.Errorf("invalid filename")
	}

	fullPath := filepath.Join(s.baseDir, caseID, filename)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create case directory",
			zap.String("path", filepath.Dir(fullPath)), zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file", zap.String("path", fullPath), zap.Error(err))
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("Intake document saved",
		zap.String("case_id", caseID),
		zap.String("path", fullPath),
		zap.Int("bytes", len(content)))
	return fullPath, nil
}

// Read returns a stored document's content
func (s *LocalFileStorage) Read(path string) ([]byte, error) {
	if err := s.validatePath(path); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// validatePath rejects anything that escapes the storage root
func (s *LocalFileStorage) validatePath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(abs, s.baseDir+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes storage root", path)
	}
	return nil
}

var _ port.FileStorage = (*LocalFileStorage)(nil)
