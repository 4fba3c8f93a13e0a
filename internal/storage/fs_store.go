package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const previewDir = "previews"

// Previewer renders a reduced copy of a photo.
type Previewer interface {
	Preview(data []byte) ([]byte, error)
}

type FileStore struct {
	dir       string
	previewer Previewer
	logger    *zap.Logger
	now       func() time.Time
}

func NewFileStore(dir string, previewer Previewer, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create media dir: %w", ErrIO, err)
	}
	if previewer != nil {
		if err := os.MkdirAll(filepath.Join(dir, previewDir), 0o755); err != nil {
			return nil, fmt.Errorf("%w: create preview dir: %w", ErrIO, err)
		}
	}
	return &FileStore{
		dir:       dir,
		previewer: previewer,
		logger:    logger.With(zap.String("component", "fs_store")),
		now:       time.Now,
	}, nil
}

var nameSanitizer = strings.NewReplacer("/", "_", `\`, "_")

// Save writes asset.Data to <dir>/<unix seconds>_<name> and returns the path.
// A name already taken within the same second gets a random infix.
func (s *FileStore) Save(asset MediaAsset) (string, error) {
	name := nameSanitizer.Replace(asset.Filename)
	if name == "" {
		name = string(asset.Kind)
	}
	prefix := s.now().Unix()

	dest := filepath.Join(s.dir, fmt.Sprintf("%d_%s", prefix, name))
	err := writeExclusive(dest, asset.Data)
	if errors.Is(err, fs.ErrExist) {
		dest = filepath.Join(s.dir, fmt.Sprintf("%d_%s_%s", prefix, uuid.NewString()[:8], name))
		err = writeExclusive(dest, asset.Data)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	s.logger.Info("saved media to filesystem", zap.String("path", dest), zap.Int("size", len(asset.Data)))

	if s.previewer != nil && asset.Kind == KindPhoto {
		s.writePreview(dest, asset.Data)
	}
	return dest, nil
}

// writePreview is best-effort; failures are logged only.
func (s *FileStore) writePreview(dest string, data []byte) {
	preview, err := s.previewer.Preview(data)
	if err != nil {
		s.logger.Warn("preview render failed", zap.String("path", dest), zap.Error(err))
		return
	}
	previewPath := filepath.Join(s.dir, previewDir, filepath.Base(dest)+".jpg")
	if err := os.WriteFile(previewPath, preview, 0o644); err != nil {
		s.logger.Warn("preview write failed", zap.String("path", previewPath), zap.Error(err))
		return
	}
	s.logger.Debug("saved preview", zap.String("path", previewPath))
}

func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
