// Proctorlens - Exam Attention Monitoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/proctorlens

package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/proctorlens/internal/config"
	"github.com/tomtom215/proctorlens/internal/models"
)

// DirectorySource replays image files from a directory in lexical order,
// looping forever. Useful for reproducible demos and offline evaluation.
type DirectorySource struct {
	*device
	dir string

	files    []string
	idx      int
	failures int
}

// NewDirectorySource creates an unacquired directory source.
func NewDirectorySource(cfg config.CaptureConfig, registry *Registry) *DirectorySource {
	return &DirectorySource{
		device: newDevice(KindDirectory, cfg.Device, cfg.FPS, cfg.WarmUp, registry),
		dir:    cfg.Directory,
	}
}

// Acquire lists the directory and starts replaying. It fails when the
// directory is missing or holds no supported images.
func (s *DirectorySource) Acquire(ctx context.Context) error {
	return s.acquire(ctx, s.open, s.next)
}

// CurrentFrame returns the latest replayed frame.
func (s *DirectorySource) CurrentFrame() (*models.Frame, error) {
	return s.currentFrame()
}

// Release stops replay and returns the device claim.
func (s *DirectorySource) Release() error {
	return s.release()
}

func (s *DirectorySource) open(context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read frame directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(s.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no .jpg, .jpeg or .png files in %s", s.dir)
	}

	// os.ReadDir returns entries sorted by filename.
	s.files = files
	return nil
}

// next reports ErrDeviceLost after a full pass over the files without a
// single decodable image.
func (s *DirectorySource) next(context.Context) (*models.Frame, error) {
	path := s.files[s.idx]
	s.idx = (s.idx + 1) % len(s.files)

	data, err := os.ReadFile(path)
	if err == nil {
		var frame *models.Frame
		if frame, err = decodeFrame(data, time.Now()); err == nil {
			s.failures = 0
			return frame, nil
		}
	}

	s.failures++
	if s.failures >= len(s.files) {
		return nil, fmt.Errorf("%w: no readable frames left in %s: %w", ErrDeviceLost, s.dir, err)
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
}
