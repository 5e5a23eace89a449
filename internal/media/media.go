// Package media handles attachment typing and staging. An attachment's type
// is decided once, when it is attached, from the file extension; it is never
// re-derived from content inspection.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/plumefeed/plume/internal/models"
)

// Uploader persists attachment bytes and returns a public location.
type Uploader interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// DetectType classifies a file by extension. Unknown extensions are treated
// as documents.
func DetectType(path string) models.MediaType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".heic":
		return models.MediaImage
	case ".mp4", ".mov", ".mkv", ".webm", ".avi":
		return models.MediaVideo
	case ".mp3", ".wav", ".ogg", ".flac", ".aac", ".m4a":
		return models.MediaAudio
	default:
		return models.MediaDocument
	}
}

// Stage prepares local files for post submission. With an uploader, files
// are pushed concurrently to object storage and the attachments reference
// the returned locations; without one, the attachments reference the paths
// as given (already-hosted URIs). Order follows the input.
func Stage(ctx context.Context, uploader Uploader, paths []string) ([]models.Media, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	attachments := make([]models.Media, len(paths))

	if uploader == nil {
		for i, path := range paths {
			attachments[i] = models.NewMedia(path, DetectType(path))
		}
		return attachments, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open attachment %s: %w", path, err)
			}
			defer f.Close()

			key := uuid.NewString() + strings.ToLower(filepath.Ext(path))
			location, err := uploader.Save(ctx, key, f)
			if err != nil {
				return fmt.Errorf("stage attachment %s: %w", path, err)
			}

			attachments[i] = models.NewMedia(location, DetectType(path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attachments, nil
}
