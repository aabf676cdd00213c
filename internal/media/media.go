// Package media stores uploaded post thumbnails.
package media

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

const (
	// MaxWidth is the widest thumbnail kept; wider uploads are scaled down.
	MaxWidth = 1280
	// MaxUploadBytes caps the accepted upload size.
	MaxUploadBytes = 10 << 20
	// URLPrefix is where stored files are served from.
	URLPrefix = "/uploads/"
)

var ErrNotImage = errors.New("thumbnail must be a jpeg, png or gif image")

type Store struct {
	Dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{Dir: dir}, nil
}

// SaveThumbnail decodes r, scales it to at most MaxWidth and writes it as JPEG.
// It returns the public URL path of the stored file.
func (s *Store) SaveThumbnail(r io.Reader) (string, error) {
	img, _, err := image.Decode(io.LimitReader(r, MaxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if img.Bounds().Dx() > MaxWidth {
		img = resize.Resize(MaxWidth, 0, img, resize.Lanczos3)
	}

	name := uuid.NewString() + ".jpg"
	out, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", err
	}
	if err := jpeg.Encode(out, img, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		_ = os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return URLPrefix + name, nil
}

// Remove deletes a file previously returned by SaveThumbnail. Other URLs are ignored.
func (s *Store) Remove(url string) error {
	if len(url) <= len(URLPrefix) || url[:len(URLPrefix)] != URLPrefix {
		return nil
	}
	name := filepath.Base(url)
	err := os.Remove(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
