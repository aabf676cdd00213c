package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngOf(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &buf
}

func TestSaveThumbnailDownscales(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	url, err := st.SaveThumbnail(pngOf(t, 2000, 1000))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, URLPrefix) || !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("unexpected url %q", url)
	}

	f, err := os.Open(filepath.Join(st.Dir, filepath.Base(url)))
	if err != nil {
		t.Fatalf("open stored file: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode stored file: %v", err)
	}
	if cfg.Width != MaxWidth || cfg.Height != 640 {
		t.Fatalf("expected %dx640, got %dx%d", MaxWidth, cfg.Width, cfg.Height)
	}

	if err := st.Remove(url); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(st.Dir, filepath.Base(url))); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}

func TestSaveThumbnailKeepsSmallImages(t *testing.T) {
	st, _ := NewStore(t.TempDir())
	url, err := st.SaveThumbnail(pngOf(t, 300, 200))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	f, _ := os.Open(filepath.Join(st.Dir, filepath.Base(url)))
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil || cfg.Width != 300 {
		t.Fatalf("expected width 300, got %d err=%v", cfg.Width, err)
	}
}

func TestSaveThumbnailRejectsNonImage(t *testing.T) {
	st, _ := NewStore(t.TempDir())
	_, err := st.SaveThumbnail(strings.NewReader("not an image"))
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if err := st.Remove("https://cdn.example.com/x.jpg"); err != nil {
		t.Fatalf("foreign url should be ignored: %v", err)
	}
}
