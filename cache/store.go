package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mfay/montage/media"
)

// ErrFrameNotFound is returned by stores when no frame exists for a hash.
var ErrFrameNotFound = errors.New("cache: frame not found")

// FrameStore persists rendered frames keyed by content hash.
type FrameStore interface {
	Save(ctx context.Context, hash media.FrameHash, f *media.Frame) error
	Load(ctx context.Context, hash media.FrameHash) (*media.Frame, error)
	Has(ctx context.Context, hash media.FrameHash) (bool, error)
}

// DiskStore keeps frames as PNG files fanned out under two-character hash
// prefix directories: <dir>/<hh>/<rest>.png.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

func (s *DiskStore) path(hash media.FrameHash) string {
	hex := fmt.Sprintf("%016x", uint64(hash))
	return filepath.Join(s.dir, hex[:2], hex[2:]+".png")
}

func (s *DiskStore) Save(ctx context.Context, hash media.FrameHash, f *media.Frame) error {
	data, err := EncodeFrame(f)
	if err != nil {
		return err
	}

	path := s.path(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: creating store directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing frame: %w", err)
	}
	return nil
}

func (s *DiskStore) Load(ctx context.Context, hash media.FrameHash) (*media.Frame, error) {
	data, err := os.ReadFile(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFrameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: reading frame: %w", err)
	}
	return DecodeFrame(data)
}

func (s *DiskStore) Has(ctx context.Context, hash media.FrameHash) (bool, error) {
	_, err := os.Stat(s.path(hash))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EncodeFrame serializes a frame as PNG.
func EncodeFrame(f *media.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.ToImage()); err != nil {
		return nil, fmt.Errorf("cache: encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeFrame restores a frame from PNG bytes. The result carries only the
// raster dimensions; timebase and divider are not stored.
func DecodeFrame(data []byte) (*media.Frame, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cache: decoding frame: %w", err)
	}

	bounds := img.Bounds()
	f := &media.Frame{
		Params: media.VideoParams{Width: bounds.Dx(), Height: bounds.Dy()},
		Pix:    make([]float32, bounds.Dx()*bounds.Dy()*4),
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(bounds)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				nrgba.Set(x, y, img.At(x, y))
			}
		}
	}
	for i := range f.Pix {
		f.Pix[i] = float32(nrgba.Pix[i]) / 255
	}
	return f, nil
}
