// Package imaging validates, shrinks and uploads the photos attached to a
// maintenance request.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"

	// decoders accepted from residents' phones and cameras
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxFileSize       = 20 << 20
	MaxAttachments    = 5
	CompressThreshold = 500 << 10
	MaxDimension      = 1200
	JPEGQuality       = 70
	MaxPixels         = 40_000_000
)

var (
	ErrFileTooLarge        = errors.New("file exceeds the 20MB limit")
	ErrNotImage            = errors.New("file is not an image")
	ErrTooManyAttachments  = fmt.Errorf("at most %d images per request", MaxAttachments)
	ErrImageTooLarge       = errors.New("image resolution exceeds the 40MP limit")
	errUnsupportedEncoding = errors.New("unsupported image encoding")
)

// File is an attachment held in memory between selection and upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int {
	return len(f.Data)
}

func (f File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType), "image/")
}

// Validate rejects oversized and non-image files, and images whose header
// declares more than MaxPixels.
func Validate(f File) error {
	if f.Size() > MaxFileSize {
		return fmt.Errorf("%s: %w", f.Name, ErrFileTooLarge)
	}
	if !f.IsImage() {
		return fmt.Errorf("%s: %w", f.Name, ErrNotImage)
	}
	if cfg, err := decodeConfig(f); err == nil {
		return checkPixels(f.Name, cfg)
	}
	return nil
}

func decodeConfig(f File) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(f.Data))
	return cfg, err
}

func checkPixels(name string, cfg image.Config) error {
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return fmt.Errorf("%s: %dx%d: %w", name, cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	return nil
}

// Rejection records a file that was not accepted and why.
type Rejection struct {
	Name string
	Err  error
}

// Attachments is the set of files selected for one request.
type Attachments struct {
	files []File
}

func (a *Attachments) Files() []File {
	return append([]File{}, a.files...)
}

func (a *Attachments) Len() int {
	return len(a.files)
}

// Add validates and appends f. Once MaxAttachments files are held every
// further file is refused with ErrTooManyAttachments.
func (a *Attachments) Add(f File) error {
	if err := Validate(f); err != nil {
		return err
	}
	if len(a.files) >= MaxAttachments {
		return ErrTooManyAttachments
	}
	a.files = append(a.files, f)
	return nil
}

// AddAll adds files in order. Invalid files are skipped; the first file over
// the limit stops the selection.
func (a *Attachments) AddAll(files []File) []Rejection {
	rejected := make([]Rejection, 0)
	for _, f := range files {
		err := a.Add(f)
		if err == nil {
			continue
		}
		rejected = append(rejected, Rejection{Name: f.Name, Err: err})
		if errors.Is(err, ErrTooManyAttachments) {
			break
		}
	}
	return rejected
}

// Compress shrinks images at or above CompressThreshold so their longer edge
// is at most MaxDimension and re-encodes them as JPEG. Smaller files and
// non-images are returned unchanged. The header is read before decoding so
// images over MaxPixels are refused without allocating their pixels.
func Compress(f File) (File, error) {
	if !f.IsImage() || f.Size() < CompressThreshold {
		return f, nil
	}

	cfg, err := decodeConfig(f)
	if err != nil {
		return f, fmt.Errorf("%w: %v", errUnsupportedEncoding, err)
	}
	if err := checkPixels(f.Name, cfg); err != nil {
		return f, err
	}

	src, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return f, fmt.Errorf("%w: %v", errUnsupportedEncoding, err)
	}

	dst := Downscale(src, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return f, fmt.Errorf("encode jpeg: %w", err)
	}

	return File{
		Name:        strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
	}, nil
}

// Downscale returns src scaled so that neither edge exceeds maxDim, keeping
// the aspect ratio. Images already within bounds are copied unscaled.
func Downscale(src image.Image, maxDim int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	nw, nh := FitWithin(w, h, maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	if nw == w && nh == h {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// FitWithin returns the size of a w×h box scaled down so its longer edge is
// at most maxDim.
func FitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}

	if w >= h {
		nh := int(float64(h)*float64(maxDim)/float64(w) + 0.5)
		return maxDim, max(nh, 1)
	}

	nw := int(float64(w)*float64(maxDim)/float64(h) + 0.5)
	return max(nw, 1), maxDim
}
