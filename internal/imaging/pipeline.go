package imaging

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"sismanpnr/internal/metrics"
	"sismanpnr/internal/storage"
	"sismanpnr/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Pipeline compresses attachments and uploads them to the object store.
type Pipeline struct {
	store   storage.ObjectStore
	logger  *logrus.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewPipeline(store storage.ObjectStore, logger *logrus.Logger, recorder *metrics.Recorder) *Pipeline {
	return &Pipeline{
		store:   store,
		logger:  logger,
		metrics: recorder,
		now:     time.Now,
	}
}

// ObjectName builds "uploads/<unix millis>-<random>.<ext>" for a file.
func ObjectName(now time.Time, fileName, contentType string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if ext == "" {
		ext = extensionFor(contentType)
	}
	return fmt.Sprintf("%s%d-%s.%s", storage.UploadPrefix, now.UnixMilli(), utils.RandomSuffix(11), ext)
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}

// Upload compresses f when needed, stores it and returns its public URL. A
// file that cannot be decoded is uploaded as received; one over MaxPixels is
// refused.
func (p *Pipeline) Upload(ctx context.Context, f File) (string, error) {
	out, err := Compress(f)
	if errors.Is(err, ErrImageTooLarge) {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}
	if err != nil {
		p.logger.WithError(err).WithField("file", f.Name).Warn("failed to compress image, uploading original")
		out = f
	}

	path := ObjectName(p.now(), out.Name, out.ContentType)
	if err := p.store.Upload(ctx, path, out.Data, out.ContentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", f.Name, err)
	}

	return p.store.PublicURL(path), nil
}

// UploadAll uploads every file concurrently and returns the URLs of the ones
// that succeeded, in input order. Callers detect partial failure by comparing
// lengths.
func (p *Pipeline) UploadAll(ctx context.Context, files []File) []string {
	urls := make([]string, len(files))

	var g errgroup.Group
	g.SetLimit(MaxAttachments)
	for i, f := range files {
		g.Go(func() error {
			url, err := p.Upload(ctx, f)
			p.metrics.Upload(err == nil)
			if err != nil {
				p.logger.WithError(err).WithField("file", f.Name).Error("failed to upload image")
				return nil
			}
			urls[i] = url
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// Delete removes the object behind a public URL. Failures are logged only.
func (p *Pipeline) Delete(ctx context.Context, publicURL string) bool {
	path, ok := storage.PathFromURL(p.store.PublicURL(""), publicURL)
	if !ok {
		p.logger.WithField("url", publicURL).Warn("image url does not belong to the bucket")
		return false
	}

	if err := p.store.Delete(ctx, path); err != nil {
		p.logger.WithError(err).WithField("path", path).Error("failed to delete image")
		return false
	}

	return true
}
