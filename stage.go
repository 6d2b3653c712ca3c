package lookanalyst

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lookanalyst/lookanalyst/metrics"
	"github.com/lookanalyst/lookanalyst/models"
	"github.com/lookanalyst/lookanalyst/slug"
	"github.com/lookanalyst/lookanalyst/storage"
)

// Staged is a handle to an image held in transient storage.
// The payload is removed by the first call to Release; later calls are no-ops.
type Staged struct {
	models.StagedImage

	ref    string
	stager storage.Stager

	once       sync.Once
	releaseErr error
}

// Bytes reads the staged payload
func (s *Staged) Bytes(ctx context.Context) ([]byte, error) {
	rc, err := s.stager.Open(ctx, s.ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged image: %w", err)
	}
	return data, nil
}

// Release deletes the staged payload exactly once
func (s *Staged) Release(ctx context.Context) error {
	s.once.Do(func() {
		s.releaseErr = s.stager.Remove(context.WithoutCancel(ctx), s.ref)
		metrics.StagedImages.Dec()
		if s.releaseErr != nil {
			slog.WarnContext(ctx, "failed to release staged image", "path", s.LocalPath, "error", s.releaseErr)
		}
	})
	return s.releaseErr
}

// Use runs fn with the staged image and releases it afterwards, including
// when fn returns an error or panics
func Use(ctx context.Context, s *Staged, fn func(*Staged) error) error {
	defer s.Release(ctx)
	return fn(s)
}

// stage gates body on its content type and streams it into the stager.
// Nothing is written unless contentType names an accepted image type, and
// a payload larger than maxBytes is removed before the error is returned.
func (p *Pipeline) stage(ctx context.Context, body io.Reader, contentType, nameHint, sourceURL string, maxBytes int64) (*Staged, error) {
	mimeType, err := imageMediaType(contentType)
	if err != nil {
		return nil, &InvalidContentError{URL: sourceURL, ContentType: contentType, Reason: err.Error()}
	}

	capped := &cappedReader{r: body, remaining: maxBytes}
	obj, err := p.stager.Put(ctx, stagingName(nameHint, mimeType), capped, mimeType)
	if err != nil {
		if errors.Is(err, ErrPayloadTooLarge) {
			return nil, &InvalidContentError{
				URL:         sourceURL,
				ContentType: mimeType,
				Reason:      fmt.Sprintf("payload exceeds %d bytes", maxBytes),
				Err:         ErrPayloadTooLarge,
			}
		}
		return nil, fmt.Errorf("failed to stage image: %w", err)
	}
	if obj.Size == 0 {
		p.stager.Remove(context.WithoutCancel(ctx), obj.Ref)
		return nil, &InvalidContentError{URL: sourceURL, ContentType: mimeType, Reason: "empty payload"}
	}

	metrics.StagedImages.Inc()
	slog.DebugContext(ctx, "image staged", "path", obj.Path, "mime_type", mimeType, "size", obj.Size)

	return &Staged{
		StagedImage: models.StagedImage{
			ResolvedImageURL: sourceURL,
			LocalPath:        obj.Path,
			MimeType:         mimeType,
			Size:             obj.Size,
		},
		ref:    obj.Ref,
		stager: p.stager,
	}, nil
}

// imageMediaType returns the bare media type of contentType if it is an image
// type the analyzer accepts
func imageMediaType(contentType string) (string, error) {
	if strings.TrimSpace(contentType) == "" {
		return "", errors.New("missing content type")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("malformed content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", errors.New("not an image")
	}
	if mediaType == "image/avif" {
		return "", errors.New("unsupported image format")
	}
	return mediaType, nil
}

// stagingName builds a per-request unique name: <slug>-<unix millis>-<random><ext>
func stagingName(hint, mimeType string) string {
	return fmt.Sprintf("%s-%d-%s%s",
		slug.GenerateWithFallback(hint),
		time.Now().UnixMilli(),
		uuid.NewString()[:8],
		storage.ExtensionFromContentType(mimeType),
	)
}

// cappedReader fails with ErrPayloadTooLarge once more than remaining bytes are read
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if int64(len(p)) > c.remaining+1 {
		p = p[:c.remaining+1]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if c.remaining < 0 {
		return n, ErrPayloadTooLarge
	}
	return n, err
}
