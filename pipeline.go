// Package lookanalyst resolves pin pages to their content image, stages
// images in transient storage, and turns a vision model's answer into
// garment tag sets.
package lookanalyst

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/lookanalyst/lookanalyst/imageinfo"
	"github.com/lookanalyst/lookanalyst/metrics"
	"github.com/lookanalyst/lookanalyst/models"
	"github.com/lookanalyst/lookanalyst/slug"
	"github.com/lookanalyst/lookanalyst/storage"
	"github.com/lookanalyst/lookanalyst/tags"
	"github.com/lookanalyst/lookanalyst/vision"
)

var tracer = otel.Tracer("github.com/lookanalyst/lookanalyst")

// NoGarmentsMessage is reported when the model's answer holds no tag sets
const NoGarmentsMessage = "no garments detected"

// Pipeline sequences fetch, extraction, staging, and analysis.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	config    Config
	fetcher   *Fetcher
	extractor *Extractor
	stager    storage.Stager
	analyzer  vision.Analyzer
}

// New creates a Pipeline
func New(config Config, stager storage.Stager, analyzer vision.Analyzer) *Pipeline {
	if config.Policies == nil {
		config.Policies = DefaultPolicies()
	}
	return &Pipeline{
		config:    config,
		fetcher:   newFetcher(config.MaxRedirects, config.Policies, config.Transport),
		extractor: NewExtractor(),
		stager:    stager,
		analyzer:  analyzer,
	}
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// ResolvePage fetches a pin page and extracts its content image URL
func (p *Pipeline) ResolvePage(ctx context.Context, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	pageURL := strings.TrimSpace(req.PageURL)
	if pageURL == "" {
		return nil, fmt.Errorf("%w: empty page URL", ErrInvalidURL)
	}
	if !IsPinterestURL(pageURL) {
		return nil, fmt.Errorf("%w: not a Pinterest page: %q", ErrInvalidURL, pageURL)
	}

	ctx, span := tracer.Start(ctx, "lookanalyst.ResolvePage")
	defer span.End()
	span.SetAttributes(attribute.String("page.url", pageURL))

	resp, viaProxy, err := p.fetchWithFallback(ctx, pageURL, KindDocument, p.config.PageTimeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page fetch failed")
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.config.MaxPageBytes))
	if err != nil {
		span.RecordError(err)
		return nil, &NetworkError{URL: pageURL, Err: fmt.Errorf("failed to read page: %w", err)}
	}
	doc := string(body)

	result, err := p.extractor.Extract(doc)
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("none").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "no image found")
		slog.DebugContext(ctx, "no strategy matched", "url", pageURL, "via_proxy", viaProxy, "html_prefix", truncate(doc, 2000))
		return nil, err
	}

	metrics.ExtractionsTotal.WithLabelValues(result.Strategy).Inc()
	span.SetAttributes(
		attribute.String("extraction.strategy", result.Strategy),
		attribute.Bool("fetch.via_proxy", viaProxy),
	)
	slog.InfoContext(ctx, "pin image resolved",
		"url", pageURL,
		"image_url", result.ImageURL,
		"strategy", result.Strategy,
		"via_proxy", viaProxy,
	)

	return result, nil
}

// StagePin resolves a pin page and stages its content image
func (p *Pipeline) StagePin(ctx context.Context, req models.ExtractionRequest) (*Staged, *models.ExtractionResult, error) {
	result, err := p.ResolvePage(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	staged, err := p.stageRemote(ctx, result.ImageURL, p.config.PinImageTimeout)
	if err != nil {
		return nil, result, err
	}
	return staged, result, nil
}

// StageURL downloads and stages a user-supplied image URL
func (p *Pipeline) StageURL(ctx context.Context, imageURL string) (*Staged, error) {
	imageURL = strings.TrimSpace(imageURL)
	u, err := url.Parse(imageURL)
	if imageURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, imageURL)
	}
	return p.stageRemote(ctx, imageURL, p.config.ImageTimeout)
}

// StageUpload stages an uploaded file. contentType is the part's declared type.
func (p *Pipeline) StageUpload(ctx context.Context, r io.Reader, contentType, filename string) (*Staged, error) {
	return p.stage(ctx, r, contentType, slug.FromFilename(filename), "", p.config.MaxUploadBytes)
}

func (p *Pipeline) stageRemote(ctx context.Context, imageURL string, timeout time.Duration) (*Staged, error) {
	ctx, span := tracer.Start(ctx, "lookanalyst.StageImage")
	defer span.End()
	span.SetAttributes(attribute.String("image.url", imageURL))

	resp, viaProxy, err := p.fetchWithFallback(ctx, imageURL, KindImage, timeout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "image fetch failed")
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Bool("fetch.via_proxy", viaProxy))

	staged, err := p.stage(ctx, resp.Body, resp.ContentType, slug.FromImageURL(imageURL), imageURL, p.config.MaxImageBytes)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "staging failed")
		return nil, err
	}
	return staged, nil
}

// Analyze sends a staged image to the analyzer and parses the answer.
// The staged image is released before Analyze returns, whatever the outcome.
func (p *Pipeline) Analyze(ctx context.Context, staged *Staged, lang string) (*models.ClothingAnalysis, error) {
	var analysis *models.ClothingAnalysis
	err := Use(ctx, staged, func(s *Staged) error {
		var err error
		analysis, err = p.analyze(ctx, s, lang)
		return err
	})
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("failure").Inc()
		return nil, err
	}
	return analysis, nil
}

func (p *Pipeline) analyze(ctx context.Context, s *Staged, lang string) (*models.ClothingAnalysis, error) {
	ctx, span := tracer.Start(ctx, "lookanalyst.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.mime_type", s.MimeType),
		attribute.Int64("image.size", s.Size),
		attribute.String("language", lang),
	)

	data, err := s.Bytes(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	details, err := imageinfo.Probe(data)
	if err != nil {
		// The model may still read formats the probe does not know
		slog.DebugContext(ctx, "image probe failed", "path", s.LocalPath, "error", err)
		details = nil
	}

	analyzeCtx, cancel := context.WithTimeout(ctx, p.config.AnalysisTimeout)
	defer cancel()

	answer, err := p.analyzer.AnalyzeClothing(analyzeCtx, data, s.MimeType, lang)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("analysis timed out after %v: %w", p.config.AnalysisTimeout, err)
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	sets := tags.Parse(answer.Text)
	analysis := &models.ClothingAnalysis{
		Success:          true,
		ClothingTags:     sets,
		Count:            len(sets),
		ModelUsed:        answer.Model,
		RawResponse:      answer.Text,
		Language:         lang,
		Image:            details,
		ResolvedImageURL: s.ResolvedImageURL,
	}

	if len(sets) == 0 {
		analysis.Message = NoGarmentsMessage
		metrics.AnalysesTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.AnalysesTotal.WithLabelValues("garments").Inc()
	}

	span.SetAttributes(attribute.Int("garments", len(sets)))
	slog.InfoContext(ctx, "image analyzed",
		"model", answer.Model,
		"language", lang,
		"garments", len(sets),
		"tags", tags.Count(sets),
	)

	return analysis, nil
}

// truncate returns at most n bytes of s
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
