package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/lookanalyst/lookanalyst"
	"github.com/lookanalyst/lookanalyst/models"
)

// multipartOverhead is allowed on top of the upload limit for form boundaries and fields
const multipartOverhead = 1 << 20

// InfoResponse is served at the API root
type InfoResponse struct {
	Message       string            `json:"message"`
	Version       string            `json:"version"`
	Description   string            `json:"description"`
	Endpoints     map[string]string `json:"endpoints"`
	Documentation string            `json:"documentation"`
}

// handleInfo describes the API
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, InfoResponse{
		Message:     "Clothing analysis API",
		Version:     Version,
		Description: "Analyzes clothing images and returns one tag list per detected garment",
		Endpoints: map[string]string{
			"GET /docs":              "API documentation",
			"GET /health":            "Health check",
			"POST /analyze-clothing": "Analyze an uploaded image or an image URL",
			"POST /download":         "Analyze the image of a Pinterest pin",
		},
		Documentation: strings.TrimRight(s.frontendURL, "/") + "/docs",
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// handleAnalyzeClothing analyzes a multipart "image" upload or an imageUrl
// given as JSON or as a form field
func (s *Server) handleAnalyzeClothing(w http.ResponseWriter, r *http.Request) {
	// In-flight work survives a client disconnect; each stage has its own timeout
	ctx := context.WithoutCancel(r.Context())
	lang := negotiateLanguage(r)
	maxUpload := s.pipeline.Config().MaxUploadBytes

	var (
		staged   *lookanalyst.Staged
		uploaded bool
		err      error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload+multipartOverhead)
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, http.StatusBadRequest, fileTooLargeMessage(maxUpload), "")
				return
			}
			respondError(w, http.StatusBadRequest, "invalid multipart body", err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, ferr := r.FormFile("image")
		switch {
		case ferr == nil:
			defer file.Close()
			if header.Size > maxUpload {
				respondError(w, http.StatusBadRequest, fileTooLargeMessage(maxUpload), "")
				return
			}
			uploaded = true
			staged, err = s.pipeline.StageUpload(ctx, file, header.Header.Get("Content-Type"), header.Filename)
		case errors.Is(ferr, http.ErrMissingFile):
			staged, err = s.stageImageURL(ctx, r.FormValue("imageUrl"))
		default:
			respondError(w, http.StatusBadRequest, "invalid image field", ferr.Error())
			return
		}

	case "application/json":
		var req models.AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", "")
			return
		}
		staged, err = s.stageImageURL(ctx, req.ImageURL)

	default:
		staged, err = s.stageImageURL(ctx, r.FormValue("imageUrl"))
	}

	if err != nil {
		switch {
		case errors.Is(err, errNoImage):
			respondError(w, http.StatusBadRequest, "an image file or imageUrl is required", "")
		case uploaded && errors.Is(err, lookanalyst.ErrPayloadTooLarge):
			respondError(w, http.StatusBadRequest, fileTooLargeMessage(maxUpload), "")
		case isInputError(err):
			respondError(w, http.StatusBadRequest, err.Error(), "")
		default:
			slog.ErrorContext(ctx, "image staging failed", "error", err)
			respondError(w, http.StatusInternalServerError, "failed to stage image", err.Error())
		}
		return
	}

	analysis, err := s.pipeline.Analyze(ctx, staged, lang)
	if err != nil {
		slog.ErrorContext(ctx, "clothing analysis failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to analyze image", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

var errNoImage = errors.New("no image supplied")

// isInputError reports whether a staging failure was caused by the client's
// input or the remote image rather than by this server
func isInputError(err error) bool {
	var (
		invalid *lookanalyst.InvalidContentError
		network *lookanalyst.NetworkError
		proxy   *lookanalyst.ProxyError
	)
	return errors.Is(err, lookanalyst.ErrInvalidURL) ||
		errors.As(err, &invalid) ||
		errors.As(err, &network) ||
		errors.As(err, &proxy)
}

func (s *Server) stageImageURL(ctx context.Context, imageURL string) (*lookanalyst.Staged, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, errNoImage
	}
	return s.pipeline.StageURL(ctx, imageURL)
}

// handleDownload resolves a Pinterest pin to its image and analyzes it
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	lang := negotiateLanguage(r)

	var req models.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	req.PageURL = strings.TrimSpace(req.PageURL)
	if req.PageURL == "" {
		respondError(w, http.StatusBadRequest, "Pinterest URL is required", "")
		return
	}
	if !lookanalyst.IsPinterestURL(req.PageURL) {
		respondError(w, http.StatusBadRequest, "invalid URL: must be a Pinterest pin URL", "")
		return
	}

	staged, result, err := s.pipeline.StagePin(ctx, req)
	if err != nil {
		var extractionErr *lookanalyst.ExtractionError
		switch {
		case errors.As(err, &extractionErr):
			respondError(w, http.StatusNotFound, "could not extract an image from the Pinterest page", "")
		case errors.Is(err, lookanalyst.ErrInvalidURL):
			respondError(w, http.StatusBadRequest, err.Error(), "")
		default:
			slog.ErrorContext(ctx, "pin download failed", "url", req.PageURL, "error", err)
			respondError(w, http.StatusInternalServerError, "internal server error", err.Error())
		}
		return
	}

	analysis, err := s.pipeline.Analyze(ctx, staged, lang)
	if err != nil {
		slog.ErrorContext(ctx, "pin analysis failed", "url", req.PageURL, "error", err)
		respondError(w, http.StatusInternalServerError, "internal server error", err.Error())
		return
	}

	analysis.SourceURL = req.PageURL
	analysis.Strategy = result.Strategy

	respondJSON(w, http.StatusOK, analysis)
}

func fileTooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("file too large: the maximum size is %dMB", (maxBytes+(1<<19))/(1<<20))
}
