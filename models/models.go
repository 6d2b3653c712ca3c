package models

import "time"

// ExtractionRequest carries the page URL a content image should be located on
type ExtractionRequest struct {
	PageURL string `json:"url"`
}

// ExtractionResult is the image URL resolved from a page and the strategy that found it
type ExtractionResult struct {
	ImageURL string `json:"imageUrl"`
	Strategy string `json:"strategy"` // Name of the strategy that matched, for diagnostics
}

// StagedImage describes an image payload held in transient storage
type StagedImage struct {
	ResolvedImageURL string `json:"resolvedImageUrl,omitempty"` // Empty for uploads
	LocalPath        string `json:"localPath"`                  // Filesystem path or object key
	MimeType         string `json:"mimeType"`
	Size             int64  `json:"size"`
}

// ClothingTagSet is the ordered list of tags describing one detected garment
type ClothingTagSet []string

// ImageDetails contains properties probed from the staged image bytes
type ImageDetails struct {
	Format      string     `json:"format,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Orientation int        `json:"orientation,omitempty"` // EXIF orientation (1-8)
	TakenAt     *time.Time `json:"takenAt,omitempty"`     // EXIF DateTime
}

// ClothingAnalysis is the response body of both analysis endpoints
type ClothingAnalysis struct {
	Success          bool             `json:"success"`
	Message          string           `json:"message,omitempty"`
	ClothingTags     []ClothingTagSet `json:"clothingTags"`
	Count            int              `json:"count"`
	ModelUsed        string           `json:"modelUsed"`
	RawResponse      string           `json:"rawResponse"`
	Language         string           `json:"language"`
	Image            *ImageDetails    `json:"image,omitempty"`
	SourceURL        string           `json:"sourceUrl,omitempty"`
	ResolvedImageURL string           `json:"resolvedImageUrl,omitempty"`
	Strategy         string           `json:"strategy,omitempty"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AnalyzeRequest is the JSON body accepted by the analyze endpoint when no file is uploaded
type AnalyzeRequest struct {
	ImageURL string `json:"imageUrl"`
}
