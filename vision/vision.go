// Package vision sends staged images to a multimodal model for garment recognition.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned when the model answers with no text
var ErrEmptyResponse = errors.New("model returned an empty response")

// Analysis is the model's free-text answer and the model that produced it
type Analysis struct {
	Text  string
	Model string
}

// Analyzer recognizes garments in an image
type Analyzer interface {
	AnalyzeClothing(ctx context.Context, image []byte, mimeType, lang string) (*Analysis, error)
}

// Supported response languages; the first is the default
var Languages = []string{"es", "en", "pt", "fr", "it", "de"}

// DefaultLanguage is used when a request names no supported language
const DefaultLanguage = "es"

// Prompt builds the instruction sent with every image. The answer format
// ("<n>: [tag, tag, ...]" per garment) is what tags.Parse understands.
func Prompt(lang string) string {
	if lang == "" {
		lang = DefaultLanguage
	}

	var b strings.Builder
	b.WriteString("Analyze this image and identify every clothing garment you can see.\n")
	b.WriteString("For each garment, produce individual comma-separated tags covering:\n")
	b.WriteString("- Garment type (trousers, t-shirt, jacket, blazer, etc.)\n")
	b.WriteString("- Main color (black, white, blue, etc.)\n")
	b.WriteString("- Style (baggy, oversize, vintage, classic, etc.)\n")
	b.WriteString("- Material when evident (denim, leather, cotton, etc.)\n")
	b.WriteString("- Special details (print, stripes, embroidery, etc.)\n")
	b.WriteString("- Length or cut (cropped, long, midi, etc.)\n\n")
	b.WriteString("Respond ONLY with a numbered list of tag arrays, one garment per line, in this format:\n")
	b.WriteString("1: [tag1, tag2, tag3, tag4, tag5]\n")
	b.WriteString("2: [tag1, tag2, tag3, tag4, tag5]\n\n")
	b.WriteString("Example:\n")
	b.WriteString("1: [blazer, grey, check print, mid-length, tweed]\n")
	b.WriteString("2: [trousers, black, skinny, denim, fitted]\n\n")
	b.WriteString("If there are no clothing garments, say so in one sentence.\n")
	fmt.Fprintf(&b, "IMPORTANT: write the whole answer in the language %q.\n", lang)

	return b.String()
}
