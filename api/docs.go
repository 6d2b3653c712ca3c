package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/lookanalyst/lookanalyst"
	"github.com/lookanalyst/lookanalyst/vision"
)

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Clothing Analysis API - Documentation</title>
	<style>
		body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; background: #f8f9fa; margin: 0; }
		.container { max-width: 960px; margin: 0 auto; padding: 2rem; background: white; }
		pre { background: #f1f3f5; padding: 1rem; overflow-x: auto; }
		code { font-family: Menlo, Consolas, monospace; }
	</style>
</head>
<body>
<div class="container">
	<h1>Clothing Analysis API</h1>
	<p>Version {{.Version}}. Detects clothing garments in an image and returns one tag list per garment.</p>

	<h2>POST /analyze-clothing</h2>
	<ul>
		<li><strong>image</strong>: multipart image file (maximum <strong>{{.MaxUploadMB}}MB</strong>)</li>
		<li><strong>imageUrl</strong>: image URL, as a form field or JSON body (alternative to the file)</li>
		<li><strong>Supported formats</strong>: JPG, PNG, GIF, WebP</li>
		<li><strong>Not supported</strong>: AVIF</li>
	</ul>
	<pre><code>curl -X POST {{.BaseURL}}/analyze-clothing?lang=en -F "image=@outfit.jpg"</code></pre>

	<h2>POST /download</h2>
	<p>Resolves a Pinterest pin to its image and analyzes it.</p>
	<pre><code>curl -X POST {{.BaseURL}}/download -H "Content-Type: application/json" -d '{"url": "https://www.pinterest.com/pin/123456789/"}'</code></pre>
	<p>The pin image is located with these strategies, in order:</p>
	<ol>
	{{range .Strategies}}	<li><code>{{.}}</code></li>
	{{end}}</ol>

	<h2>Language</h2>
	<p>Tags are written in the language given by <code>?lang=</code> or negotiated from <code>Accept-Language</code>.
	Supported: {{range $i, $l := .Languages}}{{if $i}}, {{end}}<code>{{$l}}</code>{{end}}. Default: <code>{{.DefaultLanguage}}</code>.</p>

	<h2>Response</h2>
	<pre><code>{
  "success": true,
  "clothingTags": [
    ["blazer", "grey", "check print", "mid-length", "tweed"],
    ["trousers", "black", "skinny", "denim", "fitted"]
  ],
  "count": 2,
  "modelUsed": "gemini-2.5-flash",
  "rawResponse": "1: [blazer, grey, ...]\n2: [trousers, black, ...]",
  "language": "en"
}</code></pre>

	<h2>Errors</h2>
	<pre><code>{
  "success": false,
  "error": "file too large: the maximum size is {{.MaxUploadMB}}MB"
}</code></pre>
	<ul>
		<li><code>400</code>: missing or invalid input, file too large, unsupported format, image URL not downloadable</li>
		<li><code>404</code>: no image found on the Pinterest page</li>
		<li><code>500</code>: download or analysis failure, with <code>details</code></li>
	</ul>
</div>
</body>
</html>
`))

type docsData struct {
	Version         string
	BaseURL         string
	MaxUploadMB     int64
	Strategies      []string
	Languages       []string
	DefaultLanguage string
}

// handleDocs serves the HTML documentation page
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	data := docsData{
		Version:         Version,
		BaseURL:         s.frontendURL,
		MaxUploadMB:     (s.pipeline.Config().MaxUploadBytes + (1 << 19)) / (1 << 20),
		Strategies:      lookanalyst.NewExtractor().Strategies(),
		Languages:       vision.Languages,
		DefaultLanguage: vision.DefaultLanguage,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if err := docsTemplate.Execute(w, data); err != nil {
		slog.Error("failed to render docs", "error", err)
	}
}
