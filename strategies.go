package lookanalyst

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Strategy is one independent heuristic for locating the content image of a page.
// Find must be pure: it only inspects the HTML text it is given.
type Strategy struct {
	Name string
	Find func(doc string) (string, bool)
}

// Strategy names, in default priority order
const (
	StrategyMetaTag          = "og-image"
	StrategyStructuredData   = "json-ld"
	StrategyClassMarker      = "class-marker"
	StrategyTestID           = "test-id"
	StrategyLargestCandidate = "largest-candidate"
	StrategyLazyLoad         = "lazy-load"
)

// allowedImageExtensions is the allow-list every resolved URL must satisfy
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
}

// pinClassMarkers are fragments of the generated class names Pinterest puts on pin images
var pinClassMarkers = []string{"pck", "qly", "rym", "xig", "ojn", "p6v"}

const imageExtPattern = `\.(?:jpg|jpeg|png|webp|gif)`

var (
	jsonLDImagePattern = regexp.MustCompile(`(?i)"image":\s*"([^"]*i\.pinimg\.com[^"]*` + imageExtPattern + `)"`)
	cdnImagePattern    = regexp.MustCompile(`(?i)https://i\.pinimg\.com/[^"'\s]+` + imageExtPattern)
	widthPattern       = regexp.MustCompile(`/(\d+)x`)
)

// DefaultStrategies returns the built-in strategies in priority order
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyMetaTag, Find: FindMetaImage},
		{Name: StrategyStructuredData, Find: FindStructuredDataImage},
		{Name: StrategyClassMarker, Find: FindClassMarkedImage},
		{Name: StrategyTestID, Find: FindTestIDImage},
		{Name: StrategyLargestCandidate, Find: FindLargestCandidate},
		{Name: StrategyLazyLoad, Find: FindLazyLoadImage},
	}
}

// FindMetaImage returns the og:image meta property, the author-curated preview image
func FindMetaImage(doc string) (string, bool) {
	var found string
	scanStartTags(doc, func(tag string, attrs map[string]string) bool {
		if tag != "meta" || !strings.EqualFold(attrs["property"], "og:image") {
			return false
		}
		content := strings.TrimSpace(attrs["content"])
		if !hasAllowedImageExtension(content) {
			return false
		}
		found = content
		return true
	})
	return found, found != ""
}

// FindStructuredDataImage returns the first JSON-LD "image" value on the image CDN
func FindStructuredDataImage(doc string) (string, bool) {
	match := jsonLDImagePattern.FindStringSubmatch(doc)
	if match == nil {
		return "", false
	}
	// Inline JSON often escapes slashes
	return strings.ReplaceAll(match[1], `\/`, "/"), true
}

// FindClassMarkedImage returns the src of the first <img> carrying a known pin class marker
func FindClassMarkedImage(doc string) (string, bool) {
	return findImgSrc(doc, func(attrs map[string]string) bool {
		class := strings.ToLower(attrs["class"])
		for _, marker := range pinClassMarkers {
			if strings.Contains(class, marker) {
				return true
			}
		}
		return false
	})
}

// FindTestIDImage returns the src of the first <img> whose data-testid names a pin image
func FindTestIDImage(doc string) (string, bool) {
	return findImgSrc(doc, func(attrs map[string]string) bool {
		return strings.Contains(strings.ToLower(attrs["data-testid"]), "pin-image")
	})
}

// FindLargestCandidate collects every CDN image URL in the text and returns the
// widest one. Width comes from the CDN's "/{width}x/" path convention; URLs
// without it rank as width 0. This convention is specific to i.pinimg.com.
func FindLargestCandidate(doc string) (string, bool) {
	candidates := cdnImagePattern.FindAllString(doc, -1)
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidateWidth(candidates[i]) > candidateWidth(candidates[j])
	})
	return candidates[0], true
}

// FindLazyLoadImage returns the first data-src attribute holding a CDN image URL
func FindLazyLoadImage(doc string) (string, bool) {
	var found string
	scanStartTags(doc, func(_ string, attrs map[string]string) bool {
		src := attrs["data-src"]
		if !strings.HasPrefix(strings.ToLower(src), "https://i.pinimg.com/") || !hasAllowedImageExtension(src) {
			return false
		}
		found = src
		return true
	})
	return found, found != ""
}

// candidateWidth parses the width marker of a CDN URL, 0 if absent
func candidateWidth(u string) int {
	match := widthPattern.FindStringSubmatch(u)
	if match == nil {
		return 0
	}
	width, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return width
}

// findImgSrc returns the src of the first <img> accepted by keep whose src is a CDN image
func findImgSrc(doc string, keep func(attrs map[string]string) bool) (string, bool) {
	var found string
	scanStartTags(doc, func(tag string, attrs map[string]string) bool {
		if tag != "img" || !keep(attrs) {
			return false
		}
		src := attrs["src"]
		if !isHostedImageURL(src) {
			return false
		}
		found = src
		return true
	})
	return found, found != ""
}

// isHostedImageURL reports whether u points at the image CDN with an allowed extension
func isHostedImageURL(u string) bool {
	return strings.Contains(strings.ToLower(u), "i.pinimg.com") && hasAllowedImageExtension(u)
}

// hasAllowedImageExtension reports whether u is an absolute http(s) URL whose
// path ends with an allow-listed image extension. Query and fragment are ignored.
func hasAllowedImageExtension(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return false
	}
	return allowedImageExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// scanStartTags walks the start tags of doc with the tokenizer, without
// building a tree. Attribute keys are lower-cased and values unescaped.
// The contents of <noscript> are scanned as markup. Scanning stops when
// visit returns true.
func scanStartTags(doc string, visit func(tag string, attrs map[string]string) bool) {
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) == "noscript" {
				// Lazy-loaded pages put the real <img> inside <noscript>
				z.NextIsNotRawText()
			}
			attrs := make(map[string]string)
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				k := string(key)
				if _, seen := attrs[k]; !seen {
					attrs[k] = string(val)
				}
			}
			if visit(string(name), attrs) {
				return
			}
		}
	}
}
