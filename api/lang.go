package api

import (
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/lookanalyst/lookanalyst/vision"
)

var languageMatcher = language.NewMatcher(supportedTags())

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(vision.Languages))
	for i, l := range vision.Languages {
		tags[i] = language.Make(l)
	}
	return tags
}

// negotiateLanguage picks the response language: an exact ?lang= code wins,
// then the best Accept-Language match, then the default
func negotiateLanguage(r *http.Request) string {
	if lang := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("lang"))); lang != "" {
		for _, supported := range vision.Languages {
			if lang == supported {
				return lang
			}
		}
		return vision.DefaultLanguage
	}

	prefs, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(prefs) == 0 {
		return vision.DefaultLanguage
	}

	_, index, confidence := languageMatcher.Match(prefs...)
	if confidence == language.No {
		return vision.DefaultLanguage
	}
	return vision.Languages[index]
}
