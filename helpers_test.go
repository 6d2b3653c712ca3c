package lookanalyst

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/lookanalyst/lookanalyst/storage"
	"github.com/lookanalyst/lookanalyst/vision"
)

// rewriteTransport sends every request to one test server, keeping the
// original Host header so handlers can route on it
type rewriteTransport struct {
	target *url.URL
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

type fakeAnalyzer struct {
	text  string
	err   error
	calls int

	gotMime  string
	gotLang  string
	gotImage []byte
}

func (f *fakeAnalyzer) AnalyzeClothing(ctx context.Context, image []byte, mimeType, lang string) (*vision.Analysis, error) {
	f.calls++
	f.gotImage = image
	f.gotMime = mimeType
	f.gotLang = lang
	if f.err != nil {
		return nil, f.err
	}
	return &vision.Analysis{Text: f.text, Model: "fake-model"}, nil
}

// countingStager records removals on top of a real stager
type countingStager struct {
	storage.Stager
	removes int
}

func (c *countingStager) Remove(ctx context.Context, ref string) error {
	c.removes++
	return c.Stager.Remove(ctx, ref)
}

type testPipeline struct {
	*Pipeline
	dir      string
	stager   *countingStager
	analyzer *fakeAnalyzer
}

// newTestPipeline builds a pipeline whose outbound requests all reach handler
func newTestPipeline(t *testing.T, handler http.Handler, config Config) *testPipeline {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	local, err := storage.NewLocal(storage.Config{BasePath: dir})
	if err != nil {
		t.Fatalf("storage.NewLocal() error = %v", err)
	}
	stager := &countingStager{Stager: local}
	analyzer := &fakeAnalyzer{text: "1: [blazer, gris]"}

	target, _ := url.Parse(server.URL)
	config.Transport = &rewriteTransport{target: target}
	p := New(config, stager, analyzer)

	return &testPipeline{Pipeline: p, dir: dir, stager: stager, analyzer: analyzer}
}

// stagedFiles lists the files left in the staging directory
func (tp *testPipeline) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(tp.dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}
