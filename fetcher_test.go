package lookanalyst

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func testPolicies() Policies {
	return Policies{
		{
			Family:  "local",
			Hosts:   []string{"127.0.0.1"},
			Referer: "https://ref.example/",
			Origin:  "https://ref.example",
		},
	}
}

func TestFetchHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tests := []struct {
		kind        RequestKind
		wantAccept  string
		wantDest    string
		wantReferer string
	}{
		{KindDocument, "text/html", "document", "https://ref.example/"},
		{KindImage, "image/webp", "image", "https://ref.example/"},
		{KindProxy, "", "", ""},
	}

	f := NewFetcher(5, testPolicies())
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			resp, err := f.Fetch(context.Background(), server.URL, tt.kind, 5*time.Second)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			resp.Body.Close()

			if got.Get("User-Agent") != browserUserAgent {
				t.Errorf("User-Agent = %q", got.Get("User-Agent"))
			}
			if !strings.HasPrefix(got.Get("Accept"), tt.wantAccept) {
				t.Errorf("Accept = %q, want prefix %q", got.Get("Accept"), tt.wantAccept)
			}
			if got.Get("Sec-Fetch-Dest") != tt.wantDest {
				t.Errorf("Sec-Fetch-Dest = %q, want %q", got.Get("Sec-Fetch-Dest"), tt.wantDest)
			}
			if got.Get("Referer") != tt.wantReferer {
				t.Errorf("Referer = %q, want %q", got.Get("Referer"), tt.wantReferer)
			}
		})
	}
}

func TestFetchNoPolicyHeadersForUnknownHost(t *testing.T) {
	var referer string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
	}))
	defer server.Close()

	f := NewFetcher(5, DefaultPolicies())
	resp, err := f.Fetch(context.Background(), server.URL, KindImage, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	resp.Body.Close()

	if referer != "" {
		t.Errorf("Referer = %q, want none for a host outside every policy", referer)
	}
}

func TestFetchStatusHandling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/"))
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(code)
		fmt.Fprintf(w, "status %d", code)
	}))
	defer server.Close()

	tests := []struct {
		code    int
		wantErr bool
	}{
		{200, false},
		{204, false},
		{304, false},
		{403, true},
		{404, true},
		{500, true},
	}

	f := NewFetcher(5, nil)
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.code), func(t *testing.T) {
			resp, err := f.Fetch(context.Background(), fmt.Sprintf("%s/%d", server.URL, tt.code), KindDocument, 5*time.Second)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Fetch() error = %v", err)
				}
				defer resp.Body.Close()
				if resp.StatusCode != tt.code {
					t.Errorf("StatusCode = %d, want %d", resp.StatusCode, tt.code)
				}
				return
			}

			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("Fetch() error = %v, want *NetworkError", err)
			}
			if netErr.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", netErr.StatusCode, tt.code)
			}
		})
	}
}

func TestFetchBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>pin</html>"))
	}))
	defer server.Close()

	resp, err := NewFetcher(5, nil).Fetch(context.Background(), server.URL, KindDocument, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(body) != "<html>pin</html>" {
		t.Errorf("body = %q", body)
	}
	if resp.ContentType != "text/html; charset=utf-8" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
}

func TestFetchRedirectCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if n == 0 {
			w.Write([]byte("arrived"))
			return
		}
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", n-1), http.StatusFound)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	f := NewFetcher(5, nil)

	resp, err := f.Fetch(context.Background(), server.URL+"/hop/5", KindDocument, 5*time.Second)
	if err != nil {
		t.Fatalf("Fetch() with 5 redirects error = %v", err)
	}
	if !strings.HasSuffix(resp.URL, "/hop/0") {
		t.Errorf("URL = %q, want final URL after redirects", resp.URL)
	}
	resp.Body.Close()

	_, err = f.Fetch(context.Background(), server.URL+"/hop/6", KindDocument, 5*time.Second)
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Fetch() with 6 redirects error = %v, want *NetworkError", err)
	}
	if netErr.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0 for a redirect failure", netErr.StatusCode)
	}
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	_, err := NewFetcher(5, nil).Fetch(context.Background(), server.URL, KindImage, 50*time.Millisecond)
	if err == nil {
		t.Fatal("Fetch() expected timeout error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want context.DeadlineExceeded in chain", err)
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("Fetch() error = %T, want *NetworkError", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Fetch() took %v, want it bounded by the timeout", elapsed)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	urls := []string{"", "not a url", "ftp://example.com/a.jpg", "https://"}

	f := NewFetcher(5, nil)
	for _, u := range urls {
		if _, err := f.Fetch(context.Background(), u, KindDocument, time.Second); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("Fetch(%q) error = %v, want ErrInvalidURL", u, err)
		}
	}
}
