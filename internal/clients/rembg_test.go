package clients

import (
	"bytes"
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeSpaceURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://huggingface.co/spaces/acme/rembg-svc", "https://acme-rembg-svc.hf.space"},
		{"https://huggingface.co/spaces/acme/rembg-svc/", "https://acme-rembg-svc.hf.space"},
		{"https://acme-rembg-svc.hf.space", "https://acme-rembg-svc.hf.space"},
		{"https://acme-rembg-svc.hf.space/remove-bg", "https://acme-rembg-svc.hf.space"},
		{"http://localhost:8001", "http://localhost:8001"},
		{"http://localhost:8001/", "http://localhost:8001"},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeSpaceURL(c.in); got != c.want {
			t.Errorf("NormalizeSpaceURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRembgRemove(t *testing.T) {
	out := testPNG(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/remove-bg" {
			t.Errorf("path = %s", r.URL.Path)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		file.Close()
		w.Write(out)
	}))
	defer srv.Close()

	c := NewRembgClient(srv.URL, 5*time.Second)
	got, err := c.Remove(context.Background(), testPNG(t, 32, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, out) {
		t.Error("response bytes not returned verbatim")
	}
}

func TestRembgRemoveErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRembgClient(srv.URL, 5*time.Second)
	_, err := c.Remove(context.Background(), testPNG(t, 32, 32))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v", err)
	}
}

func TestRembgRemoveRejectsTinyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewRembgClient(srv.URL, 5*time.Second)
	if _, err := c.Remove(context.Background(), testPNG(t, 32, 32)); err == nil {
		t.Fatal("expected error for undersized response body")
	}
}
