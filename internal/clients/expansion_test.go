package clients

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func TestExpandCanvasDimensions(t *testing.T) {
	img := imaging.New(30, 40, color.NRGBA{R: 200, A: 255})
	canvas := expandCanvas(img, 25)
	if canvas.Bounds().Dx() != 80 || canvas.Bounds().Dy() != 90 {
		t.Errorf("canvas = %dx%d, want 80x90", canvas.Bounds().Dx(), canvas.Bounds().Dy())
	}
}

func TestExpandSuccess(t *testing.T) {
	out := testPNG(t, 100, 120)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/expand" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("expand_pixels"); got != "20" {
			t.Errorf("expand_pixels = %q", got)
		}
		if r.FormValue("prompt") == "" {
			t.Error("prompt field missing; default prompt expected")
		}
		w.Write(out)
	}))
	defer srv.Close()

	c := NewExpansionClient(srv.URL, 5*time.Second)
	in := imaging.New(60, 80, color.White)
	expanded, err := c.Expand(context.Background(), in, 20, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expanded.Bounds().Dx() != 100 || expanded.Bounds().Dy() != 120 {
		t.Errorf("expanded = %dx%d, want 100x120", expanded.Bounds().Dx(), expanded.Bounds().Dy())
	}
}

func TestExpandCustomPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("prompt"); got != "keep the plaid pattern" {
			t.Errorf("prompt = %q", got)
		}
		w.Write(testPNG(t, 64, 64))
	}))
	defer srv.Close()

	c := NewExpansionClient(srv.URL, 5*time.Second)
	if _, err := c.Expand(context.Background(), imaging.New(40, 40, color.White), 12, "keep the plaid pattern"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpandFailureReturnsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gpu busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewExpansionClient(srv.URL, 5*time.Second)
	in := imaging.New(60, 80, color.White)
	got, err := c.Expand(context.Background(), in, 20, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != in {
		t.Error("failed expansion must return the input image")
	}
}

func TestInpaintFailureReturnsInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gpu busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewInpaintingClient(srv.URL, 5*time.Second)
	in := imaging.New(60, 80, color.White)
	got, err := c.Inpaint(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if got != in {
		t.Error("failed inpainting must return the input image")
	}
}

func TestInpaintSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inpaint" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.FormValue("extend_ratio"); got != "0.5" {
			t.Errorf("extend_ratio = %q", got)
		}
		w.Write(testPNG(t, 72, 72))
	}))
	defer srv.Close()

	c := NewInpaintingClient(srv.URL, 5*time.Second)
	got, err := c.Inpaint(context.Background(), imaging.New(48, 48, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Bounds().Dx() != 72 {
		t.Errorf("result = %dx%d, want 72x72", got.Bounds().Dx(), got.Bounds().Dy())
	}
}
