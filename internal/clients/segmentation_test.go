package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(testPNG(t, w, h))
}

func TestSegmentSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/segment" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"detected_items": []map[string]any{
				{
					"label":        "upper-clothes",
					"area_pixels":  15000,
					"image_base64": pngBase64(t, 20, 25),
					"bbox":         map[string]int{"x_min": 5, "y_min": 8, "x_max": 25, "y_max": 33},
				},
				{
					"label":        "pants",
					"area_pixels":  11000,
					"image_base64": pngBase64(t, 18, 30),
				},
			},
		})
	}))
	defer srv.Close()

	c := NewSegmentationClient(srv.URL, 5*time.Second)
	items, err := c.Segment(context.Background(), imaging.New(50, 80, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Label != "upper-clothes" || items[0].AreaPixels != 15000 {
		t.Errorf("items[0] = %s/%d", items[0].Label, items[0].AreaPixels)
	}
	if items[0].BBox.XMin != 5 || items[0].BBox.YMax != 33 {
		t.Errorf("bbox = %+v", items[0].BBox)
	}
	if items[0].Cropped == nil || items[0].Cropped.Bounds().Dx() != 20 {
		t.Error("crop not decoded")
	}
}

func TestSegmentNoClothesDetected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "no_clothes_detected",
			"message": "No clothing items found",
		})
	}))
	defer srv.Close()

	c := NewSegmentationClient(srv.URL, 5*time.Second)
	items, err := c.Segment(context.Background(), imaging.New(50, 80, color.White))
	if err != nil {
		t.Fatalf("empty detection must not be an error: %v", err)
	}
	if items != nil {
		t.Errorf("got %d items, want none", len(items))
	}
}

func TestSegmentServiceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"message": "inference crashed",
		})
	}))
	defer srv.Close()

	c := NewSegmentationClient(srv.URL, 5*time.Second)
	if _, err := c.Segment(context.Background(), imaging.New(50, 80, color.White)); err == nil {
		t.Fatal("expected error for error status")
	}
}

func TestSegmentBadCrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"detected_items": []map[string]any{
				{"label": "hat", "area_pixels": 100, "image_base64": "!!!"},
			},
		})
	}))
	defer srv.Close()

	c := NewSegmentationClient(srv.URL, 5*time.Second)
	if _, err := c.Segment(context.Background(), imaging.New(50, 80, color.White)); err == nil {
		t.Fatal("expected error for undecodable crop")
	}
}

func TestSingleItemSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"detected_item": map[string]any{
				"label":           "shoes",
				"area_pixels":     4200,
				"image_base64":    pngBase64(t, 12, 8),
				"fullsize_base64": pngBase64(t, 50, 80),
			},
		})
	}))
	defer srv.Close()

	c := NewSingleItemClient(srv.URL, 5*time.Second)
	item, err := c.SegmentSingle(context.Background(), imaging.New(50, 80, color.White))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Label != "shoes" || item.AreaPixels != 4200 {
		t.Errorf("item = %s/%d", item.Label, item.AreaPixels)
	}
	if item.Cropped == nil || item.Cropped.Bounds().Dx() != 12 {
		t.Error("crop not decoded")
	}
	if item.Fullsize == nil || item.Fullsize.Bounds().Dx() != 50 {
		t.Error("fullsize cutout not decoded")
	}
}

func TestSingleItemSegmentFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "no_item_detected",
			"message": "nothing found",
		})
	}))
	defer srv.Close()

	c := NewSingleItemClient(srv.URL, 5*time.Second)
	if _, err := c.SegmentSingle(context.Background(), imaging.New(50, 80, color.White)); err == nil {
		t.Fatal("expected error for non-success status")
	}
}
