// Package clients holds the HTTP clients for the external image stage
// collaborators: background removal, segmentation (multi-class and
// single-item) and generative expansion/inpainting.
package clients

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/disintegration/imaging"
)

// postImage sends an image as a multipart file upload with optional
// extra form fields and returns the raw response.
func postImage(ctx context.Context, hc *http.Client, url, fieldName, filename string, data []byte, fields map[string]string) (*http.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, resp.Request.URL, bytes.TrimSpace(body))
}

// encodePNG renders an image to PNG bytes.
func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// flattenWhite composites an image over a white background. The
// segmentation models expect opaque RGB input.
func flattenWhite(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.OverlayCenter(bg, img, 1.0)
}
