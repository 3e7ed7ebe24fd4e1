package clients

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const defaultExpandPrompt = "Naturally extend and complete the clothing item in the image. " +
	"Maintain the exact original style, color, pattern, and texture. " +
	"Create seamless edges with no visible borders. " +
	"Professional product photo quality. " +
	"Clean white background."

// ExpansionClient calls the generative image-expansion service. The
// garment crop is pasted onto a larger white canvas and the service is
// asked to complete the borders naturally. Expansion is best-effort:
// any failure returns the input image unchanged alongside the error so
// the pipeline can degrade instead of aborting.
type ExpansionClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewExpansionClient(baseURL string, timeout time.Duration) *ExpansionClient {
	return &ExpansionClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *ExpansionClient) Expand(ctx context.Context, img image.Image, expandPixels int, prompt string) (image.Image, error) {
	if prompt == "" {
		prompt = defaultExpandPrompt
	}

	canvas := expandCanvas(img, expandPixels)
	png, err := encodePNG(canvas)
	if err != nil {
		return img, err
	}

	resp, err := postImage(ctx, c.httpClient, c.baseURL+"/expand", "file", "image.png", png, map[string]string{
		"expand_pixels": strconv.Itoa(expandPixels),
		"prompt":        prompt,
	})
	if err != nil {
		return img, fmt.Errorf("expansion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return img, readError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return img, fmt.Errorf("failed to read expansion response: %w", err)
	}
	expanded, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return img, fmt.Errorf("expansion returned invalid image data: %w", err)
	}
	return expanded, nil
}

// expandCanvas centers the garment on a white canvas grown by
// expandPixels in every direction, leaving blank borders for the
// generative service to fill in.
func expandCanvas(img image.Image, expandPixels int) image.Image {
	b := img.Bounds()
	canvas := imaging.New(b.Dx()+2*expandPixels, b.Dy()+2*expandPixels, color.White)
	return imaging.Overlay(canvas, img, image.Pt(expandPixels, expandPixels), 1.0)
}
