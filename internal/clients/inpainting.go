package clients

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// InpaintingClient calls the remote restoration service:
// POST {base}/inpaint with a multipart image file, image bytes
// response. Like expansion it is best-effort and returns the input
// unchanged on failure.
type InpaintingClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewInpaintingClient(baseURL string, timeout time.Duration) *InpaintingClient {
	return &InpaintingClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *InpaintingClient) Inpaint(ctx context.Context, img image.Image) (image.Image, error) {
	png, err := encodePNG(img)
	if err != nil {
		return img, err
	}

	resp, err := postImage(ctx, c.httpClient, c.baseURL+"/inpaint", "file", "image.png", png, map[string]string{
		"extend_ratio": "0.5",
	})
	if err != nil {
		return img, fmt.Errorf("inpainting request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return img, readError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return img, fmt.Errorf("failed to read inpainting response: %w", err)
	}
	restored, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return img, fmt.Errorf("inpainting returned invalid image data: %w", err)
	}
	return restored, nil
}
