package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/DevTigeer/ClosetConnectProject/internal/pipeline"
)

// SegmentationClient calls the multi-class segmentation service:
// POST {base}/segment with a multipart image file, JSON response with
// one detected item per clothing class present. Left/right footwear
// arrives pre-merged as "shoes" and sub-threshold regions are already
// filtered out by the service.
type SegmentationClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSegmentationClient(baseURL string, timeout time.Duration) *SegmentationClient {
	return &SegmentationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type segmentItem struct {
	Label       string        `json:"label"`
	AreaPixels  int           `json:"area_pixels"`
	ImageBase64 string        `json:"image_base64"`
	BBox        pipeline.BBox `json:"bbox"`
}

type segmentResponse struct {
	Status        string        `json:"status"`
	Message       string        `json:"message"`
	DetectedItems []segmentItem `json:"detected_items"`
}

// Segment detects clothing regions in a full-body photo. A response
// with zero items is not an error here; the caller decides whether an
// empty detection is fatal.
func (c *SegmentationClient) Segment(ctx context.Context, img image.Image) ([]pipeline.DetectedItem, error) {
	png, err := encodePNG(flattenWhite(img))
	if err != nil {
		return nil, err
	}

	resp, err := postImage(ctx, c.httpClient, c.baseURL+"/segment", "file", "image.png", png, nil)
	if err != nil {
		return nil, fmt.Errorf("segmentation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}

	var parsed segmentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode segmentation response: %w", err)
	}

	switch parsed.Status {
	case "success":
	case "no_clothes_detected":
		return nil, nil
	default:
		return nil, fmt.Errorf("segmentation failed: %s", parsed.Message)
	}

	items := make([]pipeline.DetectedItem, 0, len(parsed.DetectedItems))
	for _, it := range parsed.DetectedItems {
		cropped, err := decodeBase64Image(it.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s crop: %w", it.Label, err)
		}
		items = append(items, pipeline.DetectedItem{
			Label:      it.Label,
			AreaPixels: it.AreaPixels,
			BBox:       it.BBox,
			Cropped:    cropped,
		})
	}
	return items, nil
}

func decodeBase64Image(s string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	return img, nil
}
