package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/DevTigeer/ClosetConnectProject/internal/pipeline"
)

// SingleItemClient calls the U2NET single-item segmentation service:
// POST {base}/segment with a multipart image file. The service returns
// exactly one item with an auto-detected label (the dominant
// non-background class by pixel count) plus both a tight crop and a
// same-size-as-input cutout.
type SingleItemClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewSingleItemClient(baseURL string, timeout time.Duration) *SingleItemClient {
	return &SingleItemClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type singleItemResponse struct {
	Status       string `json:"status"`
	Message      string `json:"message"`
	DetectedItem struct {
		Label          string `json:"label"`
		AreaPixels     int    `json:"area_pixels"`
		ImageBase64    string `json:"image_base64"`
		FullsizeBase64 string `json:"fullsize_base64"`
	} `json:"detected_item"`
}

func (c *SingleItemClient) SegmentSingle(ctx context.Context, img image.Image) (pipeline.DetectedItem, error) {
	png, err := encodePNG(flattenWhite(img))
	if err != nil {
		return pipeline.DetectedItem{}, err
	}

	resp, err := postImage(ctx, c.httpClient, c.baseURL+"/segment", "file", "image.png", png, nil)
	if err != nil {
		return pipeline.DetectedItem{}, fmt.Errorf("single-item segmentation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return pipeline.DetectedItem{}, readError(resp)
	}

	var parsed singleItemResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return pipeline.DetectedItem{}, fmt.Errorf("failed to decode single-item response: %w", err)
	}
	if parsed.Status != "success" {
		return pipeline.DetectedItem{}, fmt.Errorf("single-item segmentation failed: %s", parsed.Message)
	}

	cropped, err := decodeBase64Image(parsed.DetectedItem.ImageBase64)
	if err != nil {
		return pipeline.DetectedItem{}, fmt.Errorf("failed to decode crop: %w", err)
	}

	item := pipeline.DetectedItem{
		Label:      parsed.DetectedItem.Label,
		AreaPixels: parsed.DetectedItem.AreaPixels,
		Cropped:    cropped,
	}

	if parsed.DetectedItem.FullsizeBase64 != "" {
		fullsize, err := decodeBase64Image(parsed.DetectedItem.FullsizeBase64)
		if err != nil {
			return pipeline.DetectedItem{}, fmt.Errorf("failed to decode fullsize cutout: %w", err)
		}
		item.Fullsize = fullsize
	}

	return item, nil
}
