package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// FlexBytes decodes binary payloads that arrive either as a base64
// string or as a JSON array of byte values. Upstream producers differ
// on how they serialize byte slices, so both forms must be accepted.
type FlexBytes []byte

func (b *FlexBytes) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty imageBytes payload")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid base64 imageBytes: %w", err)
		}
		*b = decoded
		return nil
	case '[':
		var nums []int
		if err := json.Unmarshal(data, &nums); err != nil {
			return err
		}
		out := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				// Jackson serializes byte[] values as signed ints.
				n &= 0xff
			}
			out[i] = byte(n)
		}
		*b = out
		return nil
	case 'n':
		*b = nil
		return nil
	default:
		return fmt.Errorf("unsupported imageBytes encoding")
	}
}

func (b FlexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(b))
}

// Job is the processing request consumed from the request queue.
type Job struct {
	ClothID          string    `json:"clothId"`
	UserID           int64     `json:"userId"`
	ImageBytes       FlexBytes `json:"imageBytes"`
	OriginalFilename string    `json:"originalFilename"`
	ImageType        ImageType `json:"imageType"`
	RetryCount       int       `json:"retryCount"`
	Timestamp        int64     `json:"timestamp"` // epoch millis at first submission
}

// ItemArtifact is one entry of the per-item collections in a result,
// ordered by descending pixel area.
type ItemArtifact struct {
	Label       string `json:"label"`
	Path        string `json:"path"`
	ImageBase64 string `json:"imageBase64,omitempty"`
	AreaPixels  int    `json:"areaPixels"`
}

// PipelineResult is published exactly once per terminally-handled job.
// On failure all artifact fields are empty and ErrorMessage is set.
type PipelineResult struct {
	ClothID      string `json:"clothId"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	RemovedBgImagePath string `json:"removedBgImagePath,omitempty"`
	SegmentedImagePath string `json:"segmentedImagePath,omitempty"`
	ExpandedImagePath  string `json:"expandedImagePath,omitempty"`
	FinalImagePath     string `json:"finalImagePath,omitempty"`

	RemovedBgImageBase64 string `json:"removedBgImageBase64,omitempty"`
	SegmentedImageBase64 string `json:"segmentedImageBase64,omitempty"`
	FinalImageBase64     string `json:"finalImageBase64,omitempty"`

	SuggestedCategory Category `json:"suggestedCategory,omitempty"`
	SegmentationLabel string   `json:"segmentationLabel,omitempty"`
	AreaPixels        int      `json:"areaPixels,omitempty"`

	AllSegmentedItems []ItemArtifact `json:"allSegmentedItems,omitempty"`
	AllExpandedItems  []ItemArtifact `json:"allExpandedItems,omitempty"`
}

// ProgressEvent is fire-and-forget; percentages are monotonically
// non-decreasing within one job.
type ProgressEvent struct {
	ClothID            string `json:"clothId"`
	UserID             int64  `json:"userId"`
	Status             string `json:"status"`
	CurrentStep        string `json:"currentStep"`
	ProgressPercentage int    `json:"progressPercentage"`
	Timestamp          int64  `json:"timestamp"`
}
