package pipeline

import (
	"context"
	"image"
)

// BBox is a bounding box in padded pixel coordinates. The segmentation
// collaborator expands each box by an adaptive padding of
// clamp(2% of max(width,height), 5, 20) pixels before reporting it.
type BBox struct {
	XMin int `json:"x_min"`
	YMin int `json:"y_min"`
	XMax int `json:"x_max"`
	YMax int `json:"y_max"`
}

// DetectedItem is one labeled clothing region produced by a
// segmentation pass. Immutable once produced.
type DetectedItem struct {
	Label      string
	AreaPixels int
	BBox       BBox
	// Cropped is the tight RGBA cutout of the region.
	Cropped image.Image
	// Fullsize is a same-size-as-input cutout; only the single-item
	// segmenter produces it.
	Fullsize image.Image
}

// BackgroundRemover makes the background of an image transparent.
// Input and output are encoded image bytes (output is PNG).
type BackgroundRemover interface {
	Remove(ctx context.Context, imageBytes []byte) ([]byte, error)
}

// Segmenter detects zero or more clothing regions in a full-body photo.
type Segmenter interface {
	Segment(ctx context.Context, img image.Image) ([]DetectedItem, error)
}

// SingleItemSegmenter extracts exactly one garment from a single-item
// photo, auto-detecting its label.
type SingleItemSegmenter interface {
	SegmentSingle(ctx context.Context, img image.Image) (DetectedItem, error)
}

// Expander completes truncated garment edges generatively. It is
// best-effort: implementations return the input image unchanged
// alongside the error instead of leaving the caller without an image.
type Expander interface {
	Expand(ctx context.Context, img image.Image, expandPixels int, prompt string) (image.Image, error)
}

// Inpainter restores a garment image. Best-effort like Expander.
type Inpainter interface {
	Inpaint(ctx context.Context, img image.Image) (image.Image, error)
}

// ArtifactStore persists per-stage artifacts. Object names are
// partitioned by cloth ID so concurrent workers never collide.
type ArtifactStore interface {
	SaveArtifact(ctx context.Context, stage, objectName string, data []byte) (string, error)
}

// ProgressFunc receives milestone updates while a job is processed.
// Delivery is fire-and-forget.
type ProgressFunc func(step string, percentage int)
