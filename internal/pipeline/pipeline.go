// Package pipeline implements the cloth processing pipeline: background
// removal, segmentation, generative expansion, finalization and result
// assembly.
package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/disintegration/imaging"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
)

// ErrNoClothingDetected marks the expected "nothing found" outcome:
// the photo held no recognizable clothing region. It is a per-job
// permanent failure, not a fault worth retrying.
var ErrNoClothingDetected = errors.New("no clothing items detected in image")

// Deps are the collaborators an Orchestrator drives. Remover,
// Segmenter and Store are required; the rest are optional and their
// stages degrade to passthrough when absent.
type Deps struct {
	Remover    BackgroundRemover
	Segmenter  Segmenter
	SingleItem SingleItemSegmenter
	Expander   Expander
	Inpainter  Inpainter
	Store      ArtifactStore
	Policy     Policy

	ExpandPixels int
	ExpandPrompt string
	StageTimeout time.Duration
}

// Orchestrator sequences the pipeline stages for one job at a time.
// All collaborator handles are read-only after construction and shared
// across jobs.
type Orchestrator struct {
	deps Deps
}

func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// FailureResult builds the result published for a job that failed
// terminally. All artifact fields stay empty.
func FailureResult(clothID, errorMessage string) models.PipelineResult {
	return models.PipelineResult{
		ClothID:      clothID,
		Success:      false,
		ErrorMessage: errorMessage,
	}
}

// Process runs the full pipeline for one job. Stage failures never
// escape: they are converted into a failure result, so the returned
// value is always publishable.
func (o *Orchestrator) Process(ctx context.Context, job models.Job, progress ProgressFunc) models.PipelineResult {
	report := func(step string, pct int) {
		if progress != nil {
			progress(step, pct)
		}
	}

	result, err := o.run(ctx, job, report)
	if err != nil {
		log.Printf("[%s] pipeline failed: %v", job.ClothID, err)
		return FailureResult(job.ClothID, err.Error())
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, job models.Job, report ProgressFunc) (models.PipelineResult, error) {
	clothID := job.ClothID

	// Stage 1: background removal. Fatal on failure; every downstream
	// stage assumes a background-free image.
	report("Removing background", 10)
	removedBytes, err := o.callRemover(ctx, job.ImageBytes)
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("background removal failed: %w", err)
	}
	removedImg, err := imaging.Decode(bytes.NewReader(removedBytes))
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("background removal returned undecodable image: %w", err)
	}
	removedPath, err := o.deps.Store.SaveArtifact(ctx, "removed_bg", clothID+".png", removedBytes)
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("failed to persist removed-bg artifact: %w", err)
	}
	report("Background removed", 33)

	// Stage 2: segmentation and primary selection.
	report("Analyzing clothing regions", 40)
	items, err := o.segment(ctx, job, removedImg)
	if err != nil {
		return models.PipelineResult{}, err
	}

	primary, ordered, err := o.deps.Policy.Select(items)
	if err != nil {
		return models.PipelineResult{}, ErrNoClothingDetected
	}
	log.Printf("[%s] primary item: %s (%d px), %d item(s) total", clothID, primary.Label, primary.AreaPixels, len(ordered))

	segmentedPaths, segmentedItems, err := o.persistCrops(ctx, clothID, primary, ordered)
	if err != nil {
		return models.PipelineResult{}, err
	}
	segmentedPath := segmentedPaths[itemKey(primary)]
	report("Clothing regions analyzed", 66)

	// Stage 3a: expansion of the primary item.
	primaryImg := primary.Cropped
	expandedPath := segmentedPath
	if o.deps.Expander != nil {
		report("Expanding primary item", 68)
		primaryImg = o.expand(ctx, clothID, primary.Label, primary.Cropped)

		png, err := pngBytes(primaryImg)
		if err != nil {
			return models.PipelineResult{}, err
		}
		expandedPath, err = o.deps.Store.SaveArtifact(ctx, "expanded", clothID+".png", png)
		if err != nil {
			return models.PipelineResult{}, fmt.Errorf("failed to persist expanded artifact: %w", err)
		}
		report("Primary item expanded", 70)
	}

	// Stage 4: finalization. Passthrough unless a remote inpainter is
	// configured.
	report("Restoring primary item", 72)
	finalImg := primaryImg
	if o.deps.Inpainter != nil {
		sctx, cancel := o.stageContext(ctx)
		restored, err := o.deps.Inpainter.Inpaint(sctx, primaryImg)
		cancel()
		if err != nil {
			log.Printf("[%s] inpainting degraded to passthrough: %v", clothID, err)
		}
		finalImg = restored
	}
	finalPNG, err := pngBytes(finalImg)
	if err != nil {
		return models.PipelineResult{}, err
	}
	finalPath, err := o.deps.Store.SaveArtifact(ctx, "inpainted", clothID+".png", finalPNG)
	if err != nil {
		return models.PipelineResult{}, fmt.Errorf("failed to persist final artifact: %w", err)
	}
	report("Primary item restored", 75)

	// Stage 3b: expansion of the remaining items, largest first. The
	// remaining progress up to 95% is split linearly across them.
	expandedItems, err := o.expandAdditional(ctx, job, primary, ordered, segmentedPaths, expandedPath, primaryImg, report)
	if err != nil {
		return models.PipelineResult{}, err
	}
	report("All items expanded", 95)

	// Stage 5: result assembly.
	primaryBase64, err := imageBase64(primary.Cropped)
	if err != nil {
		return models.PipelineResult{}, err
	}

	return models.PipelineResult{
		ClothID:              clothID,
		Success:              true,
		RemovedBgImagePath:   removedPath,
		SegmentedImagePath:   segmentedPath,
		ExpandedImagePath:    expandedPath,
		FinalImagePath:       finalPath,
		RemovedBgImageBase64: base64.StdEncoding.EncodeToString(removedBytes),
		SegmentedImageBase64: primaryBase64,
		FinalImageBase64:     base64.StdEncoding.EncodeToString(finalPNG),
		SuggestedCategory:    o.deps.Policy.MapCategory(primary.Label),
		SegmentationLabel:    primary.Label,
		AreaPixels:           primary.AreaPixels,
		AllSegmentedItems:    segmentedItems,
		AllExpandedItems:     expandedItems,
	}, nil
}

func (o *Orchestrator) callRemover(ctx context.Context, imageBytes []byte) ([]byte, error) {
	sctx, cancel := o.stageContext(ctx)
	defer cancel()
	return o.deps.Remover.Remove(sctx, imageBytes)
}

// segment picks the single-item model for SINGLE_ITEM jobs when one is
// configured, otherwise runs multi-class segmentation.
func (o *Orchestrator) segment(ctx context.Context, job models.Job, img image.Image) ([]DetectedItem, error) {
	sctx, cancel := o.stageContext(ctx)
	defer cancel()

	if job.ImageType == models.ImageTypeSingleItem && o.deps.SingleItem != nil {
		item, err := o.deps.SingleItem.SegmentSingle(sctx, img)
		if err != nil {
			return nil, fmt.Errorf("single-item segmentation failed: %w", err)
		}
		if item.Fullsize != nil {
			png, err := pngBytes(item.Fullsize)
			if err != nil {
				return nil, err
			}
			if _, err := o.deps.Store.SaveArtifact(ctx, "segmented_clothes", job.ClothID+"_fullsize.png", png); err != nil {
				return nil, fmt.Errorf("failed to persist fullsize artifact: %w", err)
			}
		}
		return []DetectedItem{item}, nil
	}

	items, err := o.deps.Segmenter.Segment(sctx, img)
	if err != nil {
		return nil, fmt.Errorf("segmentation failed: %w", err)
	}
	return items, nil
}

// persistCrops saves every detected crop and returns the saved paths
// keyed by item plus the area-ordered artifact entries. The primary
// crop takes the bare clothId object name for backward compatibility;
// the rest are suffixed with their label.
func (o *Orchestrator) persistCrops(ctx context.Context, clothID string, primary DetectedItem, ordered []DetectedItem) (map[string]string, []models.ItemArtifact, error) {
	paths := make(map[string]string, len(ordered))
	entries := make([]models.ItemArtifact, 0, len(ordered))

	primarySeen := false
	for _, item := range ordered {
		png, err := pngBytes(item.Cropped)
		if err != nil {
			return nil, nil, err
		}

		name := clothID + "_" + item.Label + ".png"
		if !primarySeen && itemKey(item) == itemKey(primary) {
			name = clothID + ".png"
			primarySeen = true
		}

		path, err := o.deps.Store.SaveArtifact(ctx, "segmented_clothes", name, png)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to persist %s crop: %w", item.Label, err)
		}
		paths[itemKey(item)] = path

		entries = append(entries, models.ItemArtifact{
			Label:       item.Label,
			Path:        path,
			ImageBase64: base64.StdEncoding.EncodeToString(png),
			AreaPixels:  item.AreaPixels,
		})
	}
	return paths, entries, nil
}

// expand runs one best-effort expansion call.
func (o *Orchestrator) expand(ctx context.Context, clothID, label string, img image.Image) image.Image {
	sctx, cancel := o.stageContext(ctx)
	defer cancel()

	expanded, err := o.deps.Expander.Expand(sctx, img, o.deps.ExpandPixels, o.deps.ExpandPrompt)
	if err != nil {
		log.Printf("[%s] expansion of %s degraded to passthrough: %v", clothID, label, err)
	}
	return expanded
}

// expandAdditional processes every non-primary item in area-descending
// order and assembles the allExpandedItems collection, also
// area-descending. The primary item was already expanded; its entry
// reuses that artifact.
func (o *Orchestrator) expandAdditional(ctx context.Context, job models.Job, primary DetectedItem, ordered []DetectedItem, segmentedPaths map[string]string, primaryExpandedPath string, primaryImg image.Image, report ProgressFunc) ([]models.ItemArtifact, error) {
	clothID := job.ClothID
	additionalCount := len(ordered) - 1

	entries := make([]models.ItemArtifact, 0, len(ordered))
	progress := 75.0
	step := 20.0 / float64(len(ordered))

	primarySeen := false
	itemNo := 0
	for _, item := range ordered {
		if !primarySeen && itemKey(item) == itemKey(primary) {
			primarySeen = true
			primaryPNG, err := pngBytes(primaryImg)
			if err != nil {
				return nil, err
			}
			entries = append(entries, models.ItemArtifact{
				Label:       item.Label,
				Path:        primaryExpandedPath,
				ImageBase64: base64.StdEncoding.EncodeToString(primaryPNG),
				AreaPixels:  item.AreaPixels,
			})
			continue
		}
		itemNo++

		if o.deps.Expander == nil {
			entries = append(entries, models.ItemArtifact{
				Label:      item.Label,
				Path:       segmentedPaths[itemKey(item)],
				AreaPixels: item.AreaPixels,
			})
			progress += step
			continue
		}

		report(fmt.Sprintf("Expanding additional item (%d/%d)", itemNo, additionalCount), int(progress))
		expanded := o.expand(ctx, clothID, item.Label, item.Cropped)

		png, err := pngBytes(expanded)
		if err != nil {
			return nil, err
		}
		path, err := o.deps.Store.SaveArtifact(ctx, "expanded", clothID+"_"+item.Label+".png", png)
		if err != nil {
			return nil, fmt.Errorf("failed to persist expanded %s artifact: %w", item.Label, err)
		}

		entries = append(entries, models.ItemArtifact{
			Label:       item.Label,
			Path:        path,
			ImageBase64: base64.StdEncoding.EncodeToString(png),
			AreaPixels:  item.AreaPixels,
		})
		progress += step
	}

	return entries, nil
}

func (o *Orchestrator) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.deps.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.deps.StageTimeout)
}

// itemKey identifies an item within one segmentation pass. The
// multi-class collaborator emits at most one item per label.
func itemKey(item DetectedItem) string {
	return fmt.Sprintf("%s/%d", item.Label, item.AreaPixels)
}

func pngBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func imageBase64(img image.Image) (string, error) {
	png, err := pngBytes(img)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
