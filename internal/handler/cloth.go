package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
	minioclient "github.com/DevTigeer/ClosetConnectProject/internal/storage/minio"
)

type ClothResponse struct {
	ID                string                `json:"id"`
	UserID            int64                 `json:"user_id"`
	Filename          string                `json:"filename"`
	ImageType         string                `json:"image_type"`
	Status            string                `json:"status"`
	SuggestedCategory string                `json:"suggested_category,omitempty"`
	SegmentationLabel string                `json:"segmentation_label,omitempty"`
	ErrorMessage      string                `json:"error_message,omitempty"`
	DownloadURL       string                `json:"download_url,omitempty"`
	Progress          *models.ProgressEvent `json:"progress,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// GetCloth returns one cloth's processing state, its final artifact
// link when completed, and the latest progress snapshot while it is
// still processing.
func (h *Handler) GetCloth(c *gin.Context) {
	idParam := c.Param("id")

	clothID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cloth ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cacheKey := fmt.Sprintf("cloth:%s", clothID.String())

	// Check Redis cache first
	cachedData, err := h.redisClient.Get(ctx, cacheKey)
	if err == nil {
		var response ClothResponse
		if err := json.Unmarshal([]byte(cachedData), &response); err == nil {
			h.decorate(ctx, &response)
			c.JSON(http.StatusOK, response)
			return
		}
	}

	// Cache miss - query PostgreSQL
	var cloth models.Cloth
	query := `
		SELECT id, user_id, filename, image_type, status,
		       COALESCE(suggested_category, ''), COALESCE(segmentation_label, ''),
		       COALESCE(error_message, ''), created_at, updated_at
		FROM cloths
		WHERE id = $1
	`
	err = h.pgPool.QueryRow(ctx, query, clothID).Scan(
		&cloth.ID,
		&cloth.UserID,
		&cloth.Filename,
		&cloth.ImageType,
		&cloth.Status,
		&cloth.SuggestedCategory,
		&cloth.SegmentationLabel,
		&cloth.ErrorMessage,
		&cloth.CreatedAt,
		&cloth.UpdatedAt,
	)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cloth not found"})
		return
	}

	response := ClothResponse{
		ID:                cloth.ID.String(),
		UserID:            cloth.UserID,
		Filename:          cloth.Filename,
		ImageType:         string(cloth.ImageType),
		Status:            string(cloth.Status),
		SuggestedCategory: cloth.SuggestedCategory,
		SegmentationLabel: cloth.SegmentationLabel,
		ErrorMessage:      cloth.ErrorMessage,
		CreatedAt:         cloth.CreatedAt,
		UpdatedAt:         cloth.UpdatedAt,
	}
	// Cache the durable part only (TTL: 10 minutes)
	if responseBytes, err := json.Marshal(cacheableResponse(response)); err == nil {
		_ = h.redisClient.Set(ctx, cacheKey, string(responseBytes), 10*time.Minute)
	}

	h.decorate(ctx, &response)
	c.JSON(http.StatusOK, response)
}

// cacheableResponse strips the transient fields before a response is
// cached: presigned URLs expire and progress changes between reads.
func cacheableResponse(r ClothResponse) ClothResponse {
	r.DownloadURL = ""
	r.Progress = nil
	return r
}

// DownloadCloth streams the final processed image straight from
// storage, for clients that cannot follow presigned URLs.
func (h *Handler) DownloadCloth(c *gin.Context) {
	clothID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cloth ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var status models.ClothStatus
	err = h.pgPool.QueryRow(ctx, `SELECT status FROM cloths WHERE id = $1`, clothID).Scan(&status)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cloth not found"})
		return
	}
	if status != models.ClothStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cloth is not processed yet (status: %s)", status)})
		return
	}

	objectName := fmt.Sprintf("inpainted/%s.png", clothID.String())
	object, err := h.minioClient.DownloadFile(ctx, minioclient.ArtifactBucket, objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch processed image"})
		return
	}
	defer object.Close()

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, object); err != nil {
		// Headers are already written; nothing left to do but log.
		log.Printf("Failed to stream cloth %s: %v", clothID, err)
	}
}

// decorate attaches the transient parts of a response: presigned URLs
// expire and progress changes between reads, so neither is cached.
func (h *Handler) decorate(ctx context.Context, response *ClothResponse) {
	switch response.Status {
	case string(models.ClothStatusCompleted):
		objectName := fmt.Sprintf("inpainted/%s.png", response.ID)
		downloadURL, err := h.minioClient.GetFileLink(ctx, minioclient.ArtifactBucket, objectName, 15*time.Minute)
		if err == nil {
			response.DownloadURL = downloadURL
		}
	case string(models.ClothStatusProcessing), string(models.ClothStatusPending):
		progressKey := fmt.Sprintf("cloth:progress:%s", response.ID)
		if raw, err := h.redisClient.Get(ctx, progressKey); err == nil {
			var event models.ProgressEvent
			if err := json.Unmarshal([]byte(raw), &event); err == nil {
				response.Progress = &event
			}
		}
	}
}
