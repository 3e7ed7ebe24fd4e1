package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
	"github.com/DevTigeer/ClosetConnectProject/internal/queue/rabbitmq"
	minioclient "github.com/DevTigeer/ClosetConnectProject/internal/storage/minio"
)

const MaxUploadSize = 10 << 20 // 10MB

type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// UploadCloth accepts a garment photo, stores the raw upload, records
// the cloth and queues a processing job. The cloth is bound to the
// authenticated user, never to request data.
func (h *Handler) UploadCloth(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authenticated user"})
		return
	}

	// Set max upload size
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	// Validate file extension first
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .jpg, .jpeg, and .png extensions are allowed"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/jpeg") && !strings.HasPrefix(contentType, "image/png") {
		// Fall back to the extension when Content-Type is missing or odd.
		if ext == ".png" {
			contentType = "image/png"
		} else {
			contentType = "image/jpeg"
		}
	}

	imageType := models.ImageType(c.PostForm("imageType"))
	if imageType == "" {
		imageType = models.ImageTypeFullBody
	}
	if imageType != models.ImageTypeSingleItem && imageType != models.ImageTypeFullBody {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageType must be SINGLE_ITEM or FULL_BODY"})
		return
	}

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	clothID := uuid.New()
	objectName := fmt.Sprintf("%s%s", clothID.String(), ext)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	// Store the raw upload
	_, err = h.minioClient.UploadFile(ctx, minioclient.RawBucket, objectName, bytes.NewReader(imageBytes), int64(len(imageBytes)), contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload file: %v", err)})
		return
	}

	// Record the cloth
	query := `
		INSERT INTO cloths (id, user_id, filename, image_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err = h.pgPool.Exec(ctx, query, clothID, userID, header.Filename, imageType, models.ClothStatusPending)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to save to database: %v", err)})
		return
	}

	// Queue the processing job
	job := models.Job{
		ClothID:          clothID.String(),
		UserID:           userID,
		ImageBytes:       imageBytes,
		OriginalFilename: header.Filename,
		ImageType:        imageType,
		RetryCount:       0,
		Timestamp:        time.Now().UnixMilli(),
	}
	msgBytes, err := json.Marshal(job)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job message"})
		return
	}

	if err := h.rabbitClient.Publish(rabbitmq.RequestKey, msgBytes); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to publish message: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, UploadResponse{
		ID:       clothID.String(),
		Filename: header.Filename,
		Status:   string(models.ClothStatusPending),
		Message:  "Cloth uploaded successfully and queued for processing",
	})
}
