package models

import (
	"time"

	"github.com/google/uuid"
)

type ClothStatus string

const (
	ClothStatusPending    ClothStatus = "pending"
	ClothStatusProcessing ClothStatus = "processing"
	ClothStatusCompleted  ClothStatus = "completed"
	ClothStatusFailed     ClothStatus = "failed"
)

// ImageType tells the worker which segmentation model to use:
// a single garment laid flat or a full-body photo with several items.
type ImageType string

const (
	ImageTypeSingleItem ImageType = "SINGLE_ITEM"
	ImageTypeFullBody   ImageType = "FULL_BODY"
)

// Category is the closet app's garment category.
type Category string

const (
	CategoryTop    Category = "TOP"
	CategoryBottom Category = "BOTTOM"
	CategoryShoes  Category = "SHOES"
	CategoryAcc    Category = "ACC"
)

type Cloth struct {
	ID                uuid.UUID   `json:"id" db:"id"`
	UserID            int64       `json:"user_id" db:"user_id"`
	Filename          string      `json:"filename" db:"filename"`
	ImageType         ImageType   `json:"image_type" db:"image_type"`
	Status            ClothStatus `json:"status" db:"status"`
	SuggestedCategory string      `json:"suggested_category,omitempty" db:"suggested_category"`
	SegmentationLabel string      `json:"segmentation_label,omitempty" db:"segmentation_label"`
	ErrorMessage      string      `json:"error_message,omitempty" db:"error_message"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}
