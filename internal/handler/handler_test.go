package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DevTigeer/ClosetConnectProject/internal/models"
)

func testContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestCacheableResponseStripsTransientFields(t *testing.T) {
	full := ClothResponse{
		ID:                "abc",
		UserID:            7,
		Filename:          "photo.jpg",
		Status:            string(models.ClothStatusProcessing),
		SuggestedCategory: "TOP",
		DownloadURL:       "https://minio.local/presigned?sig=xyz",
		Progress: &models.ProgressEvent{
			ClothID:            "abc",
			ProgressPercentage: 40,
		},
		CreatedAt: time.Now(),
	}

	cached := cacheableResponse(full)
	if cached.DownloadURL != "" {
		t.Error("presigned URL must not be cached")
	}
	if cached.Progress != nil {
		t.Error("progress snapshot must not be cached")
	}
	if cached.ID != full.ID || cached.UserID != full.UserID ||
		cached.Status != full.Status || cached.SuggestedCategory != full.SuggestedCategory {
		t.Errorf("durable fields changed: %+v", cached)
	}
	if full.DownloadURL == "" || full.Progress == nil {
		t.Error("input response must stay decorated")
	}
}

func TestAuthenticatedUserID(t *testing.T) {
	c, _ := testContext(t)
	if _, ok := authenticatedUserID(c); ok {
		t.Error("expected no user id on a bare context")
	}

	c.Set("userId", int64(42))
	id, ok := authenticatedUserID(c)
	if !ok || id != 42 {
		t.Errorf("got (%d, %v), want (42, true)", id, ok)
	}

	c.Set("userId", "42")
	if _, ok := authenticatedUserID(c); ok {
		t.Error("expected mismatched type to be rejected")
	}
}

func TestUploadClothRequiresIdentity(t *testing.T) {
	h := &Handler{}
	c, w := testContext(t)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/cloths", nil)

	h.UploadCloth(c)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestDownloadClothRejectsBadID(t *testing.T) {
	h := &Handler{}
	c, w := testContext(t)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.DownloadCloth(c)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
