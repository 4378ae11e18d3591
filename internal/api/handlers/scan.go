package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/queue"
	"github.com/your-org/mpf/internal/scan"
	"github.com/your-org/mpf/internal/storage"
	"github.com/your-org/mpf/pkg/dto"
)

type ScanHandler struct {
	pipeline *scan.Pipeline
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewScanHandler(pipeline *scan.Pipeline, db *storage.PostgresStore, minio *storage.MinIOStore, producer *queue.Producer) *ScanHandler {
	return &ScanHandler{pipeline: pipeline, db: db, minio: minio, producer: producer}
}

// Scan runs the full match pipeline synchronously and returns the result.
// The image comes either as a multipart "image" file or a base64 "image_base64"
// form field.
func (h *ScanHandler) Scan(c *gin.Context) {
	if h.pipeline == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	imageData, ok := h.readImage(c)
	if !ok {
		return
	}

	scanID := uuid.New()
	res, err := h.pipeline.ScanWithID(c.Request.Context(), scanID, imageData, h.readLocation(c))
	if err != nil {
		if errors.Is(err, scan.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image could not be decoded"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, scanResponse(scanID, res))
}

// ScanAsync stores the image and queues the scan for worker processing.
func (h *ScanHandler) ScanAsync(c *gin.Context) {
	imageData, ok := h.readImage(c)
	if !ok {
		return
	}

	scanID := uuid.New()
	objectKey := "scans/" + scanID.String() + ".jpg"
	if err := h.minio.PutObject(c.Request.Context(), objectKey, imageData, "image/jpeg"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	task := models.ScanTask{
		ScanID:    scanID,
		ImageRef:  objectKey,
		Location:  h.readLocation(c),
		Timestamp: time.Now().UTC(),
	}
	if err := h.producer.PublishScan(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "queue scan failed"})
		return
	}

	c.JSON(http.StatusAccepted, dto.ScanAcceptedResponse{ScanID: scanID, Status: "queued"})
}

// ListEvents returns recent scan events, newest first.
func (h *ScanHandler) ListEvents(c *gin.Context) {
	limit := 100
	events, err := h.db.ListScanEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.ScanEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, dto.ScanEventResponse{
			ScanID:           ev.ScanID,
			Timestamp:        ev.Timestamp.UTC().Format(time.RFC3339),
			Matched:          ev.Matched,
			CaseID:           ev.CaseID,
			Accuracy:         ev.Accuracy,
			Warning:          ev.Warning,
			NotificationSent: ev.NotificationSent,
			Address:          ev.Location.Address,
		})
	}

	c.JSON(http.StatusOK, gin.H{"events": resp, "total": len(resp)})
}

func (h *ScanHandler) readImage(c *gin.Context) ([]byte, bool) {
	if file, _, err := c.Request.FormFile("image"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
			return nil, false
		}
		return data, true
	}

	if b64 := c.PostForm("image_base64"); b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image"})
			return nil, false
		}
		return data, true
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "image file or image_base64 required"})
	return nil, false
}

func (h *ScanHandler) readLocation(c *gin.Context) models.Location {
	var form dto.ScanForm
	_ = c.ShouldBind(&form)
	return models.Location{
		Latitude:  form.Latitude,
		Longitude: form.Longitude,
		Address:   form.Address,
		Timestamp: time.Now().UTC(),
	}
}

func scanResponse(scanID uuid.UUID, res *scan.Result) dto.ScanResponse {
	resp := dto.ScanResponse{
		ScanID:   scanID,
		Outcome:  string(res.Outcome),
		Matched:  res.Matched,
		PhotoID:  res.PhotoID,
		Accuracy: res.Accuracy,
		Warning:  res.Warning,
	}
	if res.Case != nil {
		cr := caseResponse(res.Case, 0)
		resp.Case = &cr
	}
	if res.Notification != nil {
		resp.Notification = &dto.NotificationStatus{
			Sent:      res.Notification.Sent,
			MessageID: res.Notification.MessageID,
			Error:     res.Notification.Error,
		}
	}
	return resp
}
