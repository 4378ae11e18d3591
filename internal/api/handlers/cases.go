package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/storage"
	"github.com/your-org/mpf/pkg/dto"
)

type CaseHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	// ExtractFn extracts face embeddings from image bytes.
	// Set this after the vision pipeline is initialized.
	ExtractFn func(imageData []byte) ([][]float32, error)
}

func NewCaseHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *CaseHandler {
	return &CaseHandler{db: db, minio: minio}
}

func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := notify.NormalizePhone(req.GuardianPhone); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guardian phone"})
		return
	}

	cs := &models.Case{
		ID:               uuid.New(),
		Name:             req.Name,
		Age:              req.Age,
		Gender:           req.Gender,
		Status:           models.CaseStatusMissing,
		LastSeenLocation: req.LastSeenLocation,
		LastSeenAddress:  req.LastSeenAddress,
		GuardianName:     req.GuardianName,
		GuardianPhone:    req.GuardianPhone,
	}
	if err := h.db.CreateCase(c.Request.Context(), cs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, caseResponse(cs, 0))
}

func (h *CaseHandler) List(c *gin.Context) {
	var status *models.CaseStatus
	if s := c.Query("status"); s != "" {
		cs := models.CaseStatus(s)
		if !cs.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
			return
		}
		status = &cs
	}

	cases, err := h.db.ListCases(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		photos, _ := h.db.ListPhotos(c.Request.Context(), cases[i].ID)
		resp = append(resp, caseResponse(&cases[i], len(photos)))
	}

	c.JSON(http.StatusOK, gin.H{"cases": resp, "total": len(resp)})
}

func (h *CaseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	cs, err := h.db.GetCase(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}

	photos, _ := h.db.ListPhotos(c.Request.Context(), id)
	c.JSON(http.StatusOK, caseResponse(cs, len(photos)))
}

func (h *CaseHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	// Remove stored photo objects before the rows cascade away
	photos, _ := h.db.ListPhotos(c.Request.Context(), id)
	for _, p := range photos {
		if p.ObjectKey != "" {
			_ = h.minio.DeleteObject(c.Request.Context(), p.ObjectKey)
		}
	}

	if err := h.db.DeleteCase(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// MarkFound closes a case. The transition is one-way; a found case never
// goes back to missing and stops participating in matching immediately.
func (h *CaseHandler) MarkFound(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	cs, err := h.db.GetCase(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}

	if err := h.db.MarkCaseFound(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "found"})
}

// AddPhoto accepts a multipart image upload, extracts the face embedding,
// and stores both the image and the embedding. A photo_id form field makes
// the upload idempotent: re-sending the same id replaces the record.
func (h *CaseHandler) AddPhoto(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	cs, err := h.db.GetCase(c.Request.Context(), caseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	if h.ExtractFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	embeddings, err := h.ExtractFn(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to process image: " + err.Error()})
		return
	}
	if len(embeddings) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no face detected in photo"})
		return
	}

	photoID := uuid.New()
	if idStr := c.PostForm("photo_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo_id"})
			return
		}
		photoID = id
	}

	objectKey := "cases/" + caseID.String() + "/" + photoID.String() + "_" + header.Filename
	if err := h.minio.PutObject(c.Request.Context(), objectKey, imageData, header.Header.Get("Content-Type")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store image failed"})
		return
	}

	photo := &models.CasePhoto{
		ID:        photoID,
		CaseID:    caseID,
		ObjectKey: objectKey,
		Embedding: embeddings[0],
	}
	if err := h.db.AddPhoto(c.Request.Context(), photo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, dto.CasePhotoResponse{
		ID:        photo.ID,
		CaseID:    photo.CaseID,
		ObjectKey: photo.ObjectKey,
		CreatedAt: photo.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *CaseHandler) ListPhotos(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}

	photos, err := h.db.ListPhotos(c.Request.Context(), caseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.CasePhotoResponse, 0, len(photos))
	for _, p := range photos {
		resp = append(resp, dto.CasePhotoResponse{
			ID:        p.ID,
			CaseID:    p.CaseID,
			ObjectKey: p.ObjectKey,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"photos": resp, "total": len(resp)})
}

func (h *CaseHandler) DeletePhoto(c *gin.Context) {
	if _, err := uuid.Parse(c.Param("id")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}
	photoID, err := uuid.Parse(c.Param("photoId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid photo id"})
		return
	}

	if err := h.db.RemovePhoto(c.Request.Context(), photoID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func caseResponse(cs *models.Case, photoCount int) dto.CaseResponse {
	resp := dto.CaseResponse{
		ID:               cs.ID,
		Name:             cs.Name,
		Age:              cs.Age,
		Gender:           cs.Gender,
		Status:           string(cs.Status),
		LastSeenLocation: cs.LastSeenLocation,
		LastSeenAddress:  cs.LastSeenAddress,
		GuardianName:     cs.GuardianName,
		GuardianPhone:    cs.GuardianPhone,
		PhotoCount:       photoCount,
		CreatedAt:        cs.CreatedAt.UTC().Format(time.RFC3339),
	}
	if cs.LastSeenAt != nil {
		resp.LastSeenAt = cs.LastSeenAt.UTC().Format(time.RFC3339)
	}
	return resp
}
