package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/storage"
	"github.com/your-org/mpf/pkg/dto"
)

type NotifyHandler struct {
	db         *storage.PostgresStore
	dispatcher *notify.Dispatcher
}

func NewNotifyHandler(db *storage.PostgresStore, dispatcher *notify.Dispatcher) *NotifyHandler {
	return &NotifyHandler{db: db, dispatcher: dispatcher}
}

// Notify sends a sighting SMS to the guardian of a case on demand.
// On success the case's last-seen fields are updated to the reported location.
func (h *NotifyHandler) Notify(c *gin.Context) {
	var req dto.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cs, err := h.db.GetCase(c.Request.Context(), req.CaseID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "case not found"})
		return
	}

	loc := models.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
		Timestamp: time.Now().UTC(),
	}
	loc = h.dispatcher.EnrichLocation(c.Request.Context(), loc)

	result := h.dispatcher.Notify(c.Request.Context(), cs.GuardianPhone, cs.Name, loc, notify.PersonContext{
		GuardianName: cs.GuardianName,
		Age:          cs.Age,
		Gender:       cs.Gender,
	})

	if result.Success {
		locStr := ""
		if loc.Latitude != "" && loc.Longitude != "" {
			locStr = loc.Latitude + "," + loc.Longitude
		}
		if err := h.db.UpdateCaseLastSeen(c.Request.Context(), cs.ID, locStr, loc.Address, loc.Timestamp); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, dto.NotifyResponse{
		Success:   result.Success,
		Message:   result.Message,
		MessageID: result.MessageID,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
	})
}

// SMSStatus queries the gateway for the delivery status of a sent message.
func (h *NotifyHandler) SMSStatus(c *gin.Context) {
	messageID := c.Param("id")
	if messageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message id required"})
		return
	}

	status, details := h.dispatcher.CheckStatus(c.Request.Context(), messageID)
	c.JSON(http.StatusOK, dto.SMSStatusResponse{
		MessageID: messageID,
		Status:    status,
		Details:   details,
	})
}
