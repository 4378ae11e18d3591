package dto

import "github.com/google/uuid"

// ScanForm carries the optional form fields accompanying a scan image.
type ScanForm struct {
	Latitude  string `form:"latitude"`
	Longitude string `form:"longitude"`
	Address   string `form:"address"`
}

type NotificationStatus struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ScanResponse struct {
	ScanID       uuid.UUID           `json:"scan_id"`
	Outcome      string              `json:"outcome"` // no_face, no_match, matched
	Matched      bool                `json:"matched"`
	Case         *CaseResponse       `json:"case,omitempty"`
	PhotoID      string              `json:"photo_id,omitempty"`
	Accuracy     float64             `json:"accuracy,omitempty"`
	Warning      string              `json:"warning,omitempty"`
	Notification *NotificationStatus `json:"notification,omitempty"`
}

// ScanAcceptedResponse is returned when a scan is queued for async processing.
type ScanAcceptedResponse struct {
	ScanID uuid.UUID `json:"scan_id"`
	Status string    `json:"status"`
}

type ScanEventResponse struct {
	ScanID           uuid.UUID  `json:"scan_id"`
	Timestamp        string     `json:"timestamp"`
	Matched          bool       `json:"matched"`
	CaseID           *uuid.UUID `json:"case_id,omitempty"`
	Accuracy         float64    `json:"accuracy,omitempty"`
	Warning          string     `json:"warning,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	Address          string     `json:"address,omitempty"`
}
