package dto

import "github.com/google/uuid"

type NotifyRequest struct {
	CaseID    uuid.UUID `json:"case_id" binding:"required"`
	Latitude  string    `json:"latitude"`
	Longitude string    `json:"longitude"`
	Address   string    `json:"address"`
}

type NotifyResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

type SMSStatusResponse struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"` // delivered, failed, sent, unknown
	Details   string `json:"details,omitempty"`
}
