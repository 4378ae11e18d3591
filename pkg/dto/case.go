package dto

import "github.com/google/uuid"

type CreateCaseRequest struct {
	Name             string `json:"name" binding:"required"`
	Age              int    `json:"age"`
	Gender           string `json:"gender"`
	LastSeenLocation string `json:"last_seen_location"`
	LastSeenAddress  string `json:"last_seen_address"`
	GuardianName     string `json:"guardian_name"`
	GuardianPhone    string `json:"guardian_phone" binding:"required"`
}

type CaseResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Age              int       `json:"age"`
	Gender           string    `json:"gender"`
	Status           string    `json:"status"`
	LastSeenLocation string    `json:"last_seen_location,omitempty"`
	LastSeenAddress  string    `json:"last_seen_address,omitempty"`
	LastSeenAt       string    `json:"last_seen_at,omitempty"`
	GuardianName     string    `json:"guardian_name"`
	GuardianPhone    string    `json:"guardian_phone"`
	PhotoCount       int       `json:"photo_count"`
	CreatedAt        string    `json:"created_at"`
}

type CasePhotoResponse struct {
	ID        uuid.UUID `json:"id"`
	CaseID    uuid.UUID `json:"case_id"`
	ObjectKey string    `json:"object_key"`
	CreatedAt string    `json:"created_at"`
}
