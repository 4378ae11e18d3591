package models

import (
	"time"

	"github.com/google/uuid"
)

type CaseStatus string

const (
	CaseStatusMissing CaseStatus = "missing"
	CaseStatusFound   CaseStatus = "found"
)

// Valid reports whether s is a known case status.
func (s CaseStatus) Valid() bool {
	return s == CaseStatusMissing || s == CaseStatusFound
}

// Case is one missing-person report. Status moves missing → found only via
// an explicit administrative action; a positive scan match never changes it.
type Case struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	Name             string     `json:"name" db:"name"`
	Age              int        `json:"age" db:"age"`
	Gender           string     `json:"gender" db:"gender"`
	Status           CaseStatus `json:"status" db:"status"`
	LastSeenLocation string     `json:"last_seen_location" db:"last_seen_location"`
	LastSeenAddress  string     `json:"last_seen_address" db:"last_seen_address"`
	LastSeenAt       *time.Time `json:"last_seen_at,omitempty" db:"last_seen_at"`
	GuardianName     string     `json:"guardian_name" db:"guardian_name"`
	GuardianPhone    string     `json:"guardian_phone" db:"guardian_phone"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// CasePhoto is one stored photo of a missing person. The embedding is
// extracted once at registration and never recomputed in place; replacing
// a photo creates a new record.
type CasePhoto struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CaseID    uuid.UUID `json:"case_id" db:"case_id"`
	ObjectKey string    `json:"object_key" db:"object_key"`
	Embedding []float32 `json:"-" db:"embedding"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
