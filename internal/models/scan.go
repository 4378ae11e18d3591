package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is where a scan was captured. Latitude/longitude are strings as
// received from capture devices; empty means unknown.
type Location struct {
	Latitude       string          `json:"latitude"`
	Longitude      string          `json:"longitude"`
	Address        string          `json:"address"`
	AddressDetails *AddressDetails `json:"address_details,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// AddressDetails holds structured address parts from reverse geocoding.
type AddressDetails struct {
	Road          string `json:"road,omitempty"`
	Building      string `json:"building,omitempty"`
	Suburb        string `json:"suburb,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`
	City          string `json:"city,omitempty"`
	District      string `json:"district,omitempty"`
}

// ScanTask is the message published to NATS for worker processing.
// The captured image lives in MinIO under ImageRef.
type ScanTask struct {
	ScanID    uuid.UUID `json:"scan_id"`
	ImageRef  string    `json:"image_ref"`
	Location  Location  `json:"location"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchEvent is the output of a completed scan, published for persistence
// and live broadcast.
type MatchEvent struct {
	ScanID           uuid.UUID  `json:"scan_id"`
	Timestamp        time.Time  `json:"timestamp"`
	Matched          bool       `json:"matched"`
	CaseID           *uuid.UUID `json:"case_id,omitempty"`
	PhotoID          *uuid.UUID `json:"photo_id,omitempty"`
	Accuracy         float64    `json:"accuracy,omitempty"`
	Warning          string     `json:"warning,omitempty"`
	NotificationSent bool       `json:"notification_sent"`
	MessageID        string     `json:"message_id,omitempty"`
	Location         Location   `json:"location"`
}
