package handlers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/mpf/internal/models"
)

func TestCaseResponseTimestampsAreUTC(t *testing.T) {
	eat := time.FixedZone("EAT", 3*3600)
	lastSeen := time.Date(2026, 3, 14, 18, 30, 0, 0, eat)

	tests := []struct {
		name           string
		cs             models.Case
		wantCreatedAt  string
		wantLastSeenAt string
	}{
		{
			name: "local zone normalized to UTC",
			cs: models.Case{
				ID:         uuid.New(),
				Name:       "Test Person",
				Status:     models.CaseStatusMissing,
				LastSeenAt: &lastSeen,
				CreatedAt:  time.Date(2026, 3, 15, 9, 0, 0, 0, eat),
			},
			wantCreatedAt:  "2026-03-15T06:00:00Z",
			wantLastSeenAt: "2026-03-14T15:30:00Z",
		},
		{
			name: "nil last seen omitted",
			cs: models.Case{
				ID:        uuid.New(),
				Name:      "Test Person",
				Status:    models.CaseStatusMissing,
				CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			},
			wantCreatedAt:  "2026-01-02T03:04:05Z",
			wantLastSeenAt: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := caseResponse(&tt.cs, 2)

			assert.Equal(t, tt.wantCreatedAt, resp.CreatedAt)
			assert.Equal(t, tt.wantLastSeenAt, resp.LastSeenAt)
			assert.Equal(t, 2, resp.PhotoCount)
			assert.Equal(t, string(tt.cs.Status), resp.Status)
		})
	}
}
