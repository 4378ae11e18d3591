// Package match implements the face matching decision procedure: one probe
// embedding against the stored embeddings of all open cases.
package match

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Candidate is one stored (case, photo) embedding to compare against a probe.
// Candidates must arrive grouped by case, cases in creation order; the
// first-match policy below depends on that order being stable.
type Candidate struct {
	CaseID    uuid.UUID
	PhotoID   uuid.UUID
	Embedding []float32
}

// CaseCandidate is the scored comparison of a probe against one photo.
// Ephemeral; it exists only for the duration of one scan's decision.
type CaseCandidate struct {
	CaseID   uuid.UUID `json:"case_id"`
	PhotoID  uuid.UUID `json:"photo_id"`
	Distance float64   `json:"distance"`
	Accuracy float64   `json:"accuracy"`
	IsMatch  bool      `json:"is_match"`
	Warning  string    `json:"warning,omitempty"`
}

// Outcome is the result of matching one probe against all candidates.
// Matched false with Best nil is a normal result, not a failure.
type Outcome struct {
	Matched bool
	// Best is the representative candidate of the matched case: the photo
	// with the smallest distance within that case.
	Best *CaseCandidate
}

// Distance computes the Euclidean distance between two embeddings.
// A dimensionality mismatch is a hard error, never a silent zero-match.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// Accuracy converts a distance to a bounded confidence score in [0, 1].
// It is a monotonic proxy for confidence, not a calibrated probability:
// 1.0 means identical embeddings, 0 means distance >= 1.
func Accuracy(distance float64) float64 {
	return math.Max(0, 1-distance)
}

// Match compares the probe against every candidate and selects the first
// case (in candidate order) whose best photo is within matchThreshold.
//
// Within one case only the smallest-distance photo counts, whether or not
// it matches. Across cases the policy is first-match, not global-best: once
// an earlier case matches, a closer match in a later case is never surfaced.
// Candidates with a different dimensionality than the probe are skipped and
// logged; they never abort the scan.
func Match(probe []float32, candidates []Candidate, matchThreshold, lowConfidenceThreshold float64) Outcome {
	reps := make(map[uuid.UUID]*CaseCandidate)
	caseOrder := make([]uuid.UUID, 0, len(candidates))

	for _, c := range candidates {
		dist, err := Distance(probe, c.Embedding)
		if err != nil {
			slog.Warn("skipping candidate", "case_id", c.CaseID, "photo_id", c.PhotoID, "error", err)
			continue
		}

		scored := &CaseCandidate{
			CaseID:   c.CaseID,
			PhotoID:  c.PhotoID,
			Distance: dist,
			Accuracy: Accuracy(dist),
			IsMatch:  dist <= matchThreshold,
		}
		if scored.Accuracy < lowConfidenceThreshold {
			scored.Warning = fmt.Sprintf("match confidence below %.0f%%, verify manually", lowConfidenceThreshold*100)
		}

		rep, seen := reps[c.CaseID]
		if !seen {
			reps[c.CaseID] = scored
			caseOrder = append(caseOrder, c.CaseID)
		} else if scored.Distance < rep.Distance {
			reps[c.CaseID] = scored
		}
	}

	for _, caseID := range caseOrder {
		if rep := reps[caseID]; rep.IsMatch {
			return Outcome{Matched: true, Best: rep}
		}
	}

	return Outcome{}
}
