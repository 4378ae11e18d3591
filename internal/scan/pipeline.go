// Package scan orchestrates one face scan: decode → extract → match →
// notify, assembling a single structured result for the caller.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/match"
	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/observability"
	"github.com/your-org/mpf/internal/vision"
)

// Outcome of one scan. NoFace and NoMatch are distinct: callers must be
// able to tell "nothing to search with" apart from "searched, found nothing".
type Outcome string

const (
	OutcomeNoFace  Outcome = "no_face"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeMatched Outcome = "matched"
)

// ErrInvalidImage is the only error that aborts a scan outright.
var ErrInvalidImage = errors.New("invalid image")

// Notification is the dispatch outcome attached to a matched scan. A failed
// dispatch never turns a successful match into a pipeline failure.
type Notification struct {
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the structured response of one scan. Every branch is signalled
// by an explicit field; the caller never infers failure from absence alone.
type Result struct {
	Outcome      Outcome       `json:"outcome"`
	Matched      bool          `json:"matched"`
	Case         *models.Case  `json:"case,omitempty"`
	PhotoID      string        `json:"photo_id,omitempty"`
	Accuracy     float64       `json:"accuracy,omitempty"`
	Warning      string        `json:"warning,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}

// ExtractFunc is the embedding extractor boundary: image bytes in, zero or
// more face embeddings out, ordered by detection confidence.
type ExtractFunc func(imageData []byte) ([][]float32, error)

// EncodingStore is the read path the pipeline needs: a snapshot of open
// cases' embeddings plus case lookup for the match summary.
type EncodingStore interface {
	ListOpenCaseEmbeddings(ctx context.Context) ([]match.Candidate, error)
	GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error)
}

// Notifier dispatches guardian alerts.
type Notifier interface {
	EnrichLocation(ctx context.Context, loc models.Location) models.Location
	Notify(ctx context.Context, guardianPhone, personName string, loc models.Location, person notify.PersonContext) notify.Result
}

// EventPublisher receives the match event of every completed scan.
// Publishing is best-effort; failures are logged, never surfaced.
type EventPublisher interface {
	PublishMatch(ctx context.Context, ev models.MatchEvent) error
}

type Pipeline struct {
	extract   ExtractFunc
	store     EncodingStore
	notifier  Notifier
	publisher EventPublisher
	cfg       config.MatchConfig
}

func NewPipeline(extract ExtractFunc, store EncodingStore, notifier Notifier, publisher EventPublisher, cfg config.MatchConfig) *Pipeline {
	return &Pipeline{
		extract:   extract,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Scan runs the full pipeline for one captured image. The candidate
// snapshot is taken once at the start of matching; concurrent case
// registration cannot invalidate a scan in flight.
func (p *Pipeline) Scan(ctx context.Context, imageData []byte, loc models.Location) (*Result, error) {
	return p.ScanWithID(ctx, uuid.New(), imageData, loc)
}

// ScanWithID runs the pipeline under a caller-provided scan id so queued
// tasks keep their correlation id through the emitted match event.
func (p *Pipeline) ScanWithID(ctx context.Context, scanID uuid.UUID, imageData []byte, loc models.Location) (*Result, error) {
	start := time.Now()

	embeddings, err := p.extract(imageData)
	if err != nil {
		if errors.Is(err, vision.ErrBadImage) {
			observability.ScansProcessed.WithLabelValues("invalid_image").Inc()
			return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
		}
		return nil, fmt.Errorf("extract embeddings: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())

	if len(embeddings) == 0 {
		observability.ScansProcessed.WithLabelValues("no_face").Inc()
		return &Result{Outcome: OutcomeNoFace}, nil
	}
	observability.FacesDetected.Add(float64(len(embeddings)))

	// Only the first extracted face participates in matching; additional
	// faces in the capture are a documented limitation.
	probe := embeddings[0]

	candidates, err := p.store.ListOpenCaseEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate embeddings: %w", err)
	}
	observability.CandidatesCompared.Add(float64(len(candidates)))

	matchStart := time.Now()
	outcome := match.Match(probe, candidates, p.cfg.MatchThreshold, p.cfg.LowConfidenceThreshold)
	observability.InferenceDuration.WithLabelValues("match").Observe(time.Since(matchStart).Seconds())

	if !outcome.Matched {
		observability.ScansProcessed.WithLabelValues("no_match").Inc()
		p.publishEvent(ctx, scanID, loc, nil)
		return &Result{Outcome: OutcomeNoMatch}, nil
	}

	observability.ScansProcessed.WithLabelValues("matched").Inc()
	observability.MatchesFound.Inc()

	result := &Result{
		Outcome:  OutcomeMatched,
		Matched:  true,
		PhotoID:  outcome.Best.PhotoID.String(),
		Accuracy: outcome.Best.Accuracy,
		Warning:  outcome.Best.Warning,
	}

	matched, err := p.store.GetCase(ctx, outcome.Best.CaseID)
	if err != nil || matched == nil {
		// The case disappeared between snapshot and lookup. The match still
		// stands; there is just nobody left to notify.
		slog.Warn("matched case not found", "case_id", outcome.Best.CaseID, "error", err)
		p.publishEvent(ctx, scanID, loc, result)
		return result, nil
	}
	result.Case = matched

	loc = p.notifier.EnrichLocation(ctx, loc)
	dispatch := p.notifier.Notify(ctx, matched.GuardianPhone, matched.Name, loc, notify.PersonContext{
		GuardianName: matched.GuardianName,
		Age:          matched.Age,
		Gender:       matched.Gender,
	})

	result.Notification = &Notification{
		Sent:      dispatch.Success,
		MessageID: dispatch.MessageID,
	}
	if !dispatch.Success {
		result.Notification.Error = dispatch.Message
	}

	p.publishEvent(ctx, scanID, loc, result)
	return result, nil
}

func (p *Pipeline) publishEvent(ctx context.Context, scanID uuid.UUID, loc models.Location, result *Result) {
	if p.publisher == nil {
		return
	}

	ev := models.MatchEvent{
		ScanID:    scanID,
		Timestamp: time.Now(),
		Location:  loc,
	}
	if result != nil && result.Matched {
		ev.Matched = true
		ev.Accuracy = result.Accuracy
		ev.Warning = result.Warning
		if result.Case != nil {
			id := result.Case.ID
			ev.CaseID = &id
		}
		if photoID, err := uuid.Parse(result.PhotoID); err == nil {
			ev.PhotoID = &photoID
		}
		if result.Notification != nil {
			ev.NotificationSent = result.Notification.Sent
			ev.MessageID = result.Notification.MessageID
		}
	}

	if err := p.publisher.PublishMatch(ctx, ev); err != nil {
		slog.Error("publish match event", "error", err)
	}
}
