package scan

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/match"
	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/vision"
)

type fakeStore struct {
	candidates []match.Candidate
	cases      map[uuid.UUID]*models.Case
}

func (f *fakeStore) ListOpenCaseEmbeddings(ctx context.Context) ([]match.Candidate, error) {
	return f.candidates, nil
}

func (f *fakeStore) GetCase(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	return f.cases[id], nil
}

type fakeNotifier struct {
	result notify.Result
	calls  int
	phone  string
}

func (f *fakeNotifier) EnrichLocation(ctx context.Context, loc models.Location) models.Location {
	return loc
}

func (f *fakeNotifier) Notify(ctx context.Context, guardianPhone, personName string, loc models.Location, person notify.PersonContext) notify.Result {
	f.calls++
	f.phone = guardianPhone
	return f.result
}

type fakePublisher struct {
	events []models.MatchEvent
}

func (f *fakePublisher) PublishMatch(ctx context.Context, ev models.MatchEvent) error {
	f.events = append(f.events, ev)
	return nil
}

func embedAt(d float32) []float32 {
	e := make([]float32, 128)
	e[0] = d
	return e
}

func extractorReturning(embeddings ...[]float32) ExtractFunc {
	return func([]byte) ([][]float32, error) {
		return embeddings, nil
	}
}

func matchCfg() config.MatchConfig {
	return config.MatchConfig{MatchThreshold: 0.4, LowConfidenceThreshold: 0.8}
}

func TestScanInvalidImage(t *testing.T) {
	extract := func([]byte) ([][]float32, error) {
		return nil, fmt.Errorf("%w: not a jpeg", vision.ErrBadImage)
	}
	p := NewPipeline(extract, &fakeStore{}, &fakeNotifier{}, nil, matchCfg())

	_, err := p.Scan(context.Background(), []byte("junk"), models.Location{})
	require.ErrorIs(t, err, ErrInvalidImage)
}

func TestScanNoFaceIsNotNoMatch(t *testing.T) {
	p := NewPipeline(extractorReturning(), &fakeStore{}, &fakeNotifier{}, nil, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoFace, res.Outcome)
	assert.False(t, res.Matched)
}

func TestScanNoMatch(t *testing.T) {
	store := &fakeStore{candidates: []match.Candidate{
		{CaseID: uuid.New(), PhotoID: uuid.New(), Embedding: embedAt(0.9)},
	}}
	notifier := &fakeNotifier{}
	p := NewPipeline(extractorReturning(embedAt(0)), store, notifier, nil, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, res.Outcome)
	assert.False(t, res.Matched)
	assert.Nil(t, res.Notification)
	assert.Zero(t, notifier.calls)
}

func TestScanMatchedNotifiesGuardian(t *testing.T) {
	caseID := uuid.New()
	store := &fakeStore{
		candidates: []match.Candidate{
			{CaseID: caseID, PhotoID: uuid.New(), Embedding: embedAt(0.1)},
		},
		cases: map[uuid.UUID]*models.Case{
			caseID: {ID: caseID, Name: "Cali", GuardianName: "Axmed", GuardianPhone: "0619837755"},
		},
	}
	notifier := &fakeNotifier{result: notify.Result{Success: true, MessageID: "MSG_1_619837755"}}
	publisher := &fakePublisher{}
	p := NewPipeline(extractorReturning(embedAt(0)), store, notifier, publisher, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{Address: "Hodan"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.True(t, res.Matched)
	require.NotNil(t, res.Case)
	assert.Equal(t, "Cali", res.Case.Name)
	assert.InDelta(t, 0.9, res.Accuracy, 1e-6)
	require.NotNil(t, res.Notification)
	assert.True(t, res.Notification.Sent)
	assert.Equal(t, "MSG_1_619837755", res.Notification.MessageID)
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "0619837755", notifier.phone)

	require.Len(t, publisher.events, 1)
	assert.True(t, publisher.events[0].Matched)
	require.NotNil(t, publisher.events[0].CaseID)
	assert.Equal(t, caseID, *publisher.events[0].CaseID)
}

func TestScanDispatchFailureKeepsMatch(t *testing.T) {
	caseID := uuid.New()
	store := &fakeStore{
		candidates: []match.Candidate{
			{CaseID: caseID, PhotoID: uuid.New(), Embedding: embedAt(0.1)},
		},
		cases: map[uuid.UUID]*models.Case{
			caseID: {ID: caseID, Name: "Cali", GuardianPhone: "0619837755"},
		},
	}
	notifier := &fakeNotifier{result: notify.Result{Success: false, Message: "gateway returned status 500"}}
	p := NewPipeline(extractorReturning(embedAt(0)), store, notifier, nil, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{})
	require.NoError(t, err)

	assert.True(t, res.Matched)
	require.NotNil(t, res.Notification)
	assert.False(t, res.Notification.Sent)
	assert.NotEmpty(t, res.Notification.Error)
}

func TestScanLowConfidenceWarning(t *testing.T) {
	caseID := uuid.New()
	store := &fakeStore{
		candidates: []match.Candidate{
			{CaseID: caseID, PhotoID: uuid.New(), Embedding: embedAt(0.35)},
		},
		cases: map[uuid.UUID]*models.Case{
			caseID: {ID: caseID, GuardianPhone: "0619837755"},
		},
	}
	notifier := &fakeNotifier{result: notify.Result{Success: true}}
	p := NewPipeline(extractorReturning(embedAt(0)), store, notifier, nil, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{})
	require.NoError(t, err)
	assert.True(t, res.Matched)
	assert.NotEmpty(t, res.Warning)
}

func TestScanUsesFirstFaceOnly(t *testing.T) {
	caseID := uuid.New()
	store := &fakeStore{
		candidates: []match.Candidate{
			{CaseID: caseID, PhotoID: uuid.New(), Embedding: embedAt(0.9)},
		},
		cases: map[uuid.UUID]*models.Case{caseID: {ID: caseID}},
	}
	// Second face would match, but only the first participates.
	p := NewPipeline(extractorReturning(embedAt(0), embedAt(0.9)), store, &fakeNotifier{}, nil, matchCfg())

	res, err := p.Scan(context.Background(), []byte("img"), models.Location{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatch, res.Outcome)
}
