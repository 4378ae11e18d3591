package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/models"
)

func testConfig(gatewayURL string) config.SMSConfig {
	return config.SMSConfig{
		GatewayURL:  gatewayURL,
		Username:    "Find",
		Password:    "secret",
		SendTimeout: 2 * time.Second,
		MaxRetries:  1,
	}
}

func TestSendSuccess(t *testing.T) {
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL))
	res := d.Send(context.Background(), "619837755", "test message")

	require.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.MessageID, "MSG_"))
	assert.Contains(t, res.MessageID, "619837755")
	assert.Equal(t, []string{"Find"}, gotQuery["user"])
	assert.Equal(t, []string{"619837755"}, gotQuery["rec"])
	assert.Equal(t, []string{"test message"}, gotQuery["cont"])
}

func TestSendGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	d := NewDispatcher(cfg)
	res := d.Send(context.Background(), "619837755", "test")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, res.MessageID)
}

func TestSendRetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL))
	res := d.Send(context.Background(), "619837755", "test")

	assert.True(t, res.Success)
	assert.Equal(t, 2, calls)
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	cfg := testConfig(srv.URL)
	cfg.MaxRetries = 0
	d := NewDispatcher(cfg)
	res := d.Send(context.Background(), "619837755", "test")

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestNotifyInvalidPhoneSkipsGateway(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL))
	res := d.Notify(context.Background(), "12345", "Cali", models.Location{}, PersonContext{})

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "invalid phone number")
	assert.Zero(t, calls)
}

func TestNotifySendsComposedMessage(t *testing.T) {
	var gotMessage, gotRecipient string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMessage = r.URL.Query().Get("cont")
		gotRecipient = r.URL.Query().Get("rec")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(testConfig(srv.URL))
	res := d.Notify(context.Background(), "+252619837755", "Cali",
		models.Location{Address: "Hodan, Muqdisho"},
		PersonContext{GuardianName: "Axmed", Age: 9, Gender: "male"})

	require.True(t, res.Success)
	assert.Equal(t, "619837755", gotRecipient)
	assert.Contains(t, gotMessage, "Axmed")
	assert.Contains(t, gotMessage, "Cali")
	assert.Contains(t, gotMessage, "Hodan, Muqdisho")
}

func TestCheckStatusMapping(t *testing.T) {
	tests := []struct {
		gateway  string
		expected string
	}{
		{"DELIVERED", StatusDelivered},
		{"FAILED", StatusFailed},
		{"PENDING", StatusSent},
		{"SENT", StatusSent},
		{"SOMETHING_ELSE", StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status":"` + tt.gateway + `","details":"d"}`))
			}))
			defer srv.Close()

			d := NewDispatcher(testConfig(srv.URL))
			status, details := d.CheckStatus(context.Background(), "MSG_1_619837755")
			assert.Equal(t, tt.expected, status)
			assert.Equal(t, "d", details)
		})
	}
}

func TestCheckStatusFailureYieldsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	d := NewDispatcher(testConfig(srv.URL))
	status, details := d.CheckStatus(context.Background(), "MSG_1_619837755")
	assert.Equal(t, StatusUnknown, status)
	assert.NotEmpty(t, details)
}

func TestEnrichLocationBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "so", r.URL.Query().Get("accept-language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"display_name":"Hodan, Muqdisho","address":{"road":"Maka Al-Mukarama","city":"Muqdisho"}}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.GeocodeURL = srv.URL
	d := NewDispatcher(cfg)

	loc := d.EnrichLocation(context.Background(), models.Location{Latitude: "2.04", Longitude: "45.31"})
	assert.Equal(t, "Hodan, Muqdisho", loc.Address)
	require.NotNil(t, loc.AddressDetails)
	assert.Equal(t, "Maka Al-Mukarama", loc.AddressDetails.Road)

	// Geocoder down: location passes through unchanged.
	cfg.GeocodeURL = "http://127.0.0.1:1"
	d = NewDispatcher(cfg)
	loc = d.EnrichLocation(context.Background(), models.Location{Latitude: "2.04", Longitude: "45.31"})
	assert.Empty(t, loc.Address)
}
