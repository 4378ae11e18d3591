package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/mpf/internal/models"
)

func TestComposeMessageStructuredAddress(t *testing.T) {
	loc := models.Location{
		Latitude:  "2.0469",
		Longitude: "45.3182",
		Address:   "raw address string",
		AddressDetails: &models.AddressDetails{
			Road:   "Maka Al-Mukarama",
			Suburb: "Hodan",
			City:   "Muqdisho",
		},
		Timestamp: time.Now(),
	}

	msg := ComposeMessage(PersonContext{GuardianName: "Axmed"}, "Cali", loc)

	assert.Contains(t, msg, "Mudane/Marwo Axmed")
	assert.Contains(t, msg, "waxaan gacanta ku haynaa Cali")
	assert.Contains(t, msg, "Maka Al-Mukarama, Hodan, Muqdisho")
	assert.NotContains(t, msg, "raw address string")
	assert.Contains(t, msg, "https://www.google.com/maps?q=2.0469,45.3182")
}

func TestComposeMessageFallsBackToRawAddress(t *testing.T) {
	loc := models.Location{Address: "Wadada Warshadaha, Muqdisho"}
	msg := ComposeMessage(PersonContext{GuardianName: "Faadumo"}, "Xaliimo", loc)
	assert.Contains(t, msg, "Wadada Warshadaha, Muqdisho")
	assert.NotContains(t, msg, "https://www.google.com/maps")
}

func TestComposeMessageUnknownLocation(t *testing.T) {
	msg := ComposeMessage(PersonContext{}, "Xasan", models.Location{})
	assert.Contains(t, msg, "qoyskooda") // guardian name fallback
	assert.Contains(t, msg, unknownLocation)
}

func TestComposeMessageEmptyDetailsFallsThrough(t *testing.T) {
	loc := models.Location{
		Address:        "backup address",
		AddressDetails: &models.AddressDetails{},
	}
	msg := ComposeMessage(PersonContext{GuardianName: "Layla"}, "Maxamed", loc)
	assert.Contains(t, msg, "backup address")
}
