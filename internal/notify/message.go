package notify

import (
	"fmt"
	"strings"

	"github.com/your-org/mpf/internal/models"
)

// unknownLocation is the Somali placeholder used when no address is known.
const unknownLocation = "Goob aan la aqoon"

// PersonContext carries the case attributes the guardian message draws on.
type PersonContext struct {
	GuardianName string
	Age          int
	Gender       string
}

// ComposeMessage builds the localized guardian alert: salutation, person
// name, a best-effort location description and a maps link when coordinates
// are present.
func ComposeMessage(person PersonContext, personName string, loc models.Location) string {
	guardian := person.GuardianName
	if guardian == "" {
		guardian = "qoyskooda"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mudane/Marwo %s, waxaan gacanta ku haynaa %s. ", guardian, personName)

	b.WriteString("\nGoobta uu ku sugan yahay: ")
	b.WriteString(locationDescription(loc))

	if loc.Latitude != "" && loc.Longitude != "" {
		fmt.Fprintf(&b, "\n\nSi aad u hesho tilmaamaha goobta: https://www.google.com/maps?q=%s,%s",
			loc.Latitude, loc.Longitude)
	}

	return b.String()
}

// locationDescription prefers structured address parts, then the raw
// address string, then the unknown-location placeholder.
func locationDescription(loc models.Location) string {
	if d := loc.AddressDetails; d != nil {
		var parts []string
		if p := firstOf(d.Road, d.Building); p != "" {
			parts = append(parts, p)
		}
		if p := firstOf(d.Suburb, d.Neighbourhood); p != "" {
			parts = append(parts, p)
		}
		if p := firstOf(d.City, d.District); p != "" {
			parts = append(parts, p)
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	if loc.Address != "" {
		return loc.Address
	}
	return unknownLocation
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
