package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/your-org/mpf/internal/models"
)

const geocodeUserAgent = "MissingPersonFinder/1.0"

// EnrichLocation fills in the address and structured address parts via
// reverse geocoding when they are missing and coordinates are present.
// Best-effort: on any failure the location is returned unchanged.
func (d *Dispatcher) EnrichLocation(ctx context.Context, loc models.Location) models.Location {
	if loc.Latitude == "" || loc.Longitude == "" {
		return loc
	}
	if loc.Address != "" && loc.AddressDetails != nil {
		return loc
	}

	u, err := url.Parse(d.cfg.GeocodeURL)
	if err != nil {
		return loc
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("lat", loc.Latitude)
	q.Set("lon", loc.Longitude)
	q.Set("accept-language", "so")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return loc
	}
	req.Header.Set("User-Agent", geocodeUserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		slog.Debug("reverse geocode failed", "error", err)
		return loc
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return loc
	}

	var payload struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			Road          string `json:"road"`
			Building      string `json:"building"`
			Suburb        string `json:"suburb"`
			Neighbourhood string `json:"neighbourhood"`
			City          string `json:"city"`
			District      string `json:"city_district"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return loc
	}

	if loc.Address == "" {
		loc.Address = payload.DisplayName
	}
	if loc.AddressDetails == nil {
		loc.AddressDetails = &models.AddressDetails{
			Road:          payload.Address.Road,
			Building:      payload.Address.Building,
			Suburb:        payload.Address.Suburb,
			Neighbourhood: payload.Address.Neighbourhood,
			City:          payload.Address.City,
			District:      payload.Address.District,
		}
	}
	return loc
}
