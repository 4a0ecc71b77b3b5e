package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
)

// ProviderExternal names the external routing API (Google Maps Distance
// Matrix-shaped) provider, first in the fallback chain.
const ProviderExternal = "external_api"

const externalTransportTimeout = 10 * time.Second

// ExternalProvider calls a Google-Maps-Distance-Matrix-shaped HTTP API:
// POST origins x destinations, mapping per-cell status codes to
// meters/seconds. An unreachable cell becomes +Inf rather than failing
// the whole request. A departure instant enables the traffic-aware
// variant, preferring duration_in_traffic when the API returns it.
type ExternalProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewExternalProvider builds an ExternalProvider. An empty apiKey means
// the provider is not configured; the distance Service skips it.
func NewExternalProvider(apiKey, baseURL string) *ExternalProvider {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"
	}
	return &ExternalProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: externalTransportTimeout,
		},
	}
}

func (p *ExternalProvider) Name() string { return ProviderExternal }

// SupportsTraffic reports true: the API accepts a departure_time and
// returns duration_in_traffic when available.
func (p *ExternalProvider) SupportsTraffic() bool { return true }

// Configured reports whether an API key was supplied.
func (p *ExternalProvider) Configured() bool { return p.apiKey != "" }

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			DurationInTraffic struct {
				Value float64 `json:"value"`
			} `json:"duration_in_traffic"`
		} `json:"elements"`
	} `json:"rows"`
}

func (p *ExternalProvider) CalculateMatrix(ctx context.Context, locations []domain.Location, departure time.Time) (domain.DistanceMatrix, error) {
	if err := validateLocations(locations); err != nil {
		return domain.DistanceMatrix{}, err
	}
	if !p.Configured() {
		return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "external routing API key not configured")
	}
	if len(locations) == 1 {
		return singleLocationMatrix(p.Name()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, externalTransportTimeout)
	defer cancel()

	coords := formatCoordinates(locations)
	q := url.Values{}
	q.Set("origins", coords)
	q.Set("destinations", coords)
	q.Set("key", p.apiKey)
	if !departure.IsZero() {
		q.Set("departure_time", strconv.FormatInt(departure.Unix(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "building external routing API request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "external routing API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.DistanceMatrix{}, apperror.Newf(apperror.CodeProviderUnavailable, "external routing API returned status %d", resp.StatusCode)
	}

	var parsed distanceMatrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "decoding external routing API response")
	}
	if parsed.Status != "OK" {
		return domain.DistanceMatrix{}, apperror.Newf(apperror.CodeProviderUnavailable, "external routing API status %s", parsed.Status)
	}

	n := len(locations)
	if len(parsed.Rows) != n {
		return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "external routing API returned malformed matrix shape")
	}

	distances := make([][]float64, n)
	durations := make([][]float64, n)
	for i, row := range parsed.Rows {
		if len(row.Elements) != n {
			return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "external routing API returned malformed row")
		}
		distances[i] = make([]float64, n)
		durations[i] = make([]float64, n)
		for j, el := range row.Elements {
			if i == j {
				continue
			}
			if el.Status != "OK" {
				distances[i][j] = domain.InfiniteDuration
				durations[i][j] = domain.InfiniteDuration
				continue
			}
			distances[i][j] = el.Distance.Value
			if el.DurationInTraffic.Value > 0 {
				durations[i][j] = el.DurationInTraffic.Value
			} else {
				durations[i][j] = el.Duration.Value
			}
		}
	}

	return domain.NewDistanceMatrix("", distances, durations, p.Name(), time.Time{})
}

func formatCoordinates(locations []domain.Location) string {
	parts := make([]string, len(locations))
	for i, loc := range locations {
		parts[i] = fmt.Sprintf("%f,%f", loc.Latitude, loc.Longitude)
	}
	return strings.Join(parts, "|")
}
