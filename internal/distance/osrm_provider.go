package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
)

// ProviderOSRM names the local routing-engine provider: an OSRM-shaped
// `/table` service.
const ProviderOSRM = "osrm"

const osrmTransportTimeout = 10 * time.Second

// OSRMProvider calls a local OSRM-compatible `/table` endpoint, which
// returns distance and duration matrices directly; a null cell means OSRM
// found no route between that pair and becomes +Inf.
type OSRMProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewOSRMProvider builds an OSRMProvider. An empty baseURL means the
// provider is not configured; the distance Service skips it.
func NewOSRMProvider(baseURL string) *OSRMProvider {
	return &OSRMProvider{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: osrmTransportTimeout},
	}
}

func (p *OSRMProvider) Name() string { return ProviderOSRM }

// SupportsTraffic is false: OSRM's /table endpoint returns free-flow
// durations from the static road graph, with no time-of-day component.
func (p *OSRMProvider) SupportsTraffic() bool { return false }

// Configured reports whether a base URL was supplied.
func (p *OSRMProvider) Configured() bool { return p.baseURL != "" }

type osrmTableResponse struct {
	Code      string        `json:"code"`
	Distances [][]*float64  `json:"distances"`
	Durations [][]*float64  `json:"durations"`
}

func (p *OSRMProvider) CalculateMatrix(ctx context.Context, locations []domain.Location, _ time.Time) (domain.DistanceMatrix, error) {
	if err := validateLocations(locations); err != nil {
		return domain.DistanceMatrix{}, err
	}
	if !p.Configured() {
		return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "OSRM base URL not configured")
	}
	if len(locations) == 1 {
		return singleLocationMatrix(p.Name()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, osrmTransportTimeout)
	defer cancel()

	coords := make([]string, len(locations))
	for i, loc := range locations {
		coords[i] = fmt.Sprintf("%f,%f", loc.Longitude, loc.Latitude)
	}
	requestURL := fmt.Sprintf("%s/table/v1/driving/%s?annotations=distance,duration", p.baseURL, strings.Join(coords, ";"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "building OSRM table request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "OSRM service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.DistanceMatrix{}, apperror.Newf(apperror.CodeProviderUnavailable, "OSRM table endpoint returned status %d", resp.StatusCode)
	}

	var parsed osrmTableResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.DistanceMatrix{}, apperror.Wrap(apperror.CodeProviderUnavailable, err, "decoding OSRM table response")
	}
	if parsed.Code != "Ok" {
		return domain.DistanceMatrix{}, apperror.Newf(apperror.CodeProviderUnavailable, "OSRM table endpoint returned code %s", parsed.Code)
	}

	n := len(locations)
	if len(parsed.Distances) != n || len(parsed.Durations) != n {
		return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "OSRM table returned malformed matrix shape")
	}

	distances := make([][]float64, n)
	durations := make([][]float64, n)
	for i := 0; i < n; i++ {
		if len(parsed.Distances[i]) != n || len(parsed.Durations[i]) != n {
			return domain.DistanceMatrix{}, apperror.New(apperror.CodeProviderUnavailable, "OSRM table returned malformed row")
		}
		distances[i] = make([]float64, n)
		durations[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			distances[i][j] = cellOrInfinite(parsed.Distances[i][j])
			durations[i][j] = cellOrInfinite(parsed.Durations[i][j])
		}
	}

	return domain.NewDistanceMatrix("", distances, durations, p.Name(), time.Time{})
}

func cellOrInfinite(v *float64) float64 {
	if v == nil {
		return domain.InfiniteDuration
	}
	return *v
}
