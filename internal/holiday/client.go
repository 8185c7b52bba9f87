package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultAPIBaseURL is the Nager.Date public holidays API.
const DefaultAPIBaseURL = "https://date.nager.at/api/v3"

// Client fetches public holidays from the Nager.Date API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a public-holidays API client. baseURL is overridable
// for tests; pass "" for the default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// Fetch downloads the public holidays for a year and country (ISO 3166
// alpha-2, e.g. "US") into a Calendar.
func (c *Client) Fetch(ctx context.Context, year int, country string) (Calendar, error) {
	u := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.baseURL, year, country)

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("holiday api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("holiday api status %d", resp.StatusCode)
	}

	var results []struct {
		Date      string `json:"date"`
		LocalName string `json:"localName"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("holiday api decode: %w", err)
	}

	cal := Calendar{}
	for _, r := range results {
		name := r.Name
		if name == "" {
			name = r.LocalName
		}
		cal[r.Date] = name
	}
	return cal, nil
}
