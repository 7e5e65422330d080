package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextscene/backend/internal/models"
)

// Doer is satisfied by *http.Client and allows tests to stub transport behaviour.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries an OMDb-style catalog API. It is a stateless request/response
// mapper; callers own retries and caching.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    Doer
}

// NewClient constructs a catalog client for the provided endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// searchResponse mirrors the upstream search payload. The provider capitalizes
// field names and reports errors in-band via Response/Error.
type searchResponse struct {
	Search       []searchEntry `json:"Search"`
	TotalResults string        `json:"totalResults"`
	Response     string        `json:"Response"`
	Error        string        `json:"Error"`
}

type searchEntry struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

type detailResponse struct {
	Title      string         `json:"Title"`
	Year       string         `json:"Year"`
	Rated      string         `json:"Rated"`
	Released   string         `json:"Released"`
	Runtime    string         `json:"Runtime"`
	Genre      string         `json:"Genre"`
	Director   string         `json:"Director"`
	Writer     string         `json:"Writer"`
	Actors     string         `json:"Actors"`
	Plot       string         `json:"Plot"`
	Language   string         `json:"Language"`
	Country    string         `json:"Country"`
	Awards     string         `json:"Awards"`
	Poster     string         `json:"Poster"`
	Ratings    []detailRating `json:"Ratings"`
	Metascore  string         `json:"Metascore"`
	ImdbRating string         `json:"imdbRating"`
	ImdbVotes  string         `json:"imdbVotes"`
	ImdbID     string         `json:"imdbID"`
	Type       string         `json:"Type"`
	BoxOffice  string         `json:"BoxOffice"`
	Response   string         `json:"Response"`
	Error      string         `json:"Error"`
}

type detailRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Search queries the catalog for titles matching the query. An empty kind
// searches across both movies and series.
func (c *Client) Search(ctx context.Context, query string, kind models.ContentKind) ([]models.CatalogItem, error) {
	if c == nil || c.HTTP == nil {
		return nil, ErrProviderUnavailable
	}

	params := url.Values{}
	params.Set("s", query)
	if kind == models.KindMovie || kind == models.KindSeries {
		params.Set("type", string(kind))
	}
	params.Set("apikey", c.APIKey)

	var payload searchResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return nil, err
	}

	if !strings.EqualFold(payload.Response, "True") {
		if strings.Contains(strings.ToLower(payload.Error), "not found") {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("catalog search %q: %s", query, payload.Error)
	}

	items := make([]models.CatalogItem, 0, len(payload.Search))
	for _, entry := range payload.Search {
		items = append(items, models.CatalogItem{
			ID:     entry.ImdbID,
			Title:  normalize(entry.Title),
			Year:   normalize(entry.Year),
			Kind:   normalize(entry.Type),
			Poster: normalize(entry.Poster),
		})
	}

	return items, nil
}

// Detail fetches the full record for a single catalog id.
func (c *Client) Detail(ctx context.Context, id string) (models.CatalogDetail, error) {
	if c == nil || c.HTTP == nil {
		return models.CatalogDetail{}, ErrProviderUnavailable
	}

	params := url.Values{}
	params.Set("i", id)
	params.Set("plot", "full")
	params.Set("apikey", c.APIKey)

	var payload detailResponse
	if err := c.get(ctx, params, &payload); err != nil {
		return models.CatalogDetail{}, err
	}

	if !strings.EqualFold(payload.Response, "True") {
		if strings.Contains(strings.ToLower(payload.Error), "not found") {
			return models.CatalogDetail{}, ErrNotFound
		}
		return models.CatalogDetail{}, fmt.Errorf("catalog detail %q: %s", id, payload.Error)
	}

	ratings := make([]models.CatalogRating, 0, len(payload.Ratings))
	for _, r := range payload.Ratings {
		ratings = append(ratings, models.CatalogRating{Source: r.Source, Value: r.Value})
	}

	return models.CatalogDetail{
		ID:         payload.ImdbID,
		Title:      normalize(payload.Title),
		Year:       normalize(payload.Year),
		Rated:      normalize(payload.Rated),
		Released:   normalize(payload.Released),
		Runtime:    normalize(payload.Runtime),
		Genre:      normalize(payload.Genre),
		Director:   normalize(payload.Director),
		Writer:     normalize(payload.Writer),
		Actors:     normalize(payload.Actors),
		Plot:       normalize(payload.Plot),
		Language:   normalize(payload.Language),
		Country:    normalize(payload.Country),
		Awards:     normalize(payload.Awards),
		Poster:     normalize(payload.Poster),
		Ratings:    ratings,
		Metascore:  normalize(payload.Metascore),
		ImdbRating: normalize(payload.ImdbRating),
		ImdbVotes:  normalize(payload.ImdbVotes),
		Kind:       strings.ToLower(normalize(payload.Type)),
		BoxOffice:  normalize(payload.BoxOffice),
	}, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog request: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse catalog response: %w", err)
	}

	return nil
}

// normalize maps the upstream "N/A" sentinel to an empty string.
func normalize(value string) string {
	if value == "N/A" {
		return ""
	}
	return value
}
