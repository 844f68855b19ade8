package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/scribe/internal/errors"
)

const (
	providerBrave = "brave"
	braveEndpoint = "https://api.search.brave.com/res/v1/web/search"
	braveMaxHits  = 5
)

// Brave runs web searches against the Brave Search API for research
// enrichment. An API key is sent via X-Subscription-Token.
type Brave struct {
	APIKey   string
	Endpoint string
	client   *http.Client
}

var _ WebSearcher = (*Brave)(nil)

// NewBrave constructs a web searcher with a 10 second timeout.
func NewBrave(apiKey string) *Brave {
	return &Brave{APIKey: apiKey, Endpoint: braveEndpoint, client: &http.Client{Timeout: 10 * time.Second}}
}

// NewBraveWithClient constructs a web searcher using the supplied client.
func NewBraveWithClient(apiKey string, client *http.Client) *Brave {
	return &Brave{APIKey: apiKey, Endpoint: braveEndpoint, client: client}
}

// SearchWeb returns at most five results for query.
func (b *Brave) SearchWeb(ctx context.Context, query string) ([]WebResult, error) {
	if strings.TrimSpace(b.APIKey) == "" {
		return nil, errors.NewProviderError("api key missing", errors.ErrProviderUnavailable).WithProvider(providerBrave)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError("web search failed", err).WithProvider(providerBrave).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError(fmt.Sprintf("web search http %d", resp.StatusCode), nil).
			WithProvider(providerBrave).WithStatusCode(resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderError("web search response undecodable", err).WithProvider(providerBrave)
	}

	results := make([]WebResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, WebResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
		if len(results) >= braveMaxHits {
			break
		}
	}
	return results, nil
}
