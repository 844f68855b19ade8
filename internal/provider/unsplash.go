package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/scribe/internal/errors"
)

const (
	providerUnsplash = "unsplash"
	unsplashEndpoint = "https://api.unsplash.com/search/photos"
)

// Unsplash searches the Unsplash photo API.
type Unsplash struct {
	AccessKey string
	Endpoint  string
	client    *http.Client
}

var _ ImageSearcher = (*Unsplash)(nil)

// NewUnsplash constructs a photo searcher with a 10 second timeout.
func NewUnsplash(accessKey string) *Unsplash {
	return NewUnsplashWithClient(accessKey, &http.Client{Timeout: 10 * time.Second})
}

// NewUnsplashWithClient constructs a photo searcher using the supplied client.
func NewUnsplashWithClient(accessKey string, client *http.Client) *Unsplash {
	return &Unsplash{AccessKey: accessKey, Endpoint: unsplashEndpoint, client: client}
}

// SearchImages queries Unsplash with the keywords joined by spaces.
func (u *Unsplash) SearchImages(ctx context.Context, keywords []string, count int) ([]Photo, error) {
	if strings.TrimSpace(u.AccessKey) == "" {
		return nil, errors.NewProviderError("access key missing", errors.ErrProviderUnavailable).WithProvider(providerUnsplash)
	}
	query := strings.TrimSpace(strings.Join(keywords, " "))
	if query == "" {
		return nil, nil
	}
	if count <= 0 {
		count = 1
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", strconv.Itoa(count))
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Authorization", "Client-ID "+u.AccessKey)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, errors.NewProviderError("photo search failed", err).WithProvider(providerUnsplash).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewProviderError(fmt.Sprintf("photo search http %d", resp.StatusCode), nil).
			WithProvider(providerUnsplash).WithStatusCode(resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Description    string `json:"description"`
			AltDescription string `json:"alt_description"`
			URLs           struct {
				Regular string `json:"regular"`
			} `json:"urls"`
			User struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderError("photo search response undecodable", err).WithProvider(providerUnsplash)
	}

	photos := make([]Photo, 0, len(payload.Results))
	for _, r := range payload.Results {
		if r.URLs.Regular == "" {
			continue
		}
		caption := r.Description
		if caption == "" {
			caption = r.AltDescription
		}
		credit := ""
		if r.User.Name != "" {
			credit = "Photo by " + r.User.Name + " on Unsplash"
		}
		photos = append(photos, Photo{URL: r.URLs.Regular, Caption: caption, Credit: credit})
		if len(photos) >= count {
			break
		}
	}
	return photos, nil
}
