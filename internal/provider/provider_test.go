package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Iron-Ham/scribe/internal/errors"
	"github.com/Iron-Ham/scribe/internal/router"
)

func TestModels_Resolve(t *testing.T) {
	m := Models{
		router.TierPremium:  "big",
		router.TierStandard: "mid",
		router.TierEconomy:  "",
	}
	tests := []struct {
		tier router.Tier
		want string
	}{
		{router.TierPremium, "big"},
		{router.TierStandard, "mid"},
		{router.TierEconomy, "mid"},
		{router.TierPremiumPro, "mid"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			if got := m.Resolve(tt.tier); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.tier, got, tt.want)
			}
		})
	}
}

func TestNewOpenAI_Validation(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Models: Models{router.TierStandard: "m"}})
	if !errors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("missing key error = %v, want ErrProviderUnavailable", err)
	}

	_, err = NewOpenAI(OpenAIConfig{APIKey: "k"})
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("missing model error = %v, want ErrInvalidInput", err)
	}

	o, err := NewOpenAI(OpenAIConfig{APIKey: "k", Models: Models{router.TierStandard: "m"}})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	if o.imageModel == "" {
		t.Error("image model should default")
	}
}

func TestUnsplash_SearchImages(t *testing.T) {
	var gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[
			{"description":"","alt_description":"city skyline","urls":{"regular":"https://img/1"},"user":{"name":"Ada"}},
			{"description":"no url","urls":{"regular":""}},
			{"description":"office","urls":{"regular":"https://img/2"},"user":{"name":""}}
		]}`))
	}))
	defer srv.Close()

	u := NewUnsplashWithClient("key", srv.Client())
	u.Endpoint = srv.URL

	photos, err := u.SearchImages(context.Background(), []string{"city", "skyline"}, 5)
	if err != nil {
		t.Fatalf("SearchImages() error = %v", err)
	}
	if gotQuery != "city skyline" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAuth != "Client-ID key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(photos) != 2 {
		t.Fatalf("len(photos) = %d, want 2", len(photos))
	}
	if photos[0].Caption != "city skyline" || photos[0].Credit != "Photo by Ada on Unsplash" {
		t.Errorf("photos[0] = %+v", photos[0])
	}
	if photos[1].Credit != "" {
		t.Errorf("photos[1].Credit = %q, want empty", photos[1].Credit)
	}
}

func TestUnsplash_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	u := NewUnsplashWithClient("key", srv.Client())
	u.Endpoint = srv.URL

	_, err := u.SearchImages(context.Background(), []string{"x"}, 1)
	if !errors.Is(err, errors.ErrRateLimited) || !errors.IsRetryable(err) {
		t.Errorf("error = %v, want retryable rate limit", err)
	}

	photos, err := u.SearchImages(context.Background(), nil, 1)
	if err != nil || photos != nil {
		t.Errorf("empty keywords = %v, %v; want nil, nil", photos, err)
	}

	_, err = NewUnsplash("").SearchImages(context.Background(), []string{"x"}, 1)
	if !errors.Is(err, errors.ErrProviderUnavailable) {
		t.Errorf("missing key error = %v", err)
	}
}

func TestBrave_SearchWeb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"a","url":"u1","description":"d1"},
			{"title":"b","url":"u2","description":"d2"},
			{"title":"c","url":"u3","description":"d3"},
			{"title":"d","url":"u4","description":"d4"},
			{"title":"e","url":"u5","description":"d5"},
			{"title":"f","url":"u6","description":"d6"}
		]}}`))
	}))
	defer srv.Close()

	b := NewBraveWithClient("tok", srv.Client())
	b.Endpoint = srv.URL

	results, err := b.SearchWeb(context.Background(), "smart farm market size")
	if err != nil {
		t.Fatalf("SearchWeb() error = %v", err)
	}
	if len(results) != braveMaxHits {
		t.Errorf("len(results) = %d, want %d", len(results), braveMaxHits)
	}
	if results[0].Snippet != "d1" {
		t.Errorf("results[0] = %+v", results[0])
	}

	bad := NewBraveWithClient("wrong", srv.Client())
	bad.Endpoint = srv.URL
	_, err = bad.SearchWeb(context.Background(), "q")
	var perr *errors.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401 provider error", err)
	}
}

func TestOpenAI_BlankCompletionIsEmptyResponse(t *testing.T) {
	tests := []struct {
		name    string
		choices string
	}{
		{"whitespace content", `[{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  \n "}}]`},
		{"no choices", `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"id": "c1", "object": "chat.completion", "created": 1, "model": "m", "choices": ` + tt.choices +
					`, "usage": {"prompt_tokens": 5, "completion_tokens": 0, "total_tokens": 5}}`))
			}))
			defer srv.Close()

			o, err := NewOpenAI(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/", Models: Models{router.TierStandard: "m"}})
			if err != nil {
				t.Fatal(err)
			}
			_, err = o.GenerateText(context.Background(), Request{Prompt: "write"})
			var perr *errors.ProviderError
			if !errors.As(err, &perr) || !errors.Is(err, errors.ErrEmptyResponse) {
				t.Errorf("error = %v, want a provider error wrapping ErrEmptyResponse", err)
			}
		})
	}
}
