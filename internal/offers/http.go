package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPProvider queries a provider over HTTP.
type HTTPProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates a new HTTPProvider.
func NewHTTPProvider(name, baseURL string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the provider name.
func (p *HTTPProvider) Name() string {
	return p.name
}

// Search calls GET {baseURL}/search. Offers without a provider name are
// tagged with this provider's name.
func (p *HTTPProvider) Search(ctx context.Context, q Query) ([]Offer, error) {
	u, err := url.Parse(p.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	v := u.Query()
	v.Set("category", string(q.Category))
	setIf(v, "city", q.City)
	setIf(v, "origin", q.Origin)
	setIf(v, "destination", q.Destination)
	setIf(v, "checkin", q.Checkin)
	if q.Nights > 0 {
		v.Set("nights", strconv.Itoa(q.Nights))
	}
	v.Set("adults", strconv.Itoa(q.Adults))
	v.Set("children", strconv.Itoa(q.Children))
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%s: %w", p.name, ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s returned status %d: %s", p.name, resp.StatusCode, string(body))
	}

	var found []Offer
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, fmt.Errorf("%s: failed to parse response: %w", p.name, err)
	}

	for i := range found {
		if found[i].Provider == "" {
			found[i].Provider = p.name
		}
		if found[i].Category == "" {
			found[i].Category = q.Category
		}
	}

	return found, nil
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
