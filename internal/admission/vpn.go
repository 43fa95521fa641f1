package admission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// VpnResult reports what a reputation provider knows about an address.
type VpnResult struct {
	IsVpn   bool `json:"vpn"`
	IsProxy bool `json:"proxy"`
}

// VpnLookup is the capability interface for external VPN/proxy reputation.
// Deployments without a provider use NoopVpnLookup; the absent signal then
// contributes zero instead of branching inside the engine.
type VpnLookup interface {
	Lookup(ctx context.Context, address string) (VpnResult, error)
}

// NoopVpnLookup reports every address as clean.
type NoopVpnLookup struct{}

// Lookup implements VpnLookup.
func (NoopVpnLookup) Lookup(context.Context, string) (VpnResult, error) {
	return VpnResult{}, nil
}

// HTTPVpnLookup queries a JSON reputation endpoint with a bounded timeout.
type HTTPVpnLookup struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPVpnLookup creates a lookup against endpoint, e.g.
// "https://reputation.example.com/v1/ip". The address is appended as a path
// segment and the key sent as a query parameter.
func NewHTTPVpnLookup(endpoint, apiKey string, timeout time.Duration) *HTTPVpnLookup {
	return &HTTPVpnLookup{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Lookup implements VpnLookup.
func (l *HTTPVpnLookup) Lookup(ctx context.Context, address string) (VpnResult, error) {
	u := l.endpoint + "/" + url.PathEscape(address)
	if l.apiKey != "" {
		u += "?key=" + url.QueryEscape(l.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return VpnResult{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return VpnResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VpnResult{}, fmt.Errorf("reputation lookup status %d", resp.StatusCode)
	}

	var result VpnResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return VpnResult{}, fmt.Errorf("decode reputation response: %w", err)
	}
	return result, nil
}
