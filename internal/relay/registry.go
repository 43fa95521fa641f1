package relay

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hollowaylabs/gatehouse/internal/logger"
	"github.com/hollowaylabs/gatehouse/internal/metrics"
)

const fetchTimeout = 5 * time.Second

// seedAddresses keeps the registry useful when the very first refresh fails.
// A handful of long-lived exit nodes; replaced wholesale on the first
// successful fetch.
var seedAddresses = []string{
	"185.220.101.1",
	"185.220.101.34",
	"185.220.102.8",
	"199.87.154.255",
	"204.13.164.118",
	"171.25.193.20",
	"162.247.74.74",
	"23.129.64.130",
}

type snapshot struct {
	addresses map[string]struct{}
	updatedAt time.Time
}

// Registry holds the current set of known anonymizing-relay addresses.
// Membership tests read an immutable snapshot; refreshes build a new set and
// swap it in atomically, so readers never block and never see a partial list.
type Registry struct {
	listURL    string
	client     *http.Client
	current    atomic.Pointer[snapshot]
	refreshing atomic.Bool
}

// New creates a Registry fetching from listURL. The set is empty until the
// first Refresh; IsKnownRelay reports false for every address until then.
func New(listURL string) *Registry {
	return &Registry{
		listURL: listURL,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// IsKnownRelay reports whether address is in the current relay snapshot.
// Non-blocking and never fails; an unpopulated registry reports false.
func (r *Registry) IsKnownRelay(address string) bool {
	snap := r.current.Load()
	if snap == nil {
		return false
	}
	_, ok := snap.addresses[address]
	return ok
}

// Size returns the number of addresses in the current snapshot.
func (r *Registry) Size() int {
	snap := r.current.Load()
	if snap == nil {
		return 0
	}
	return len(snap.addresses)
}

// LastUpdate returns when the current snapshot was installed, or the zero
// time if no refresh has ever succeeded.
func (r *Registry) LastUpdate() time.Time {
	snap := r.current.Load()
	if snap == nil {
		return time.Time{}
	}
	return snap.updatedAt
}

// Refresh fetches the relay list and swaps in a new snapshot. At most one
// refresh is in flight at a time; concurrent calls are skipped. On any fetch
// or parse failure the previous snapshot stays in place (fail-stale). If no
// snapshot has ever been installed, a failed refresh installs the seed list
// so membership tests are never running against an empty registry.
func (r *Registry) Refresh(ctx context.Context) error {
	if !r.refreshing.CompareAndSwap(false, true) {
		logger.Log().Debug("relay refresh already in flight, skipping")
		return nil
	}
	defer r.refreshing.Store(false)

	addresses, err := r.fetch(ctx)
	if err != nil {
		metrics.IncRelayRefreshFailure()
		if r.current.Load() == nil {
			r.applySeed()
		}
		logger.WithFields(map[string]interface{}{
			"url":      r.listURL,
			"snapshot": r.Size(),
		}).WithError(err).Warn("relay list refresh failed, keeping previous snapshot")
		return fmt.Errorf("refresh relay list: %w", err)
	}

	r.current.Store(&snapshot{addresses: addresses, updatedAt: time.Now()})
	metrics.IncRelayRefreshSuccess()
	logger.WithFields(map[string]interface{}{
		"url":   r.listURL,
		"count": len(addresses),
	}).Info("relay list refreshed")
	return nil
}

func (r *Registry) fetch(ctx context.Context) (map[string]struct{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, r.listURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	addresses := make(map[string]struct{})
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if ip := net.ParseIP(line); ip != nil {
			addresses[ip.String()] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, fmt.Errorf("list contained no valid addresses")
	}

	return addresses, nil
}

func (r *Registry) applySeed() {
	addresses := make(map[string]struct{}, len(seedAddresses))
	for _, addr := range seedAddresses {
		addresses[addr] = struct{}{}
	}
	r.current.Store(&snapshot{addresses: addresses, updatedAt: time.Now()})
	logger.WithFields(map[string]interface{}{"count": len(addresses)}).Warn("relay registry seeded with fallback list")
}
