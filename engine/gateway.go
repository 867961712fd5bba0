package engine

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sentinelops/lewsboard/model"
	"github.com/sentinelops/lewsboard/store"
)

// maxFeedBytes bounds the feed body read. The full payload variant tops out
// well under 1MB in the field; anything larger is a broken feed.
const maxFeedBytes = 8 << 20

// Gateway performs one data acquisition attempt per cycle, applying the
// fallback chain: blackout short-circuit, live fetch, cache fallback, hard
// failure. It never panics or throws past its boundary; every failure path
// yields a typed result so the scheduler can log and continue.
type Gateway struct {
	feedURL string
	client  *http.Client
	store   *store.Store
}

// NewGateway creates a gateway fetching feedURL through the given transport
// (normally the cacheproxy router) and persisting into st.
func NewGateway(feedURL string, transport http.RoundTripper, st *store.Store) *Gateway {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Gateway{
		feedURL: feedURL,
		client: &http.Client{
			Transport: transport,
			Timeout:   15 * time.Second,
		},
		store: st,
	}
}

// Acquire runs one acquisition. On success the payload is persisted
// wholesale as the new cache entry. On any live failure it falls back to the
// cache; only ErrNoCache escapes.
func (g *Gateway) Acquire(ctx context.Context) (*model.Payload, model.DataPath, error) {
	if g.store.Blackout() {
		if cached, ok := g.store.Payload(); ok {
			return cached, model.PathBlackoutCache, nil
		}
		return nil, model.PathBlackoutNoData, ErrNoCache
	}

	payload, err := g.fetchLive(ctx)
	if err == nil {
		if perr := g.store.SetPayload(payload); perr != nil {
			log.Printf("lewsboard: persist payload: %v", perr)
		}
		return payload, model.PathLive, nil
	}
	log.Printf("lewsboard: live fetch failed, trying cache: %v", err)

	if cached, ok := g.store.Payload(); ok {
		return cached, model.PathCache, nil
	}
	return nil, model.PathNone, ErrNoCache
}

// fetchLive performs the single network read with transport-level caching
// disabled, so staleness is controlled solely by this engine.
func (g *Gateway) fetchLive(ctx context.Context) (*model.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.feedURL, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	payload, err := model.DecodePayload(body)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	return payload, nil
}
