// Package cacheproxy intercepts every outbound request the dashboard makes
// and answers from durable storage when appropriate. It plugs in as an
// http.RoundTripper, so callers above it (the fetch gateway included) never
// know whether a response came off the wire or out of the cache.
package cacheproxy

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Strategy selects how a matched request is answered.
type Strategy int

const (
	// CacheFirst serves a cached response when present, otherwise fetches,
	// stores, and serves. Safe indefinitely for immutable-by-URL targets.
	CacheFirst Strategy = iota
	// NetworkFirst always tries the wire and falls back to the cache.
	NetworkFirst
	// NetworkFirstStableKey is NetworkFirst with cache-busting query
	// parameters stripped from the storage key, so repeated polls converge
	// on a single cache slot.
	NetworkFirstStableKey
)

func (s Strategy) String() string {
	switch s {
	case CacheFirst:
		return "cache-first"
	case NetworkFirstStableKey:
		return "network-first-stable"
	default:
		return "network-first"
	}
}

// Rule binds a request matcher to a strategy and a cache generation.
// Rules are evaluated in order; the first match wins.
type Rule struct {
	Name     string
	Match    func(*url.URL) bool
	Strategy Strategy
	Cache    string
}

// Router is the request-interception layer. Zero or one rule applies per
// request; unmatched requests use plain NetworkFirst into the shell cache.
type Router struct {
	rules []Rule
	cache *ResponseCache
	next  http.RoundTripper

	shellCache string
	tileCache  string

	// OnServe, if set, observes (rule name, "network"|"cache") per request.
	OnServe func(rule, source string)
}

// Options configures the router's rule table.
type Options struct {
	FeedURL        string
	TileHost       string
	ShellCacheName string
	TileCacheName  string
}

// New builds a router with the three standing rules: tile requests
// cache-first, the live feed network-first with a stable key, and remaining
// same-origin shell assets cache-first against the versioned shell cache.
func New(rc *ResponseCache, opts Options, next http.RoundTripper) (*Router, error) {
	if next == nil {
		next = http.DefaultTransport
	}
	feed, err := url.Parse(opts.FeedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url: %w", err)
	}
	origin := feed.Host

	rules := []Rule{
		{
			Name:     "tiles",
			Match:    func(u *url.URL) bool { return strings.HasSuffix(u.Hostname(), opts.TileHost) },
			Strategy: CacheFirst,
			Cache:    opts.TileCacheName,
		},
		{
			Name: "feed",
			Match: func(u *url.URL) bool {
				return u.Host == feed.Host && u.Path == feed.Path
			},
			Strategy: NetworkFirstStableKey,
			Cache:    opts.ShellCacheName,
		},
		{
			Name:     "shell",
			Match:    func(u *url.URL) bool { return u.Host == origin },
			Strategy: CacheFirst,
			Cache:    opts.ShellCacheName,
		},
	}

	return &Router{
		rules:      rules,
		cache:      rc,
		next:       next,
		shellCache: opts.ShellCacheName,
		tileCache:  opts.TileCacheName,
	}, nil
}

// stableKey strips query and fragment so volatile cache-busters share one slot.
func stableKey(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	return clean.String()
}

// RoundTrip implements http.RoundTripper.
func (r *Router) RoundTrip(req *http.Request) (*http.Response, error) {
	rule := Rule{Name: "default", Strategy: NetworkFirst, Cache: r.shellCache}
	for _, candidate := range r.rules {
		if candidate.Match(req.URL) {
			rule = candidate
			break
		}
	}

	key := req.URL.String()
	if rule.Strategy == NetworkFirstStableKey {
		key = stableKey(req.URL)
	}

	switch rule.Strategy {
	case CacheFirst:
		return r.cacheFirst(req, rule, key)
	default:
		return r.networkFirst(req, rule, key)
	}
}

func (r *Router) cacheFirst(req *http.Request, rule Rule, key string) (*http.Response, error) {
	if cached, ok := r.cache.Get(rule.Cache, key); ok {
		r.serve(rule.Name, "cache")
		return cached, nil
	}
	resp, err := r.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 400 {
		if err := r.cache.Put(rule.Cache, key, resp); err != nil {
			log.Printf("lewsboard: cache put %s: %v", key, err)
		}
	}
	r.serve(rule.Name, "network")
	return resp, nil
}

func (r *Router) networkFirst(req *http.Request, rule Rule, key string) (*http.Response, error) {
	resp, err := r.next.RoundTrip(req)
	if err == nil && resp.StatusCode < 400 {
		if err := r.cache.Put(rule.Cache, key, resp); err != nil {
			log.Printf("lewsboard: cache put %s: %v", key, err)
		}
		r.serve(rule.Name, "network")
		return resp, nil
	}
	if err == nil {
		resp.Body.Close()
	}
	if cached, ok := r.cache.Get(rule.Cache, key); ok {
		r.serve(rule.Name, "cache")
		return cached, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("upstream status %d and no cached response for %s", resp.StatusCode, key)
}

func (r *Router) serve(rule, source string) {
	if r.OnServe != nil {
		r.OnServe(rule, source)
	}
}

// Install pre-populates the versioned shell cache with the given asset URLs
// (the feed URL should be among them so first offline boot has something).
// Each fetch is retried briefly; a failed asset is logged and skipped.
func (r *Router) Install(ctx context.Context, assets []string) {
	client := &http.Client{Transport: r.next, Timeout: 15 * time.Second}
	for _, asset := range assets {
		u, err := url.Parse(asset)
		if err != nil {
			log.Printf("lewsboard: install: bad asset url %q: %v", asset, err)
			continue
		}
		op := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return fmt.Errorf("status %d", resp.StatusCode)
			}
			return r.cache.Put(r.shellCache, stableKey(u), resp)
		}
		policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
		if err := backoff.Retry(op, policy); err != nil {
			log.Printf("lewsboard: install: precache %s failed: %v", asset, err)
		}
	}
}

// Activate deletes every cache generation that is neither the current shell
// cache nor the tile cache. This is the sole eviction mechanism; bumping the
// shell cache version is the only way to force a full refresh.
func (r *Router) Activate() error {
	names, err := r.cache.Names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == r.shellCache || name == r.tileCache {
			continue
		}
		if err := r.cache.DeleteCache(name); err != nil {
			return fmt.Errorf("evict cache %s: %w", name, err)
		}
		log.Printf("lewsboard: evicted stale cache generation %s", name)
	}
	return nil
}

// TileCount reports how many tiles are cached, for the ops console.
func (r *Router) TileCount() int {
	n, err := r.cache.Count(r.tileCache)
	if err != nil {
		return 0
	}
	return n
}
