// Package offline implements the cache gateway that sits in front of the
// pantry client's static origin. It pre-caches the app shell on install,
// drops stale buckets on activate, and then serves every cacheable GET from
// the cache while refreshing it from the network in the background.
package offline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
)

// DefaultBypass lists URL fragments of dynamic backends whose responses must
// never be cached.
var DefaultBypass = []string{"script.google.com", "n8n.cloud", "webhook"}

// DefaultAssets is the app shell fetched on install.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/manifest.json",
	"https://fonts.googleapis.com/css2?family=DM+Sans:opsz,wght@9..40,400;9..40,500;9..40,600;9..40,700&family=Outfit:wght@300;400;500;600;700&display=swap",
}

// forwardedHeaders are copied from the client onto background fetches.
var forwardedHeaders = []string{"Accept", "Accept-Language", "User-Agent"}

// hopHeaders are not replayed from a cached response.
var hopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Connection", "Transfer-Encoding",
	"Upgrade", "Trailer", "Te", "Content-Length",
}

type Config struct {
	// Origin is the static origin relative request paths resolve against.
	Origin *url.URL
	// Version names the only bucket that survives activation.
	Version string
	// Assets are fetched on install. Relative entries resolve against Origin.
	Assets []string
	// Bypass holds URL fragments; a request whose target contains any of them
	// is proxied untouched.
	Bypass []string
}

type Gateway struct {
	cfg     Config
	storage CacheStorage
	client  *http.Client
	proxy   *httputil.ReverseProxy
	logger  *slog.Logger

	active  atomic.Bool
	refresh sync.WaitGroup
}

type fetchResult struct {
	resp *CachedResponse
	err  error
}

func New(cfg Config, storage CacheStorage, client *http.Client, logger *slog.Logger) (*Gateway, error) {
	if cfg.Origin == nil || !cfg.Origin.IsAbs() {
		return nil, fmt.Errorf("gateway origin must be an absolute URL")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("gateway cache version is required")
	}
	if client == nil {
		client = &http.Client{}
	}

	g := &Gateway{
		cfg:     cfg,
		storage: storage,
		client:  client,
		logger:  logger,
	}
	g.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			target := *g.target(pr.In)
			pr.Out.URL = &target
			pr.Out.Host = target.Host
		},
		Transport: client.Transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			g.logger.Warn("pass-through request failed", "url", r.URL.String(), "error", err)
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return g, nil
}

// Start installs and immediately activates, taking over from any previous
// cache version without waiting.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.Install(ctx); err != nil {
		return err
	}
	return g.Activate(ctx)
}

// Install fetches every asset and stores them in the version bucket. Nothing
// is stored unless every fetch succeeds with a 2xx status.
func (g *Gateway) Install(ctx context.Context) error {
	fetched := make([]*CachedResponse, 0, len(g.cfg.Assets))
	for _, asset := range g.cfg.Assets {
		target, err := g.resolve(asset)
		if err != nil {
			return fmt.Errorf("invalid asset %q: %w", asset, err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
		if err != nil {
			return fmt.Errorf("failed to create request for %s: %w", asset, err)
		}
		resp, err := g.fetch(req)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", asset, err)
		}
		if !isOK(resp.Status) {
			return fmt.Errorf("failed to fetch %s: status %d", asset, resp.Status)
		}
		fetched = append(fetched, resp)
	}

	for _, resp := range fetched {
		if err := g.storage.Put(ctx, g.cfg.Version, resp); err != nil {
			return fmt.Errorf("failed to cache %s: %w", resp.URL, err)
		}
	}
	g.logger.Info("offline cache installed", "version", g.cfg.Version, "assets", len(fetched))
	return nil
}

// Activate deletes every bucket except the current version and starts
// intercepting requests.
func (g *Gateway) Activate(ctx context.Context) error {
	keys, err := g.storage.Keys(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key == g.cfg.Version {
			continue
		}
		if err := g.storage.Delete(ctx, key); err != nil {
			return err
		}
		g.logger.Info("deleted stale cache bucket", "bucket", key)
	}
	g.active.Store(true)
	g.logger.Info("offline cache active", "version", g.cfg.Version)
	return nil
}

// Wait blocks until every background refresh has finished.
func (g *Gateway) Wait() {
	g.refresh.Wait()
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := g.target(r)
	if !g.active.Load() || r.Method != http.MethodGet || g.bypassed(target.String()) {
		g.proxy.ServeHTTP(w, r)
		return
	}

	key := target.String()
	fetched := g.refreshInBackground(r, key)

	cached, err := g.storage.Match(r.Context(), g.cfg.Version, key)
	if err != nil {
		g.logger.Warn("cache lookup failed", "url", key, "error", err)
	}
	if cached != nil {
		writeCached(w, cached, g.logger)
		return
	}

	res := <-fetched
	if res.err != nil {
		g.logger.Warn("offline and not cached", "url", key, "error", res.err)
		http.Error(w, "offline and not cached", http.StatusBadGateway)
		return
	}
	writeCached(w, res.resp, g.logger)
}

// refreshInBackground fetches key from the network and stores 2xx responses.
// The fetch outlives the client request; its result is delivered on the
// returned channel, which is buffered so nobody has to read it.
func (g *Gateway) refreshInBackground(r *http.Request, key string) <-chan fetchResult {
	out := make(chan fetchResult, 1)
	ctx := context.WithoutCancel(r.Context())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key, nil)
	if err != nil {
		out <- fetchResult{err: err}
		return out
	}
	for _, h := range forwardedHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	g.refresh.Add(1)
	go func() {
		defer g.refresh.Done()
		resp, err := g.fetch(req)
		out <- fetchResult{resp: resp, err: err}
		if err != nil || !isOK(resp.Status) {
			return
		}
		if err := g.storage.Put(ctx, g.cfg.Version, resp); err != nil {
			g.logger.Error("failed to update cache", "url", key, "error", err)
			return
		}
		g.logger.Debug("cache updated", "url", key)
	}()
	return out
}

func (g *Gateway) fetch(req *http.Request) (*CachedResponse, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error("failed to close response body", "url", req.URL.String(), "error", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return &CachedResponse{
		URL:    req.URL.String(),
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   body,
	}, nil
}

// target is the upstream URL of r. Proxy-style requests carry an absolute
// URL and are used as is; everything else resolves against the origin.
func (g *Gateway) target(r *http.Request) *url.URL {
	if r.URL.IsAbs() {
		return r.URL
	}
	return g.cfg.Origin.ResolveReference(&url.URL{
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	})
}

func (g *Gateway) resolve(asset string) (*url.URL, error) {
	u, err := url.Parse(asset)
	if err != nil {
		return nil, err
	}
	return g.cfg.Origin.ResolveReference(u), nil
}

func (g *Gateway) bypassed(rawURL string) bool {
	for _, pattern := range g.cfg.Bypass {
		if pattern != "" && strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return false
}

func writeCached(w http.ResponseWriter, resp *CachedResponse, logger *slog.Logger) {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = append([]string(nil), vs...)
	}
	for _, k := range hopHeaders {
		h.Del(k)
	}
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		logger.Debug("failed to write response", "url", resp.URL, "error", err)
	}
}

func isOK(status int) bool {
	return status >= 200 && status < 300
}
