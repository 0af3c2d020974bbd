package offline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVersion = "family-pantry-v1"

// fakeOrigin serves mutable bodies per path and records the methods it saw.
type fakeOrigin struct {
	mu      sync.Mutex
	bodies  map[string]string
	methods []string
}

func (o *fakeOrigin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.methods = append(o.methods, r.Method+" "+r.URL.Path)
	body, ok := o.bodies[r.URL.Path]
	o.mu.Unlock()

	switch {
	case r.URL.Path == "/fail":
		http.Error(w, "boom", http.StatusInternalServerError)
	case !ok:
		http.NotFound(w, r)
	default:
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, body)
	}
}

func (o *fakeOrigin) set(path, body string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bodies[path] = body
}

func (o *fakeOrigin) saw(entry string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range o.methods {
		if m == entry {
			return true
		}
	}
	return false
}

type harness struct {
	gw      *Gateway
	storage *DiskStorage
	origin  *fakeOrigin
	srv     *httptest.Server
}

func newHarness(t *testing.T, assets []string) *harness {
	t.Helper()
	origin := &fakeOrigin{bodies: map[string]string{
		"/":              "shell",
		"/index.html":    "index",
		"/manifest.json": "{}",
		"/app.js":        "v1",
		"/webhook/meals": "dynamic",
	}}
	srv := httptest.NewServer(origin)
	t.Cleanup(srv.Close)

	storage, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)

	originURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	gw, err := New(Config{
		Origin:  originURL,
		Version: testVersion,
		Assets:  assets,
		Bypass:  DefaultBypass,
	}, storage, srv.Client(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return &harness{gw: gw, storage: storage, origin: origin, srv: srv}
}

func (h *harness) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.gw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (h *harness) cached(t *testing.T, path string) *CachedResponse {
	t.Helper()
	resp, err := h.storage.Match(context.Background(), testVersion, h.srv.URL+path)
	require.NoError(t, err)
	return resp
}

func TestNew_Validation(t *testing.T) {
	storage, err := NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	origin, _ := url.Parse("http://app.local")

	_, err = New(Config{Version: testVersion}, storage, nil, slog.Default())
	assert.Error(t, err)

	_, err = New(Config{Origin: &url.URL{Path: "/relative"}, Version: testVersion}, storage, nil, slog.Default())
	assert.Error(t, err)

	_, err = New(Config{Origin: origin}, storage, nil, slog.Default())
	assert.Error(t, err)
}

func TestInstall_StoresEveryAsset(t *testing.T) {
	fonts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css")
		_, _ = io.WriteString(w, "@font-face{}")
	}))
	defer fonts.Close()

	fontURL := fonts.URL + "/css2?family=DM+Sans:opsz,wght@9..40,400&display=swap"
	h := newHarness(t, []string{"/", "/index.html", "/manifest.json", fontURL})

	require.NoError(t, h.gw.Install(context.Background()))

	for _, path := range []string{"/", "/index.html", "/manifest.json"} {
		assert.NotNil(t, h.cached(t, path), path)
	}
	font, err := h.storage.Match(context.Background(), testVersion, fontURL)
	require.NoError(t, err)
	require.NotNil(t, font)
	assert.Equal(t, "@font-face{}", string(font.Body))
}

func TestInstall_AllOrNothing(t *testing.T) {
	h := newHarness(t, []string{"/", "/index.html", "/missing.png"})

	err := h.gw.Install(context.Background())
	require.Error(t, err)

	keys, err := h.storage.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestActivate_KeepsOnlyCurrentVersion(t *testing.T) {
	h := newHarness(t, []string{"/"})
	ctx := context.Background()

	for _, old := range []string{"family-pantry-v0", "scratch"} {
		require.NoError(t, h.storage.Put(ctx, old, &CachedResponse{URL: h.srv.URL + "/", Status: 200}))
	}

	require.NoError(t, h.gw.Start(ctx))

	keys, err := h.storage.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testVersion}, keys)
}

func TestServeHTTP_PassThroughBeforeActivation(t *testing.T) {
	h := newHarness(t, []string{"/"})

	rec := h.get(t, "/app.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v1", rec.Body.String())

	h.gw.Wait()
	assert.Nil(t, h.cached(t, "/app.js"))
}

func TestServeHTTP_NonGETNeverCached(t *testing.T) {
	h := newHarness(t, []string{"/"})
	require.NoError(t, h.gw.Start(context.Background()))

	rec := httptest.NewRecorder()
	h.gw.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/app.js", strings.NewReader("x")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.origin.saw("POST /app.js"))

	h.gw.Wait()
	assert.Nil(t, h.cached(t, "/app.js"))
}

func TestServeHTTP_BypassNeverCached(t *testing.T) {
	h := newHarness(t, []string{"/"})
	require.NoError(t, h.gw.Start(context.Background()))

	for range 2 {
		rec := h.get(t, "/webhook/meals")
		assert.Equal(t, "dynamic", rec.Body.String())
	}

	h.gw.Wait()
	assert.Nil(t, h.cached(t, "/webhook/meals"))
}

func TestServeHTTP_PrefersCachedCopy(t *testing.T) {
	h := newHarness(t, []string{"/"})
	require.NoError(t, h.gw.Start(context.Background()))

	// Miss: served from the network and stored.
	rec := h.get(t, "/app.js")
	assert.Equal(t, "v1", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	h.gw.Wait()
	require.NotNil(t, h.cached(t, "/app.js"))

	// Hit: the stale copy wins while the refresh stores the new one.
	h.origin.set("/app.js", "v2")
	rec = h.get(t, "/app.js")
	assert.Equal(t, "v1", rec.Body.String())
	h.gw.Wait()
	assert.Equal(t, "v2", string(h.cached(t, "/app.js").Body))

	rec = h.get(t, "/app.js")
	assert.Equal(t, "v2", rec.Body.String())
}

func TestServeHTTP_ErrorResponsesNotCached(t *testing.T) {
	h := newHarness(t, []string{"/"})
	require.NoError(t, h.gw.Start(context.Background()))

	rec := h.get(t, "/fail")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	h.gw.Wait()
	assert.Nil(t, h.cached(t, "/fail"))
}

func TestServeHTTP_Offline(t *testing.T) {
	h := newHarness(t, []string{"/", "/index.html"})
	require.NoError(t, h.gw.Start(context.Background()))

	h.srv.Close()

	rec := h.get(t, "/index.html")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "index", rec.Body.String())

	rec = h.get(t, "/app.js")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	h.gw.Wait()
}
