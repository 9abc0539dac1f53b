package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/iexgate/internal/app"
	"github.com/bobmcallan/iexgate/internal/common"
	"github.com/bobmcallan/iexgate/internal/server"
)

// fakeIEX serves canned IEX responses and records every request path.
type fakeIEX struct {
	mu       sync.Mutex
	requests []string
	fail     bool
}

func (f *fakeIEX) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path)
	fail := f.fail
	f.mu.Unlock()

	if r.URL.Query().Get("token") != "api-test-token" {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if fail {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	path := r.URL.Path
	switch {
	case path == "/ref-data/symbols":
		fmt.Fprint(w, `[{"symbol":"A","name":"Agilent Technologies Inc.","type":"cs","isEnabled":true},{"symbol":"AAPL","name":"Apple Inc","type":"cs","isEnabled":true}]`)
	case path == "/tops/last":
		var out []string
		for _, s := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			out = append(out, fmt.Sprintf(`{"symbol":%q,"price":100.5,"size":10,"time":1528324853291}`, s))
		}
		fmt.Fprintf(w, "[%s]", strings.Join(out, ","))
	case strings.Contains(path, "/chart/date/"):
		// /stock/{symbol}/chart/date/{yyyymmdd}
		parts := strings.Split(path, "/")
		d := parts[len(parts)-1]
		fmt.Fprintf(w, `[{"date":"%s-%s-%s","open":10.5,"close":11.25,"high":12,"low":10,"volume":1000}]`, d[:4], d[4:6], d[6:])
	case strings.HasPrefix(path, "/stock/"):
		fmt.Fprint(w, `[{"symbol":"AAPL","date":"2022-10-03","open":141.065,"close":142.41,"high":142.9,"low":140.27,"volume":85250939},{"symbol":"AAPL","date":"2022-10-04","open":145.03,"close":145.43,"high":146.22,"low":144.26,"volume":79471000}]`)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeIEX) count(substr string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.requests {
		if strings.Contains(p, substr) {
			n++
		}
	}
	return n
}

func (f *fakeIEX) setFailing(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// Env is a full in-process stack: fake IEX, real client, in-memory badger cache and HTTP server.
type Env struct {
	t      *testing.T
	IEX    *fakeIEX
	App    *app.App
	server *httptest.Server
}

// NewEnv starts the stack; everything is torn down by t.Cleanup.
func NewEnv(t *testing.T) *Env {
	t.Helper()
	t.Setenv("IEX_TOKEN", "")
	t.Setenv("IEXGATE_IEX_TOKEN", "")

	iex := &fakeIEX{}
	upstream := httptest.NewServer(iex)
	t.Cleanup(upstream.Close)

	cfg := common.NewDefaultConfig()
	cfg.Clients.IEX.BaseURL = upstream.URL
	cfg.Clients.IEX.Token = "api-test-token"
	cfg.Cache.Backend = "badger"
	cfg.Cache.Badger.InMemory = true
	cfg.History.Timezone = "UTC"

	a, err := app.New(context.Background(), cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	srv := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(srv.Close)

	return &Env{t: t, IEX: iex, App: a, server: srv}
}

// HTTPGet issues a GET against the gateway.
func (e *Env) HTTPGet(path string) (*http.Response, error) {
	return http.Get(e.server.URL + path)
}

// GetJSON issues a GET and decodes the body into v, returning the status code.
func (e *Env) GetJSON(path string, v interface{}) int {
	e.t.Helper()
	resp, err := e.HTTPGet(path)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}
