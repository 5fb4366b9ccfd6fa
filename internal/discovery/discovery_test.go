package discovery

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hummans/PeopleSyncClient/internal/dav"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// davResponse is one canned answer of the fake server. A zero status means
// 207 with the body as multistatus XML.
type davResponse struct {
	status int
	body   string
}

// fakeServer answers PROPFIND requests from a canned path->response table
// and records the paths queried, in order.
type fakeServer struct {
	srv *httptest.Server

	mu        sync.Mutex
	responses map[string]davResponse
	requests  []string
}

func newFakeServer(t *testing.T, responses map[string]davResponse) *fakeServer {
	t.Helper()
	fs := &fakeServer{responses: responses}
	fs.srv = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	fs.requests = append(fs.requests, r.URL.Path)
	resp, ok := fs.responses[r.URL.Path]
	fs.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if resp.status != 0 {
		w.WriteHeader(resp.status)
		return
	}
	w.Header().Set("Content-Type", `text/xml; charset="utf-8"`)
	w.WriteHeader(http.StatusMultiStatus)
	w.Write([]byte(resp.body))
}

// set swaps the canned response for a path, for tests that change server
// state between passes.
func (fs *fakeServer) set(path string, resp davResponse) {
	fs.mu.Lock()
	fs.responses[path] = resp
	fs.mu.Unlock()
}

func (fs *fakeServer) requested() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.requests...)
}

// url returns the absolute URL of a server path.
func (fs *fakeServer) url(path string) string {
	return fs.srv.URL + path
}

func (fs *fakeServer) client(t *testing.T) *dav.Client {
	t.Helper()
	c, err := dav.NewClient(fs.srv.Client(), fs.srv.URL, testLogger())
	require.NoError(t, err)
	return c
}
