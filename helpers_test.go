package cfddns_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/Travis-Britz/cfddns"
	"github.com/cloudflare/cloudflare-go"
)

type recordedUpdate struct {
	ZoneID   string
	RecordID string
	Payload  cfddns.UpdatePayload
	RawBody  map[string]any
}

// fakeCloudflare serves the three endpoints used by CloudflareClient.
type fakeCloudflare struct {
	mu sync.Mutex

	zones   []cfddns.Zone
	records []cfddns.DNSRecord
	// refuse answers updates of these record ids with success=false.
	refuse map[string]cloudflare.ResponseInfo

	zoneQueries   []string
	recordQueries []string
	updates       []recordedUpdate
	headers       []http.Header
}

func newFakeCloudflare(t *testing.T, f *fakeCloudflare) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, r.Header.Clone())

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/zones":
		f.zoneQueries = append(f.zoneQueries, r.URL.Query().Get("name"))
		writeEnvelope(w, http.StatusOK, true, nil, f.zones)

	case r.Method == http.MethodGet && len(segments) == 3 && segments[2] == "dns_records":
		f.recordQueries = append(f.recordQueries, segments[1]+"|"+r.URL.Query().Get("name"))
		writeEnvelope(w, http.StatusOK, true, nil, f.records)

	case r.Method == http.MethodPut && len(segments) == 4 && segments[2] == "dns_records":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b, _ := json.Marshal(raw)
		var payload cfddns.UpdatePayload
		_ = json.Unmarshal(b, &payload)

		id := path.Base(r.URL.Path)
		f.updates = append(f.updates, recordedUpdate{ZoneID: segments[1], RecordID: id, Payload: payload, RawBody: raw})
		if e, found := f.refuse[id]; found {
			writeEnvelope(w, http.StatusBadRequest, false, []cloudflare.ResponseInfo{e}, nil)
			return
		}
		// single-object endpoints put an object in result
		writeEnvelope(w, http.StatusOK, true, nil, cfddns.DNSRecord{
			ID:      id,
			Type:    payload.Type,
			Name:    payload.Name,
			Content: payload.Content,
		})

	default:
		http.NotFound(w, r)
	}
}

type fakeCalls struct {
	zoneQueries   []string
	recordQueries []string
	updates       []recordedUpdate
	headers       []http.Header
}

// calls returns what the fake has seen so far.
func (f *fakeCloudflare) calls() fakeCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeCalls{
		zoneQueries:   append([]string(nil), f.zoneQueries...),
		recordQueries: append([]string(nil), f.recordQueries...),
		updates:       append([]recordedUpdate(nil), f.updates...),
		headers:       append([]http.Header(nil), f.headers...),
	}
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, errs []cloudflare.ResponseInfo, result any) {
	if errs == nil {
		errs = []cloudflare.ResponseInfo{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  success,
		"errors":   errs,
		"messages": []any{},
		"result":   result,
	})
}

// traceServer answers every request with body.
func traceServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}
