package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avelichko/searchserver/internal/search"
	"github.com/avelichko/searchserver/internal/search/requests"
)

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server, err := search.New([]string{"a", "in", "on"})
	if err != nil {
		t.Fatalf("search.New: %v", err)
	}
	tracker := requests.NewQueue(server, 100)
	handler := New(server, tracker, nil, nil, nil, 5)
	mux := http.NewServeMux()
	handler.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func addDocument(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/v1/documents", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /documents: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func seedCorpus(t *testing.T, ts *httptest.Server) {
	t.Helper()
	docs := []string{
		`{"id": 0, "text": "white cat and fancy collar", "status": 0, "ratings": [8, -3]}`,
		`{"id": 1, "text": "fluffy cat fluffy tail", "status": 0, "ratings": [7, 2, 7]}`,
		`{"id": 2, "text": "groomed dog expressive eyes", "status": 0, "ratings": [5, -12, 2, 1]}`,
		`{"id": 3, "text": "groomed starling eugene", "status": 2, "ratings": [9]}`,
	}
	for _, doc := range docs {
		if resp := addDocument(t, ts, doc); resp.StatusCode != http.StatusCreated {
			t.Fatalf("seeding document: status %d", resp.StatusCode)
		}
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestAddDocumentEndpoint(t *testing.T) {
	ts := newTestAPI(t)

	resp := addDocument(t, ts, `{"id": 5, "text": "some text", "status": 0, "ratings": [1]}`)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.StatusCode)
	}

	// Same id again conflicts.
	resp = addDocument(t, ts, `{"id": 5, "text": "other", "status": 0, "ratings": [1]}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate id status = %d, want 409", resp.StatusCode)
	}

	resp = addDocument(t, ts, `{"id": 6, "text": "x", "status": 9, "ratings": [1]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status code = %d, want 400", resp.StatusCode)
	}

	resp = addDocument(t, ts, `{"id": -2, "text": "x", "status": 0, "ratings": [1]}`)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("negative id status = %d, want 409 (invalid document)", resp.StatusCode)
	}
}

func TestSearchEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/search?q=fluffy+groomed+cat")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	results := body["results"].([]any)
	if len(results) != 3 {
		t.Fatalf("results = %v, want 3 documents", results)
	}
	first := results[0].(map[string]any)
	if first["id"].(float64) != 1 {
		t.Errorf("top result id = %v, want 1", first["id"])
	}
}

func TestSearchEndpointStatusAndPolicy(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/search?q=fluffy+groomed+cat&status=2&policy=par")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	results := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("results = %v, want the banned document only", results)
	}
	if id := results[0].(map[string]any)["id"].(float64); id != 3 {
		t.Errorf("result id = %v, want 3", id)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	for _, path := range []string{
		"/api/v1/search",
		"/api/v1/search?q=bad+--query",
		"/api/v1/search?q=cat&status=7",
		"/api/v1/search?q=cat&page=-1",
	} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, resp.StatusCode)
		}
	}
}

func TestSearchEndpointPagination(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/search?q=fluffy+groomed+cat&page=1&page_size=2")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	if body["pages"].(float64) != 2 {
		t.Errorf("pages = %v, want 2", body["pages"])
	}
	results := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("page 1 results = %v, want the single trailing document", results)
	}
	if id := results[0].(map[string]any)["id"].(float64); id != 0 {
		t.Errorf("page 1 id = %v, want 0", id)
	}
}

func TestMatchEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/documents/1/match?q=fluffy+groomed+cat")
	if err != nil {
		t.Fatalf("GET /match: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	terms := body["matched_terms"].([]any)
	if len(terms) != 2 || terms[0] != "cat" || terms[1] != "fluffy" {
		t.Errorf("matched_terms = %v, want [cat fluffy]", terms)
	}

	resp, err = http.Get(ts.URL + "/api/v1/documents/99/match?q=cat")
	if err != nil {
		t.Fatalf("GET /match: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}
}

func TestRemoveDocumentEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/documents/1?policy=par", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /documents/1: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	searchResp, err := http.Get(ts.URL + "/api/v1/search?q=fluffy")
	if err != nil {
		t.Fatalf("GET /search: %v", err)
	}
	defer searchResp.Body.Close()
	body := decodeBody(t, searchResp)
	if body["total"].(float64) != 0 {
		t.Errorf("total = %v after removal, want 0", body["total"])
	}
}

func TestWordFrequenciesEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/api/v1/documents/1/frequencies")
	if err != nil {
		t.Fatalf("GET /frequencies: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	freqs := body["frequencies"].(map[string]any)
	if freqs["fluffy"].(float64) != 0.5 {
		t.Errorf("TF(fluffy) = %v, want 0.5", freqs["fluffy"])
	}
}

func TestBulkSearchEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Post(ts.URL+"/api/v1/search/bulk", "application/json",
		strings.NewReader(`{"queries": ["fluffy cat", "nosuchterm", "groomed eyes"]}`))
	if err != nil {
		t.Fatalf("POST /search/bulk: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	results := body["results"].([]any)
	if len(results) != 3 {
		t.Fatalf("results = %v, want 3 groups", results)
	}
	if len(results[1].([]any)) != 0 {
		t.Errorf("unknown-term group = %v, want empty", results[1])
	}

	resp, err = http.Post(ts.URL+"/api/v1/search/bulk", "application/json",
		strings.NewReader(`{"queries": ["fluffy cat", "nosuchterm"], "joined": true}`))
	if err != nil {
		t.Fatalf("POST /search/bulk joined: %v", err)
	}
	defer resp.Body.Close()
	body = decodeBody(t, resp)
	if body["total"].(float64) != 2 {
		t.Errorf("joined total = %v, want 2", body["total"])
	}
}

func TestSearchStatsEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	for _, q := range []string{"nosuchterm", "fluffy", "alsonothing"} {
		resp, err := http.Get(ts.URL + "/api/v1/search?q=" + q)
		if err != nil {
			t.Fatalf("GET /search: %v", err)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(ts.URL + "/api/v1/search/stats")
	if err != nil {
		t.Fatalf("GET /search/stats: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	if body["no_result_requests"].(float64) != 2 {
		t.Errorf("no_result_requests = %v, want 2", body["no_result_requests"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestAPI(t)
	seedCorpus(t, ts)

	resp, err := http.Get(ts.URL + "/health/live")
	if err != nil {
		t.Fatalf("GET /health/live: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/health/ready")
	if err != nil {
		t.Fatalf("GET /health/ready: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ready status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "up" {
		t.Errorf("status = %v, want up", body["status"])
	}
	if body["documents"].(float64) != 4 {
		t.Errorf("documents = %v, want 4", body["documents"])
	}
	if body["cache"] != "disabled" {
		t.Errorf("cache = %v, want disabled", body["cache"])
	}
}

func TestDeduplicateEndpoint(t *testing.T) {
	ts := newTestAPI(t)
	for _, doc := range []string{
		`{"id": 10, "text": "x y z", "status": 0, "ratings": [1]}`,
		`{"id": 20, "text": "z y x x", "status": 0, "ratings": [1]}`,
		`{"id": 40, "text": "x y", "status": 0, "ratings": [1]}`,
	} {
		addDocument(t, ts, doc)
	}

	resp, err := http.Post(ts.URL+"/api/v1/documents/deduplicate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /deduplicate: %v", err)
	}
	defer resp.Body.Close()
	body := decodeBody(t, resp)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", body["count"])
	}
	removed := body["removed_ids"].([]any)
	if len(removed) != 1 || removed[0].(float64) != 20 {
		t.Errorf("removed_ids = %v, want [20]", removed)
	}
}
