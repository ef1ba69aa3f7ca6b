package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ppiankov/openplag/internal/corpus"
	"github.com/ppiankov/openplag/internal/embed"
	"github.com/ppiankov/openplag/internal/model"
	"github.com/ppiankov/openplag/internal/pipeline"
)

const essay = "The mitochondria generate most of the chemical energy needed by cells. " +
	"Glaciers carved the fjords of Norway during repeated ice ages."

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	p := pipeline.New(model.DefaultConfig(), corpus.NewMemoryStore(), embed.NewHashingProvider(256), nil, nil)
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	srv := httptest.NewServer(New(p, model.ServerConfig{MaxUploadBytes: 1 << 20}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decode(t, resp, &body)
	if body["status"] != "ok" || body["documents"] != float64(0) {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestCheck(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/check", map[string]interface{}{"text": essay, "name": "alice", "archive": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body checkResponse
	decode(t, resp, &body)
	if body.SegmentCount != 2 || !body.Archived || body.Severity != model.SeverityClean {
		t.Errorf("Unexpected response: %+v", body)
	}

	// Second submission of the same text is reported, not rejected
	resp = postJSON(t, srv.URL+"/api/v1/check", map[string]interface{}{"text": essay, "archive": true})
	var again checkResponse
	decode(t, resp, &again)
	if !again.AlreadyArchived || again.Message == "" {
		t.Errorf("Expected already-archived notice, got %+v", again)
	}
	if again.OverallScore != 1 || len(again.Sources) != 1 {
		t.Errorf("Expected a full match against the archived copy, got %+v", again)
	}
}

func TestCheck_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"missing text", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"too short", map[string]string{"text": "hello there"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/v1/check", tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}

	resp, err := http.Post(srv.URL+"/api/v1/check", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad json, got %d", resp.StatusCode)
	}
}

func uploadFile(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write(content)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	resp, err := http.Post(url, w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCheckFile(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadFile(t, srv.URL+"/api/v1/check/file", "essay.txt", []byte(essay), map[string]string{"name": "bob", "archive": "true"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body checkResponse
	decode(t, resp, &body)
	if body.Name != "bob (essay.txt)" || !body.Archived {
		t.Errorf("Unexpected response: %+v", body)
	}

	resp = uploadFile(t, srv.URL+"/api/v1/check/file", "essay.pdf", []byte("%PDF-1.7"), nil)
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415 for pdf, got %d", resp.StatusCode)
	}

	resp = uploadFile(t, srv.URL+"/api/v1/check/file", "bad.txt", []byte{0xff, 0xfe, 0x00}, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for corrupt file, got %d", resp.StatusCode)
	}
}

func TestDocuments(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/documents", map[string]string{"text": essay, "name": "carol", "filename": "c.txt"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var created map[string]interface{}
	decode(t, resp, &created)
	id, _ := created["id"].(string)
	if id == "" || created["segments"] != float64(2) {
		t.Fatalf("Unexpected body: %v", created)
	}

	resp = postJSON(t, srv.URL+"/api/v1/documents", map[string]string{"text": essay})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", resp.StatusCode)
	}

	list, err := http.Get(srv.URL + "/api/v1/documents")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = list.Body.Close() }()
	var docs []documentInfo
	decode(t, list, &docs)
	if len(docs) != 1 || docs[0].ID != id || docs[0].Name != "carol" || docs[0].Segments != 2 {
		t.Errorf("Unexpected list: %+v", docs)
	}

	one, err := http.Get(srv.URL + "/api/v1/documents/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = one.Body.Close() }()
	if one.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", one.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/api/v1/documents/nope")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = missing.Body.Close() }()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", missing.StatusCode)
	}
}

func TestRecheckDocument(t *testing.T) {
	srv := newTestServer(t)

	var carol, dave map[string]interface{}
	decode(t, postJSON(t, srv.URL+"/api/v1/documents", map[string]string{"text": essay, "name": "carol"}), &carol)
	decode(t, postJSON(t, srv.URL+"/api/v1/documents", map[string]string{
		"text": "The mitochondria generate most of the chemical energy needed by cells. " +
			"Volcanic eruptions reshape island chains over many centuries.",
		"name": "dave",
	}), &dave)

	resp := postJSON(t, srv.URL+"/api/v1/documents/"+carol["id"].(string)+"/check", map[string]bool{"no_web": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var body checkResponse
	decode(t, resp, &body)
	if body.OverallScore != 0.5 || len(body.FlaggedSegments) != 1 {
		t.Errorf("Unexpected scores: %+v", body)
	}
	if len(body.Sources) != 1 || body.Sources[0].ID != dave["id"] {
		t.Errorf("Expected dave as the only source, got %+v", body.Sources)
	}
	if body.Archived || body.AlreadyArchived {
		t.Errorf("Recheck must not archive: %+v", body)
	}

	empty, err := http.Post(srv.URL+"/api/v1/documents/"+dave["id"].(string)+"/check", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = empty.Body.Close() }()
	if empty.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for empty body, got %d", empty.StatusCode)
	}

	missing := postJSON(t, srv.URL+"/api/v1/documents/nope/check", map[string]bool{})
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", missing.StatusCode)
	}
}
