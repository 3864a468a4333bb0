package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"multitool/internal/http/handlers"
	"multitool/internal/http/httpapi"
	"multitool/internal/infra"
	"multitool/internal/registry"
	"multitool/internal/storage"
	"multitool/internal/tools"
	"multitool/internal/upload"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type envelope struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	OutputURL string         `json:"output_url"`
	Metadata  map[string]any `json:"metadata"`
}

func testServer(t *testing.T, descs ...*registry.Descriptor) (*httptest.Server, *storage.OutputStore) {
	t.Helper()

	outputs, err := storage.NewOutputStore(t.TempDir(), "http://localhost:8080/output")
	if err != nil {
		t.Fatalf("NewOutputStore: %v", err)
	}
	scratch, err := storage.NewScratchStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewScratchStore: %v", err)
	}

	app := &handlers.App{
		Log:            zerolog.Nop(),
		Registry:       registry.New(descs...),
		Uploads:        upload.NewValidator(scratch, 1<<20),
		Outputs:        outputs,
		MaxUploadBytes: 1 << 20,
	}
	cfg := &infra.Config{}
	srv := httptest.NewServer(httpapi.NewRouter(app, cfg, nil))
	t.Cleanup(srv.Close)
	return srv, outputs
}

func echoDescriptor(out *storage.OutputStore) *registry.Descriptor {
	return &registry.Descriptor{
		Category:  upload.CategoryImage,
		Operation: "echo",
		MinFiles:  1,
		Params: []registry.Param{
			{Name: "width", Type: registry.Int, Required: true, Min: 1, Max: 20000, Bounded: true},
		},
		Execute: func(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
			art, err := out.Put([]byte("result"), ".png")
			if err != nil {
				return nil, err
			}
			return &tools.Result{
				Message:   "echoed",
				Artifacts: []storage.Artifact{art},
				Metadata:  map[string]any{"width": p.Int("width")},
			}, nil
		},
	}
}

func failingDescriptor() *registry.Descriptor {
	return &registry.Descriptor{
		Category:  upload.CategoryImage,
		Operation: "boom",
		MinFiles:  1,
		Execute: func(ctx context.Context, inputs []string, p registry.Params) (*tools.Result, error) {
			return nil, tools.Failf(errors.New("codec exploded"), "could not process image")
		},
	}
}

func multipartRequest(t *testing.T, url string, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest("POST", url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, env
}

func TestDispatchSuccess(t *testing.T) {
	outputs := mustOutputs(t)
	srv, _ := testServer(t, echoDescriptor(outputs))

	req := multipartRequest(t, srv.URL+"/api/image/echo", map[string]string{"width": "320"}, "photo.png", pngHeader)
	status, env := doJSON(t, req)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !env.Success {
		t.Fatalf("success = false: %s", env.Message)
	}
	if env.OutputURL == "" {
		t.Fatalf("expected output url")
	}
	if env.Metadata["width"] != float64(320) {
		t.Fatalf("metadata width = %v, want 320", env.Metadata["width"])
	}
}

func TestDispatchUnknownOperation(t *testing.T) {
	srv, _ := testServer(t)

	req := multipartRequest(t, srv.URL+"/api/image/explode", nil, "photo.png", pngHeader)
	status, env := doJSON(t, req)

	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if env.Success {
		t.Fatalf("success should be false")
	}
}

func TestDispatchMissingFile(t *testing.T) {
	outputs := mustOutputs(t)
	srv, _ := testServer(t, echoDescriptor(outputs))

	req := multipartRequest(t, srv.URL+"/api/image/echo", map[string]string{"width": "320"}, "", nil)
	status, env := doJSON(t, req)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if env.Success {
		t.Fatalf("success should be false")
	}
}

func TestDispatchMissingRequiredParam(t *testing.T) {
	outputs := mustOutputs(t)
	srv, _ := testServer(t, echoDescriptor(outputs))

	req := multipartRequest(t, srv.URL+"/api/image/echo", nil, "photo.png", pngHeader)
	status, _ := doJSON(t, req)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestDispatchUnsupportedFileType(t *testing.T) {
	outputs := mustOutputs(t)
	srv, _ := testServer(t, echoDescriptor(outputs))

	req := multipartRequest(t, srv.URL+"/api/image/echo", map[string]string{"width": "320"}, "notes.txt", []byte("text"))
	status, _ := doJSON(t, req)

	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestDispatchProcessingFailureIsBusinessError(t *testing.T) {
	srv, _ := testServer(t, failingDescriptor())

	req := multipartRequest(t, srv.URL+"/api/image/boom", nil, "photo.png", pngHeader)
	status, env := doJSON(t, req)

	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if env.Success {
		t.Fatalf("success should be false")
	}
	if env.Message != "could not process image" {
		t.Fatalf("message = %q, want sanitized processing message", env.Message)
	}
}

func TestVideoRoutesAreStubbed(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/video/trim", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", resp.StatusCode)
	}
}

func TestServeOutput(t *testing.T) {
	srv, outputs := testServer(t)

	art, err := outputs.Put([]byte("artifact-bytes"), ".png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	resp, err := http.Get(srv.URL + "/output/" + art.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/output/nope.png")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", missing.StatusCode)
	}
}

func TestOutputInfo(t *testing.T) {
	srv, outputs := testServer(t)

	art, err := outputs.Put([]byte("12345"), ".pdf")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/output/" + art.ID + "/info")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info["filename"] != art.ID {
		t.Fatalf("filename = %v, want %s", info["filename"], art.ID)
	}
	if info["size"] != float64(5) {
		t.Fatalf("size = %v, want 5", info["size"])
	}
	if info["extension"] != "pdf" {
		t.Fatalf("extension = %v, want pdf", info["extension"])
	}
}

func TestHistoryDisabledWithoutDatabase(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["enabled"] != false {
		t.Fatalf("enabled = %v, want false", body["enabled"])
	}
}

func TestDispatchCleansScratchFiles(t *testing.T) {
	outputs := mustOutputs(t)

	scratchDir := t.TempDir()
	scratch, err := storage.NewScratchStore(scratchDir)
	if err != nil {
		t.Fatalf("NewScratchStore: %v", err)
	}
	app := &handlers.App{
		Log:            zerolog.Nop(),
		Registry:       registry.New(echoDescriptor(outputs)),
		Uploads:        upload.NewValidator(scratch, 1<<20),
		Outputs:        outputs,
		MaxUploadBytes: 1 << 20,
	}
	srv := httptest.NewServer(httpapi.NewRouter(app, &infra.Config{}, nil))
	t.Cleanup(srv.Close)

	req := multipartRequest(t, srv.URL+"/api/image/echo", map[string]string{"width": "320"}, "photo.png", pngHeader)
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}

	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("scratch not cleaned: %v", names)
	}
}

func mustOutputs(t *testing.T) *storage.OutputStore {
	t.Helper()
	out, err := storage.NewOutputStore(filepath.Join(t.TempDir(), "out"), "http://localhost:8080/output")
	if err != nil {
		t.Fatalf("NewOutputStore: %v", err)
	}
	return out
}
