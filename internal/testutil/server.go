package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// UploadRecord captures one multipart upload the fake server received.
type UploadRecord struct {
	Field       string
	Filename    string
	ContentType string
	Size        int
}

// PromptRecord captures one prompt submission.
type PromptRecord struct {
	ClientID string
	Graph    map[string]json.RawMessage
	Raw      []byte
}

// FakeComfy is an httptest-backed stand-in for a ComfyUI server. Response
// behavior is configured through the public fields before the client calls
// arrive; received traffic is recorded for assertions.
type FakeComfy struct {
	mu sync.Mutex

	// UploadStatus/UploadBody configure POST /upload/image. Defaults:
	// 200, {"name":"uploaded.png"}.
	UploadStatus int
	UploadBody   string

	// SubmitStatus/SubmitBody configure POST /prompt. Defaults:
	// 200, {"prompt_id":"pid1"}.
	SubmitStatus int
	SubmitBody   string

	// HistoryReadyAfter is how many history queries return an empty entry
	// before the output appears. OutputNode/OutputFilename shape the entry.
	HistoryReadyAfter int
	OutputNode        string
	OutputFilename    string
	OutputSubfolder   string
	OutputType        string

	// ViewStatus/ViewBody configure GET /view. Defaults: 200, a tiny PNG.
	ViewStatus int
	ViewBody   []byte

	// QueueBody configures GET /queue/status. Default: {"queue_running":0}.
	QueueBody string

	Uploads      []UploadRecord
	Prompts      []PromptRecord
	HistoryCalls int
	ViewQueries  []string

	server *httptest.Server
}

// NewFakeComfy starts a fake server with default behavior.
func NewFakeComfy() *FakeComfy {
	f := &FakeComfy{
		UploadStatus:   http.StatusOK,
		UploadBody:     `{"name":"uploaded.png"}`,
		SubmitStatus:   http.StatusOK,
		SubmitBody:     `{"prompt_id":"pid1"}`,
		OutputNode:     "9",
		OutputFilename: "out.png",
		OutputType:     "output",
		ViewStatus:     http.StatusOK,
		ViewBody:       TinyPNG(),
		QueueBody:      `{"queue_running":0}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload/image", f.handleUpload)
	mux.HandleFunc("/prompt", f.handlePrompt)
	mux.HandleFunc("/history/", f.handleHistory)
	mux.HandleFunc("/view", f.handleView)
	mux.HandleFunc("/queue/status", f.handleQueue)
	f.server = httptest.NewServer(mux)
	return f
}

// Host returns the host:port the fake server listens on.
func (f *FakeComfy) Host() string {
	return strings.TrimPrefix(f.server.URL, "http://")
}

// Close shuts the server down.
func (f *FakeComfy) Close() {
	f.server.Close()
}

func (f *FakeComfy) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f.mu.Lock()
			f.Uploads = append(f.Uploads, UploadRecord{
				Field:       field,
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        int(fh.Size),
			})
			f.mu.Unlock()
		}
	}

	f.mu.Lock()
	status, body := f.UploadStatus, f.UploadBody
	f.mu.Unlock()
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *FakeComfy) handlePrompt(w http.ResponseWriter, r *http.Request) {
	var parsed struct {
		Prompt   map[string]json.RawMessage `json:"prompt"`
		ClientID string                     `json:"client_id"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &parsed)

	f.mu.Lock()
	f.Prompts = append(f.Prompts, PromptRecord{
		ClientID: parsed.ClientID,
		Graph:    parsed.Prompt,
		Raw:      raw,
	})
	status, body := f.SubmitStatus, f.SubmitBody
	f.mu.Unlock()
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (f *FakeComfy) handleHistory(w http.ResponseWriter, r *http.Request) {
	promptID := strings.TrimPrefix(r.URL.Path, "/history/")

	f.mu.Lock()
	f.HistoryCalls++
	ready := f.HistoryCalls > f.HistoryReadyAfter
	node := f.OutputNode
	ref := map[string]string{
		"filename":  f.OutputFilename,
		"subfolder": f.OutputSubfolder,
		"type":      f.OutputType,
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		fmt.Fprintf(w, `{%q:{"outputs":{}}}`, promptID)
		return
	}
	entry := map[string]any{
		promptID: map[string]any{
			"outputs": map[string]any{
				node: map[string]any{
					"images": []any{ref},
				},
			},
		},
	}
	_ = json.NewEncoder(w).Encode(entry)
}

func (f *FakeComfy) handleView(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.ViewQueries = append(f.ViewQueries, r.URL.RawQuery)
	status, body := f.ViewStatus, f.ViewBody
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprint(w, "not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(body)
}

func (f *FakeComfy) handleQueue(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	body := f.QueueBody
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}
