package assistant

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTranscribe(t *testing.T) {
	var gotModel, gotFilename, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("Unexpected path %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error: %v", err)
		}
		gotModel = r.FormValue("model")
		if file, header, err := r.FormFile("file"); err == nil {
			gotFilename = header.Filename
			file.Close()
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"text":"hello from audio"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "asst_test", time.Second)
	text, err := client.Transcribe(context.Background(), "memo.mp3", []byte("fake audio bytes"))
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}

	if text != "hello from audio" {
		t.Errorf("Transcribe() = %q, want %q", text, "hello from audio")
	}
	if gotModel != transcriptionModel {
		t.Errorf("model field = %q, want %q", gotModel, transcriptionModel)
	}
	if gotFilename != "memo.mp3" {
		t.Errorf("filename = %q, want %q", gotFilename, "memo.mp3")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestTranscribeRequestFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Unsupported audio format"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "asst_test", time.Second)
	_, err := client.Transcribe(context.Background(), "memo.xyz", []byte("junk"))
	if err == nil {
		t.Fatal("Transcribe() should fail on non-200 status")
	}
	if !strings.Contains(err.Error(), "Unsupported audio format") {
		t.Errorf("Error should carry remote diagnostic, got %q", err.Error())
	}
}

func TestClientRequestHeaders(t *testing.T) {
	var gotBeta, gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBeta = r.Header.Get("OpenAI-Beta")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"thread_1"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "asst_test", time.Second)
	thread, err := client.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("CreateThread() error: %v", err)
	}

	if thread.ID != "thread_1" {
		t.Errorf("thread.ID = %q, want thread_1", thread.ID)
	}
	if gotBeta != "assistants=v2" {
		t.Errorf("OpenAI-Beta = %q, want assistants=v2", gotBeta)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("", "key", "asst_1", 0)
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want default", client.BaseURL())
	}
	if client.AssistantID() != "asst_1" {
		t.Errorf("AssistantID() = %q, want asst_1", client.AssistantID())
	}
}
