package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		filename    string
		want        Kind
	}{
		{"plain text", "text/plain", "notes.txt", KindText},
		{"text with charset", "text/plain; charset=utf-8", "notes.txt", KindText},
		{"csv", "text/csv", "data.csv", KindText},
		{"json", "application/json", "data.json", KindText},
		{"pdf", "application/pdf", "report.pdf", KindPDF},
		{"mp3", "audio/mpeg", "memo.mp3", KindAudio},
		{"wav", "audio/wav", "memo.wav", KindAudio},
		{"png", "image/png", "photo.png", KindImage},
		{"zip", "application/zip", "archive.zip", KindUnknown},
		{"empty type txt ext", "", "notes.txt", KindText},
		{"empty type pdf ext", "", "report.pdf", KindPDF},
		{"octet-stream audio ext", "application/octet-stream", "memo.m4a", KindAudio},
		{"octet-stream image ext", "application/octet-stream", "photo.jpeg", KindImage},
		{"octet-stream no ext", "application/octet-stream", "blob", KindUnknown},
		{"garbage type known ext", "", "config.yaml", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.contentType, tt.filename); got != tt.want {
				t.Errorf("DetectKind(%q, %q) = %v, want %v", tt.contentType, tt.filename, got, tt.want)
			}
		})
	}
}

func TestExtractTextVerbatim(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "hello.txt", "text/plain", []byte("hello"))
	if got != "hello" {
		t.Errorf("Extract() = %q, want %q", got, "hello")
	}
}

func TestExtractTextInvalidUTF8(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "data.txt", "text/plain", []byte{0xff, 0xfe, 0x00})
	if !strings.Contains(got, "data.txt") {
		t.Errorf("Invalid UTF-8 should degrade to a notice naming the file, got %q", got)
	}
}

func TestExtractPDFFailureIsPlaceholder(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "broken.pdf", "application/pdf", []byte("not a pdf at all"))
	if !strings.Contains(got, "Could not extract text") || !strings.Contains(got, "broken.pdf") {
		t.Errorf("Corrupt PDF should yield a placeholder, got %q", got)
	}
}

func TestExtractImagePlaceholder(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "photo.png", "image/png", []byte{0x89, 0x50})
	if !strings.Contains(got, "photo.png") || !strings.Contains(got, "image/png") {
		t.Errorf("Image extraction should notice name and type, got %q", got)
	}
}

func TestExtractUnknownNotice(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "archive.zip", "application/zip", []byte("PK"))
	if !strings.Contains(got, "archive.zip") || !strings.Contains(got, "application/zip") {
		t.Errorf("Unknown type should yield a generic notice, got %q", got)
	}
}

// fakeTranscriber returns a canned transcript or error.
type fakeTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, data []byte) (string, error) {
	f.calls++
	return f.transcript, f.err
}

func TestExtractAudioWithoutTranscriber(t *testing.T) {
	e := &Extractor{}
	got := e.Extract(context.Background(), "memo.mp3", "audio/mpeg", []byte("audio"))
	if !strings.Contains(got, "memo.mp3") || !strings.Contains(got, "transcription is not enabled") {
		t.Errorf("Audio without transcriber should yield a notice, got %q", got)
	}
}

func TestExtractAudioWithTranscriber(t *testing.T) {
	ft := &fakeTranscriber{transcript: "remember to buy milk"}
	e := &Extractor{Transcriber: ft}

	got := e.Extract(context.Background(), "memo.mp3", "audio/mpeg", []byte("audio"))
	if got != "remember to buy milk" {
		t.Errorf("Extract() = %q, want transcript", got)
	}
	if ft.calls != 1 {
		t.Errorf("Transcriber called %d times, want 1", ft.calls)
	}
}

func TestExtractAudioTranscriberFailure(t *testing.T) {
	ft := &fakeTranscriber{err: errors.New("service unavailable")}
	e := &Extractor{Transcriber: ft}

	got := e.Extract(context.Background(), "memo.mp3", "audio/mpeg", []byte("audio"))
	if !strings.Contains(got, "Could not transcribe") || !strings.Contains(got, "memo.mp3") {
		t.Errorf("Transcription failure should degrade to a placeholder, got %q", got)
	}
}
