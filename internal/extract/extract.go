// Package extract turns uploaded files into a best-effort textual
// representation for the assistant.
//
// Extraction never fails the request: when a file cannot be read as text,
// the result is a placeholder notice describing what was received. This
// keeps a bad attachment from blocking the rest of the turn.
package extract

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Kind classifies an upload for extraction purposes.
type Kind int

const (
	// KindUnknown covers anything outside the recognized categories.
	KindUnknown Kind = iota
	// KindText covers plain and structured text (txt, csv, json, etc.).
	KindText
	// KindPDF covers portable-document-format files.
	KindPDF
	// KindAudio covers audio recordings.
	KindAudio
	// KindImage covers images.
	KindImage
)

// String returns the name of a Kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindPDF:
		return "pdf"
	case KindAudio:
		return "audio"
	case KindImage:
		return "image"
	default:
		return "unknown"
	}
}

// Transcriber converts audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, data []byte) (string, error)
}

// Extractor applies the extraction policy for each file kind.
// The zero value is usable: audio files get a placeholder notice.
// With a Transcriber set, audio is transcribed instead.
type Extractor struct {
	Transcriber Transcriber
}

// DetectKind classifies a file from its declared content type, falling
// back to extension inference when the type is absent or too generic to
// be useful.
func DetectKind(contentType, filename string) Kind {
	mt := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mt = parsed
	}
	mt = strings.ToLower(strings.TrimSpace(mt))

	switch {
	case mt == "" || mt == "application/octet-stream":
		return kindFromExtension(filename)
	case mt == "application/pdf":
		return KindPDF
	case mt == "application/json" || mt == "application/csv" || strings.HasPrefix(mt, "text/"):
		return KindText
	case strings.HasPrefix(mt, "audio/"):
		return KindAudio
	case strings.HasPrefix(mt, "image/"):
		return KindImage
	default:
		return KindUnknown
	}
}

// kindFromExtension infers a kind from the file name alone.
func kindFromExtension(filename string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv", ".json", ".log", ".xml", ".yaml", ".yml":
		return KindText
	case ".pdf":
		return KindPDF
	case ".mp3", ".wav", ".m4a", ".ogg", ".webm", ".flac":
		return KindAudio
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp", ".svg":
		return KindImage
	default:
		return KindUnknown
	}
}

// Extract produces the textual representation of an upload.
//
// Policy by kind:
//   - text: the bytes decoded as UTF-8, verbatim
//   - pdf: extracted text, or a placeholder naming the failure
//   - audio: transcript when a Transcriber is configured, otherwise a
//     placeholder notice
//   - image: a placeholder notice (no vision extraction)
//   - unknown: a generic "file received" notice with name and type
func (e *Extractor) Extract(ctx context.Context, filename, contentType string, data []byte) string {
	switch DetectKind(contentType, filename) {
	case KindText:
		if !utf8.Valid(data) {
			return receivedNotice(filename, contentType)
		}
		return string(data)

	case KindPDF:
		text, err := extractPDFText(data)
		if err != nil {
			return fmt.Sprintf("[Could not extract text from %q: %v]", filename, err)
		}
		return text

	case KindAudio:
		if e.Transcriber == nil {
			return fmt.Sprintf("[Audio file %q received; transcription is not enabled]", filename)
		}
		transcript, err := e.Transcriber.Transcribe(ctx, filename, data)
		if err != nil {
			return fmt.Sprintf("[Could not transcribe audio file %q: %v]", filename, err)
		}
		return transcript

	case KindImage:
		return fmt.Sprintf("[Image file %q received (%s)]", filename, contentType)

	default:
		return receivedNotice(filename, contentType)
	}
}

func receivedNotice(filename, contentType string) string {
	if contentType == "" {
		contentType = "unknown type"
	}
	return fmt.Sprintf("File %q received (%s)", filename, contentType)
}
