package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText pulls plain text out of PDF bytes.
//
// The parser panics on some malformed documents instead of returning an
// error, so the whole call is wrapped in a recover. Callers substitute a
// placeholder on any failure; a bad PDF must never take the request down.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", err
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", errors.New("document contains no extractable text")
	}
	return out, nil
}
