package document

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// materialize writes in-memory bytes to a scoped temp file for parsers
// that need a filesystem path. The returned cleanup must run on every
// exit path; it removes the file and is safe to call exactly once.
func materialize(data []byte, ext string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "docchat-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("%w: creating temp file: %v", ErrLoad, err)
	}
	path = f.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: writing temp file: %v", ErrLoad, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: closing temp file: %v", ErrLoad, err)
	}
	return path, cleanup, nil
}

// loadPdf extracts the plain text of a PDF.
// The parser reads from a path, so the bytes are materialized to a
// temp file scoped to this call.
func (l *Loader) loadPdf(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty PDF input", ErrLoad)
	}

	path, cleanup, err := materialize(data, ".pdf")
	if err != nil {
		return "", err
	}
	defer cleanup()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: parsing PDF: %v", ErrLoad, err)
	}
	defer func() { _ = f.Close() }()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting PDF text: %v", ErrLoad, err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("%w: reading PDF text: %v", ErrLoad, err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return "", fmt.Errorf("%w: PDF contains no extractable text", ErrLoad)
	}
	return string(text), nil
}

// loadCsv renders CSV rows as "header: value" lines, one record per
// block, so the model sees column names next to every value.
// A file with only a header row (or nothing at all) yields an empty
// string; malformed CSV fails.
func (l *Loader) loadCsv(data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1 // tolerate ragged rows

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: parsing CSV header: %v", ErrLoad, err)
	}

	var b strings.Builder
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parsing CSV: %v", ErrLoad, err)
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		for i, field := range record {
			name := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				name = header[i]
			}
			fmt.Fprintf(&b, "%s: %s\n", name, field)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// loadText passes file bytes through as-is.
// A blank file is legitimately empty, not an error.
func (l *Loader) loadText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", ErrLoad)
	}
	return string(data), nil
}
