package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lcrdev/docchat/internal/config"
	"github.com/lcrdev/docchat/internal/log"
)

func testLoader() *Loader {
	return NewLoader(config.ScraperConfig{Parallelism: 1, DelayMs: 0, TimeoutMs: 5000}, log.NewNop())
}

func TestLoad_Text(t *testing.T) {
	l := testLoader()

	doc, err := l.Load(context.Background(), Request{
		Type:     Text,
		Bytes:    []byte("Hello world"),
		Filename: "note.txt",
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.SourceType != Text {
		t.Errorf("SourceType = %q, want %q", doc.SourceType, Text)
	}
	if doc.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", doc.Content, "Hello world")
	}
}

func TestLoad_Text_EmptyIsLegitimate(t *testing.T) {
	l := testLoader()

	doc, err := l.Load(context.Background(), Request{Type: Text, Bytes: nil})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Content != "" {
		t.Errorf("Content = %q, want empty string", doc.Content)
	}
}

func TestLoad_Text_InvalidUTF8(t *testing.T) {
	l := testLoader()

	_, err := l.Load(context.Background(), Request{Type: Text, Bytes: []byte{0xff, 0xfe, 0xfd}})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}

func TestLoad_Csv(t *testing.T) {
	l := testLoader()
	data := []byte("name,city\nAda,London\nLinus,Helsinki\n")

	doc, err := l.Load(context.Background(), Request{Type: Csv, Bytes: data, Filename: "people.csv"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	for _, want := range []string{"name: Ada", "city: London", "name: Linus", "city: Helsinki"} {
		if !strings.Contains(doc.Content, want) {
			t.Errorf("Content missing %q:\n%s", want, doc.Content)
		}
	}
}

func TestLoad_Csv_HeaderOnly(t *testing.T) {
	l := testLoader()

	doc, err := l.Load(context.Background(), Request{Type: Csv, Bytes: []byte("a,b,c\n")})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if doc.Content != "" {
		t.Errorf("Content = %q, want empty", doc.Content)
	}
}

func TestLoad_Csv_Malformed(t *testing.T) {
	l := testLoader()
	// Unterminated quote makes the CSV unparseable.
	_, err := l.Load(context.Background(), Request{Type: Csv, Bytes: []byte("a,b\n\"oops,1\n2,3\n\"x")})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}

func TestLoad_Csv_RaggedRows(t *testing.T) {
	l := testLoader()
	data := []byte("a,b\n1,2,3\n")

	doc, err := l.Load(context.Background(), Request{Type: Csv, Bytes: data})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !strings.Contains(doc.Content, "column_3: 3") {
		t.Errorf("extra field should get a positional name:\n%s", doc.Content)
	}
}

func TestLoad_Pdf_Garbage(t *testing.T) {
	l := testLoader()

	_, err := l.Load(context.Background(), Request{Type: Pdf, Bytes: []byte("not a pdf"), Filename: "x.pdf"})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}

func TestLoad_Pdf_Empty(t *testing.T) {
	l := testLoader()

	_, err := l.Load(context.Background(), Request{Type: Pdf, Bytes: nil})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}

func TestLoad_UnknownType(t *testing.T) {
	l := testLoader()

	_, err := l.Load(context.Background(), Request{Type: SourceType("audio")})
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Errorf("error = %v, want ErrUnsupportedSource", err)
	}
}

func TestLoad_Site_InvalidURL(t *testing.T) {
	l := testLoader()

	_, err := l.Load(context.Background(), Request{Type: Site, URL: "not a url"})
	if !errors.Is(err, ErrLoad) {
		t.Errorf("error = %v, want ErrLoad", err)
	}
}

func TestMaterialize_CleanupRemovesFile(t *testing.T) {
	path, cleanup, err := materialize([]byte("payload"), ".txt")
	if err != nil {
		t.Fatalf("materialize error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading temp file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("temp file content = %q", data)
	}
	if filepath.Ext(path) != ".txt" {
		t.Errorf("temp file extension = %q, want .txt", filepath.Ext(path))
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("temp file still exists after cleanup: %v", err)
	}
}
