package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dwmkerr/shellrec/internal/console"
)

func testConsole() *console.Console {
	return console.New(io.Discard, false)
}

func TestFetchWritesArtifact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "gif-bytes")
	}))
	defer server.Close()

	dir := t.TempDir()
	dl := NewDownloader(dir, testConsole())
	res := ParseResult(fmt.Sprintf(`{"download_url":%q,"filename":"demo.gif"}`, server.URL+"/demo.gif"))

	if err := dl.Fetch(context.Background(), res); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "demo.gif"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "gif-bytes" {
		t.Fatalf("unexpected content %q", data)
	}

	// Re-running overwrites in place: still exactly one file, no error.
	if err := dl.Fetch(context.Background(), res); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one artifact, got %d", len(entries))
	}
}

func TestFetchNoReferenceIsNoop(t *testing.T) {
	dir := t.TempDir()
	dl := NewDownloader(dir, testConsole())
	if err := dl.Fetch(context.Background(), ParseResult(`{"ok":true}`)); err != nil {
		t.Fatal(err)
	}
	if err := dl.Fetch(context.Background(), ParseResult("raw text")); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("no-op fetch must not write files, got %d", len(entries))
	}
}

func TestFetchFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	dir := t.TempDir()
	dl := NewDownloader(dir, testConsole())
	res := ParseResult(fmt.Sprintf(`{"download_url":%q,"filename":"demo.gif"}`, server.URL+"/demo.gif"))
	if err := dl.Fetch(context.Background(), res); err == nil {
		t.Fatal("expected error for failed download")
	}
	if _, err := os.Stat(filepath.Join(dir, "demo.gif")); !os.IsNotExist(err) {
		t.Fatal("failed download must not leave an artifact")
	}
}
