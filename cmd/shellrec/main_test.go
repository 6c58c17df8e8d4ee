package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/dwmkerr/shellrec/internal/config"
	"github.com/dwmkerr/shellrec/internal/mcp"
)

func TestRunRecordUnreachableEndpointIsConnectError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // nothing listening any more

	settings := &config.Settings{
		ServerURL: server.URL,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Host:      "aspire",
		Timeout:   time.Second,
	}
	err := runRecord(context.Background(), settings, false, true)
	if err == nil {
		t.Fatal("expected error")
	}
	var connErr *mcp.ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectError for unreachable endpoint, got %T: %v", err, err)
	}
}

func TestPrepareResolvesDefaults(t *testing.T) {
	t.Setenv("SHELLWRIGHT_URL", "")
	t.Setenv("SHELLWRIGHT_OUTPUT", "")
	t.Setenv("DEMO_HOST", "")
	opts := &rootOptions{configPath: filepath.Join(t.TempDir(), "absent")}
	if err := opts.prepare(); err != nil {
		t.Fatal(err)
	}
	if opts.settings.ServerURL != config.DefaultServerURL {
		t.Fatalf("unexpected server %q", opts.settings.ServerURL)
	}
	if opts.settings.Host != config.DefaultHost {
		t.Fatalf("unexpected host %q", opts.settings.Host)
	}
}
