package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newFakeServer serves a minimal MCP endpoint at /mcp. It answers
// initialize with a session id header, accepts the initialized
// notification with 202, and dispatches tools/call to handle.
func newFakeServer(t *testing.T, handle func(name string, args map[string]any) string) (*httptest.Server, *[]string) {
	t.Helper()
	var sessionIDs []string
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		sessionIDs = append(sessionIDs, r.Header.Get("Mcp-Session-Id"))
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch req.Method {
		case "initialize":
			w.Header().Set("Mcp-Session-Id", "http-session-1")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"2025-03-26","serverInfo":{"name":"fake","version":"0"}}}`, req.ID)
		case "notifications/initialized":
			w.WriteHeader(http.StatusAccepted)
		case "tools/call":
			raw, _ := json.Marshal(req.Params)
			var params toolsCallParams
			_ = json.Unmarshal(raw, &params)
			text := handle(params.Name, params.Arguments)
			result := toolsCallResult{Content: []contentBlock{{Type: "text", Text: text}}}
			resultJSON, _ := json.Marshal(result)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, resultJSON)
		default:
			t.Errorf("unexpected method %q", req.Method)
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &sessionIDs
}

func TestConnectAndCallTool(t *testing.T) {
	server, sessionIDs := newFakeServer(t, func(name string, args map[string]any) string {
		if name != "shell_start" {
			t.Errorf("unexpected tool %q", name)
		}
		if args["cols"] != float64(140) {
			t.Errorf("expected cols=140, got %v", args["cols"])
		}
		return `{"shell_session_id":"abc"}`
	})

	c := New(server.URL)
	ctx := context.Background()
	if err := c.Connect(ctx, "test", "dev"); err != nil {
		t.Fatal(err)
	}
	text, err := c.CallTool(ctx, "shell_start", map[string]any{"cols": 140})
	if err != nil {
		t.Fatal(err)
	}
	if text != `{"shell_session_id":"abc"}` {
		t.Fatalf("unexpected text %q", text)
	}

	// The session id issued at initialize must be echoed on later calls.
	got := *sessionIDs
	if len(got) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(got))
	}
	if got[0] != "" {
		t.Fatalf("initialize should carry no session id, got %q", got[0])
	}
	for _, id := range got[1:] {
		if id != "http-session-1" {
			t.Fatalf("expected session id on follow-up request, got %q", id)
		}
	}
}

func TestCallToolSSEResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "initialize":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"2025-03-26","serverInfo":{"name":"fake","version":"0"}}}`, req.ID)
		case "notifications/initialized":
			w.WriteHeader(http.StatusAccepted)
		default:
			w.Header().Set("Content-Type", "text/event-stream")
			// A notification event first, then the response event.
			fmt.Fprintf(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"method\":\"notifications/progress\"}\n\n")
			fmt.Fprintf(w, "event: message\ndata: {\"jsonrpc\":\"2.0\",\"id\":%d,\"result\":{\"content\":[{\"type\":\"text\",\"text\":\"hello\"}]}}\n\n", req.ID)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()
	if err := c.Connect(ctx, "test", "dev"); err != nil {
		t.Fatal(err)
	}
	text, err := c.CallTool(ctx, "shell_send", nil)
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestConnectFailureIsConnectError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close() // endpoint now unreachable

	c := New(server.URL)
	err := c.Connect(context.Background(), "test", "dev")
	if err == nil {
		t.Fatal("expected error")
	}
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectError, got %T: %v", err, err)
	}
}

func TestHandshakeRefusedIsConnectError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32600,"message":"no thanks"}}`, req.ID)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	err := New(server.URL).Connect(context.Background(), "test", "dev")
	var connErr *ConnectError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectError, got %v", err)
	}
	if !strings.Contains(err.Error(), "no thanks") {
		t.Fatalf("original diagnostic lost: %v", err)
	}
}

func TestCallToolFailureIsNotConnectError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		var req request
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "initialize":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"result":{"protocolVersion":"2025-03-26","serverInfo":{"name":"fake","version":"0"}}}`, req.ID)
		case "notifications/initialized":
			w.WriteHeader(http.StatusAccepted)
		default:
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%d,"error":{"code":-32603,"message":"boom"}}`, req.ID)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(server.URL)
	ctx := context.Background()
	if err := c.Connect(ctx, "test", "dev"); err != nil {
		t.Fatal(err)
	}
	_, err := c.CallTool(ctx, "shell_send", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		t.Fatalf("mid-scenario failure must not classify as connection failure: %v", err)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("original diagnostic lost: %v", err)
	}
}
