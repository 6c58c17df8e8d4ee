package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// ConnectError marks a failure to establish the MCP channel: the endpoint
// was unreachable or refused the protocol handshake. Callers use it to
// separate "the service isn't running" from failures after the channel is
// up, which propagate unwrapped.
type ConnectError struct {
	Endpoint string
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Client is an MCP client over streamable HTTP. One Client corresponds to
// one MCP session with the server; it is not safe for concurrent use,
// matching the strictly serial call pattern of the recorder.
type Client struct {
	endpoint   string
	httpClient *http.Client
	log        *slog.Logger

	sessionID string
	nextID    atomic.Int64
}

// Option configures optional client behavior.
type Option func(*Client)

// WithLogger installs a wire-level debug logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.log = logger }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the MCP endpoint at baseURL. The standard
// shellwright mount point is baseURL + "/mcp".
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/mcp",
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Connect performs the MCP initialize handshake. Any failure here is
// wrapped in a ConnectError so the caller can classify it; failures on
// later calls are not.
func (c *Client) Connect(ctx context.Context, name, version string) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: name, Version: version},
	}
	resp, sessionID, err := c.roundTrip(ctx, &request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "initialize",
		Params:  params,
	})
	if err != nil {
		return &ConnectError{Endpoint: c.endpoint, Err: err}
	}
	if resp.Error != nil {
		return &ConnectError{Endpoint: c.endpoint, Err: fmt.Errorf("initialize: %s (code %d)", resp.Error.Message, resp.Error.Code)}
	}
	var init initializeResult
	if err := json.Unmarshal(resp.Result, &init); err != nil {
		return &ConnectError{Endpoint: c.endpoint, Err: fmt.Errorf("decode initialize result: %w", err)}
	}
	c.sessionID = sessionID
	c.log.Debug("mcp initialized",
		"server", init.ServerInfo.Name,
		"server_version", init.ServerInfo.Version,
		"protocol", init.ProtocolVersion,
		"http_session", sessionID != "",
	)

	// The initialized notification completes the handshake. Some servers
	// answer it with 202 and an empty body; roundTrip tolerates that.
	if _, _, err := c.roundTrip(ctx, &request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	}); err != nil {
		return &ConnectError{Endpoint: c.endpoint, Err: fmt.Errorf("initialized notification: %w", err)}
	}
	return nil
}

// CallTool invokes a named tool and returns the concatenated text of the
// result's content blocks. A JSON-RPC error is an error; a tool-level
// isError result is not — its text is returned for the caller to surface.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, _, err := c.roundTrip(ctx, &request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  "tools/call",
		Params:  toolsCallParams{Name: name, Arguments: args},
	})
	if err != nil {
		return "", fmt.Errorf("call %s: %w", name, err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("call %s: %s (code %d)", name, resp.Error.Message, resp.Error.Code)
	}
	var result toolsCallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", fmt.Errorf("call %s: decode result: %w", name, err)
	}
	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	c.log.Debug("tool call", "tool", name, "is_error", result.IsError, "bytes", text.Len())
	return text.String(), nil
}

// roundTrip posts one JSON-RPC message and decodes the matching response.
// The server may answer with a plain JSON body or an SSE stream; both are
// handled. Notifications return a zero response.
func (c *Client) roundTrip(ctx context.Context, req *request) (*response, string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if c.sessionID != "" {
		httpReq.Header.Set("Mcp-Session-Id", c.sessionID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	defer httpResp.Body.Close()

	sessionID := httpResp.Header.Get("Mcp-Session-Id")

	if httpResp.StatusCode == http.StatusAccepted || httpResp.StatusCode == http.StatusNoContent {
		return &response{}, sessionID, nil
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		return nil, "", fmt.Errorf("http %d: %s", httpResp.StatusCode, strings.TrimSpace(string(payload)))
	}

	contentType := httpResp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "text/event-stream") {
		resp, err := readSSEResponse(httpResp.Body)
		return resp, sessionID, err
	}

	var resp response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	return &resp, sessionID, nil
}

// readSSEResponse scans server-sent events until it finds a JSON-RPC
// response (a message carrying an id and a result or error). Server
// notifications interleaved on the stream are skipped.
func readSSEResponse(r io.Reader) (*response, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(after, " "))
			continue
		}
		if line != "" || data.Len() == 0 {
			continue
		}
		// Blank line terminates one event.
		var resp response
		payload := data.String()
		data.Reset()
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			continue
		}
		if len(resp.ID) > 0 && (len(resp.Result) > 0 || resp.Error != nil) {
			return &resp, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read event stream: %w", err)
	}
	return nil, fmt.Errorf("event stream ended without a response")
}
