package daemon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/pantry/errors"
	"github.com/grovetools/pantry/internal/agent"
	"github.com/grovetools/pantry/internal/registry"
	"github.com/grovetools/pantry/internal/session"
)

// RemoteClient implements Client by calling the daemon's HTTP API over a Unix socket.
type RemoteClient struct {
	httpClient *http.Client
	socketPath string
}

// NewRemoteClient creates a new RemoteClient connected to the daemon socket.
func NewRemoteClient(socketPath string) (*RemoteClient, error) {
	// Create HTTP client that dials Unix socket
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", socketPath)
		},
		DisableKeepAlives: false,
		MaxIdleConns:      10,
		IdleConnTimeout:   90 * time.Second,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	return &RemoteClient{
		httpClient: client,
		socketPath: socketPath,
	}, nil
}

// baseURL is the dummy host used for Unix socket HTTP requests.
// The actual connection goes through the Unix socket, not this URL.
const baseURL = "http://unix"

func (c *RemoteClient) request(ctx context.Context, method, path string, token registry.Token, body interface{}) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != 0 {
		req.Header.Set(SubscriptionHeader, strconv.FormatUint(uint64(token), 10))
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDaemonNotRunning, "daemon request failed").
			WithDetail("socket", c.socketPath)
	}
	return resp, nil
}

// decodeError turns a PantryError document into an error.
func decodeError(resp *http.Response, data []byte) error {
	var pe errors.PantryError
	if err := json.Unmarshal(data, &pe); err == nil && pe.Code != "" {
		return &pe
	}
	return fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

// Do posts the request envelope and decodes the response envelope. Failure
// variants come back as responses, not errors.
func (c *RemoteClient) Do(ctx context.Context, token registry.Token, req agent.Request) (agent.Response, error) {
	env, err := agent.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.request(ctx, http.MethodPost, "/api/requests", token, env)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var out agent.Envelope
	if err := json.Unmarshal(data, &out); err != nil || out.Type == "" {
		return nil, decodeError(resp, data)
	}
	return agent.DecodeResponse(out)
}

func (c *RemoteClient) sessionCall(ctx context.Context, method, path string, body interface{}) (session.State, error) {
	resp, err := c.request(ctx, method, path, 0, body)
	if err != nil {
		return session.State{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.State{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return session.State{}, decodeError(resp, data)
	}
	var st session.State
	if err := json.Unmarshal(data, &st); err != nil {
		return session.State{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return st, nil
}

// Session returns the daemon's session state.
func (c *RemoteClient) Session(ctx context.Context, wait bool) (session.State, error) {
	path := "/api/session"
	if wait {
		path += "?wait=1"
	}
	return c.sessionCall(ctx, http.MethodGet, path, nil)
}

// Auth runs a session operation on the daemon and waits for it to settle.
func (c *RemoteClient) Auth(ctx context.Context, req session.Request) (session.State, error) {
	var (
		op   string
		body interface{}
	)
	switch r := req.(type) {
	case session.GetAuthStatus:
		op = "probe"
	case session.Login:
		op, body = "login", r.UserLogin
	case session.Signup:
		op, body = "signup", r.UserSignup
	case session.Logout:
		op = "logout"
	default:
		return session.State{}, fmt.Errorf("unsupported session request %T", req)
	}
	return c.sessionCall(ctx, http.MethodPost, "/api/session/"+op+"?wait=1", body)
}

// GetConfig returns the configuration the daemon is running with.
func (c *RemoteClient) GetConfig(ctx context.Context) (*RunningConfig, error) {
	resp, err := c.request(ctx, http.MethodGet, "/api/config", 0, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp, data)
	}
	var cfg RunningConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// IsRunning returns true if the daemon is available and responding.
func (c *RemoteClient) IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// StreamState subscribes to real-time updates via Server-Sent Events (SSE).
// The channel is closed when the context is cancelled or the connection is lost.
func (c *RemoteClient) StreamState(ctx context.Context, topic registry.Topic) (<-chan StateUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/api/stream?topic="+string(topic), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream request: %w", err)
	}

	// Use a separate client with no timeout for streaming
	streamTransport := &http.Transport{
		DialContext: func(dialCtx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(dialCtx, "unix", c.socketPath)
		},
	}
	streamClient := &http.Client{
		Transport: streamTransport,
		Timeout:   0,
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(resp.Body)
		return nil, decodeError(resp, data)
	}

	ch := make(chan StateUpdate, 10)

	go func() {
		defer resp.Body.Close()
		defer close(ch)
		defer streamTransport.CloseIdleConnections()

		scanner := bufio.NewScanner(resp.Body)
		// Snapshots of large collections exceed the default 64KB line limit.
		buf := make([]byte, 0, 1024*1024)
		scanner.Buffer(buf, 16*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip comments and empty lines
			if strings.HasPrefix(line, ":") || line == "" {
				continue
			}

			if strings.HasPrefix(line, "data: ") {
				var update StateUpdate
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
					continue // Skip malformed data
				}

				select {
				case ch <- update:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
