package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strands-agents/sdk-go/internal/logging"
	"github.com/strands-agents/sdk-go/pkg/types"
)

const defaultTimeout = 5 * time.Second

// Client manages MCP server connections using the official MCP SDK.
type Client struct {
	mu        sync.RWMutex
	servers   map[string]*mcpServer
	sdkClient *sdkmcp.Client
}

// mcpServer represents a configured MCP server.
type mcpServer struct {
	name       string
	session    *sdkmcp.ClientSession
	tools      []ToolInfo
	status     Status
	error      string
	serverInfo *ServerInfo
	timeout    time.Duration
}

// NewClient creates a new MCP client.
func NewClient() *Client {
	return &Client{
		servers: make(map[string]*mcpServer),
		sdkClient: sdkmcp.NewClient(&sdkmcp.Implementation{
			Name:    "strands",
			Version: "1.0.0",
		}, nil),
	}
}

// AddServer connects to the server described by cfg and lists its tools. A disabled server
// is recorded but not contacted. A failed server is recorded with its error.
func (c *Client) AddServer(ctx context.Context, name string, cfg types.MCPConfig) error {
	if cfg.Enabled != nil && !*cfg.Enabled {
		return c.add(name, &mcpServer{name: name, status: StatusDisabled})
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Millisecond
	}

	transports, err := transportsFor(cfg)
	if err != nil {
		c.add(name, &mcpServer{name: name, status: StatusFailed, error: err.Error()})
		return err
	}

	var lastErr error
	for _, t := range transports {
		server, err := c.connect(ctx, name, t, timeout)
		if err == nil {
			return c.add(name, server)
		}
		lastErr = err
	}

	c.add(name, &mcpServer{name: name, status: StatusFailed, error: lastErr.Error()})
	log := logging.Component("mcp")
	log.Warn().Err(lastErr).Str("server", name).Msg("failed to connect MCP server")
	return lastErr
}

// AddTransport connects to a server over an already constructed transport.
func (c *Client) AddTransport(ctx context.Context, name string, transport sdkmcp.Transport) error {
	server, err := c.connect(ctx, name, transport, defaultTimeout)
	if err != nil {
		return err
	}
	return c.add(name, server)
}

func (c *Client) add(name string, server *mcpServer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.servers[name]; ok && existing.status == StatusConnected {
		if server.session != nil {
			server.session.Close()
		}
		return fmt.Errorf("server already exists: %s", name)
	}
	c.servers[name] = server
	return nil
}

// transportsFor returns the transports to try in order.
func transportsFor(cfg types.MCPConfig) ([]sdkmcp.Transport, error) {
	switch cfg.Type {
	case TransportTypeRemote:
		if cfg.URL == "" {
			return nil, fmt.Errorf("remote server requires a url")
		}
		httpClient := httpClientWithHeaders(cfg.Headers)
		return []sdkmcp.Transport{
			&sdkmcp.StreamableClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient},
			&sdkmcp.SSEClientTransport{Endpoint: cfg.URL, HTTPClient: httpClient},
		}, nil

	case TransportTypeLocal, TransportTypeStdio, "":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		cmd.Env = os.Environ()
		for k, v := range cfg.Environment {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		return []sdkmcp.Transport{&sdkmcp.CommandTransport{Command: cmd}}, nil

	default:
		return nil, fmt.Errorf("unknown transport type: %s", cfg.Type)
	}
}

func (c *Client) connect(ctx context.Context, name string, transport sdkmcp.Transport, timeout time.Duration) (*mcpServer, error) {
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := c.sdkClient.Connect(connectCtx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	server := &mcpServer{name: name, session: session, status: StatusConnected, timeout: timeout}
	if init := session.InitializeResult(); init != nil && init.ServerInfo != nil {
		server.serverInfo = &ServerInfo{Name: init.ServerInfo.Name, Version: init.ServerInfo.Version}
	}

	if err := server.listTools(connectCtx); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	return server, nil
}

func httpClientWithHeaders(headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return &http.Client{}
	}
	return &http.Client{Transport: &headerRoundTripper{headers: headers, next: http.DefaultTransport}}
}

type headerRoundTripper struct {
	headers map[string]string
	next    http.RoundTripper
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	for k, v := range h.headers {
		cloned.Header.Set(k, v)
	}
	return h.next.RoundTrip(cloned)
}

// listTools lists available tools from the server.
func (s *mcpServer) listTools(ctx context.Context) error {
	result, err := s.session.ListTools(ctx, nil)
	if err != nil {
		return err
	}

	s.tools = make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil || string(schema) == "null" {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		s.tools = append(s.tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return nil
}

// CallTool calls tool on server and converts the outcome to a tool result. IsError results
// map onto error status.
func (c *Client) CallTool(ctx context.Context, server, tool string, args map[string]any) (*types.ToolResultBlock, error) {
	c.mu.RLock()
	s, ok := c.servers[server]
	c.mu.RUnlock()
	if !ok || s.status != StatusConnected || s.session == nil {
		return nil, fmt.Errorf("server not connected: %s", server)
	}

	if args == nil {
		args = map[string]any{}
	}
	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return nil, err
	}
	return convertResult(result), nil
}

func convertResult(result *sdkmcp.CallToolResult) *types.ToolResultBlock {
	block := &types.ToolResultBlock{Status: types.ToolResultSuccess}
	if result.IsError {
		block.Status = types.ToolResultError
	}

	for _, content := range result.Content {
		switch c := content.(type) {
		case *sdkmcp.TextContent:
			block.Content = append(block.Content, types.ToolResultContent{Text: c.Text})
		case *sdkmcp.ImageContent:
			block.Content = append(block.Content, types.ToolResultContent{Text: fmt.Sprintf("[image %s, %d bytes]", c.MIMEType, len(c.Data))})
		case *sdkmcp.EmbeddedResource:
			if c.Resource != nil {
				block.Content = append(block.Content, types.ToolResultContent{Text: c.Resource.Text})
			}
		}
	}
	if result.StructuredContent != nil {
		block.Content = append(block.Content, types.ToolResultContent{JSON: result.StructuredContent})
	}
	if len(block.Content) == 0 {
		block.Content = []types.ToolResultContent{{Text: ""}}
	}
	return block
}

// Status returns the status of all servers ordered by name.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make([]ServerStatus, 0, len(c.servers))
	for name, server := range c.servers {
		status = append(status, server.statusFor(name))
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

// GetServer returns information about a specific server.
func (c *Client) GetServer(name string) (*ServerStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	server, ok := c.servers[name]
	if !ok {
		return nil, fmt.Errorf("server not found: %s", name)
	}
	s := server.statusFor(name)
	return &s, nil
}

func (s *mcpServer) statusFor(name string) ServerStatus {
	st := ServerStatus{
		Name:       name,
		Status:     s.status,
		ToolCount:  len(s.tools),
		ServerInfo: s.serverInfo,
	}
	if s.error != "" {
		errText := s.error
		st.Error = &errText
	}
	return st
}

// RemoveServer removes and disconnects a server.
func (c *Client) RemoveServer(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	server, ok := c.servers[name]
	if !ok {
		return fmt.Errorf("server not found: %s", name)
	}
	if server.session != nil {
		server.session.Close()
	}
	delete(c.servers, name)
	return nil
}

// Close disconnects all servers.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, server := range c.servers {
		if server.session != nil {
			server.session.Close()
		}
	}
	c.servers = make(map[string]*mcpServer)
	return nil
}

// ServerCount returns the number of configured servers.
func (c *Client) ServerCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.servers)
}

// ConnectedCount returns the number of connected servers.
func (c *Client) ConnectedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, server := range c.servers {
		if server.status == StatusConnected {
			count++
		}
	}
	return count
}

// sanitizeToolName replaces non-alphanumeric chars with underscore.
func sanitizeToolName(name string) string {
	var result strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else {
			result.WriteRune('_')
		}
	}
	return result.String()
}
