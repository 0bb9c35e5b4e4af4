package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/strands-agents/sdk-go/pkg/types"
)

const (
	maxResponseSize = 5 * 1024 * 1024
	defaultTimeout  = 30 * time.Second
	maxTimeout      = 120 * time.Second
)

const httpRequestDescription = `Sends an HTTP request and returns the status and body.

Usage:
- url must start with http:// or https://
- method defaults to GET
- format controls how HTML bodies are returned: "markdown" (default), "text" or "html"
- Bodies over 5MB are rejected`

var httpRequestSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"method": {"type": "string", "description": "HTTP method (default GET)"},
		"url": {"type": "string", "description": "The URL to request"},
		"headers": {"type": "object", "description": "Request headers"},
		"body": {"type": "string", "description": "Request body"},
		"format": {"type": "string", "enum": ["markdown", "text", "html"], "description": "How to return HTML content"},
		"timeout": {"type": "integer", "description": "Timeout in seconds (max 120)"}
	},
	"required": ["url"]
}`)

// HTTPRequestInput represents the input for the http_request tool.
type HTTPRequestInput struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Format  string            `json:"format,omitempty"`
	Timeout int               `json:"timeout,omitempty"`
}

// NewHTTPRequestTool creates the http_request tool. client may be nil.
func NewHTTPRequestTool(client *http.Client) Tool {
	if client == nil {
		client = &http.Client{}
	}
	return NewTypedTool("http_request", httpRequestDescription, httpRequestSchema, func(ctx context.Context, in HTTPRequestInput) (*types.ToolResultBlock, error) {
		return doRequest(ctx, client, in)
	})
}

func doRequest(ctx context.Context, client *http.Client, in HTTPRequestInput) (*types.ToolResultBlock, error) {
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return nil, fmt.Errorf("URL must start with http:// or https://")
	}
	if in.Method == "" {
		in.Method = http.MethodGet
	}
	if in.Format == "" {
		in.Format = "markdown"
	}
	if in.Format != "text" && in.Format != "markdown" && in.Format != "html" {
		return nil, fmt.Errorf("format must be 'text', 'markdown', or 'html'")
	}

	timeout := defaultTimeout
	if in.Timeout > 0 {
		timeout = min(time.Duration(in.Timeout)*time.Second, maxTimeout)
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in.Body != "" {
		body = strings.NewReader(in.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, strings.ToUpper(in.Method), in.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range in.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response too large (exceeds 5MB limit)")
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(data) > maxResponseSize {
		return nil, fmt.Errorf("response too large (exceeds 5MB limit)")
	}

	content := string(data)
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		switch in.Format {
		case "markdown":
			content, err = convertHTMLToMarkdown(content)
		case "text":
			content, err = extractTextFromHTML(content)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to convert HTML: %w", err)
		}
	}

	out := fmt.Sprintf("Status: %s\n\n%s", resp.Status, content)
	if resp.StatusCode >= 400 {
		return Failure(out), nil
	}
	return Success(out), nil
}

// extractTextFromHTML extracts plain text from HTML, dropping non-content elements.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}
