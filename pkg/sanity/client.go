// Package sanity provides a minimal HTTP client for the Sanity content API.
// It covers the query and mutation endpoints ContentGuard needs, with proxy
// support and structured error classification for the resilience layer.
package sanity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	cmserrors "ContentGuard/pkg/errors"
)

const (
	// DefaultTimeout bounds one API round trip.
	DefaultTimeout = 15 * time.Second

	// DefaultAPIVersion is the pinned Sanity API date version.
	DefaultAPIVersion = "2024-01-01"

	// UserAgent identifies ContentGuard to the Sanity API.
	UserAgent = "ContentGuard/1.0"

	// maxErrorBody caps how much of an error response body is kept.
	maxErrorBody = 2048
)

// Config holds the connection settings for one Sanity project.
type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	BaseURL    string // override for tests; empty means the hosted API
	ProxyURL   string // optional socks5/http proxy for outbound calls
	UseCDN     bool
	Timeout    time.Duration
}

// Client is a Sanity API client. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Sanity client. The proxy URL, when set, routes all
// outbound calls through a SOCKS5 or HTTP proxy.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		cfg.Dataset = "production"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient, err := createHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		host := "api.sanity.io"
		if cfg.UseCDN {
			host = "apicdn.sanity.io"
		}
		baseURL = fmt.Sprintf("https://%s.%s", cfg.ProjectID, host)
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{cfg: cfg, httpClient: httpClient, baseURL: baseURL}, nil
}

// queryResponse is the envelope of the /data/query endpoint.
type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Ms     float64         `json:"ms"`
}

// mutateResponse is the envelope of the /data/mutate endpoint.
type mutateResponse struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string `json:"id"`
		Operation string `json:"operation"`
	} `json:"results"`
}

// Fetch runs a GROQ query and unmarshals the result into dest. Params are
// bound as $-prefixed query parameters, JSON-encoded per the API contract.
func (c *Client) Fetch(ctx context.Context, operation, query string, params map[string]any, dest any) error {
	values := url.Values{}
	values.Set("query", query)
	for k, v := range params {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("sanity: encode param %s: %w", k, err)
		}
		values.Set("$"+k, string(encoded))
	}

	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s", c.baseURL, c.cfg.APIVersion, c.cfg.Dataset, values.Encode())
	body, err := c.do(ctx, operation, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	var envelope queryResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("sanity: decode query response: %w", err)
	}
	// The query endpoint answers an unmatched [0] query with 200 and a null
	// result, not a 404. Surface it as not-found so callers can classify.
	if len(envelope.Result) == 0 || bytes.Equal(envelope.Result, []byte("null")) {
		return cmserrors.NewCMSError(operation, http.StatusNotFound, fmt.Errorf("sanity: query matched no documents"))
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, dest); err != nil {
		return fmt.Errorf("sanity: decode query result: %w", err)
	}
	return nil
}

// Create creates a document and returns its generated id.
func (c *Client) Create(ctx context.Context, doc map[string]any) (string, error) {
	resp, err := c.mutate(ctx, "createDocument", []map[string]any{{"create": doc}})
	if err != nil {
		return "", err
	}
	if len(resp.Results) == 0 {
		return "", fmt.Errorf("sanity: create returned no results")
	}
	return resp.Results[0].ID, nil
}

// Patch sets fields on an existing document.
func (c *Client) Patch(ctx context.Context, id string, set map[string]any) error {
	_, err := c.mutate(ctx, "patchDocument", []map[string]any{
		{"patch": map[string]any{"id": id, "set": set}},
	})
	return err
}

// Delete removes a document by id.
func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.mutate(ctx, "deleteDocument", []map[string]any{
		{"delete": map[string]any{"id": id}},
	})
	return err
}

// Ping performs a cheap connectivity probe.
func (c *Client) Ping(ctx context.Context) error {
	var count int
	return c.Fetch(ctx, "ping", "count(*[_id == 'connectivity-probe'])", nil, &count)
}

func (c *Client) mutate(ctx context.Context, operation string, mutations []map[string]any) (*mutateResponse, error) {
	payload, err := json.Marshal(map[string]any{"mutations": mutations})
	if err != nil {
		return nil, fmt.Errorf("sanity: encode mutations: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v%s/data/mutate/%s?returnIds=true", c.baseURL, c.cfg.APIVersion, c.cfg.Dataset)
	body, err := c.do(ctx, operation, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var resp mutateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("sanity: decode mutate response: %w", err)
	}
	return &resp, nil
}

// do sends one request and classifies the outcome. Transport failures become
// network errors, non-2xx responses are classified by status code.
func (c *Client) do(ctx context.Context, operation, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("sanity: build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, cmserrors.NewCMSNetworkError(operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, cmserrors.NewCMSNetworkError(operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cmserrors.NewCMSError(operation, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), maxErrorBody)))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// createHTTPClient builds the outbound HTTP client, optionally routed
// through a SOCKS5 or HTTP proxy.
func createHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("sanity: invalid proxy URL: %w", err)
		}

		switch parsed.Scheme {
		case "socks5", "socks5h":
			dialer, err := createSOCKS5Dialer(parsed)
			if err != nil {
				return nil, fmt.Errorf("sanity: create SOCKS5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		case "http", "https":
			transport.Proxy = func(req *http.Request) (*url.URL, error) {
				return parsed, nil
			}
		default:
			return nil, fmt.Errorf("sanity: unsupported proxy scheme: %s", parsed.Scheme)
		}
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

func createSOCKS5Dialer(parsed *url.URL) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
	}
	host := parsed.Host
	if !strings.Contains(host, ":") {
		host += ":1080"
	}
	return proxy.SOCKS5("tcp", host, auth, proxy.Direct)
}
