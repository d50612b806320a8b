package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/linemaint/internal/logger"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultAPIPrefix = "/api/v1"
	DefaultTimeout   = 30 * time.Second

	uploadField = "file"
)

// Config holds the connection settings for Client.
type Config struct {
	BaseURL   string
	APIPrefix string
	Timeout   time.Duration
	Headers   map[string]string
}

// DefaultConfig returns the settings used for a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		APIPrefix: DefaultAPIPrefix,
		Timeout:   DefaultTimeout,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sends requests through hc instead of a fresh http.Client.
// hc is shared, not copied: Config.Timeout is applied to it only when
// hc.Timeout is zero.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = resty.NewWithClient(hc)
	}
}

// WithLogger sets the logger used when a request context carries none.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// File is one part of a multipart upload.
type File struct {
	Name   string
	Reader io.Reader
}

// Client talks JSON to the maintenance API and reports every failure as an
// *APIError. Requests are never retried. A Client is safe for concurrent use.
type Client struct {
	client  *resty.Client
	log     *logger.Logger
	baseURL string
	prefix  string
}

// New creates a Client.
// Parameters:
//   - cfg: connection settings; empty fields fall back to DefaultConfig.
//   - opts: optional overrides.
// Returns:
//   - *Client: ready-to-use client.
func New(cfg Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = def.APIPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	c := &Client{
		log:     logger.GetDefault(),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		prefix:  strings.Trim(cfg.APIPrefix, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = resty.New()
	}
	if c.client.GetClient().Timeout == 0 {
		c.client.SetTimeout(cfg.Timeout)
	}
	c.client.SetRetryCount(0)
	c.client.SetLogger(c.log)
	if len(cfg.Headers) > 0 {
		c.client.SetHeaders(cfg.Headers)
	}
	return c
}

// URL returns the absolute URL for an endpoint path.
func (c *Client) URL(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	if c.prefix == "" {
		return c.baseURL + endpoint
	}
	return c.baseURL + "/" + c.prefix + endpoint
}

// Get issues a GET with optional query parameters and decodes the JSON
// response into result. A nil result discards the body.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, result any) error {
	return c.do(ctx, request{method: http.MethodGet, endpoint: endpoint, params: params, result: result})
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body, result any) error {
	return c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, body: body, result: result})
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, endpoint string, body, result any) error {
	return c.do(ctx, request{method: http.MethodPatch, endpoint: endpoint, body: body, result: result})
}

// Delete issues a DELETE. An empty response leaves result untouched.
func (c *Client) Delete(ctx context.Context, endpoint string, result any) error {
	return c.do(ctx, request{method: http.MethodDelete, endpoint: endpoint, result: result})
}

// Upload posts file as the multipart field "file". The multipart content
// type, including its boundary, is left to the transport.
func (c *Client) Upload(ctx context.Context, endpoint string, file File, result any) error {
	if file.Reader == nil {
		return internalError(errors.New("upload file has no content"))
	}
	return c.do(ctx, request{method: http.MethodPost, endpoint: endpoint, file: &file, result: result})
}

type request struct {
	method   string
	endpoint string
	params   url.Values
	body     any
	file     *File
	result   any
}

func (c *Client) do(ctx context.Context, r request) error {
	if ctx == nil {
		ctx = context.Background()
	}
	target := c.URL(r.endpoint)
	log := c.loggerFor(ctx).WithFields(logger.Fields{
		logger.FieldMethod: r.method,
		logger.FieldURL:    target,
	})

	req := c.client.R().SetContext(ctx)
	if len(r.params) > 0 {
		req.SetQueryParamsFromValues(r.params)
	}
	verb := "Request"
	switch {
	case r.file != nil:
		verb = "Upload"
		req.SetFileReader(uploadField, r.file.Name, r.file.Reader)
	case r.body != nil:
		req.SetHeader("Content-Type", "application/json").SetBody(r.body)
	}

	start := time.Now()
	resp, err := req.Execute(r.method, target)
	if err != nil {
		apiErr := classifyTransportError(ctx, err)
		log.WithError(err).WithField("kind", apiErr.Kind.String()).Warn("request failed")
		return apiErr
	}

	log = log.WithFields(logger.Fields{
		logger.FieldStatus:     resp.StatusCode(),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	})
	if err := decodeResponse(resp.StatusCode(), resp.Header().Get("Content-Type"), resp.Body(), verb, r.result); err != nil {
		log = log.WithField("kind", err.Kind.String())
		// 4xx answers are the caller's to report; only server and client faults warn.
		if err.Status >= 400 && err.Status < 500 {
			log.Debugf("request rejected: %s", err.Message)
		} else {
			log.Warnf("request failed: %s", err.Message)
		}
		return err
	}
	log.Debug("request completed")
	return nil
}

func (c *Client) loggerFor(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != logger.GetDefault() {
		return l
	}
	return c.log
}

// classifyTransportError splits failures that produced no response. A
// canceled or expired caller context is the caller's doing, not the network's.
func classifyTransportError(ctx context.Context, err error) *APIError {
	if ctx.Err() != nil {
		return internalError(err)
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return networkError(err)
	}
	return internalError(err)
}

func decodeResponse(status int, contentType string, body []byte, verb string, result any) *APIError {
	success := status >= 200 && status < 300
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		if !success {
			return opaqueError(status, verb)
		}
		return nil
	}
	if !success {
		return rejectedError(status, body, verb)
	}
	if result == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return internalError(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// rejectedError reads the server's error body. The structured detail is the
// "error" member when present, otherwise the whole body.
func rejectedError(status int, body []byte, verb string) *APIError {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return opaqueError(status, verb)
	}

	raw := json.RawMessage(body)
	var detail ErrorDetail
	if obj, ok := parsed.(map[string]any); ok {
		switch inner := obj["error"].(type) {
		case string:
			detail.Message = inner
		case map[string]any:
			raw, _ = json.Marshal(inner)
		}
		if detail.Message == "" {
			// mistyped members are left empty
			_ = json.Unmarshal(raw, &detail)
		}
	}
	detail.Raw = raw

	message := strings.TrimSpace(detail.Message)
	if message == "" {
		message = fmt.Sprintf("%s failed with status %d", verb, status)
	}
	return &APIError{
		Status:  status,
		Detail:  detail,
		Message: message,
		Kind:    KindServerRejected,
	}
}
