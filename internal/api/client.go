// Package api talks to the remote candidate roster API.
//
// Every call returns either a decoded value or an *Error describing why the
// call failed; never both.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/khrees2412/rosterctl/pkg/models"
	"go.uber.org/zap"
)

const (
	candidatesPath = "/candidates/"
	uploadPath     = "/candidates/upload"
	resolvePath    = "/candidates/resolve-duplicates"

	// UploadField is the multipart field carrying the roster file
	UploadField = "file"

	// DefaultMaxResponseBytes caps how much of a response body is read
	DefaultMaxResponseBytes = 10 << 20
)

// Fallback messages shown when the server gives no error string
const (
	FallbackLoad    = "Failed to load candidates"
	FallbackUpload  = "Upload failed"
	FallbackResolve = "Failed to resolve duplicates"
	MessageNonJSON  = "Server returned non-JSON response"
	MessageTooLarge = "Server response too large"
)

// Kind classifies a failed call
type Kind int

const (
	KindTransport Kind = iota // request never produced a response
	KindNonJSON               // response was not JSON
	KindStatus                // non-success HTTP status
	KindDecode                // JSON body did not match the contract
	KindTooLarge              // body exceeded the response size limit
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNonJSON:
		return "non_json"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindTooLarge:
		return "too_large"
	}
	return "unknown"
}

// Error is the failure variant of every API call. Message is safe to show users.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message extracts the user-facing message from any error
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Client is an HTTP/JSON client for the roster API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
	maxBody    int64
}

// Option configures a Client
type Option func(*Client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger attaches a logger for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxResponseBytes overrides DefaultMaxResponseBytes
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient returns a client rooted at baseURL (e.g. https://host/api)
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     zap.NewNop(),
		maxBody:    DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCandidates fetches the full candidate collection
func (c *Client) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	req, err := c.newRequest(ctx, http.MethodGet, candidatesPath, nil)
	if err != nil {
		return nil, err
	}
	candidates := []models.Candidate{}
	if err := c.do(req, FallbackLoad, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// UploadRoster sends a roster file as a single-field multipart payload
func (c *Client) UploadRoster(ctx context.Context, fileName string, body io.Reader) (*models.UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(UploadField, fileName)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: FallbackUpload, Err: fmt.Errorf("create form file: %w", err)}
	}
	if body == nil {
		body = http.NoBody
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, &Error{Kind: KindTransport, Message: FallbackUpload, Err: fmt.Errorf("read roster file: %w", err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Kind: KindTransport, Message: FallbackUpload, Err: fmt.Errorf("close multipart writer: %w", err)}
	}

	req, err := c.newRequest(ctx, http.MethodPost, uploadPath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	result := &models.UploadResult{}
	if err := c.do(req, FallbackUpload, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveDuplicates submits the ordered decisions for a previous upload's duplicates
func (c *Client) ResolveDuplicates(ctx context.Context, decisions []models.Decision) (*models.ResolveResult, error) {
	payload, err := json.Marshal(decisions)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: FallbackResolve, Err: fmt.Errorf("encode decisions: %w", err)}
	}
	req, err := c.newRequest(ctx, http.MethodPost, resolvePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	result := &models.ResolveResult{}
	if err := c.do(req, FallbackResolve, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "Invalid API URL", Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and decodes a JSON body into out. A non-JSON response is a
// failure whatever its status, so HTML error pages served with 200 never
// reach the decoder.
func (c *Client) do(req *http.Request, fallback string, out any) error {
	log := c.logger.With(zap.String("method", req.Method), zap.String("url", req.URL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", zap.Error(err))
		return &Error{Kind: KindTransport, Message: transportMessage(err, fallback), Err: err}
	}
	defer resp.Body.Close()

	log = log.With(zap.Int("status", resp.StatusCode))

	// one byte past the limit tells a full body from a cut one
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		log.Warn("response too large", zap.Int64("limit", c.maxBody))
		return &Error{Kind: KindTooLarge, Status: resp.StatusCode, Message: MessageTooLarge,
			Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		log.Warn("non-JSON response", zap.String("content_type", resp.Header.Get("Content-Type")))
		return &Error{Kind: KindNonJSON, Status: resp.StatusCode, Message: MessageNonJSON}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fallback
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && strings.TrimSpace(apiErr.Error) != "" {
			msg = apiErr.Error
		}
		log.Debug("request rejected", zap.String("message", msg))
		return &Error{Kind: KindStatus, Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(body, out); err != nil {
		log.Warn("response did not match contract", zap.Error(err))
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}
	log.Debug("request complete")
	return nil
}

func transportMessage(err error, fallback string) string {
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}
	return fallback
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
