// Package client talks to the remote error translation service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helmcode/error-translator/pkg/config"
	"github.com/helmcode/error-translator/pkg/errs"
	"github.com/helmcode/error-translator/pkg/model"
	"github.com/helmcode/error-translator/pkg/parser"
	"go.uber.org/zap"
)

const (
	translatePath      = "/translate"
	translateImagePath = "/translate-image"
	healthPath         = "/health"
	languagesPath      = "/supported-languages"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
	// MaxImageBytes caps uploads to /translate-image.
	MaxImageBytes = 10 << 20
)

// Client sends translation requests. It is safe for concurrent use and
// keeps no state between requests.
type Client struct {
	endpoint   string
	apiKey     config.Secret
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its Timeout is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func New(cfg config.ServiceConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	c := &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  "error-translator",
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks the endpoint and credential without any network call.
func (c *Client) Validate() error {
	return config.ServiceConfig{Endpoint: c.endpoint, APIKey: c.apiKey}.Validate()
}

// Send posts req to {endpoint}/translate. Failures are *errs.Error values.
// Send never retries.
func (c *Client) Send(ctx context.Context, req *model.TranslationRequest) (*model.TranslationResponse, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, translatePath, body, "application/json")
	if err != nil {
		return nil, err
	}
	return parser.ParseTranslationResponse(data)
}

// TranslateImage uploads a screenshot of an error to {endpoint}/translate-image
// as multipart form data. The service extracts the text itself; note is sent
// as the optional context field.
func (c *Client) TranslateImage(ctx context.Context, path, note string) (*model.TranslationResponse, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	img, contentType, err := ReadImage(path)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filepath.Base(path)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(img); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if note != "" {
		if err := mw.WriteField("context", note); err != nil {
			return nil, fmt.Errorf("failed to build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, translateImagePath, buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return parser.ParseTranslationResponse(data)
}

// ReadImage loads an image for upload and sniffs its content type. Files
// that are not images or exceed MaxImageBytes are rejected.
func ReadImage(path string) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("%s is larger than %d MB", filepath.Base(path), MaxImageBytes>>20)
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%s is not an image (%s)", filepath.Base(path), contentType)
	}
	return data, contentType, nil
}

// Health calls GET {endpoint}/health.
func (c *Client) Health(ctx context.Context) (*model.HealthStatus, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, healthPath, nil, "")
	if err != nil {
		return nil, err
	}
	return parser.ParseHealth(data)
}

// SupportedLanguages calls GET {endpoint}/supported-languages.
func (c *Client) SupportedLanguages(ctx context.Context) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, languagesPath, nil, "")
	if err != nil {
		return nil, err
	}
	return parser.ParseSupportedLanguages(data)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfigurationInvalid, err, "cannot build request")
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey.Value())
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(redactURL(err)),
		)
		return nil, errs.Wrap(errs.KindNetworkError, redactURL(err), "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	c.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindNetworkError, err, "reading response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, classify(resp, data)
}

// classify maps a non-2xx response onto the failure taxonomy.
func classify(resp *http.Response, body []byte) error {
	detail := parser.ParseErrorDetail(body)
	status := resp.StatusCode

	switch {
	case status == http.StatusUnauthorized:
		return &errs.Error{Kind: errs.KindUnauthorized, Message: "credential rejected", Status: status}
	case status == http.StatusTooManyRequests:
		retryAfter := retryAfterHeader(resp.Header.Get("Retry-After"), time.Now())
		if retryAfter == 0 {
			retryAfter = detail.RetryAfter
		}
		return &errs.Error{Kind: errs.KindRateLimited, Message: "rate limited", Status: status, RetryAfter: retryAfter}
	case status >= 500:
		return &errs.Error{Kind: errs.KindServerError, Message: "server error", Status: status}
	default:
		msg := detail.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &errs.Error{Kind: errs.KindAPIError, Message: msg, Status: status}
	}
}

// retryAfterHeader accepts delta-seconds or an HTTP date.
func retryAfterHeader(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now).Round(time.Second)
	}
	return 0
}

// redactURL unwraps *url.Error so the endpoint is not repeated in messages.
func redactURL(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}

// ImageSender sends every request as an upload of one image file. The
// request's user context becomes the upload's context field.
type ImageSender struct {
	client *Client
	path   string
}

// ForImage returns an ImageSender that uploads path.
func (c *Client) ForImage(path string) *ImageSender {
	return &ImageSender{client: c, path: path}
}

func (s *ImageSender) Validate() error {
	return s.client.Validate()
}

func (s *ImageSender) Send(ctx context.Context, req *model.TranslationRequest) (*model.TranslationResponse, error) {
	var note string
	if req != nil && req.Context != nil && req.Context.UserContext != nil {
		note = *req.Context.UserContext
	}
	return s.client.TranslateImage(ctx, s.path, note)
}
