package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
)

// Error codes carried by APIError
const (
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUpstreamError       = "UPSTREAM_ERROR"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUnexpectedResponse  = "UNEXPECTED_RESPONSE"
)

var (
	ErrNoToken             = errors.New("no bearer token available")
	ErrUnexpectedResponse  = errors.New("unexpected response shape")
	ErrUpstreamUnavailable = errors.New("dashboard API unreachable")
)

const maxResponseBytes = 8 << 20

// APIError is the single shape every dashboard API failure is normalized into
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"` // per-field messages of a rejected form
	Err     error             `json:"-"`
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError extracts the normalized error, wrapping anything else with fallback as its message
func AsAPIError(err error, fallback string) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &APIError{Code: CodeUpstreamError, Message: fallback, Err: err}
}

// IsAuthError reports whether the failure means the session is not (or no longer) valid
func IsAuthError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeAuthRequired || apiErr.Code == CodeUnauthorized
}

// IsNotFound reports whether the upstream answered 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeNotFound
}

// TokenSource hands out the current bearer token; "" means signed out
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a function to TokenSource
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string {
	return f()
}

// APIClient is the shared transport for every dashboard resource client
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
	tokens     TokenSource
}

func NewAPIClient(baseURL string, timeout time.Duration, tokens TokenSource) *APIClient {
	if timeout <= 0 {
		timeout = utils.DefaultUpstreamTimeout
	}
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

type apiRequest struct {
	method   string
	path     string
	query    url.Values
	body     any
	form     *multipartForm
	public   bool
	fallback string
}

// multipartForm is sent instead of a JSON body for endpoints that take uploads
type multipartForm struct {
	fields map[string]string
	files  map[string]*models.Upload
}

func (f *multipartForm) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range slices.Sorted(maps.Keys(f.fields)) {
		if err := w.WriteField(name, f.fields[name]); err != nil {
			return nil, "", err
		}
	}
	for _, name := range slices.Sorted(maps.Keys(f.files)) {
		upload := f.files[name]
		if upload == nil {
			continue
		}
		part, err := w.CreateFormFile(name, upload.Filename)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(upload.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// serverError is the error body the dashboard API answers with
type serverError struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Errors  json.RawMessage `json:"errors"`
}

// fieldErrors returns the per-field messages of a rejected form, if the body carries any
func (s serverError) fieldErrors() map[string]string {
	if len(s.Errors) == 0 {
		return nil
	}
	var fields map[string]string
	if err := json.Unmarshal(s.Errors, &fields); err != nil || len(fields) == 0 {
		return nil
	}
	return fields
}

func (s serverError) errorText() string {
	if len(s.Error) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(s.Error, &text); err == nil {
		return text
	}
	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(s.Error, &nested); err == nil {
		return nested.Message
	}
	return ""
}

func (c *APIClient) do(ctx context.Context, r apiRequest, out any) error {
	var token string
	if !r.public {
		if c.tokens != nil {
			token = c.tokens.Token()
		}
		if token == "" {
			return &APIError{
				Status:  http.StatusUnauthorized,
				Code:    CodeAuthRequired,
				Message: "Authentication required. Please log in.",
				Err:     ErrNoToken,
			}
		}
	}

	endpoint := c.BaseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.form != nil:
		encoded, ct, err := r.form.encode()
		if err != nil {
			return &APIError{Code: CodeBadRequest, Message: r.fallback, Err: fmt.Errorf("failed to encode form: %w", err)}
		}
		body, contentType = encoded, ct
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return &APIError{Code: CodeBadRequest, Message: r.fallback, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return &APIError{Code: CodeBadRequest, Message: r.fallback, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", utils.BearerPrefix+token)
	}
	if reqID := utils.StringFromContext(ctx, utils.RequestIDKey); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &APIError{
			Code:    CodeUpstreamUnavailable,
			Message: r.fallback,
			Err:     fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &APIError{Status: resp.StatusCode, Code: CodeUpstreamUnavailable, Message: r.fallback, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var se serverError
		_ = json.Unmarshal(raw, &se)
		return &APIError{
			Status:  resp.StatusCode,
			Code:    codeForStatus(resp.StatusCode),
			Message: utils.FirstNonEmpty(se.Message, se.errorText(), r.fallback),
			Fields:  se.fieldErrors(),
			Err:     fmt.Errorf("%s %s answered %d", r.method, r.path, resp.StatusCode),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			return unexpected(r, "empty body")
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return unexpected(r, err.Error())
	}
	return nil
}

func unexpected(r apiRequest, detail string) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    CodeUnexpectedResponse,
		Message: r.fallback,
		Err:     fmt.Errorf("%w from %s %s: %s", ErrUnexpectedResponse, r.method, r.path, detail),
	}
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status >= 400 && status < 500:
		return CodeBadRequest
	default:
		return CodeUpstreamError
	}
}
