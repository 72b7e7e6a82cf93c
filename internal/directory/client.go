// Package directory is the data-access layer for the client directory REST API.
//
// It lists registered client devices, probes whether the stored credential is
// accepted and renames clients. Every call is a single stateless request; nothing
// is cached and no request is retried.
package directory

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hostexposer/internal/types"
	"hostexposer/internal/version"

	"go.uber.org/zap"
)

// DefaultBasePath is the REST prefix of the client directory
const DefaultBasePath = "/api/client"

const (
	contentTypeJSON = "application/json;charset=utf-8"
	maxErrorBody    = 512
)

// AuthStatus is the outcome of the authentication probe
type AuthStatus int

const (
	NotAuthenticated AuthStatus = iota
	Authenticated
)

// String implements fmt.Stringer
func (s AuthStatus) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "not authenticated"
}

// CredentialEncoding controls how the password becomes the Basic token
type CredentialEncoding int

const (
	// EncodingBase64 sends base64(password), which is what the server compares against
	EncodingBase64 CredentialEncoding = iota
	// EncodingRaw sends the stored value verbatim, for credentials stored pre-encoded
	EncodingRaw
)

// Client talks to the client directory endpoints
type Client struct {
	baseURL     *url.URL
	basePath    string
	credentials CredentialProvider
	encoding    CredentialEncoding
	httpClient  *http.Client
	logger      *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBasePath overrides DefaultBasePath
func WithBasePath(path string) Option {
	return func(c *Client) {
		c.basePath = "/" + strings.Trim(path, "/")
	}
}

// WithCredentialEncoding selects how the credential is put in the Authorization header
func WithCredentialEncoding(enc CredentialEncoding) Option {
	return func(c *Client) {
		c.encoding = enc
	}
}

// NewClient creates a directory client for the server at baseURL
func NewClient(baseURL string, credentials CredentialProvider, opts ...Option) (*Client, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential provider is required")
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:     u,
		basePath:    DefaultBasePath,
		credentials: credentials,
		encoding:    EncodingBase64,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ListClients returns the full directory in backend order
func (c *Client) ListClients(ctx context.Context) ([]types.ClientInformation, error) {
	const op = "list clients"

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, readStatusError(op, resp)
	}

	var clients []types.ClientInformation
	if err := json.NewDecoder(resp.Body).Decode(&clients); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
	}

	return clients, nil
}

// CheckAuthenticatable probes whether the stored credential is accepted.
// Every failure, including a missing credential, is reported as NotAuthenticated.
func (c *Client) CheckAuthenticatable(ctx context.Context) AuthStatus {
	const op = "check auth"

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("auth"), nil)
	if err != nil {
		c.logger.Debug("Auth probe not sent", zap.Error(err))
		return NotAuthenticated
	}

	resp, err := c.do(op, req)
	if err != nil {
		c.logger.Debug("Auth probe failed", zap.Error(err))
		return NotAuthenticated
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if !isSuccess(resp.StatusCode) {
		c.logger.Debug("Auth probe rejected", zap.Int("status", resp.StatusCode))
		return NotAuthenticated
	}

	return Authenticated
}

// RenameClient sets the display name of a client. The caller re-fetches to
// observe the change.
func (c *Client) RenameClient(ctx context.Context, clientID, newName string) error {
	const op = "rename client"

	body, err := json.Marshal(types.RenameRequest{NewName: newName})
	if err != nil {
		return fmt.Errorf("%s: failed to marshal body: %w", op, err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.endpoint(clientID), body)
	if err != nil {
		return err
	}

	resp, err := c.do(op, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("%w: %w", ErrRenameFailed, readStatusError(op, resp))
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// endpoint resolves the base path plus segments. Each segment is escaped as a
// single path element and never cleaned.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := c.baseURL.JoinPath(c.basePath)
	raw := strings.TrimSuffix(u.EscapedPath(), "/")
	u.Path = strings.TrimSuffix(u.Path, "/")
	for _, seg := range segments {
		u.Path += "/" + seg
		raw += "/" + escapeSegment(seg)
	}
	u.RawPath = raw
	return u
}

// escapeSegment percent-encodes seg; "." and ".." are encoded too so they are
// not read as dot segments.
func escapeSegment(seg string) string {
	if seg == "." || seg == ".." {
		return strings.ReplaceAll(seg, ".", "%2E")
	}
	return url.PathEscape(seg)
}

// newRequest builds an authorized request. It fails before touching the
// network when no credential is available.
func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body []byte) (*http.Request, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Authorization", "Basic "+token)
	req.Header.Set("User-Agent", version.UserAgent("directory"))

	return req, nil
}

func (c *Client) token() (string, error) {
	password, err := c.credentials.Password()
	if err != nil {
		if errors.Is(err, ErrMissingCredential) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrMissingCredential, err)
	}
	if password == "" {
		return "", ErrMissingCredential
	}

	if c.encoding == EncodingRaw {
		return password, nil
	}
	return base64.StdEncoding.EncodeToString([]byte(password)), nil
}

func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrNetworkFailure, err)
	}

	c.logger.Debug("Directory request completed",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	return resp, nil
}

func readStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
