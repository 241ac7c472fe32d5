// Package crx provides the HTTP transport for the CQ/AEM administrative
// API: Basic-authenticated GET and form POST against the package manager,
// the authorizable POST servlet, and the OSGi web console, plus native
// multipart upload for package binaries.
package crx

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// snippetLimit caps how much of a response body is carried into error
// context.
const snippetLimit = 512

// Transport defines the HTTP operations the resource modules need.
type Transport interface {
	// Get issues an authenticated GET. A query string may be included in
	// the path. Non-2xx statuses are returned in the Response, not as an
	// error; errors are reserved for transport-level failures.
	Get(ctx context.Context, path string) (*Response, error)

	// GetAs issues a GET authenticated with the supplied credentials
	// instead of the configured ones.
	GetAs(ctx context.Context, path, user, password string) (*Response, error)

	// PostForm issues an authenticated form-encoded POST.
	PostForm(ctx context.Context, path string, form url.Values) (*Response, error)

	// PostFile issues an authenticated multipart POST streaming the file
	// at filePath under fileField, with the remaining fields as plain
	// form parts.
	PostFile(ctx context.Context, path string, fields map[string]string, fileField, filePath string) (*Response, error)

	// Config returns the connection configuration in use.
	Config() Config
}

// Response is the outcome of one HTTP exchange.
type Response struct {
	// Status is the HTTP status code.
	Status int

	// Body is the full response body.
	Body []byte
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Snippet returns the body truncated for error context.
func (r *Response) Snippet() string {
	s := strings.TrimSpace(string(r.Body))
	if len(s) > snippetLimit {
		return s[:snippetLimit]
	}
	return s
}

// Client is the standard Transport implementation.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

// NewClient creates a client for the given connection configuration.
func NewClient(cfg Config, log zerolog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  log.With().Str("component", "crx").Str("host", cfg.Host).Logger(),
	}, nil
}

// Config returns the connection configuration in use.
func (c *Client) Config() Config {
	return c.cfg
}

// Get issues an authenticated GET against path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, "", nil, c.cfg.User, c.cfg.Password)
}

// GetAs issues a GET with explicit credentials. Used by the password module
// to probe whether a candidate password already works.
func (c *Client) GetAs(ctx context.Context, path, user, password string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, "", nil, user, password)
}

// PostForm issues an authenticated form-encoded POST against path.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values) (*Response, error) {
	body := strings.NewReader(form.Encode())
	return c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", body, c.cfg.User, c.cfg.Password)
}

// PostFile issues an authenticated multipart POST streaming filePath.
func (c *Client) PostFile(ctx context.Context, path string, fields map[string]string, fileField, filePath string) (*Response, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Package binaries can be large; stream the multipart body through a
	// pipe rather than buffering it.
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() {
			if werr != nil {
				pw.CloseWithError(werr)
				return
			}
			pw.Close()
		}()
		for k, v := range fields {
			if werr = writer.WriteField(k, v); werr != nil {
				return
			}
		}
		part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			werr = err
			return
		}
		if _, werr = io.Copy(part, file); werr != nil {
			return
		}
		werr = writer.Close()
	}()

	return c.do(ctx, http.MethodPost, path, writer.FormDataContentType(), pr, c.cfg.User, c.cfg.Password)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, user, password string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL()+path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(user, password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.log.Debug().Str("method", method).Str("path", path).Msg("issuing request")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("request complete")

	return &Response{Status: resp.StatusCode, Body: data}, nil
}
