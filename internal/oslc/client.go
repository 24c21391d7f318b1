// Package oslc talks to an OSLC change management service: it posts new
// defects as JSON-LD, reads the bug container and fetches compact
// representations used for link previews.
package oslc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/rs/zerolog"
)

const (
	preferCompact   = `return=representation; include="http://open-services.net/ns/core#PreferCompact"`
	preferContainer = `return=representation; include="http://www.w3.org/ns/ldp#PreferContainment http://open-services.net/ns/core#PreferDialog"`

	maxErrorBody = 4 << 10
)

// HTTPClient is the subset of *http.Client the Client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is bound to one service base URL and one bug container.
type Client struct {
	base      *url.URL
	container *url.URL
	http      HTTPClient
	log       zerolog.Logger
	converter *md.Converter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

// NewClient resolves container against baseURL.
func NewClient(baseURL, container string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q is not absolute", baseURL)
	}
	ref, err := url.Parse(container)
	if err != nil {
		return nil, fmt.Errorf("parse container: %w", err)
	}
	c := &Client{
		base:      base,
		container: base.ResolveReference(ref),
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       zerolog.Nop(),
		converter: md.NewConverter("", true, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Origin returns scheme://host[:port] of the service, the origin frame
// messages must come from.
func (c *Client) Origin() string {
	return c.base.Scheme + "://" + c.base.Host
}

// ContainerURL returns the absolute container URL.
func (c *Client) ContainerURL() string {
	return c.container.String()
}

// Resolve resolves ref against the base URL. Unparsable refs are returned as is.
func (c *Client) Resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

// CreateResource posts d to the container. Any 2xx response means the
// resource was created.
func (c *Client) CreateResource(ctx context.Context, d Draft) error {
	body, err := json.Marshal(d.Representation())
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ContainerURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ld+json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.log.Debug().Str("title", d.Title).Str("location", resp.Header.Get("Location")).Msg("resource created")
	return nil
}

// FetchCompact reads the compact representation of uri. It returns nil
// without error when the response carries no compact descriptor.
func (c *Client) FetchCompact(ctx context.Context, uri string) (*Compact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", preferCompact)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Compact *Compact `json:"compact"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode compact %s: %w", uri, err)
	}
	return payload.Compact, nil
}

// FetchListing returns the container membership as raw Turtle.
func (c *Client) FetchListing(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ContainerURL(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/turtle")
	req.Header.Set("Prefer", preferContainer)

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read listing: %w", err)
	}
	return string(data), nil
}

// FetchDocument fetches a preview document and renders it as text.
func (c *Client) FetchDocument(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Resolve(uri), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return strings.TrimSpace(string(data)), nil
	}
	text, err := c.converter.ConvertString(string(data))
	if err != nil {
		return "", fmt.Errorf("convert document: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: server returned %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: server returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}
