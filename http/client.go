package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shouni/go-http-kit/pkg/httpkit"

	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
	"github.com/meigma/nus3free/internal/sizing"
)

// ErrOversized is returned when a fixed container is larger than its
// advertised expected size.
var ErrOversized = errors.New("http: container exceeds expected size")

// Client reads catalogs and containers from a Handler.
type Client struct {
	base    *url.URL
	client  *nethttp.Client
	headers nethttp.Header
	retry   *httpkit.Client // nil = no retries
}

// Option configures a Client.
type Option func(*Client)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(c *Client) {
		if headers == nil {
			return
		}
		c.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(nethttp.Header)
		}
		c.headers.Set(key, value)
	}
}

// WithRetry retries catalog listings on transient failures, giving up
// after timeout. Container requests are never retried.
func WithRetry(timeout time.Duration) Option {
	return func(c *Client) {
		c.retry = httpkit.New(timeout)
	}
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("http: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("http: base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:   base,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = nethttp.DefaultClient
	}
	return c, nil
}

// Catalog lists every directory served by the remote.
func (c *Client) Catalog(ctx context.Context) ([]DirectoryInfo, error) {
	body, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	var infos []DirectoryInfo
	if err := json.Unmarshal(body, &infos); err != nil {
		return nil, fmt.Errorf("http: decode catalog: %w", err)
	}
	return infos, nil
}

func (c *Client) fetchCatalog(ctx context.Context) ([]byte, error) {
	if c.retry != nil {
		req, err := c.newRequest(ctx, nethttp.MethodGet, "catalog", nil)
		if err != nil {
			return nil, err
		}
		body, err := c.retry.DoRequest(req)
		if err != nil {
			return nil, fmt.Errorf("http: catalog request failed: %w", err)
		}
		return body, nil
	}

	resp, err := c.do(ctx, nethttp.MethodGet, "catalog", nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)

	if resp.StatusCode != nethttp.StatusOK {
		return nil, fmt.Errorf("http: catalog request failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Stat returns the metadata of the container for key without its body.
func (c *Client) Stat(ctx context.Context, key catalog.Key) (ContainerInfo, error) {
	resp, err := c.do(ctx, nethttp.MethodHead, containerPath(key), nil)
	if err != nil {
		return ContainerInfo{}, err
	}
	defer drain(resp)

	if err := checkStatus(resp, key, nethttp.StatusOK); err != nil {
		return ContainerInfo{}, err
	}
	return parseContainerInfo(key, resp)
}

// Fetch returns the container for key. A fixed container larger than its
// expected size fails with ErrOversized.
func (c *Client) Fetch(ctx context.Context, key catalog.Key) ([]byte, ContainerInfo, error) {
	resp, err := c.do(ctx, nethttp.MethodGet, containerPath(key), nil)
	if err != nil {
		return nil, ContainerInfo{}, err
	}
	defer drain(resp)

	if err := checkStatus(resp, key, nethttp.StatusOK); err != nil {
		return nil, ContainerInfo{}, err
	}
	info, err := parseContainerInfo(key, resp)
	if err != nil {
		return nil, ContainerInfo{}, err
	}

	var limit uint64
	if info.Mode == catalog.ModeFixed {
		if info.Size > 0 && uint64(info.Size) > info.ExpectedSize {
			return nil, info, fmt.Errorf("%w: %d > %d", ErrOversized, info.Size, info.ExpectedSize)
		}
		limit = info.ExpectedSize
	}
	data, err := sizing.ReadAllWithLimit(resp.Body, limit, ErrOversized)
	if err != nil {
		return nil, info, err
	}
	return data, info, nil
}

// ReadRange returns a reader for length bytes of the container for key
// starting at off.
func (c *Client) ReadRange(ctx context.Context, key catalog.Key, off, length int64) (io.ReadCloser, error) {
	if length < 0 {
		return nil, fmt.Errorf("read range length %d: negative length", length)
	}
	if off < 0 {
		return nil, fmt.Errorf("read range %d: negative offset", off)
	}
	if length == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	hdr := nethttp.Header{}
	hdr.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+length-1))
	resp, err := c.do(ctx, nethttp.MethodGet, containerPath(key), hdr)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusRequestedRangeNotSatisfiable:
		drain(resp)
		return io.NopCloser(bytes.NewReader(nil)), io.EOF
	default:
		err := checkStatus(resp, key, nethttp.StatusPartialContent)
		drain(resp)
		return nil, err
	}

	return &rangeReadCloser{
		body:   resp.Body,
		reader: io.LimitReader(resp.Body, length),
	}, nil
}

// Entry fetches the container for key and returns the payload of the entry
// named name.
func (c *Client) Entry(ctx context.Context, key catalog.Key, name string) ([]byte, error) {
	data, _, err := c.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	ctr, err := nus3.Open(data)
	if err != nil {
		return nil, err
	}
	e, ok := ctr.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: entry %q in %s", catalog.ErrNotFound, name, key)
	}
	return e.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, extra nethttp.Header) (*nethttp.Response, error) {
	req, err := c.newRequest(ctx, method, path, extra)
	if err != nil {
		return nil, err
	}
	return c.client.Do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, extra nethttp.Header) (*nethttp.Request, error) {
	u := c.base.JoinPath(path)
	req, err := nethttp.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	for key, values := range extra {
		req.Header[key] = values
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

func containerPath(key catalog.Key) string {
	return "containers/" + key.String()
}

func checkStatus(resp *nethttp.Response, key catalog.Key, want int) error {
	switch resp.StatusCode {
	case want:
		return nil
	case nethttp.StatusNotFound:
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, key)
	case nethttp.StatusBadGateway:
		return fmt.Errorf("%w: %s: %s", catalog.ErrPayloadRead, key, resp.Status)
	default:
		return fmt.Errorf("http: container request failed: %s", resp.Status)
	}
}

func parseContainerInfo(key catalog.Key, resp *nethttp.Response) (ContainerInfo, error) {
	info := ContainerInfo{
		Key:         key,
		LogicalPath: resp.Header.Get(HeaderLogicalPath),
		Size:        resp.ContentLength,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
	}
	switch mode := resp.Header.Get(HeaderMode); mode {
	case catalog.ModeFixed.String():
		info.Mode = catalog.ModeFixed
		expected, err := strconv.ParseUint(resp.Header.Get(HeaderExpectedSize), 10, 64)
		if err != nil {
			return ContainerInfo{}, fmt.Errorf("http: invalid %s header: %w", HeaderExpectedSize, err)
		}
		info.ExpectedSize = expected
	case catalog.ModeStream.String():
		info.Mode = catalog.ModeStream
	default:
		return ContainerInfo{}, fmt.Errorf("http: invalid %s header %q", HeaderMode, mode)
	}
	return info, nil
}

func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

type rangeReadCloser struct {
	body   io.ReadCloser
	reader io.Reader
}

func (r *rangeReadCloser) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *rangeReadCloser) Close() error {
	_, _ = io.Copy(io.Discard, r.body)
	return r.body.Close()
}
