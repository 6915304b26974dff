package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"testing/fstest"
	"time"

	"golang.org/x/time/rate"

	"github.com/meigma/nus3free/catalog"
	nus3 "github.com/meigma/nus3free/core"
	nushttp "github.com/meigma/nus3free/http"
	"github.com/meigma/nus3free/internal/testutil"
)

func newServer(t *testing.T, fsys fstest.MapFS) (*httptest.Server, *testutil.FaultFS) {
	t.Helper()
	faulty := testutil.NewFaultFS(fsys)
	cat, err := catalog.Discover(context.Background(), faulty)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	server := httptest.NewServer(nushttp.NewHandler(cat, catalog.NewResolver(cat)))
	t.Cleanup(server.Close)
	return server, faulty
}

func testTree() fstest.MapFS {
	return fstest.MapFS{
		"se.nus3audio/a":              {Data: testutil.Payload('a', 10)},
		"se.nus3audio/bb":             {Data: testutil.Payload('b', 20)},
		"se.nus3audio/ccc":            {Data: testutil.Payload('c', 30)},
		"stream;/bgm/x.nus3audio/loop": {Data: testutil.Payload('l', 50)},
	}
}

func get(t *testing.T, method, url string) *nethttp.Response {
	t.Helper()
	req, err := nethttp.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	resp, err := nethttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerCatalog(t *testing.T) {
	server, _ := newServer(t, testTree())

	resp := get(t, nethttp.MethodGet, server.URL+"/catalog")
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}

	var infos []nushttp.DirectoryInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	se := infos[0]
	if se.LogicalPath != "se.nus3audio" || se.Mode != "fixed" || se.ExpectedSize != 224 {
		t.Fatalf("infos[0] = %+v", se)
	}
	if se.Key != catalog.Hash40("se.nus3audio").String() {
		t.Fatalf("key = %s", se.Key)
	}
	if len(se.Files) != 3 || se.Files[0].Name != "a" || se.Files[2].Size != 30 {
		t.Fatalf("files = %+v", se.Files)
	}
	if infos[1].LogicalPath != "stream:/bgm/x.nus3audio" || infos[1].Mode != "stream" {
		t.Fatalf("infos[1] = %+v", infos[1])
	}
}

func TestHandlerContainer(t *testing.T) {
	server, _ := newServer(t, testTree())
	url := server.URL + "/containers/" + catalog.Hash40("se.nus3audio").String()

	resp := get(t, nethttp.MethodGet, url)
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(nushttp.HeaderExpectedSize); got != "224" {
		t.Fatalf("%s = %q, want 224", nushttp.HeaderExpectedSize, got)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	if len(data) != 224 {
		t.Fatalf("len(body) = %d, want 224", len(data))
	}
	if _, err := nus3.Open(data); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	head := get(t, nethttp.MethodHead, url)
	if head.StatusCode != nethttp.StatusOK {
		t.Fatalf("HEAD status = %d", head.StatusCode)
	}
	if head.Header.Get(nushttp.HeaderExpectedSize) != "224" || head.Header.Get("Content-Length") != strconv.Itoa(224) {
		t.Fatalf("HEAD headers = %v", head.Header)
	}
}

func TestHandlerStreamContainer(t *testing.T) {
	server, _ := newServer(t, testTree())

	resp := get(t, nethttp.MethodGet, server.URL+"/containers/"+catalog.Hash40("stream:/bgm/x.nus3audio").String())
	if resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(nushttp.HeaderExpectedSize); got != "" {
		t.Fatalf("%s = %q, want empty", nushttp.HeaderExpectedSize, got)
	}
	if got := resp.Header.Get(nushttp.HeaderMode); got != "stream" {
		t.Fatalf("%s = %q, want stream", nushttp.HeaderMode, got)
	}
}

func TestHandlerContainerErrors(t *testing.T) {
	server, faulty := newServer(t, testTree())
	faulty.Fail("se.nus3audio/bb", testutil.ErrInjected)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad key", "/containers/not-hex", nethttp.StatusBadRequest},
		{"unknown key", "/containers/" + catalog.Hash40("missing.nus3audio").String(), nethttp.StatusNotFound},
		{"payload failure", "/containers/" + catalog.Hash40("se.nus3audio").String(), nethttp.StatusBadGateway},
		{"wrong method", "/catalog", nethttp.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := nethttp.MethodGet
			if tt.want == nethttp.StatusMethodNotAllowed {
				method = nethttp.MethodPost
			}
			resp := get(t, method, server.URL+tt.path)
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestClient(t *testing.T) {
	server, faulty := newServer(t, testTree())
	client, err := nushttp.NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	ctx := context.Background()
	key := catalog.Hash40("se.nus3audio")

	infos, err := client.Catalog(ctx)
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(Catalog()) = %d, want 2", len(infos))
	}

	info, err := client.Stat(ctx, key)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode != catalog.ModeFixed || info.ExpectedSize != 224 || info.Size != 224 || info.ETag == "" {
		t.Fatalf("Stat() = %+v", info)
	}

	data, _, err := client.Fetch(ctx, key)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(data) != 224 {
		t.Fatalf("len(Fetch()) = %d, want 224", len(data))
	}

	rc, err := client.ReadRange(ctx, key, 0, 4)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	magic, err := io.ReadAll(rc)
	rc.Close()
	if err != nil || string(magic) != "NUS3" {
		t.Fatalf("ReadRange() = %q, %v", magic, err)
	}

	payload, err := client.Entry(ctx, key, "bb")
	if err != nil {
		t.Fatalf("Entry() error = %v", err)
	}
	if string(payload) != string(testutil.Payload('b', 20)) {
		t.Fatalf("Entry() = %q", payload)
	}

	if _, _, err := client.Fetch(ctx, catalog.Hash40("missing.nus3audio")); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("Fetch(missing) error = %v, want ErrNotFound", err)
	}

	faulty.Fail("se.nus3audio/a", testutil.ErrInjected)
	if _, _, err := client.Fetch(ctx, key); !errors.Is(err, catalog.ErrPayloadRead) {
		t.Fatalf("Fetch(broken) error = %v, want ErrPayloadRead", err)
	}
}

func TestClientOversized(t *testing.T) {
	fsys := testTree()
	server, _ := newServer(t, fsys)
	client, err := nushttp.NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	fsys["se.nus3audio/ccc"].Data = testutil.Payload('c', 300)
	_, _, err = client.Fetch(context.Background(), catalog.Hash40("se.nus3audio"))
	if !errors.Is(err, nushttp.ErrOversized) {
		t.Fatalf("Fetch() error = %v, want ErrOversized", err)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := nushttp.NewClient("not a url"); err == nil {
		t.Fatal("NewClient() error = nil, want error")
	}
}

func TestHandlerRateLimit(t *testing.T) {
	cat, err := catalog.Discover(context.Background(), testTree())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	server := httptest.NewServer(nushttp.NewHandler(cat, catalog.NewResolver(cat),
		nushttp.HandlerWithRateLimit(rate.Every(time.Hour), 1),
	))
	t.Cleanup(server.Close)
	url := server.URL + "/containers/" + catalog.Hash40("se.nus3audio").String()

	if resp := get(t, nethttp.MethodGet, url); resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("first status = %d, want 200", resp.StatusCode)
	}
	resp := get(t, nethttp.MethodGet, url)
	if resp.StatusCode != nethttp.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	if resp := get(t, nethttp.MethodGet, server.URL+"/catalog"); resp.StatusCode != nethttp.StatusOK {
		t.Fatalf("catalog status = %d, want 200", resp.StatusCode)
	}
}

func TestClientCatalogWithRetry(t *testing.T) {
	server, _ := newServer(t, testTree())
	client, err := nushttp.NewClient(server.URL, nushttp.WithRetry(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	infos, err := client.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("len(Catalog()) = %d, want 2", len(infos))
	}
}
