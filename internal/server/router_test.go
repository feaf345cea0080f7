package server

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/any-cache/internal/archive"
	"github.com/any-hub/any-cache/internal/cache"
)

func TestHealthzReportsStore(t *testing.T) {
	app, store := newTestApp(t, 5080)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}
	if reqID := resp.Header.Get("X-Request-ID"); reqID == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(store.Root())) {
		t.Fatalf("expected store root in body, got %s", string(body))
	}
}

func TestFallbackReturns404OutsideDiagnostics(t *testing.T) {
	app, _ := newTestApp(t, 5080)
	RegisterFallback(app, discardLogger())

	resp, err := app.Test(httptest.NewRequest("GET", "/v2/", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 status, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"not_found"`)) {
		t.Fatalf("expected not_found error, got %s", string(body))
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	app, _ := newTestApp(t, 5080)

	first, err := app.Test(httptest.NewRequest("GET", "/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	second, err := app.Test(httptest.NewRequest("GET", "/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if first.Header.Get("X-Request-ID") == second.Header.Get("X-Request-ID") {
		t.Fatalf("expected distinct request ids")
	}
}

func TestNewAppRequiresDependencies(t *testing.T) {
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	cases := []struct {
		name string
		opts AppOptions
	}{
		{"missing logger", AppOptions{Store: store, Method: archive.MethodGzip, ListenPort: 5080}},
		{"missing store", AppOptions{Logger: discardLogger(), Method: archive.MethodGzip, ListenPort: 5080}},
		{"bad port", AppOptions{Logger: discardLogger(), Store: store, Method: archive.MethodGzip}},
		{"unknown method", AppOptions{Logger: discardLogger(), Store: store, Method: "brotli", ListenPort: 5080}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewApp(tc.opts); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func newTestApp(t *testing.T, port int) (*fiber.App, cache.Store) {
	t.Helper()

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	app, err := NewApp(AppOptions{
		Logger:     discardLogger(),
		Store:      store,
		Method:     archive.MethodGzip,
		ListenPort: port,
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app, store
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
