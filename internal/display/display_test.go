package display_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/trmnl-bot/internal/display"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func finalized(t *testing.T, cfg display.Config) *display.Config {
	t.Helper()
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	return &cfg
}

func TestPush_RequestShape(t *testing.T) {
	var (
		gotPath   string
		gotMethod string
		gotType   string
		gotBody   display.Payload
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := finalized(t, display.Config{APIBase: srv.URL + "/api/", PluginUUID: "plugin-123"})
	client := display.New(cfg, discard())

	if err := client.Push(context.Background(), "https://files.example/page.png"); err != nil {
		t.Fatalf("Push() failed: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/api/custom_plugins/plugin-123" {
		t.Errorf("path = %q, want %q", gotPath, "/api/custom_plugins/plugin-123")
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
	want := display.MergeVariables{ImageURL: "https://files.example/page.png", FileType: "image"}
	if gotBody.MergeVariables != want {
		t.Errorf("merge_variables = %+v, want %+v", gotBody.MergeVariables, want)
	}
}

func TestPush_ErrorStatusIsDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := display.New(finalized(t, display.Config{APIBase: srv.URL, PluginUUID: "p"}), discard())

	if err := client.Push(context.Background(), "https://files.example/a.png"); err != nil {
		t.Errorf("Push() = %v, want nil for non-2xx response", err)
	}
}

func TestPush_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := display.New(finalized(t, display.Config{APIBase: url, PluginUUID: "p"}), discard())

	err := client.Push(context.Background(), "https://files.example/a.png")
	if !errors.Is(err, display.ErrPushFailed) {
		t.Errorf("Push() error = %v, want ErrPushFailed", err)
	}
}

func TestPush_NotConfigured(t *testing.T) {
	client := display.New(finalized(t, display.Config{}), discard())

	if err := client.Push(context.Background(), "https://files.example/a.png"); !errors.Is(err, display.ErrNotConfigured) {
		t.Errorf("Push() error = %v, want ErrNotConfigured", err)
	}
}

func TestConfig_Finalize(t *testing.T) {
	t.Setenv("TEST_TRMNL_WIDTH", "800")
	t.Setenv("TEST_TRMNL_HEIGHT", "480")
	t.Setenv("TEST_TRMNL_UUID", "abc")

	cfg := &display.Config{}
	env := &display.Env{
		APIBase:    "TEST_TRMNL_API_BASE",
		PluginUUID: "TEST_TRMNL_UUID",
		Width:      "TEST_TRMNL_WIDTH",
		Height:     "TEST_TRMNL_HEIGHT",
		Timeout:    "TEST_TRMNL_TIMEOUT",
	}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.APIBase != "https://usetrmnl.com/api" {
		t.Errorf("APIBase = %q", cfg.APIBase)
	}
	if cfg.Width != 800 || cfg.Height != 480 {
		t.Errorf("size = %dx%d, want 800x480", cfg.Width, cfg.Height)
	}
	if !cfg.Configured() {
		t.Error("Configured() = false with plugin uuid set")
	}
	if cfg.TimeoutDuration().Seconds() != 10 {
		t.Errorf("TimeoutDuration() = %v, want 10s", cfg.TimeoutDuration())
	}
}

func TestConfig_Finalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  display.Config
	}{
		{"relative api base", display.Config{APIBase: "usetrmnl.com/api"}},
		{"negative width", display.Config{Width: -1}},
		{"bad timeout", display.Config{Timeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() succeeded, want error")
			}
		})
	}
}
