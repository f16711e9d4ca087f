package telegram_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mymmrac/telego"

	"github.com/JaimeStill/trmnl-bot/internal/navigation"
	"github.com/JaimeStill/trmnl-bot/internal/telegram"
)

func TestConfig_Finalize(t *testing.T) {
	t.Setenv("TEST_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TEST_TELEGRAM_TIMEOUT", "5s")

	cfg := &telegram.Config{}
	env := &telegram.Env{Token: "TEST_TELEGRAM_TOKEN", DownloadTimeout: "TEST_TELEGRAM_TIMEOUT"}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	if cfg.Token != "123:abc" {
		t.Errorf("Token = %q, want env value", cfg.Token)
	}
	if got := cfg.DownloadTimeoutDuration(); got != 5*time.Second {
		t.Errorf("DownloadTimeoutDuration() = %v, want 5s", got)
	}
}

func TestConfig_MissingToken(t *testing.T) {
	cfg := &telegram.Config{}
	err := cfg.Finalize(&telegram.Env{Token: "TEST_TELEGRAM_UNSET"})
	if !errors.Is(err, telegram.ErrMissingToken) {
		t.Errorf("Finalize() error = %v, want ErrMissingToken", err)
	}
}

func TestConfig_InvalidTimeout(t *testing.T) {
	cfg := &telegram.Config{Token: "123:abc", DownloadTimeout: "soon"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("Finalize() succeeded, want error")
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := &telegram.Config{Token: "base", DownloadTimeout: "60s"}
	cfg.Merge(&telegram.Config{Token: "overlay"})

	if cfg.Token != "overlay" || cfg.DownloadTimeout != "60s" {
		t.Errorf("Merge() = %+v", cfg)
	}
}

func TestNew_MissingToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := telegram.New(&telegram.Config{}, nil, logger); !errors.Is(err, telegram.ErrMissingToken) {
		t.Errorf("New() error = %v, want ErrMissingToken", err)
	}
}

func TestMarkup(t *testing.T) {
	kb, err := navigation.Build(2, 3, "42")
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	markup := telegram.Markup(kb)
	if markup == nil || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("Markup() = %+v, want one row", markup)
	}

	row := markup.InlineKeyboard[0]
	want := []struct{ text, data string }{
		{navigation.PrevLabel, "pdf_prev_1_3_42"},
		{"2/3", navigation.Noop},
		{navigation.NextLabel, "pdf_next_3_3_42"},
	}
	if len(row) != len(want) {
		t.Fatalf("row has %d buttons, want %d", len(row), len(want))
	}
	for i, w := range want {
		if row[i].Text != w.text || row[i].CallbackData != w.data {
			t.Errorf("button %d = %q/%q, want %q/%q", i, row[i].Text, row[i].CallbackData, w.text, w.data)
		}
	}
}

func TestMarkup_Empty(t *testing.T) {
	if got := telegram.Markup(nil); got != nil {
		t.Errorf("Markup(nil) = %+v, want nil", got)
	}
}

func TestLargestPhoto(t *testing.T) {
	sizes := []telego.PhotoSize{
		{FileID: "small", Width: 90, Height: 160},
		{FileID: "large", Width: 720, Height: 1280},
		{FileID: "medium", Width: 320, Height: 569},
	}
	if got := telegram.LargestPhoto(sizes); got != "large" {
		t.Errorf("LargestPhoto() = %q, want large", got)
	}
	if got := telegram.LargestPhoto(nil); got != "" {
		t.Errorf("LargestPhoto(nil) = %q, want empty", got)
	}
}
