package llm

import (
	"errors"
	"net/http"
	"testing"
)

func TestResolveAPIConfigOpenRouterDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_API_KEY", "test-key")
	cfg, err := resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenRouter {
		t.Fatalf("expected providerOpenRouter, got %v", cfg.Kind)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != "Blackjack Bible" {
		t.Fatalf("unexpected X-Title: %q", got)
	}
	if _, ok := cfg.ExtraHeaders["HTTP-Referer"]; ok {
		t.Fatalf("HTTP-Referer should only be sent when OPENROUTER_SITE_URL is set")
	}
	if cfg.HeaderName != "Authorization" || cfg.HeaderPrefix != "Bearer " {
		t.Fatalf("unexpected auth header %q %q", cfg.HeaderName, cfg.HeaderPrefix)
	}
}

func TestResolveAPIConfigOpenRouterOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_SITE_URL", "https://example.com/app")
	t.Setenv("OPENROUTER_TITLE", "Custom Title")
	cfg, err := resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if got := cfg.ExtraHeaders["HTTP-Referer"]; got != "https://example.com/app" {
		t.Fatalf("unexpected HTTP-Referer: %q", got)
	}
	if got := cfg.ExtraHeaders["Referer"]; got != "https://example.com/app" {
		t.Fatalf("unexpected Referer: %q", got)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != "Custom Title" {
		t.Fatalf("unexpected X-Title: %q", got)
	}
}

func TestResolveAPIConfigManualProvider(t *testing.T) {
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("LLM_PROVIDER", "openai")
	cfg, err := resolveAPIConfig("gpt-4o-mini")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenAI {
		t.Fatalf("LLM_PROVIDER should win, got %v", cfg.Kind)
	}
}

func TestResolveAPIConfigMissing(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENROUTER_MODEL", "")
	if _, err := resolveAPIConfig(""); !errors.Is(err, ErrMissingModel) {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
	if _, err := resolveAPIConfig("gpt-4o-mini"); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("expected ErrMissingKey, got %v", err)
	}
}

func TestSetHeaderPreserveCase(t *testing.T) {
	hdr := http.Header{}
	setHeaderPreserveCase(hdr, "HTTP-Referer", "https://example.com/app")
	if vals := hdr["HTTP-Referer"]; len(vals) != 1 || vals[0] != "https://example.com/app" {
		t.Fatalf("expected HTTP-Referer slice to be preserved, got %+v", vals)
	}
	if _, exists := hdr["Http-Referer"]; exists {
		t.Fatalf("unexpected canonical header variant present: %+v", hdr)
	}

	setHeaderPreserveCase(hdr, "Referer", "https://example.com/app")
	if got := hdr.Get("Referer"); got != "https://example.com/app" {
		t.Fatalf("expected Referer to be set via canonical path, got %q", got)
	}

	// Blank values should be ignored.
	setHeaderPreserveCase(hdr, "  ", "value")
	setHeaderPreserveCase(hdr, "X-Test", "   ")
	if _, exists := hdr[" "]; exists {
		t.Fatalf("expected blank header keys to be ignored")
	}
	if got := hdr.Get("X-Test"); got != "" {
		t.Fatalf("expected blank header values to be skipped, got %q", got)
	}
}
