package llm

import (
	"errors"
	"net/http"
	"os"
	"strings"
)

type providerKind int

const (
	providerOpenAI providerKind = iota
	providerOpenRouter
)

const (
	defaultOpenAIBase     = "https://api.openai.com/v1"
	defaultOpenRouterBase = "https://openrouter.ai/api/v1"
	defaultTitle          = "Blackjack Bible"
)

var (
	ErrMissingKey   = errors.New("API key missing: set OPENAI_API_KEY or OPENROUTER_API_KEY")
	ErrMissingModel = errors.New("model missing: set OPENAI_MODEL/OPENROUTER_MODEL or pass a value")
)

type apiConfig struct {
	Kind         providerKind
	APIKey       string
	Model        string
	BaseURL      string
	HeaderName   string
	HeaderPrefix string
	Organization string
	ExtraHeaders map[string]string
}

// resolveAPIConfig works out provider, key, base URL and headers from the
// environment. An explicit model wins over OPENAI_MODEL/OPENROUTER_MODEL and
// LLM_PROVIDER wins over every heuristic.
func resolveAPIConfig(model string) (apiConfig, error) {
	cfg := apiConfig{
		Model:        strings.TrimSpace(model),
		ExtraHeaders: map[string]string{},
	}
	cfg.Kind = providerOpenAI
	if preferOpenRouterEnv() {
		cfg.Kind = providerOpenRouter
	}

	manual := false
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LLM_PROVIDER"))) {
	case "openrouter":
		cfg.Kind, manual = providerOpenRouter, true
	case "openai":
		cfg.Kind, manual = providerOpenAI, true
	}

	if cfg.Model == "" {
		if cfg.Kind == providerOpenRouter {
			cfg.Model = firstNonEmpty(os.Getenv("OPENROUTER_MODEL"), os.Getenv("OPENAI_MODEL"))
		} else {
			cfg.Model = firstNonEmpty(os.Getenv("OPENAI_MODEL"), os.Getenv("OPENROUTER_MODEL"))
		}
	}
	if cfg.Model == "" {
		return apiConfig{}, ErrMissingModel
	}
	if !manual && strings.Contains(strings.ToLower(cfg.Model), "openrouter/") {
		cfg.Kind = providerOpenRouter
	}

	base := firstNonEmpty(
		os.Getenv("OPENAI_API_BASE"),
		os.Getenv("OPENAI_BASE_URL"),
		os.Getenv("OPENROUTER_API_BASE"),
		os.Getenv("OPENROUTER_BASE_URL"),
	)
	if base == "" {
		base = defaultOpenAIBase
		if cfg.Kind == providerOpenRouter {
			base = defaultOpenRouterBase
		}
	}
	cfg.BaseURL = strings.TrimRight(base, "/")
	if !manual && strings.Contains(strings.ToLower(cfg.BaseURL), "openrouter") {
		cfg.Kind = providerOpenRouter
	}

	openAIKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	openRouterKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if cfg.Kind == providerOpenRouter {
		cfg.APIKey = firstNonEmpty(openRouterKey, openAIKey)
	} else {
		cfg.APIKey = firstNonEmpty(openAIKey, openRouterKey)
	}
	if cfg.APIKey == "" {
		return apiConfig{}, ErrMissingKey
	}

	cfg.HeaderName = firstNonEmpty(os.Getenv("OPENAI_API_KEY_HEADER"), os.Getenv("OPENROUTER_API_KEY_HEADER"), "Authorization")
	cfg.HeaderPrefix = os.Getenv("OPENAI_API_KEY_PREFIX")
	if cfg.HeaderPrefix == "" {
		cfg.HeaderPrefix = os.Getenv("OPENROUTER_API_KEY_PREFIX")
	}
	if cfg.HeaderName == "Authorization" && strings.TrimSpace(cfg.HeaderPrefix) == "" {
		cfg.HeaderPrefix = "Bearer "
	}
	cfg.Organization = strings.TrimSpace(os.Getenv("OPENAI_ORG"))

	if cfg.Kind == providerOpenRouter {
		if v := strings.TrimSpace(os.Getenv("OPENROUTER_SITE_URL")); v != "" {
			cfg.ExtraHeaders["HTTP-Referer"] = v
			cfg.ExtraHeaders["Referer"] = v
		}
		cfg.ExtraHeaders["X-Title"] = firstNonEmpty(os.Getenv("OPENROUTER_TITLE"), defaultTitle)
	}
	return cfg, nil
}

// applyHeaders sets auth and provider headers on an outgoing request.
func (cfg apiConfig) applyHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set(cfg.HeaderName, cfg.HeaderPrefix+cfg.APIKey)
	if cfg.Organization != "" {
		h.Set("OpenAI-Organization", cfg.Organization)
	}
	for k, v := range cfg.ExtraHeaders {
		setHeaderPreserveCase(h, k, v)
	}
}

// setHeaderPreserveCase keeps OpenRouter's "HTTP-Referer" spelling, which
// Header.Set would canonicalize to "Http-Referer".
func setHeaderPreserveCase(h http.Header, key, value string) {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" || value == "" {
		return
	}
	if http.CanonicalHeaderKey(key) == key {
		h.Set(key, value)
		return
	}
	h[key] = []string{value}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// PreferOpenRouter reports whether the environment points at OpenRouter.
func PreferOpenRouter() bool {
	return preferOpenRouterEnv()
}

func preferOpenRouterEnv() bool {
	set := func(k string) bool { return strings.TrimSpace(os.Getenv(k)) != "" }
	if set("OPENROUTER_API_KEY") && !set("OPENAI_API_KEY") {
		return true
	}
	if set("OPENROUTER_MODEL") && !set("OPENAI_MODEL") {
		return true
	}
	if set("OPENROUTER_API_BASE") || set("OPENROUTER_BASE_URL") {
		return true
	}
	for _, k := range []string{"OPENAI_API_BASE", "OPENAI_BASE_URL"} {
		if strings.Contains(strings.ToLower(os.Getenv(k)), "openrouter") {
			return true
		}
	}
	return false
}

func envWithFallback(preferOpenRouter bool, openAIKey, openRouterKey string) string {
	if preferOpenRouter {
		return firstNonEmpty(os.Getenv(openRouterKey), os.Getenv(openAIKey))
	}
	return firstNonEmpty(os.Getenv(openAIKey), os.Getenv(openRouterKey))
}
