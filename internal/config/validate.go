package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Platform session
	if c.Platform.Username == "" {
		errs = append(errs, "PLATFORM_USERNAME is required")
	}
	if c.Platform.Cookies == "" {
		errs = append(errs, "PLATFORM_COOKIES is required")
	}
	if c.Platform.BearerToken == "" {
		errs = append(errs, "PLATFORM_BEARER_TOKEN is required")
	}
	if !strings.HasPrefix(c.Platform.BaseURL, "http://") && !strings.HasPrefix(c.Platform.BaseURL, "https://") {
		errs = append(errs, fmt.Sprintf("PLATFORM_BASE_URL must be an http(s) URL, got %q", c.Platform.BaseURL))
	}

	// Engine
	if len(c.Engine.SearchTerms) == 0 && len(c.Engine.ReplyTargets) == 0 {
		errs = append(errs, "at least one of ENGINE_SEARCH_TERMS or ENGINE_REPLY_TARGETS is required")
	}
	if c.Engine.PollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("ENGINE_POLL_INTERVAL must be positive, got %s", c.Engine.PollInterval))
	}
	if c.Engine.ReplyGuyInterval < 0 || c.Engine.FollowersInterval < 0 {
		errs = append(errs, "ENGINE_REPLYGUY_INTERVAL and ENGINE_FOLLOWERS_INTERVAL must not be negative")
	}
	for i, t := range c.Engine.ReplyTargets {
		if strings.ContainsAny(t.SearchTerm, " \t") {
			errs = append(errs, fmt.Sprintf("reply target %d: search_term must be a single handle, got %q", i, t.SearchTerm))
		}
	}
	if err := validator.New().Struct(c.Engine); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("engine: %s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, fmt.Sprintf("engine: %v", err))
		}
	}

	// Admin API
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Sprintf("AUTH_JWT_SECRET must be at least 32 characters, got %d", len(c.Auth.JWTSecret)))
	}
	if c.Auth.JWTSecret == "" {
		slog.Warn("AUTH_JWT_SECRET is empty; admin API is disabled")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	if c.Memory.SimilarityThreshold < 0 || c.Memory.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Sprintf("MEMORY_SIMILARITY_THRESHOLD must be within [0, 1], got %g", c.Memory.SimilarityThreshold))
	}

	// LLM key: warn only, replies fall back to the default response
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty; replies will use ENGINE_DEFAULT_RESPONSE")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
