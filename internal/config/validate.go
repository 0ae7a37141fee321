package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var recognizedBackends = map[string]bool{
	"fs":       true,
	"postgres": true,
}

var recognizedReviewModes = map[string]bool{
	"console": true,
	"auto":    true,
}

// Validate checks a Config for structural and semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if !recognizedBackends[cfg.Store.Backend] {
		errs = append(errs, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unrecognized backend %q (want fs or postgres)", cfg.Store.Backend),
		})
	}
	if cfg.Store.Backend == "postgres" && cfg.Store.PostgresDSN == "" {
		errs = append(errs, ValidationError{
			Field:   "store.postgres_dsn",
			Message: "is required for the postgres backend",
		})
	}

	if cfg.Agent.Command == "" {
		errs = append(errs, ValidationError{Field: "agent.command", Message: "is required"})
	}
	if cfg.Agent.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Agent.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "agent.timeout",
				Message: fmt.Sprintf("invalid duration %q", cfg.Agent.Timeout),
			})
		}
	}

	if !recognizedReviewModes[cfg.Review.Mode] {
		errs = append(errs, ValidationError{
			Field:   "review.mode",
			Message: fmt.Sprintf("unrecognized mode %q (want console or auto)", cfg.Review.Mode),
		})
	}
	if cfg.Review.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Review.Timeout); err != nil {
			errs = append(errs, ValidationError{
				Field:   "review.timeout",
				Message: fmt.Sprintf("invalid duration %q", cfg.Review.Timeout),
			})
		}
	}

	return errs
}
