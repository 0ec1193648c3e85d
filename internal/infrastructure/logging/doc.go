// Package logging provides structured logging for Wagonloader Core.
//
// It wraps log/slog with configuration-driven handler selection (JSON or
// text), level filtering, and default service/version attributes. Component
// packages derive scoped loggers via With:
//
//	log := logging.New(cfg.Logging, version)
//	loaderLog := log.With("component", "loading")
package logging
