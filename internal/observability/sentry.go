package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryConfig holds Sentry configuration. An empty DSN disables reporting.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

// InitSentry sets up Sentry if a DSN is provided. It reports whether
// reporting is enabled.
func InitSentry(cfg SentryConfig) (bool, error) {
	if cfg.DSN == "" {
		return false, nil
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      environment,
		Release:          cfg.Release,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, fmt.Errorf("initialize sentry: %w", err)
	}
	return true, nil
}

// FlushSentry waits for buffered events to be sent.
func FlushSentry(timeout time.Duration) {
	if sentry.CurrentHub().Client() != nil {
		sentry.Flush(timeout)
	}
}

// CaptureError reports err with tags. It is a no-op when Sentry is not
// initialized or err is nil.
func CaptureError(err error, tags map[string]string) {
	if sentry.CurrentHub().Client() == nil || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}
