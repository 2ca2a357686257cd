package monitoring

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	apperrors "github.com/quangdang46/gu-marketplace/shared/errors"
)

// SentryConfig holds Sentry configuration options
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
	SampleRate  float64
	ServiceName string
}

// InitSentry initializes Sentry with the provided configuration. An empty
// DSN leaves Sentry disabled and is not an error.
func InitSentry(config *SentryConfig) (bool, error) {
	dsn := config.DSN
	if dsn == "" {
		dsn = os.Getenv("SENTRY_DSN")
	}
	if dsn == "" {
		return false, nil
	}

	environment := config.Environment
	if environment == "" {
		environment = os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}
	}

	release := config.Release
	if release == "" {
		release = os.Getenv("RELEASE_VERSION")
		if release == "" {
			release = "unknown"
		}
	}

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		if environment == "production" {
			sampleRate = 1.0
		} else {
			sampleRate = 0.25
		}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		Debug:            config.Debug,
		SampleRate:       sampleRate,
		AttachStacktrace: true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if config.ServiceName != "" {
				if event.Tags == nil {
					event.Tags = map[string]string{}
				}
				event.Tags["service"] = config.ServiceName
			}
			FilterSensitiveData(event)
			return event
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return true, nil
}

var sensitiveKeys = []string{
	"password", "secret", "token",
	"authorization", "api_key", "apikey",
	"private_key", "privatekey", "mnemonic",
	"signature",
}

// FilterSensitiveData removes keys and signatures from events.
func FilterSensitiveData(event *sentry.Event) {
	if event.Request != nil {
		for key := range event.Request.Headers {
			if containsSensitiveKey(key) {
				event.Request.Headers[key] = "[FILTERED]"
			}
		}
	}

	for contextKey, contextValue := range event.Contexts {
		for key := range contextValue {
			if containsSensitiveKey(key) {
				contextValue[key] = "[FILTERED]"
			}
		}
		event.Contexts[contextKey] = contextValue
	}

	for key := range event.Extra {
		if containsSensitiveKey(key) {
			event.Extra[key] = "[FILTERED]"
		}
	}
}

func containsSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// FlushSentry flushes buffered events
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureError captures an error and sends it to Sentry
func CaptureError(err error, tags map[string]string, extra map[string]interface{}) {
	hub := sentry.CurrentHub()
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range tags {
			scope.SetTag(key, value)
		}
		for key, value := range extra {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

// Reporter receives terminal trade failures.
type Reporter interface {
	Report(err error, tags map[string]string, extra map[string]interface{})
}

// SentryReporter forwards failures to Sentry. Wallet rejections are user
// decisions and are never reported.
type SentryReporter struct{}

func (SentryReporter) Report(err error, tags map[string]string, extra map[string]interface{}) {
	if !Reportable(err) {
		return
	}
	if tags == nil {
		tags = map[string]string{}
	}
	tags["error_code"] = apperrors.GetCode(err)
	CaptureError(err, tags, extra)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Report(error, map[string]string, map[string]interface{}) {}

// Reportable reports whether err is worth sending to Sentry.
func Reportable(err error) bool {
	if err == nil {
		return false
	}
	return !apperrors.IsType(err, apperrors.ErrorTypeUserRejected) &&
		!apperrors.IsType(err, apperrors.ErrorTypeSignatureRejected)
}
