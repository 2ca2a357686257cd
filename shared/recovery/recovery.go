package recovery

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// PanicHandler handles panic recovery
type PanicHandler struct {
	onPanic      func(recovered interface{}, stack []byte)
	logStack     bool
	returnErrors bool
}

// Option configures PanicHandler
type Option func(*PanicHandler)

// WithPanicCallback sets a callback for when panic occurs
func WithPanicCallback(fn func(recovered interface{}, stack []byte)) Option {
	return func(ph *PanicHandler) {
		ph.onPanic = fn
	}
}

// WithStackLogging enables stack trace printing
func WithStackLogging(enabled bool) Option {
	return func(ph *PanicHandler) {
		ph.logStack = enabled
	}
}

// WithErrorReturn includes the recovered value in returned errors
func WithErrorReturn(enabled bool) Option {
	return func(ph *PanicHandler) {
		ph.returnErrors = enabled
	}
}

// NewPanicHandler creates a new panic handler
func NewPanicHandler(opts ...Option) *PanicHandler {
	ph := &PanicHandler{logStack: true}
	for _, opt := range opts {
		opt(ph)
	}
	return ph
}

// Run calls fn and converts a panic into an error tagged with name.
func (ph *PanicHandler) Run(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ph.handlePanic(r, name)
		}
	}()
	return fn()
}

// HTTPMiddleware returns an HTTP middleware for panic recovery
func (ph *PanicHandler) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				_ = ph.handlePanic(rec, r.Method+" "+r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (ph *PanicHandler) handlePanic(recovered interface{}, where string) error {
	stack := debug.Stack()

	if ph.logStack {
		fmt.Printf("PANIC in %s: %v\n%s", where, recovered, stack)
	}
	if ph.onPanic != nil {
		ph.onPanic(recovered, stack)
	}
	capture(recovered, stack, where)

	if ph.returnErrors {
		return fmt.Errorf("%s: internal error: %v", where, recovered)
	}
	return fmt.Errorf("%s: internal error", where)
}

func capture(recovered interface{}, stack []byte, where string) {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetContext("panic", map[string]interface{}{
			"where":     where,
			"recovered": fmt.Sprint(recovered),
			"stack":     string(stack),
		})
		sentry.CaptureException(fmt.Errorf("panic: %v", recovered))
	})
}

// SafeGoWithContext runs a goroutine with panic recovery and context
func SafeGoWithContext(ctx context.Context, name string, fn func(context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				fmt.Printf("PANIC in goroutine %s: %v\n%s", name, r, stack)
				capture(r, stack, name)
			}
		}()
		fn(ctx)
	}()
}
