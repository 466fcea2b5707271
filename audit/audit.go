// Package audit provides structured activity logging for guard operations.
// Events are emitted asynchronously through a bounded queue so a slow
// handler never blocks a scan.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Actions recorded by the SDK.
const (
	ActionLogin       = "login"
	ActionLogout      = "logout"
	ActionScan        = "scan"
	ActionOTPVerify   = "otp_verify"
	ActionPendingAck  = "pending_ack"
	ActionPollFailure = "poll_failure"
)

// Event is one guard activity record.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id,omitempty"`
	GuardID       string    `json:"guard_id,omitempty"`
	InvitationID  string    `json:"invitation_id,omitempty"`
	Action        string    `json:"action"`
	Result        string    `json:"result"` // granted, denied, otp_required, success, failure
	SecurityLevel int       `json:"security_level,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// Handler processes events. Implementations should not block.
type Handler func(event Event)

// Logger emits events to configured handlers.
type Logger struct {
	handlers []Handler
	queue    chan Event
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures Logger behavior.
type Option func(*Logger)

// WithStdoutHandler adds a handler that writes JSON events to stdout.
func WithStdoutHandler() Option {
	return func(l *Logger) {
		l.AddHandler(func(e Event) {
			data, _ := json.Marshal(e)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom event handler.
func WithHandler(h Handler) Option {
	return func(l *Logger) {
		l.AddHandler(h)
	}
}

// New creates a new activity logger with buffered async emission.
// bufferSize: event queue buffer size (default: 1000).
func New(bufferSize int, opts ...Option) *Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	logger := &Logger{
		handlers: make([]Handler, 0),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(logger)
	}

	logger.wg.Add(1)
	go logger.process()

	return logger
}

// AddHandler adds a handler to receive events.
func (l *Logger) AddHandler(h Handler) {
	l.handlers = append(l.handlers, h)
}

// Log emits an event asynchronously.
func (l *Logger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.queue <- event:
	case <-l.done:
		// Logger is shutting down, event is dropped
	}
}

// process handles events from the queue.
func (l *Logger) process() {
	defer l.wg.Done()

	for {
		select {
		case event := <-l.queue:
			for _, h := range l.handlers {
				h(event)
			}
		case <-l.done:
			// Drain remaining events
			for {
				select {
				case event := <-l.queue:
					for _, h := range l.handlers {
						h(event)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending events and stops the logger.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return nil
}

// FromContext retrieves the activity logger from context.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKeyLogger).(*Logger)
	if !ok {
		return nil
	}
	return logger
}

// WithContext stores the activity logger in context.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKeyLogger, logger)
}

type contextKey string

const contextKeyLogger contextKey = "audit.logger"
